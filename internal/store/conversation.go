package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CanonicalPair returns the two participant numbers in sorted order.
// Conversations are keyed on this form so the pair is order-independent.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// FindOrCreateConversation looks up the conversation for an unordered
// participant pair, creating it on first contact. This is the sole point
// of duplicate prevention; the UNIQUE(participant_a, participant_b)
// constraint backs it against concurrent creates.
func (db *DB) FindOrCreateConversation(a, b string) (*Conversation, error) {
	if err := ValidatePhone(a); err != nil {
		return nil, err
	}
	if err := ValidatePhone(b); err != nil {
		return nil, err
	}
	if a == b {
		return nil, &ValidationError{Reason: "conversation participants must differ"}
	}

	pa, pb := CanonicalPair(a, b)
	if c, err := db.findByPair(pa, pb); err != nil {
		return nil, err
	} else if c != nil {
		return c, nil
	}

	now := time.Now().UnixMilli()
	// last_activity_at starts at zero so the first message's activity
	// always applies, even when backfilling older history.
	c := &Conversation{
		ID:           uuid.NewString(),
		ParticipantA: pa,
		ParticipantB: pb,
	}
	_, err := db.Exec(`
		INSERT INTO conversations (id, participant_a, participant_b, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.ParticipantA, c.ParticipantB, now, now)
	if err != nil {
		// Lost a create race: the pair now exists, use the winner's row.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			if existing, ferr := db.findByPair(pa, pb); ferr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return c, nil
}

func (db *DB) findByPair(pa, pb string) (*Conversation, error) {
	var c Conversation
	err := db.QueryRow(`
		SELECT id, participant_a, participant_b, last_message_id, last_message_preview,
		       last_activity_at, unread_count, is_archived, is_muted
		FROM conversations WHERE participant_a = ? AND participant_b = ?`, pa, pb).
		Scan(&c.ID, &c.ParticipantA, &c.ParticipantB, &c.LastMessageID, &c.LastMessagePreview,
			&c.LastActivityAt, &c.UnreadCount, &c.IsArchived, &c.IsMuted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConversation returns a conversation by id.
func (db *DB) GetConversation(id string) (*Conversation, error) {
	var c Conversation
	err := db.QueryRow(`
		SELECT id, participant_a, participant_b, last_message_id, last_message_preview,
		       last_activity_at, unread_count, is_archived, is_muted
		FROM conversations WHERE id = ?`, id).
		Scan(&c.ID, &c.ParticipantA, &c.ParticipantB, &c.LastMessageID, &c.LastMessagePreview,
			&c.LastActivityAt, &c.UnreadCount, &c.IsArchived, &c.IsMuted)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RecordActivity updates the conversation's last-message reference and
// activity timestamp, but only when ts is not older than the current
// last activity. A stale update (delayed event behind a newer message)
// is skipped silently.
func (db *DB) RecordActivity(conversationID, messageID, preview string, ts int64) error {
	res, err := db.Exec(`
		UPDATE conversations
		SET last_message_id = ?, last_message_preview = ?, last_activity_at = ?, updated_at = ?
		WHERE id = ? AND last_activity_at <= ?`,
		messageID, truncate(preview, 100), ts, time.Now().UnixMilli(), conversationID, ts)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the conversation is missing or the update was stale.
		if _, err := db.GetConversation(conversationID); err != nil {
			return err
		}
	}
	return nil
}

// IncrementUnread bumps the conversation's unread counter.
func (db *DB) IncrementUnread(conversationID string) error {
	return db.adjustUnread(`unread_count = unread_count + 1`, conversationID)
}

// ResetUnread zeroes the unread counter. Idempotent.
func (db *DB) ResetUnread(conversationID string) error {
	return db.adjustUnread(`unread_count = 0`, conversationID)
}

func (db *DB) adjustUnread(set string, conversationID string) error {
	res, err := db.Exec(`UPDATE conversations SET `+set+`, updated_at = ? WHERE id = ?`,
		time.Now().UnixMilli(), conversationID)
	if err != nil {
		return fmt.Errorf("update unread: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetArchived flags or unflags a conversation as archived.
func (db *DB) SetArchived(conversationID string, archived bool) error {
	res, err := db.Exec(`UPDATE conversations SET is_archived = ?, updated_at = ? WHERE id = ?`,
		archived, time.Now().UnixMilli(), conversationID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const conversationViewSelect = `
	SELECT c.id, c.participant_a, c.participant_b, c.last_message_id, c.last_message_preview,
	       c.last_activity_at, c.unread_count, c.is_archived, c.is_muted,
	       CASE WHEN c.participant_a = ? THEN c.participant_b ELSE c.participant_a END AS contact_phone,
	       COALESCE(NULLIF(ct.name, ''), 'Unknown Contact') AS contact_name,
	       COALESCE(NULLIF(ct.avatar, ''), 'UN') AS contact_avatar
	FROM conversations c
	LEFT JOIN contacts ct
	       ON ct.phone = CASE WHEN c.participant_a = ? THEN c.participant_b ELSE c.participant_a END`

// ListConversations returns a page of the business account's
// conversations ordered by last activity descending, tie-broken by id so
// the ordering is stable for equal timestamps.
func (db *DB) ListConversations(business string, page, limit int, includeArchived bool) ([]ConversationView, error) {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}

	q := conversationViewSelect + `
	WHERE (c.participant_a = ? OR c.participant_b = ?)`
	args := []any{business, business, business, business}
	if !includeArchived {
		q += ` AND c.is_archived = 0`
	}
	q += `
	ORDER BY c.last_activity_at DESC, c.id ASC
	LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	return db.queryConversationViews(q, args...)
}

// SearchConversations finds the business account's conversations whose
// contact name matches the query (case-insensitive substring), recency
// ordered.
func (db *DB) SearchConversations(business, query string, limit int) ([]ConversationView, error) {
	if limit <= 0 {
		limit = 10
	}

	q := conversationViewSelect + `
	WHERE (c.participant_a = ? OR c.participant_b = ?)
	  AND ct.name LIKE '%' || ? || '%' COLLATE NOCASE
	ORDER BY c.last_activity_at DESC, c.id ASC
	LIMIT ?`

	return db.queryConversationViews(q, business, business, business, business, query, limit)
}

func (db *DB) queryConversationViews(q string, args ...any) ([]ConversationView, error) {
	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var views []ConversationView
	for rows.Next() {
		var v ConversationView
		if err := rows.Scan(&v.ID, &v.ParticipantA, &v.ParticipantB, &v.LastMessageID, &v.LastMessagePreview,
			&v.LastActivityAt, &v.UnreadCount, &v.IsArchived, &v.IsMuted,
			&v.ContactPhone, &v.ContactName, &v.ContactAvatar); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// ConversationCount returns the total number of conversations.
func (db *DB) ConversationCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM conversations`).Scan(&count)
	return count, err
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
