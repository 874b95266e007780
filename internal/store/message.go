package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppendMessage validates and persists a new message, assigning its id,
// initial status and immutable creation timestamp. Outgoing messages
// start at sent; incoming messages start at delivered unless the caller
// marked them read. Validation happens before any write.
func (db *DB) AppendMessage(m *Message) (*Message, error) {
	body, err := normalizeBody(m.Body)
	if err != nil {
		return nil, err
	}
	if err := ValidatePhone(m.Sender); err != nil {
		return nil, err
	}
	if err := ValidatePhone(m.Recipient); err != nil {
		return nil, err
	}

	var status Status
	switch m.Direction {
	case DirectionOutgoing:
		status = StatusSent
	case DirectionIncoming:
		status = StatusDelivered
		if m.Status == StatusRead {
			status = StatusRead
		}
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid direction %q", m.Direction)}
	}

	createdAt := m.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	stored := &Message{
		ID:             uuid.NewString(),
		ConversationID: m.ConversationID,
		Sender:         m.Sender,
		Recipient:      m.Recipient,
		Body:           body,
		Direction:      m.Direction,
		Status:         status,
		CreatedAt:      createdAt,
	}

	_, err = db.Exec(`
		INSERT INTO messages (id, conversation_id, sender, recipient, body, direction, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.ConversationID, stored.Sender, stored.Recipient,
		stored.Body, stored.Direction, stored.Status, stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return stored, nil
}

// GetMessage returns a message by id.
func (db *DB) GetMessage(id string) (*Message, error) {
	var m Message
	err := db.QueryRow(`
		SELECT id, conversation_id, sender, recipient, body, direction, status, created_at
		FROM messages WHERE id = ?`, id).
		Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Recipient, &m.Body, &m.Direction, &m.Status, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SetStatus advances a message's status under the monotonic transition
// guard. Returns ErrNotFound for an unknown id and InvalidTransitionError
// when the target does not follow from the current status; the stored
// status is never coerced.
func (db *DB) SetStatus(id string, to Status) (*Message, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var m Message
	err = tx.QueryRow(`
		SELECT id, conversation_id, sender, recipient, body, direction, status, created_at
		FROM messages WHERE id = ?`, id).
		Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Recipient, &m.Body, &m.Direction, &m.Status, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := CheckTransition(m.Status, to); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`UPDATE messages SET status = ? WHERE id = ?`, to, id); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	m.Status = to
	return &m, nil
}

// ListMessages returns a page of a conversation's messages ordered by
// creation time (ascending unless descending is set), tie-broken by id.
// Pages are numbered from 1; the cursor is stateless.
func (db *DB) ListMessages(conversationID string, page, limit int, descending bool) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	order := "ASC"
	if descending {
		order = "DESC"
	}

	rows, err := db.Query(fmt.Sprintf(`
		SELECT id, conversation_id, sender, recipient, body, direction, status, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at %s, id %s
		LIMIT ? OFFSET ?`, order, order),
		conversationID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Recipient, &m.Body, &m.Direction, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MessageCount returns the total number of messages.
func (db *DB) MessageCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

// ConversationMessageCount returns how many messages a conversation holds.
func (db *DB) ConversationMessageCount(conversationID string) (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&count)
	return count, err
}
