package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Initials derives an avatar label from a display name: upper-case first
// letters of the first two words. Empty names map to "UN" (unknown).
func Initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		b.WriteString(strings.ToUpper(word[:1]))
		if b.Len() >= 2 {
			break
		}
	}
	if b.Len() == 0 {
		return "UN"
	}
	return b.String()
}

// UpsertContact inserts or updates a contact. An empty avatar is derived
// from the name's initials; empty fields never overwrite existing values.
func (db *DB) UpsertContact(c *Contact) error {
	if err := ValidatePhone(c.Phone); err != nil {
		return err
	}
	avatar := c.Avatar
	if avatar == "" && c.Name != "" {
		avatar = Initials(c.Name)
	}
	_, err := db.Exec(`
		INSERT INTO contacts (phone, name, avatar, is_active, last_seen_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(phone) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE contacts.name END,
			avatar = CASE WHEN excluded.avatar != '' THEN excluded.avatar ELSE contacts.avatar END,
			is_active = excluded.is_active,
			last_seen_at = MAX(contacts.last_seen_at, excluded.last_seen_at),
			updated_at = excluded.updated_at`,
		c.Phone, c.Name, avatar, c.IsActive, c.LastSeenAt, time.Now().UnixMilli())
	return err
}

// BulkUpsertContacts inserts or updates multiple contacts in a single
// transaction.
func (db *DB) BulkUpsertContacts(contacts []Contact) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, c := range contacts {
		if err := ValidatePhone(c.Phone); err != nil {
			return err
		}
		avatar := c.Avatar
		if avatar == "" && c.Name != "" {
			avatar = Initials(c.Name)
		}
		if _, err := tx.Exec(`
			INSERT INTO contacts (phone, name, avatar, is_active, last_seen_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(phone) DO UPDATE SET
				name = CASE WHEN excluded.name != '' THEN excluded.name ELSE contacts.name END,
				avatar = CASE WHEN excluded.avatar != '' THEN excluded.avatar ELSE contacts.avatar END,
				is_active = excluded.is_active,
				last_seen_at = MAX(contacts.last_seen_at, excluded.last_seen_at),
				updated_at = excluded.updated_at`,
			c.Phone, c.Name, avatar, c.IsActive, c.LastSeenAt, now); err != nil {
			return fmt.Errorf("upsert contact %q: %w", c.Phone, err)
		}
	}
	return tx.Commit()
}

// GetContact returns a contact by phone number.
func (db *DB) GetContact(phone string) (*Contact, error) {
	var c Contact
	err := db.QueryRow(`SELECT phone, name, avatar, is_active, last_seen_at FROM contacts WHERE phone = ?`, phone).
		Scan(&c.Phone, &c.Name, &c.Avatar, &c.IsActive, &c.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
