package messages

import (
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
)

// Message is a direct message between two users. The JSON shape matches what
// both the HTTP endpoints and the websocket newMessage event carry.
type Message struct {
	ID            int64     `db:"id" json:"id"`
	SenderID      int64     `db:"sender_id" json:"senderId"`
	SenderName    string    `db:"sender_name" json:"senderName"`
	RecipientID   int64     `db:"recipient_id" json:"-"`
	RecipientName string    `db:"-" json:"-"`
	Content       string    `db:"content" json:"content"`
	CreatedAt     time.Time `db:"created_at" json:"timestamp"`
	Read          bool      `db:"read" json:"read"`
}

// Store persists direct messages. It is the single source of truth for
// message state; nothing above it caches.
type Store struct {
	db     *sqlx.DB
	maxLen int
}

func NewStore(db *sqlx.DB, maxLen int) *Store {
	return &Store{db: db, maxLen: maxLen}
}

// Send validates and persists a new message with read=false and a
// server-assigned timestamp, returning the record with resolved display
// names. Self-messages are rejected.
func (s *Store) Send(senderID, recipientID int64, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > s.maxLen {
		return nil, ErrContentTooLong
	}
	if senderID == recipientID {
		return nil, ErrSelfMessage
	}

	var recipientName string
	q := s.db.Rebind(`SELECT username FROM users WHERE id=?`)
	if err := s.db.QueryRowx(q, recipientID).Scan(&recipientName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var senderName string
	if err := s.db.QueryRowx(q, senderID).Scan(&senderName); err != nil {
		return nil, err
	}

	msg := &Message{
		SenderID:      senderID,
		SenderName:    senderName,
		RecipientID:   recipientID,
		RecipientName: recipientName,
		Content:       content,
		CreatedAt:     time.Now().UTC(),
		Read:          false,
	}
	q = s.db.Rebind(`INSERT INTO messages (sender_id, recipient_id, content, read, created_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	if err := s.db.QueryRowx(q, msg.SenderID, msg.RecipientID, msg.Content, msg.Read, msg.CreatedAt).Scan(&msg.ID); err != nil {
		return nil, err
	}
	return msg, nil
}

// History returns every message exchanged between userID and partnerID in
// ascending (created_at, id) order, and marks the unread ones addressed to
// userID as read in the same transaction. The returned read flags are the
// state at fetch time, so the caller sees which messages were new.
func (s *Store) History(userID, partnerID int64) ([]Message, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	q := tx.Rebind(`
		SELECT m.id, m.sender_id, COALESCE(u.username, 'unknown') AS sender_name,
		       m.recipient_id, m.content, m.read, m.created_at
		FROM messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE (m.sender_id=? AND m.recipient_id=?) OR (m.sender_id=? AND m.recipient_id=?)
		ORDER BY m.created_at ASC, m.id ASC`)
	var list []Message
	if err := tx.Select(&list, q, userID, partnerID, partnerID, userID); err != nil {
		return nil, err
	}

	q = tx.Rebind(`UPDATE messages SET read=? WHERE sender_id=? AND recipient_id=? AND read=?`)
	if _, err := tx.Exec(q, true, partnerID, userID, false); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkRead flips every unread message from partnerID to userID to read.
// Idempotent; a second call is a no-op.
func (s *Store) MarkRead(userID, partnerID int64) error {
	q := s.db.Rebind(`UPDATE messages SET read=? WHERE sender_id=? AND recipient_id=? AND read=?`)
	_, err := s.db.Exec(q, true, partnerID, userID, false)
	return err
}
