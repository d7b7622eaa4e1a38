package conversations

import (
	"time"

	"github.com/jmoiron/sqlx"
)

// Conversation is one row of a user's inbox: the partner, the most recent
// message exchanged with them, and how many of their messages are still
// unread. Derived on demand, never stored.
type Conversation struct {
	PartnerID       int64     `json:"id"`
	ParticipantName string    `json:"participantName"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime time.Time `json:"lastMessageTime"`
	UnreadCount     int       `json:"unreadCount"`
}

type Service struct {
	db *sqlx.DB
}

func NewService(db *sqlx.DB) *Service {
	return &Service{db: db}
}

type convRow struct {
	ID          int64     `db:"id"`
	SenderID    int64     `db:"sender_id"`
	RecipientID int64     `db:"recipient_id"`
	Content     string    `db:"content"`
	Read        bool      `db:"read"`
	CreatedAt   time.Time `db:"created_at"`
	PartnerName string    `db:"partner_name"`
}

// ListForUser builds the conversation list for userID, newest conversation
// first. One SQL pass pulls every message involving the user in
// (created_at, id) descending order with the partner's name joined in; one
// linear reduce groups by partner. The first row seen for a partner is that
// conversation's last message, which makes the same-timestamp tie-break
// "higher id wins". A partner whose user row is gone keeps the conversation
// under the name "unknown".
func (s *Service) ListForUser(userID int64) ([]Conversation, error) {
	q := s.db.Rebind(`
		SELECT m.id, m.sender_id, m.recipient_id, m.content, m.read, m.created_at,
		       COALESCE(u.username, 'unknown') AS partner_name
		FROM messages m
		LEFT JOIN users u
		  ON u.id = CASE WHEN m.sender_id = ? THEN m.recipient_id ELSE m.sender_id END
		WHERE m.sender_id = ? OR m.recipient_id = ?
		ORDER BY m.created_at DESC, m.id DESC`)

	var rows []convRow
	if err := s.db.Select(&rows, q, userID, userID, userID); err != nil {
		return nil, err
	}

	list := []Conversation{}
	index := make(map[int64]int) // partner id -> position in list
	for _, r := range rows {
		partner := r.SenderID
		if partner == userID {
			partner = r.RecipientID
		}
		i, seen := index[partner]
		if !seen {
			i = len(list)
			index[partner] = i
			list = append(list, Conversation{
				PartnerID:       partner,
				ParticipantName: r.PartnerName,
				LastMessage:     r.Content,
				LastMessageTime: r.CreatedAt,
			})
		}
		if r.RecipientID == userID && !r.Read {
			list[i].UnreadCount++
		}
	}
	return list, nil
}
