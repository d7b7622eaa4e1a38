package chat

import "github.com/chirpverse/chirp/backend/internal/messages"

// Event is the envelope pushed over a live connection.
type Event struct {
	Type    string           `json:"type"` // "newMessage"
	Message messages.Message `json:"message"`
}
