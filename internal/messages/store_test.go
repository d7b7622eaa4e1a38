package messages

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chirpverse/chirp/backend/internal/storage/sqlite"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *sqlx.DB) {
	t.Helper()
	conn, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, conn.MigrateFrom(filepath.Join("..", "..", "sql", "sqlite", "schema.sql")))
	t.Cleanup(func() { conn.Db.Close() })
	return NewStore(conn.Db, 2000), conn.Db
}

func seedUser(t *testing.T, db *sqlx.DB, username string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowx(`INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?) RETURNING id`,
		username, username+"@example.com", "x").Scan(&id)
	require.NoError(t, err)
	return id
}

func unreadFrom(t *testing.T, db *sqlx.DB, recipient, sender int64) int {
	t.Helper()
	var n int
	err := db.QueryRowx(`SELECT COUNT(1) FROM messages WHERE recipient_id=? AND sender_id=? AND read=0`,
		recipient, sender).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestSendThenHistory(t *testing.T) {
	req := require.New(t)
	store, db := newTestStore(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	msg, err := store.Send(alice, bob, "hello there")
	req.NoError(err)
	req.NotZero(msg.ID)
	req.Equal("alice", msg.SenderName)
	req.Equal("bob", msg.RecipientName)
	req.False(msg.Read)
	req.False(msg.CreatedAt.IsZero())

	list, err := store.History(alice, bob)
	req.NoError(err)
	req.Len(list, 1)
	req.Equal(msg.ID, list[0].ID)
	req.Equal("hello there", list[0].Content)
	req.False(list[0].Read)
}

func TestSend_Validation(t *testing.T) {
	store, db := newTestStore(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	tests := []struct {
		name      string
		sender    int64
		recipient int64
		content   string
		wantErr   error
	}{
		{"empty content", alice, bob, "", ErrEmptyContent},
		{"whitespace only", alice, bob, "   \n\t ", ErrEmptyContent},
		{"too long", alice, bob, strings.Repeat("x", 2001), ErrContentTooLong},
		{"self message", alice, alice, "hi me", ErrSelfMessage},
		{"unknown recipient", alice, 99999, "hi", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Send(tt.sender, tt.recipient, tt.content)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSend_TrimsContent(t *testing.T) {
	req := require.New(t)
	store, db := newTestStore(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	msg, err := store.Send(alice, bob, "  spaced out  ")
	req.NoError(err)
	req.Equal("spaced out", msg.Content)
}

func TestHistory_MarksReadInOneUnit(t *testing.T) {
	req := require.New(t)
	store, db := newTestStore(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	_, err := store.Send(alice, bob, "one")
	req.NoError(err)
	_, err = store.Send(alice, bob, "two")
	req.NoError(err)
	req.Equal(2, unreadFrom(t, db, bob, alice))

	// Opening the conversation flips everything addressed to bob.
	list, err := store.History(bob, alice)
	req.NoError(err)
	req.Len(list, 2)
	// Returned flags show the state at fetch time.
	req.False(list[0].Read)
	req.False(list[1].Read)
	req.Equal(0, unreadFrom(t, db, bob, alice))

	// A second open sees them already read.
	list, err = store.History(bob, alice)
	req.NoError(err)
	req.True(list[0].Read)
	req.True(list[1].Read)
}

func TestHistory_DoesNotTouchOtherPairs(t *testing.T) {
	req := require.New(t)
	store, db := newTestStore(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	_, err := store.Send(alice, bob, "from alice")
	req.NoError(err)
	_, err = store.Send(carol, bob, "from carol")
	req.NoError(err)

	_, err = store.History(bob, alice)
	req.NoError(err)

	req.Equal(0, unreadFrom(t, db, bob, alice))
	req.Equal(1, unreadFrom(t, db, bob, carol))
}

func TestHistory_AscendingOrder(t *testing.T) {
	req := require.New(t)
	store, db := newTestStore(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, content := range []string{"first", "second", "third"} {
		_, err := db.Exec(`INSERT INTO messages (sender_id, recipient_id, content, read, created_at) VALUES (?, ?, ?, 0, ?)`,
			alice, bob, content, base.Add(time.Duration(i)*time.Minute))
		req.NoError(err)
	}

	list, err := store.History(bob, alice)
	req.NoError(err)
	req.Len(list, 3)
	req.Equal("first", list[0].Content)
	req.Equal("second", list[1].Content)
	req.Equal("third", list[2].Content)
}

func TestMarkRead_Idempotent(t *testing.T) {
	req := require.New(t)
	store, db := newTestStore(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	_, err := store.Send(alice, bob, "ping")
	req.NoError(err)

	req.NoError(store.MarkRead(bob, alice))
	req.Equal(0, unreadFrom(t, db, bob, alice))

	// Second call is a no-op with the same final state.
	req.NoError(store.MarkRead(bob, alice))
	req.Equal(0, unreadFrom(t, db, bob, alice))
}

func TestMarkRead_LeavesOwnSentMessagesAlone(t *testing.T) {
	req := require.New(t)
	store, db := newTestStore(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	_, err := store.Send(bob, alice, "to alice")
	req.NoError(err)
	_, err = store.Send(alice, bob, "to bob")
	req.NoError(err)

	req.NoError(store.MarkRead(bob, alice))

	// Only messages addressed to bob flipped; alice's inbox is untouched.
	req.Equal(1, unreadFrom(t, db, alice, bob))
	req.Equal(0, unreadFrom(t, db, bob, alice))
}
