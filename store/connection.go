package store

import (
	"context"

	"github.com/pkg/errors"
)

// Account is a platform user known to the agent.
type Account struct {
	ID        string
	Username  string
	Name      string
	Source    string
	CreatedTs int64
}

// Room groups memories, one per conversation or registry.
type Room struct {
	ID        string
	CreatedTs int64
}

// Participant links an account to a room.
type Participant struct {
	UserID    string
	RoomID    string
	CreatedTs int64
}

// Connection describes the account, room and membership to ensure before a
// memory is written.
type Connection struct {
	UserID   string
	RoomID   string
	Username string
	Name     string
	Source   string
}

// EnsureConnection creates the account, room and participant rows if they are
// missing. Existing rows are left untouched.
func (s *Store) EnsureConnection(ctx context.Context, conn *Connection) error {
	if conn.UserID == "" || conn.RoomID == "" {
		return errors.New("connection requires user id and room id")
	}
	key := conn.UserID + "/" + conn.RoomID
	if _, ok := s.connectionCache.Get(key); ok {
		return nil
	}

	if err := s.driver.UpsertAccount(ctx, &Account{
		ID:       conn.UserID,
		Username: conn.Username,
		Name:     conn.Name,
		Source:   conn.Source,
	}); err != nil {
		return errors.Wrap(err, "failed to ensure account")
	}
	if err := s.driver.UpsertRoom(ctx, &Room{ID: conn.RoomID}); err != nil {
		return errors.Wrap(err, "failed to ensure room")
	}
	if err := s.driver.UpsertParticipant(ctx, &Participant{UserID: conn.UserID, RoomID: conn.RoomID}); err != nil {
		return errors.Wrap(err, "failed to ensure participant")
	}

	s.connectionCache.Set(key, struct{}{}, 0)
	return nil
}
