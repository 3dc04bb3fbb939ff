package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/hrygo/mentionsense/store"
)

func (d *DB) UpsertAccount(ctx context.Context, upsert *store.Account) error {
	if upsert.CreatedTs == 0 {
		upsert.CreatedTs = time.Now().Unix()
	}
	stmt := `INSERT INTO account (id, username, name, source, created_ts)
		VALUES (` + placeholders(5) + `)
		ON CONFLICT (id) DO NOTHING`
	if _, err := d.db.ExecContext(ctx, stmt, upsert.ID, upsert.Username, upsert.Name, upsert.Source, upsert.CreatedTs); err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

func (d *DB) UpsertRoom(ctx context.Context, upsert *store.Room) error {
	if upsert.CreatedTs == 0 {
		upsert.CreatedTs = time.Now().Unix()
	}
	stmt := `INSERT INTO room (id, created_ts) VALUES (` + placeholders(2) + `) ON CONFLICT (id) DO NOTHING`
	if _, err := d.db.ExecContext(ctx, stmt, upsert.ID, upsert.CreatedTs); err != nil {
		return fmt.Errorf("failed to upsert room: %w", err)
	}
	return nil
}

func (d *DB) UpsertParticipant(ctx context.Context, upsert *store.Participant) error {
	if upsert.CreatedTs == 0 {
		upsert.CreatedTs = time.Now().Unix()
	}
	stmt := `INSERT INTO participant (user_id, room_id, created_ts)
		VALUES (` + placeholders(3) + `)
		ON CONFLICT (user_id, room_id) DO NOTHING`
	if _, err := d.db.ExecContext(ctx, stmt, upsert.UserID, upsert.RoomID, upsert.CreatedTs); err != nil {
		return fmt.Errorf("failed to upsert participant: %w", err)
	}
	return nil
}
