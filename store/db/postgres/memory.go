package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/hrygo/mentionsense/store"
)

func (d *DB) CreateMemory(ctx context.Context, create *store.Memory) (*store.Memory, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().UnixMilli()
	}
	content, err := json.Marshal(create.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal memory content: %w", err)
	}
	var embedding any
	if len(create.Embedding) > 0 {
		embedding = pgvector.NewVector(create.Embedding)
	}

	fields := []string{"id", "agent_id", "user_id", "room_id", "content", "embedding", "created_ts"}
	args := []any{create.ID, create.AgentID, create.UserID, create.RoomID, string(content), embedding, create.CreatedTs}
	stmt := `INSERT INTO memory (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT (id) DO NOTHING`

	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		existing, err := d.GetMemory(ctx, create.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}
	return create, nil
}

func (d *DB) GetMemory(ctx context.Context, id string) (*store.Memory, error) {
	list, err := d.ListMemories(ctx, &store.FindMemory{ID: &id, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (d *DB) ListMemories(ctx context.Context, find *store.FindMemory) ([]*store.Memory, error) {
	if find == nil {
		return nil, fmt.Errorf("find parameter cannot be nil")
	}

	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.RoomID != nil {
		where, args = append(where, "room_id = "+placeholder(len(args)+1)), append(args, *find.RoomID)
	}

	query := `SELECT id, agent_id, user_id, room_id, content, embedding, created_ts
		FROM memory WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Memory, 0)
	for rows.Next() {
		m := &store.Memory{}
		var content string
		var vector *pgvector.Vector
		if err := rows.Scan(&m.ID, &m.AgentID, &m.UserID, &m.RoomID, &content, &vector, &m.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		if err := json.Unmarshal([]byte(content), &m.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal memory content: %w", err)
		}
		if vector != nil {
			m.Embedding = vector.Slice()
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memories: %w", err)
	}
	return list, nil
}

