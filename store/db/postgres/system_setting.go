package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/mentionsense/store"
)

func (d *DB) UpsertSystemSetting(ctx context.Context, upsert *store.SystemSetting) (*store.SystemSetting, error) {
	stmt := `INSERT INTO system_setting (name, value, description)
		VALUES (` + placeholders(3) + `)
		ON CONFLICT (name) DO UPDATE
		SET value = EXCLUDED.value, description = EXCLUDED.description`
	if _, err := d.db.ExecContext(ctx, stmt, upsert.Name, upsert.Value, upsert.Description); err != nil {
		return nil, fmt.Errorf("failed to upsert system_setting: %w", err)
	}
	return upsert, nil
}

func (d *DB) ListSystemSettings(ctx context.Context, find *store.FindSystemSetting) ([]*store.SystemSetting, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find != nil && find.Name != nil {
		where, args = append(where, "name = "+placeholder(len(args)+1)), append(args, *find.Name)
	}

	query := `SELECT name, value, description FROM system_setting WHERE ` + strings.Join(where, " AND ") + ` ORDER BY name`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list system_settings: %w", err)
	}
	defer rows.Close()

	list := []*store.SystemSetting{}
	for rows.Next() {
		setting := &store.SystemSetting{}
		if err := rows.Scan(&setting.Name, &setting.Value, &setting.Description); err != nil {
			return nil, fmt.Errorf("failed to scan system_setting: %w", err)
		}
		list = append(list, setting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate system_settings: %w", err)
	}
	return list, nil
}
