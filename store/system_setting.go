package store

import (
	"context"

	"github.com/pkg/errors"
)

const schemaVersionSettingName = "schema_version"

type SystemSetting struct {
	Name        string
	Value       string
	Description string
}

type FindSystemSetting struct {
	Name *string
}

func (s *Store) UpsertSystemSetting(ctx context.Context, upsert *SystemSetting) (*SystemSetting, error) {
	return s.driver.UpsertSystemSetting(ctx, upsert)
}

func (s *Store) ListSystemSettings(ctx context.Context, find *FindSystemSetting) ([]*SystemSetting, error) {
	return s.driver.ListSystemSettings(ctx, find)
}

// GetSystemSetting returns nil, nil when the setting has never been written.
func (s *Store) GetSystemSetting(ctx context.Context, name string) (*SystemSetting, error) {
	list, err := s.driver.ListSystemSettings(ctx, &FindSystemSetting{Name: &name})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get system setting %s", name)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
