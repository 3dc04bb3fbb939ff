package ingest

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/mentionsense/store"
)

// Watermark is the highest platform id whose handling has completed. The zero
// value covers nothing.
type Watermark string

// CompareIDs orders platform ids numerically without parsing them, since they
// may exceed 64 bits. Non-numeric ids fall back to byte order.
func CompareIDs(a, b string) int {
	if isDigits(a) && isDigits(b) {
		a, b = trimZeros(a), trimZeros(b)
		if len(a) != len(b) {
			if len(a) < len(b) {
				return -1
			}
			return 1
		}
	}
	return strings.Compare(a, b)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func trimZeros(s string) string {
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

func (w Watermark) IsZero() bool {
	return w == ""
}

// Covers reports whether id was already handled.
func (w Watermark) Covers(id string) bool {
	return !w.IsZero() && CompareIDs(id, string(w)) <= 0
}

// Advance returns the watermark moved to id; it never moves backwards.
func (w Watermark) Advance(id string) Watermark {
	if id == "" || w.Covers(id) {
		return w
	}
	return Watermark(id)
}

// SettingStore persists watermarks.
type SettingStore interface {
	GetSystemSetting(ctx context.Context, name string) (*store.SystemSetting, error)
	UpsertSystemSetting(ctx context.Context, upsert *store.SystemSetting) (*store.SystemSetting, error)
}

// WatermarkKey is the system setting holding the watermark of an agent.
func WatermarkKey(handle string) string {
	return "watermark:" + handle
}

// LoadWatermark returns the persisted watermark, or the zero value.
func LoadWatermark(ctx context.Context, s SettingStore, handle string) (Watermark, error) {
	setting, err := s.GetSystemSetting(ctx, WatermarkKey(handle))
	if err != nil {
		return "", errors.Wrap(err, "failed to load watermark")
	}
	if setting == nil {
		return "", nil
	}
	return Watermark(strings.TrimSpace(setting.Value)), nil
}

// SaveWatermark persists wm.
func SaveWatermark(ctx context.Context, s SettingStore, handle string, wm Watermark) error {
	_, err := s.UpsertSystemSetting(ctx, &store.SystemSetting{
		Name:        WatermarkKey(handle),
		Value:       string(wm),
		Description: "highest mention id handled by @" + handle,
	})
	return errors.Wrap(err, "failed to save watermark")
}
