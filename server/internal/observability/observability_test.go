package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContextLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	rc := NewRequestContext(logger, "agent", "1001")
	require.NotEmpty(t, rc.RequestID)
	rc.Error("handle failed", errors.New("boom"), "TRANSIENT", slog.String(LogFieldOutcome, "drop"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "handle failed", entry["msg"])
	assert.Equal(t, rc.RequestID, entry[LogFieldRequestID])
	assert.Equal(t, "1001", entry[LogFieldMentionID])
	assert.Equal(t, "agent", entry[LogFieldAgent])
	assert.Equal(t, "TRANSIENT", entry[LogFieldErrorCode])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "drop", entry[LogFieldOutcome])
}

func TestRequestContextFromContext(t *testing.T) {
	rc := NewRequestContext(nil, "agent", "7")
	ctx := WithRequestContext(context.Background(), rc)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, rc, got)
	assert.Same(t, rc, Logger(ctx))

	anon := Logger(context.Background())
	assert.Empty(t, anon.MentionID)
	assert.NotNil(t, anon.Logger)

	tagged := rc.With(slog.String(LogFieldTickID, "t1"))
	assert.Equal(t, rc.RequestID, tagged.RequestID)
	assert.NotSame(t, rc.Logger, tagged.Logger)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics(2)
	m.RecordTick()
	m.RecordMention("shill", 10*time.Millisecond)
	m.RecordMention("shill", 20*time.Millisecond)
	m.RecordMention("ignore", 30*time.Millisecond)
	m.RecordFailure()

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.Ticks)
	assert.Equal(t, int64(3), snap.MentionsHandled)
	assert.Equal(t, int64(1), snap.MentionsFailed)
	assert.Equal(t, int64(2), snap.Outcomes["shill"])
	assert.Equal(t, int64(1), snap.Outcomes["ignore"])
	assert.Equal(t, 25*time.Millisecond, snap.AverageDuration)
	assert.InDelta(t, 75.0, snap.SuccessRate(), 0.001)

	assert.Equal(t, 100.0, NewMetrics(0).Snapshot().SuccessRate())
}
