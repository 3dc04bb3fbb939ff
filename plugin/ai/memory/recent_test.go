package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRecentMessagesWindow(t *testing.T) {
	r := NewRecentMessages(3, 0)
	defer r.Close()

	for _, text := range []string{"one", "two", "three", "four"} {
		r.Add("room", Message{Text: text})
	}

	got := r.Get("room", 0)
	require.Len(t, got, 3)
	assert.Equal(t, "two", got[0].Text)
	assert.Equal(t, "four", got[2].Text)
	assert.False(t, got[0].Timestamp.IsZero())

	got = r.Get("room", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "three", got[0].Text)

	assert.Empty(t, r.Get("other", 5))
}

func TestRecentMessagesCopy(t *testing.T) {
	r := NewRecentMessages(5, 0)
	defer r.Close()

	r.Add("room", Message{Text: "original"})
	got := r.Get("room", 0)
	got[0].Text = "changed"
	assert.Equal(t, "original", r.Get("room", 0)[0].Text)
}

func TestRecentMessagesFormat(t *testing.T) {
	r := NewRecentMessages(5, 0)
	defer r.Close()

	assert.Equal(t, "", r.Format("room", 0))

	r.Add("room", Message{Username: "alice", Text: "shill $XYZ"})
	r.Add("room", Message{UserID: "agent-id", Text: "send funds", Action: "CONTINUE"})

	out := r.Format("room", 0)
	assert.Contains(t, out, "@alice: shill $XYZ\n")
	assert.Contains(t, out, "@agent-id: send funds (CONTINUE)\n")
	assert.Equal(t, "CONTINUE", r.LastAction("room"))
	assert.Equal(t, "", r.LastAction("missing"))
}

func TestRecentMessagesEvictIdle(t *testing.T) {
	r := NewRecentMessages(5, time.Minute)
	defer r.Close()

	r.Add("stale", Message{Text: "old"})
	r.Add("fresh", Message{Text: "new"})
	require.Equal(t, 2, r.RoomCount())

	r.mu.Lock()
	r.rooms["stale"].lastAccess = time.Now().Add(-2 * time.Minute)
	r.mu.Unlock()

	r.evictIdle(time.Now())
	assert.Equal(t, 1, r.RoomCount())
	assert.Len(t, r.Get("fresh", 0), 1)
}
