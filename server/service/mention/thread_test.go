package mention

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/mentionsense/plugin/platform"
	"github.com/hrygo/mentionsense/store"
)

func newTestThreadBuilder(f *fixture) *ThreadBuilder {
	return NewThreadBuilder(f.client, f.store, nil, f.agent, "twitter")
}

// chain registers mentions 1..n where each replies to the previous one and
// returns the last.
func chain(f *fixture, n int) *platform.Mention {
	var last *platform.Mention
	for i := 1; i <= n; i++ {
		replyTo := ""
		if i > 1 {
			replyTo = fmt.Sprintf("%d", i-1)
		}
		last = newMention(fmt.Sprintf("%d", i), fmt.Sprintf("user%d", i), "1", fmt.Sprintf("post %d", i), replyTo)
		f.client.Add(last)
	}
	return last
}

func TestThreadBuildOrder(t *testing.T) {
	f := newFixture(t)
	leaf := chain(f, 3)

	thread, err := newTestThreadBuilder(f).Build(f.ctx, leaf, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, thread.IDs())

	for _, id := range []string{"1", "2", "3"} {
		m := f.memoryOf(t, id)
		require.NotNil(t, m, id)
		assert.Equal(t, store.RoomIDFor("1", f.agent.ID), m.RoomID)
		assert.Equal(t, "twitter", m.Content.Source)
	}
	assert.Equal(t, store.MemoryIDFor("2", f.agent.ID), f.memoryOf(t, "3").Content.InReplyTo)
	assert.Empty(t, f.memoryOf(t, "1").Content.InReplyTo)

	formatted := thread.Format()
	assert.Contains(t, formatted, "@user1 (")
	assert.Contains(t, formatted, "post 3")
}

func TestThreadDepthLimit(t *testing.T) {
	f := newFixture(t)
	leaf := chain(f, 5)

	thread, err := newTestThreadBuilder(f).Build(f.ctx, leaf, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "4", "5"}, thread.IDs())
	assert.Nil(t, f.memoryOf(t, "2"))

	thread, err = newTestThreadBuilder(f).Build(f.ctx, leaf, 0)
	require.NoError(t, err)
	assert.Len(t, thread, 5)
}

func TestThreadCycle(t *testing.T) {
	f := newFixture(t)
	a := newMention("10", "alice", "10", "A", "11")
	b := newMention("11", "bob", "10", "B", "10")
	f.client.Add(a, b)

	thread, err := newTestThreadBuilder(f).Build(f.ctx, a, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"11", "10"}, thread.IDs())

	// A self-reply terminates too.
	self := newMention("12", "carol", "12", "C", "12")
	f.client.Add(self)
	thread, err = newTestThreadBuilder(f).Build(f.ctx, self, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"12"}, thread.IDs())
}

func TestThreadTruncation(t *testing.T) {
	f := newFixture(t)
	orphan := newMention("20", "dave", "20", "orphan", "404")
	broken := newMention("21", "erin", "21", "broken", "500")
	f.client.GetErr["500"] = errors.New("upstream unavailable")

	builder := newTestThreadBuilder(f)
	thread, err := builder.Build(f.ctx, orphan, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"20"}, thread.IDs())

	thread, err = builder.Build(f.ctx, broken, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"21"}, thread.IDs())
}

func TestThreadParentCacheAndIdempotency(t *testing.T) {
	f := newFixture(t)
	leaf := chain(f, 3)
	builder := newTestThreadBuilder(f)

	_, err := builder.Build(f.ctx, leaf, 10)
	require.NoError(t, err)
	_, err = builder.Build(f.ctx, leaf, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, f.client.Gets["1"])
	assert.Equal(t, 1, f.client.Gets["2"])

	memories, err := f.store.ListMemories(f.ctx, store.RoomIDFor("1", f.agent.ID), 100, false)
	require.NoError(t, err)
	assert.Len(t, memories, 3)
}

func TestThreadAgentAuthoredMention(t *testing.T) {
	f := newFixture(t)
	own := newMention("30", "shillbot", "30", "my earlier reply", "")
	own.UserID = agentProfile.ID

	_, err := newTestThreadBuilder(f).Build(f.ctx, own, 10)
	require.NoError(t, err)
	assert.Equal(t, f.agent.ID, f.memoryOf(t, "30").UserID)
}

func TestThreadCanceled(t *testing.T) {
	f := newFixture(t)
	leaf := chain(f, 2)
	ctx, cancel := context.WithCancel(f.ctx)
	cancel()

	_, err := newTestThreadBuilder(f).Build(ctx, leaf, 10)
	assert.ErrorIs(t, err, context.Canceled)
}
