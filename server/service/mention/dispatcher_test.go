package mention

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipelineerrors "github.com/hrygo/mentionsense/server/internal/errors"
	"github.com/hrygo/mentionsense/store"
)

func TestStripQuotes(t *testing.T) {
	tests := map[string]string{
		`"hello"`:         "hello",
		`'hello'`:         "hello",
		"\"two\nlines\"":  "two\nlines",
		`"unbalanced`:     `"unbalanced`,
		`say "hi" to him`: `say "hi" to him`,
		``:                ``,
	}
	for in, want := range tests {
		assert.Equal(t, want, stripQuotes(in), in)
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "gm frens", want: "gm frens"},
		{name: "emphasis", in: "**Bold** and _em_", want: "Bold and em"},
		{name: "link", in: "see [docs](https://example.com)", want: "see docs (https://example.com)"},
		{name: "autolink", in: "<https://example.com>", want: "https://example.com"},
		{name: "heading", in: "# Campaign\n\nIt is live.", want: "Campaign\n\nIt is live."},
		{name: "list", in: "- one\n- two", want: "- one\n- two"},
		{name: "ordered", in: "1. first\n2. second", want: "1. first\n2. second"},
		{name: "paragraphs", in: "line one\n\nline two", want: "line one\n\nline two"},
		{name: "token", in: "buy $XYZ now", want: "buy $XYZ now"},
		{name: "empty", in: "  ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.in))
		})
	}
}

func TestDispatchMultiPart(t *testing.T) {
	f := newFixture(t)
	target := newMention("100", "alice", "100", "tell me everything", "")
	f.client.Add(target)

	var hooked []*store.Memory
	d := NewDispatcher(f.client, f.store, f.recent, f.agent, "twitter",
		func(_ context.Context, _ *DispatchRequest, sent []*store.Memory) error {
			hooked = sent
			return nil
		},
		func(context.Context, *DispatchRequest, []*store.Memory) error {
			return errors.New("evaluator down")
		},
	)

	long := strings.TrimSpace(strings.Repeat("campaign update words ", 30))
	sent, err := d.Dispatch(f.ctx, &DispatchRequest{
		Target: target,
		Text:   `"` + long + `"`,
		Action: store.ActionAgentQuery,
	})
	require.NoError(t, err)
	require.Len(t, sent, 3)
	assert.Equal(t, sent, hooked)

	assert.Equal(t, store.MemoryIDFor("100", f.agent.ID), sent[0].Content.InReplyTo)
	for i, m := range sent {
		assert.Equal(t, store.MemoryIDFor(f.client.Posted[i].ID, f.agent.ID), m.ID)
		assert.Equal(t, store.RoomIDFor("100", f.agent.ID), m.RoomID)
		if i > 0 {
			assert.Equal(t, sent[i-1].ID, m.Content.InReplyTo)
		}
		if i < len(sent)-1 {
			assert.Equal(t, store.ActionContinue, m.Content.Action)
		}
	}
	assert.Equal(t, store.ActionAgentQuery, sent[2].Content.Action)
	assert.False(t, strings.HasPrefix(f.client.Posted[0].Text, `"`))

	window := f.recent.Get(store.RoomIDFor("100", f.agent.ID), 0)
	assert.Len(t, window, 3)

	audit, err := f.store.GetCacheEntry(f.ctx, AuditKey("100"))
	require.NoError(t, err)
	require.NotNil(t, audit)
	assert.Contains(t, audit.Value, "Agent's Output:\n"+long)
}

func TestDispatchErrors(t *testing.T) {
	f := newFixture(t)
	target := newMention("100", "alice", "100", "hi", "")
	d := NewDispatcher(f.client, f.store, nil, f.agent, "twitter")

	_, err := d.Dispatch(f.ctx, &DispatchRequest{Target: target, Text: `""`})
	assert.Equal(t, pipelineerrors.ErrCodeInvalidArgument, pipelineerrors.Code(err))

	f.client.PostErr = errors.New("forbidden")
	sent, err := d.Dispatch(f.ctx, &DispatchRequest{Target: target, Text: "hello", Action: store.ActionAgentQuery})
	assert.Nil(t, sent)
	assert.Equal(t, pipelineerrors.ErrCodeTransient, pipelineerrors.Code(err))

	audit, err := f.store.GetCacheEntry(f.ctx, AuditKey("100"))
	require.NoError(t, err)
	assert.Nil(t, audit)
}
