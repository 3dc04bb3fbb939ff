package mention

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/hrygo/mentionsense/plugin/ai/memory"
	"github.com/hrygo/mentionsense/plugin/platform"
	pipelineerrors "github.com/hrygo/mentionsense/server/internal/errors"
	"github.com/hrygo/mentionsense/server/internal/observability"
	"github.com/hrygo/mentionsense/store"
)

// DispatchRequest is a reply to send for a mention.
type DispatchRequest struct {
	Target *platform.Mention
	Text   string
	// Action is recorded on the last posted part.
	Action string
	// Context is the prompt or state the reply was produced from, for the audit.
	Context string
}

// Hook runs after a reply was posted and stored. Hook errors are logged only.
type Hook func(ctx context.Context, req *DispatchRequest, sent []*store.Memory) error

// Dispatcher posts replies and records them as memories.
type Dispatcher struct {
	client platform.Client
	store  MemoryStore
	recent *memory.RecentMessages
	agent  Agent
	source string
	hooks  []Hook
}

// NewDispatcher creates a dispatcher. recent may be nil.
func NewDispatcher(client platform.Client, s MemoryStore, recent *memory.RecentMessages, agent Agent, source string, hooks ...Hook) *Dispatcher {
	return &Dispatcher{
		client: client,
		store:  s,
		recent: recent,
		agent:  agent,
		source: source,
		hooks:  hooks,
	}
}

// AuditKey is the cache entry key of the generation audit of a mention.
func AuditKey(mentionID string) string {
	return fmt.Sprintf("mentionsense/generation_%s.txt", mentionID)
}

// Dispatch posts req.Text as a reply to req.Target and stores every posted
// part. Nothing is stored when posting fails.
func (d *Dispatcher) Dispatch(ctx context.Context, req *DispatchRequest) ([]*store.Memory, error) {
	log := observability.Logger(ctx)
	text := PlainText(stripQuotes(strings.TrimSpace(req.Text)))
	if text == "" {
		return nil, pipelineerrors.InvalidArgument("empty reply")
	}
	target := req.Target

	parts, err := d.client.PostReply(ctx, text, target.ID)
	if err != nil {
		return nil, pipelineerrors.Transient("failed to post reply", err)
	}
	if len(parts) == 0 {
		return nil, pipelineerrors.Transient("platform returned no posted parts", nil)
	}

	roomID := store.RoomIDFor(target.ConversationID, d.agent.ID)
	if err := d.store.EnsureConnection(ctx, &store.Connection{
		UserID:   d.agent.ID,
		RoomID:   roomID,
		Username: d.agent.Handle,
		Name:     d.agent.Name,
		Source:   d.source,
	}); err != nil {
		return nil, err
	}

	sent := make([]*store.Memory, 0, len(parts))
	inReplyTo := store.MemoryIDFor(target.ID, d.agent.ID)
	for i, part := range parts {
		action := store.ActionContinue
		if i == len(parts)-1 {
			action = req.Action
		}
		createdTs := part.Timestamp.UnixMilli()
		if part.Timestamp.IsZero() {
			createdTs = time.Now().UnixMilli()
		}
		m, err := d.store.CreateMemory(ctx, &store.Memory{
			ID:      store.MemoryIDFor(part.ID, d.agent.ID),
			AgentID: d.agent.ID,
			UserID:  d.agent.ID,
			RoomID:  roomID,
			Content: store.Content{
				Text:           part.Text,
				Source:         d.source,
				URL:            part.PermanentURL,
				InReplyTo:      inReplyTo,
				Action:         action,
				Username:       d.agent.Handle,
				ConversationID: target.ConversationID,
			},
			CreatedTs: createdTs,
		})
		if err != nil {
			return sent, pipelineerrors.Transient("failed to store posted reply", err)
		}
		sent = append(sent, m)
		inReplyTo = m.ID

		if d.recent != nil {
			d.recent.Add(roomID, memory.Message{
				MemoryID:  m.ID,
				UserID:    d.agent.ID,
				Username:  d.agent.Handle,
				Text:      part.Text,
				Action:    action,
				Timestamp: time.UnixMilli(createdTs),
			})
		}
	}

	for _, hook := range d.hooks {
		if err := hook(ctx, req, sent); err != nil {
			log.Warn("post-response hook failed", slog.String("error", err.Error()))
		}
	}

	audit := fmt.Sprintf("Context:\n\n%s\n\nSelected Post: %s - %s: %s\nAgent's Output:\n%s",
		req.Context, target.ID, target.Username, target.Text, text)
	if err := d.store.SetCacheEntry(ctx, &store.CacheEntry{
		Key:       AuditKey(target.ID),
		Value:     audit,
		CreatedTs: time.Now().UnixMilli(),
	}); err != nil {
		log.Warn("failed to write generation audit", slog.String("error", err.Error()))
	}

	log.Info("reply posted", slog.Int("parts", len(sent)), slog.String("action", req.Action))
	return sent, nil
}

var wrappingQuotes = regexp.MustCompile(`(?s)^['"](.*)['"]$`)

func stripQuotes(s string) string {
	return wrappingQuotes.ReplaceAllString(s, "$1")
}
