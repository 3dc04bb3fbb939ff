package mention

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/hrygo/mentionsense/plugin/ai"
	"github.com/hrygo/mentionsense/plugin/cache"
	"github.com/hrygo/mentionsense/plugin/platform"
	"github.com/hrygo/mentionsense/server/internal/observability"
	"github.com/hrygo/mentionsense/store"
)

// DefaultMaxThreadDepth caps the number of mentions in a thread.
const DefaultMaxThreadDepth = 10

const (
	parentCacheSize = 1000
	parentCacheTTL  = 15 * time.Minute
)

// ThreadBuilder walks in-reply-to links upward and records every mention it
// visits in the store.
type ThreadBuilder struct {
	client   platform.Client
	store    MemoryStore
	embedder ai.Embedder
	agent    Agent
	source   string

	parents *cache.LRUCache[*platform.Mention]
	group   singleflight.Group
}

// NewThreadBuilder creates a builder. embedder may be nil.
func NewThreadBuilder(client platform.Client, s MemoryStore, embedder ai.Embedder, agent Agent, source string) *ThreadBuilder {
	return &ThreadBuilder{
		client:   client,
		store:    s,
		embedder: embedder,
		agent:    agent,
		source:   source,
		parents:  cache.NewLRUCache[*platform.Mention](parentCacheSize, parentCacheTTL),
	}
}

type threadStep struct {
	mention *platform.Mention
	depth   int
}

// Build returns the thread ending at leaf, at most maxDepth mentions long.
// Missing or unreachable parents and revisited ids end the walk without error;
// only store failures and cancellation are returned.
func (b *ThreadBuilder) Build(ctx context.Context, leaf *platform.Mention, maxDepth int) (Thread, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxThreadDepth
	}
	log := observability.Logger(ctx)

	visited := make(map[string]struct{}, maxDepth)
	chain := make([]*platform.Mention, 0, maxDepth)
	work := []threadStep{{mention: leaf, depth: 0}}
	for len(work) > 0 {
		step := work[len(work)-1]
		work = work[:len(work)-1]

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current := step.mention
		if _, seen := visited[current.ID]; seen {
			log.Warn("reply cycle detected", slog.String("revisited_id", current.ID))
			break
		}
		visited[current.ID] = struct{}{}

		if err := b.remember(ctx, current); err != nil {
			return nil, err
		}
		chain = append(chain, current)

		if step.depth+1 >= maxDepth {
			log.Debug("thread depth limit reached", slog.Int("depth", step.depth+1))
			break
		}
		parentID := current.InReplyToID
		if parentID == "" {
			break
		}
		if _, seen := visited[parentID]; seen {
			log.Warn("reply cycle detected", slog.String("revisited_id", parentID))
			break
		}
		parent, err := b.fetchParent(ctx, parentID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("thread truncated, parent unavailable",
				slog.String("parent_id", parentID),
				slog.String("error", err.Error()))
			break
		}
		if parent == nil {
			log.Debug("thread truncated, parent not found", slog.String("parent_id", parentID))
			break
		}
		work = append(work, threadStep{mention: parent, depth: step.depth + 1})
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return Thread(chain), nil
}

func (b *ThreadBuilder) fetchParent(ctx context.Context, id string) (*platform.Mention, error) {
	if m, ok := b.parents.Get(id); ok {
		return m, nil
	}
	v, err, _ := b.group.Do(id, func() (any, error) {
		return b.client.GetMention(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	m, _ := v.(*platform.Mention)
	if m != nil {
		b.parents.Set(id, m, 0)
	}
	return m, nil
}

// remember stores the memory projection of m unless it already exists.
func (b *ThreadBuilder) remember(ctx context.Context, m *platform.Mention) error {
	id := store.MemoryIDFor(m.ID, b.agent.ID)
	existing, err := b.store.GetMemory(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "failed to look up mention %s", m.ID)
	}
	if existing != nil {
		return nil
	}

	userID := b.userIDFor(m)
	roomID := store.RoomIDFor(m.ConversationID, b.agent.ID)
	if err := b.store.EnsureConnection(ctx, &store.Connection{
		UserID:   userID,
		RoomID:   roomID,
		Username: m.Username,
		Name:     m.Name,
		Source:   b.source,
	}); err != nil {
		return err
	}

	content := store.Content{
		Text:           m.Text,
		Source:         b.source,
		URL:            m.PermanentURL,
		Username:       m.Username,
		ConversationID: m.ConversationID,
	}
	if m.InReplyToID != "" {
		content.InReplyTo = store.MemoryIDFor(m.InReplyToID, b.agent.ID)
	}
	createdTs := m.Timestamp.UnixMilli()
	if m.Timestamp.IsZero() {
		createdTs = time.Now().UnixMilli()
	}
	_, err = b.store.CreateMemory(ctx, &store.Memory{
		ID:        id,
		AgentID:   b.agent.ID,
		UserID:    userID,
		RoomID:    roomID,
		Content:   content,
		Embedding: b.embed(ctx, m.Text),
		CreatedTs: createdTs,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to store mention %s", m.ID)
	}
	return nil
}

func (b *ThreadBuilder) userIDFor(m *platform.Mention) string {
	if b.agent.UserID != "" && m.UserID == b.agent.UserID {
		return b.agent.ID
	}
	return store.StringToID(m.UserID)
}

// embed returns nil when embeddings are disabled or fail; they are optional.
func (b *ThreadBuilder) embed(ctx context.Context, text string) []float32 {
	if b.embedder == nil || text == "" {
		return nil
	}
	vec, err := b.embedder.Embed(ctx, text)
	if err != nil {
		observability.Logger(ctx).Warn("failed to embed mention", slog.String("error", err.Error()))
		return nil
	}
	return vec
}
