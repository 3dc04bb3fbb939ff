package store

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Response actions recorded on outbound memories.
const (
	ActionContinue     = "CONTINUE"
	ActionAgentQuery   = "AGENT_QUERY"
	ActionRequestFunds = "REQUEST_FUNDS"
)

// Content is the JSON payload of a memory. Only the fields relevant to the
// memory's role are populated.
type Content struct {
	Text      string `json:"text"`
	Source    string `json:"source,omitempty"`
	URL       string `json:"url,omitempty"`
	InReplyTo string `json:"inReplyTo,omitempty"`
	Action    string `json:"action,omitempty"`

	// Shill submissions.
	UserAddress string `json:"userAddress,omitempty"`
	Campaign    string `json:"campaign,omitempty"`

	// Campaign records.
	Username        string `json:"username,omitempty"`
	ConversationID  string `json:"conversationId,omitempty"`
	Name            string `json:"name,omitempty"`
	Token           string `json:"token,omitempty"`
	Slogan          string `json:"slogan,omitempty"`
	Bounty          string `json:"bounty,omitempty"`
	Duration        int64  `json:"duration,omitempty"`
	PublicKey       string `json:"publicKey,omitempty"`
	WalletMetadata  string `json:"walletMetadata,omitempty"`
	TokenAddress    string `json:"tokenAddress,omitempty"`
	SourceMentionID string `json:"sourceMentionId,omitempty"`
}

// Memory is a durable record of something the agent saw or said.
type Memory struct {
	ID        string
	AgentID   string
	UserID    string
	RoomID    string
	Content   Content
	Embedding []float32
	// CreatedTs is unix milliseconds.
	CreatedTs int64
}

type FindMemory struct {
	ID     *string
	RoomID *string
	Limit  int
}

// CreateMemory persists a memory. Ids are derived with MemoryIDFor, so creating
// a memory whose id already exists is a no-op and the stored row is returned
// unchanged.
func (s *Store) CreateMemory(ctx context.Context, create *Memory) (*Memory, error) {
	if create.ID == "" {
		return nil, errors.New("memory id is required")
	}
	if create.RoomID == "" {
		return nil, errors.New("memory room id is required")
	}
	memory, err := s.driver.CreateMemory(ctx, create)
	if err != nil {
		return nil, err
	}
	s.memoryCache.Set(memory.ID, memory, 0)
	return memory, nil
}

// GetMemory returns nil, nil when no memory has the given id.
func (s *Store) GetMemory(ctx context.Context, id string) (*Memory, error) {
	if memory, ok := s.memoryCache.Get(id); ok {
		return memory, nil
	}
	memory, err := s.driver.GetMemory(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get memory %s", id)
	}
	if memory != nil {
		s.memoryCache.Set(memory.ID, memory, 0)
	}
	return memory, nil
}

// ListMemories returns up to count memories of a room, newest first. With unique
// set, memories repeating the text of a newer one are skipped.
func (s *Store) ListMemories(ctx context.Context, roomID string, count int, unique bool) ([]*Memory, error) {
	find := &FindMemory{RoomID: &roomID}
	if !unique {
		find.Limit = count
	}
	list, err := s.driver.ListMemories(ctx, find)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list memories of room %s", roomID)
	}
	if !unique {
		return list, nil
	}

	seen := make(map[string]struct{}, len(list))
	result := make([]*Memory, 0, len(list))
	for _, m := range list {
		key := strings.TrimSpace(m.Content.Text)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, m)
		if count > 0 && len(result) >= count {
			break
		}
	}
	return result, nil
}
