// Package mention handles one inbound mention at a time: it rebuilds the reply
// thread, classifies the mention against an ordered list of rules and acts on
// the single outcome chosen.
package mention

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/mentionsense/plugin/platform"
	"github.com/hrygo/mentionsense/server/service/campaign"
	"github.com/hrygo/mentionsense/store"
)

// Outcome tags the handling path chosen for a mention.
type Outcome string

const (
	OutcomeAgentQuery     Outcome = "agent_query"
	OutcomeUnauthorized   Outcome = "unauthorized"
	OutcomeShill          Outcome = "shill"
	OutcomeIgnore         Outcome = "ignore"
	OutcomeStop           Outcome = "stop"
	OutcomeCreateCampaign Outcome = "create_campaign"
	// OutcomeDrop means a rule matched but lacked the data to act.
	OutcomeDrop Outcome = "drop"
	// OutcomeDuplicate is set for mentions that already have a memory.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeEmpty is set for mentions without text; they never reach the rules.
	OutcomeEmpty Outcome = "empty"
)

// Agent identifies the account the pipeline answers for.
type Agent struct {
	// ID is the store-level agent id every memory id is derived with.
	ID string
	// UserID is the platform account id.
	UserID string
	Handle string
	Name   string
}

// NewAgent derives the agent identity from its platform profile.
func NewAgent(profile platform.Profile) Agent {
	name := profile.Name
	if name == "" {
		name = profile.Username
	}
	return Agent{
		ID:     store.StringToID(profile.Username),
		UserID: profile.ID,
		Handle: profile.Username,
		Name:   name,
	}
}

// MemoryStore is the subset of the store the handler writes through.
type MemoryStore interface {
	GetMemory(ctx context.Context, id string) (*store.Memory, error)
	CreateMemory(ctx context.Context, create *store.Memory) (*store.Memory, error)
	EnsureConnection(ctx context.Context, conn *store.Connection) error
	SetCacheEntry(ctx context.Context, entry *store.CacheEntry) error
}

// Thread is a reply chain ordered from the oldest ancestor to the mention
// being handled.
type Thread []*platform.Mention

// Format renders the thread for prompts.
func (t Thread) Format() string {
	parts := make([]string, 0, len(t))
	for _, m := range t {
		parts = append(parts, fmt.Sprintf("@%s (%s):\n%s", m.Username, m.Timestamp.UTC().Format("Jan 2, 15:04"), m.Text))
	}
	return strings.Join(parts, "\n\n")
}

// IDs returns the platform ids of the thread in order.
func (t Thread) IDs() []string {
	ids := make([]string, 0, len(t))
	for _, m := range t {
		ids = append(ids, m.ID)
	}
	return ids
}

// FormatPost renders a single mention for prompts.
func FormatPost(m *platform.Mention) string {
	return fmt.Sprintf("  ID: %s\n  From: %s (@%s)\n  Text: %s", m.ID, m.Name, m.Username, m.Text)
}

// Input is everything a rule may look at.
type Input struct {
	Agent     Agent
	Mention   *platform.Mention
	Thread    Thread
	Campaigns *campaign.State
	// RecentPosts is the formatted recent-message window of the conversation.
	RecentPosts string
}

// Decision is the tagged result of classification.
type Decision struct {
	Outcome Outcome
	Reason  string

	// Campaign is the matched campaign for agent queries and shills, and the
	// unsaved proposal for campaign creation.
	Campaign *campaign.Campaign
	// Submission is set for OutcomeShill.
	Submission *campaign.Submission
}

// Result reports how a mention was handled.
type Result struct {
	Outcome Outcome
	Reason  string
	Thread  Thread
	// Replies are the persisted outbound memories, if a reply was posted.
	Replies []*store.Memory
	// Campaign is the matched or proposed campaign, if any.
	Campaign   *campaign.Campaign
	Submission *campaign.Submission
}
