// Package campaign tracks shilling campaigns across mentions.
//
// Campaigns live in two logical rooms of the memory store: proposals waiting
// for funds and started campaigns. Promotion from one to the other is done by
// an external funding watcher through Start. Shill submissions are stored in a
// per-campaign room keyed by (mention, campaign), so recording one twice is a
// no-op.
package campaign

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/mentionsense/store"
)

// DefaultScanLimit bounds how many campaigns of each room are consulted.
const DefaultScanLimit = 100

var (
	// ProposedRoomID is the room holding campaigns waiting for funds.
	ProposedRoomID = store.StringToID("campaign-room")
	// StartedRoomID is the room holding funded campaigns.
	StartedRoomID = store.StringToID("started-campaign-room")
)

// SubmissionRoomID returns the room holding shill submissions of a campaign.
func SubmissionRoomID(campaignID string) string {
	return store.StringToID("shilling-tweets-room-" + campaignID)
}

// Campaign is a proposed or started shilling campaign.
type Campaign struct {
	ID             string
	Name           string
	Token          string
	Slogan         string
	Bounty         string
	Duration       int64
	PublicKey      string
	WalletMetadata string
	TokenAddress   string

	// Username and ConversationID identify the campaign owner's thread.
	Username        string
	ConversationID  string
	SourceMentionID string

	Started   bool
	CreatedTs int64
}

// Submission is a participant's shill post for a started campaign.
type Submission struct {
	ID          string
	CampaignID  string
	MentionID   string
	UserID      string
	Username    string
	UserAddress string
	Text        string
	URL         string
	CreatedTs   int64
}

// MemoryStore is the subset of the store the tracker needs.
type MemoryStore interface {
	GetMemory(ctx context.Context, id string) (*store.Memory, error)
	CreateMemory(ctx context.Context, create *store.Memory) (*store.Memory, error)
	ListMemories(ctx context.Context, roomID string, count int, unique bool) ([]*store.Memory, error)
}

// Tracker reads and appends campaign records.
type Tracker struct {
	store   MemoryStore
	agentID string
	limit   int
}

// NewTracker creates a tracker scanning at most limit records per room.
func NewTracker(s MemoryStore, agentID string, limit int) *Tracker {
	if limit <= 0 {
		limit = DefaultScanLimit
	}
	return &Tracker{store: s, agentID: agentID, limit: limit}
}

// Propose stores a new campaign proposal. Proposing twice from the same source
// mention returns the stored proposal.
func (t *Tracker) Propose(ctx context.Context, c *Campaign) (*Campaign, error) {
	if c.SourceMentionID == "" {
		return nil, errors.New("campaign source mention id is required")
	}
	if c.ConversationID == "" || c.Username == "" {
		return nil, errors.New("campaign owner conversation and username are required")
	}

	proposal := *c
	proposal.ID = store.StringToID("campaign-" + c.SourceMentionID + "-" + t.agentID)
	proposal.Started = false
	memory, err := t.store.CreateMemory(ctx, t.toMemory(&proposal, ProposedRoomID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to store campaign proposal")
	}
	return fromMemory(memory, false), nil
}

// Start records a proposal as funded. tokenAddress is the funding token used
// for payouts.
func (t *Tracker) Start(ctx context.Context, proposal *Campaign, tokenAddress string) (*Campaign, error) {
	if proposal.ID == "" {
		return nil, errors.New("campaign id is required")
	}
	if strings.TrimSpace(proposal.Token) == "" {
		return nil, errors.Errorf("campaign %s has no token symbol", proposal.ID)
	}

	started := *proposal
	started.ID = store.StringToID(proposal.ID + "-started")
	started.Started = true
	started.TokenAddress = tokenAddress
	memory, err := t.store.CreateMemory(ctx, t.toMemory(&started, StartedRoomID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to store started campaign")
	}
	return fromMemory(memory, true), nil
}

func (t *Tracker) ListProposals(ctx context.Context) ([]*Campaign, error) {
	return t.list(ctx, ProposedRoomID, false)
}

func (t *Tracker) ListStarted(ctx context.Context) ([]*Campaign, error) {
	return t.list(ctx, StartedRoomID, true)
}

func (t *Tracker) list(ctx context.Context, roomID string, started bool) ([]*Campaign, error) {
	memories, err := t.store.ListMemories(ctx, roomID, t.limit, false)
	if err != nil {
		return nil, err
	}
	campaigns := make([]*Campaign, 0, len(memories))
	for _, m := range memories {
		campaigns = append(campaigns, fromMemory(m, started))
	}
	return campaigns, nil
}

// Snapshot loads both rooms for matching a single mention.
func (t *Tracker) Snapshot(ctx context.Context) (*State, error) {
	started, err := t.ListStarted(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list started campaigns")
	}
	proposals, err := t.ListProposals(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list campaign proposals")
	}
	return NewState(started, proposals), nil
}

// RecordSubmission stores a shill submission. created is false when the same
// mention was already recorded for the campaign.
func (t *Tracker) RecordSubmission(ctx context.Context, s *Submission) (submission *Submission, created bool, err error) {
	if s.MentionID == "" || s.CampaignID == "" {
		return nil, false, errors.New("submission mention id and campaign id are required")
	}
	if s.UserAddress == "" {
		return nil, false, errors.New("submission payout address is required")
	}

	id := store.StringToID(s.MentionID + "-" + s.CampaignID)
	existing, err := t.store.GetMemory(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return submissionFromMemory(existing), false, nil
	}

	createdTs := s.CreatedTs
	if createdTs == 0 {
		createdTs = time.Now().UnixMilli()
	}
	memory, err := t.store.CreateMemory(ctx, &store.Memory{
		ID:      id,
		AgentID: t.agentID,
		UserID:  s.UserID,
		RoomID:  SubmissionRoomID(s.CampaignID),
		Content: store.Content{
			Text:            s.Text,
			URL:             s.URL,
			UserAddress:     s.UserAddress,
			Campaign:        s.CampaignID,
			Username:        s.Username,
			SourceMentionID: s.MentionID,
		},
		CreatedTs: createdTs,
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to store shill submission")
	}
	return submissionFromMemory(memory), true, nil
}

// ListSubmissions returns the newest submissions of a campaign.
func (t *Tracker) ListSubmissions(ctx context.Context, campaignID string) ([]*Submission, error) {
	memories, err := t.store.ListMemories(ctx, SubmissionRoomID(campaignID), t.limit, false)
	if err != nil {
		return nil, err
	}
	submissions := make([]*Submission, 0, len(memories))
	for _, m := range memories {
		submissions = append(submissions, submissionFromMemory(m))
	}
	return submissions, nil
}

func (t *Tracker) toMemory(c *Campaign, roomID string) *store.Memory {
	createdTs := c.CreatedTs
	if createdTs == 0 {
		createdTs = time.Now().UnixMilli()
	}
	return &store.Memory{
		ID:      c.ID,
		AgentID: t.agentID,
		UserID:  store.StringToID(c.Username),
		RoomID:  roomID,
		Content: store.Content{
			Text:            describe(c),
			Username:        c.Username,
			ConversationID:  c.ConversationID,
			Name:            c.Name,
			Token:           c.Token,
			Slogan:          c.Slogan,
			Bounty:          c.Bounty,
			Duration:        c.Duration,
			PublicKey:       c.PublicKey,
			WalletMetadata:  c.WalletMetadata,
			TokenAddress:    c.TokenAddress,
			SourceMentionID: c.SourceMentionID,
		},
		CreatedTs: createdTs,
	}
}

func describe(c *Campaign) string {
	return fmt.Sprintf("Campaign %s (%s) by @%s: %s", c.Name, c.Token, c.Username, c.Slogan)
}

func fromMemory(m *store.Memory, started bool) *Campaign {
	return &Campaign{
		ID:              m.ID,
		Name:            m.Content.Name,
		Token:           m.Content.Token,
		Slogan:          m.Content.Slogan,
		Bounty:          m.Content.Bounty,
		Duration:        m.Content.Duration,
		PublicKey:       m.Content.PublicKey,
		WalletMetadata:  m.Content.WalletMetadata,
		TokenAddress:    m.Content.TokenAddress,
		Username:        m.Content.Username,
		ConversationID:  m.Content.ConversationID,
		SourceMentionID: m.Content.SourceMentionID,
		Started:         started,
		CreatedTs:       m.CreatedTs,
	}
}

func submissionFromMemory(m *store.Memory) *Submission {
	return &Submission{
		ID:          m.ID,
		CampaignID:  m.Content.Campaign,
		MentionID:   m.Content.SourceMentionID,
		UserID:      m.UserID,
		Username:    m.Content.Username,
		UserAddress: m.Content.UserAddress,
		Text:        m.Content.Text,
		URL:         m.Content.URL,
		CreatedTs:   m.CreatedTs,
	}
}
