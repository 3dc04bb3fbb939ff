package mention

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/mentionsense/plugin/ai"
	"github.com/hrygo/mentionsense/plugin/ai/memory"
	"github.com/hrygo/mentionsense/plugin/platform"
	"github.com/hrygo/mentionsense/plugin/wallet"
	"github.com/hrygo/mentionsense/server/service/campaign"
	"github.com/hrygo/mentionsense/store"
	storetest "github.com/hrygo/mentionsense/store/test"
)

var agentProfile = platform.Profile{ID: "agent-uid", Username: "shillbot", Name: "Shill Bot"}

type fixture struct {
	ctx     context.Context
	store   *store.Store
	client  *platform.MockClient
	gen     *ai.MockGenerator
	wallet  *wallet.HDProvisioner
	tracker *campaign.Tracker
	recent  *memory.RecentMessages
	agent   Agent
	handler *Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	s := storetest.NewTestingStore(ctx, t)
	client := platform.NewMockClient()
	client.Self = agentProfile
	provisioner, err := wallet.NewHDProvisioner("test-master-secret")
	require.NoError(t, err)
	recent := memory.NewRecentMessages(10, 0)
	t.Cleanup(recent.Close)

	agent := NewAgent(agentProfile)
	f := &fixture{
		ctx:     ctx,
		store:   s,
		client:  client,
		gen:     ai.NewMockGenerator(),
		wallet:  provisioner,
		tracker: campaign.NewTracker(s, agent.ID, 0),
		recent:  recent,
		agent:   agent,
	}
	f.handler = NewHandler(Options{
		Agent:     agent,
		Client:    client,
		Store:     s,
		Generator: f.gen,
		Wallet:    provisioner,
		Tracker:   f.tracker,
		Recent:    recent,
	})
	return f
}

func newMention(id, username, conversationID, text, inReplyTo string) *platform.Mention {
	var n int64
	_, _ = fmt.Sscanf(id, "%d", &n)
	return &platform.Mention{
		ID:             id,
		UserID:         "uid-" + username,
		Username:       username,
		Name:           username,
		ConversationID: conversationID,
		Text:           text,
		PermanentURL:   "https://x.com/" + username + "/status/" + id,
		Timestamp:      time.Unix(1700000000+n, 0),
		InReplyToID:    inReplyTo,
	}
}

// startCampaign stores a funded campaign owned by username in conversationID.
func (f *fixture) startCampaign(t *testing.T, sourceID, username, conversationID, token string) *campaign.Campaign {
	t.Helper()
	p := f.propose(t, sourceID, username, conversationID, token)
	started, err := f.tracker.Start(f.ctx, p, "TokenMint"+sourceID)
	require.NoError(t, err)
	return started
}

func (f *fixture) propose(t *testing.T, sourceID, username, conversationID, token string) *campaign.Campaign {
	t.Helper()
	w, err := f.wallet.GenerateAddress(f.ctx, "campaign-"+sourceID)
	require.NoError(t, err)
	p, err := f.tracker.Propose(f.ctx, &campaign.Campaign{
		Name:            "Test Token",
		Token:           token,
		Slogan:          "to the moon",
		Bounty:          "100SOL",
		Duration:        86400,
		PublicKey:       w.Address,
		WalletMetadata:  w.Metadata,
		Username:        username,
		ConversationID:  conversationID,
		SourceMentionID: sourceID,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) memoryOf(t *testing.T, mentionID string) *store.Memory {
	t.Helper()
	m, err := f.store.GetMemory(f.ctx, store.MemoryIDFor(mentionID, f.agent.ID))
	require.NoError(t, err)
	return m
}
