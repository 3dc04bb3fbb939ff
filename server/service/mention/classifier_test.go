package mention

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/mentionsense/plugin/ai"
	"github.com/hrygo/mentionsense/server/service/campaign"
)

func staticRule(name string, d *Decision, calls *[]string) Rule {
	return Rule{
		Name: name,
		Evaluate: func(context.Context, *Input) (*Decision, error) {
			*calls = append(*calls, name)
			return d, nil
		},
	}
}

func TestClassifierOrder(t *testing.T) {
	var calls []string
	c := NewClassifier(
		staticRule("first", nil, &calls),
		staticRule("second", &Decision{Outcome: OutcomeShill}, &calls),
		staticRule("third", &Decision{Outcome: OutcomeIgnore}, &calls),
	)

	d, err := c.Classify(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeShill, d.Outcome)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestClassifierFallbackAndError(t *testing.T) {
	var calls []string
	d, err := NewClassifier(staticRule("none", nil, &calls)).Classify(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDrop, d.Outcome)

	boom := errors.New("boom")
	_, err = NewClassifier(Rule{
		Name: "failing",
		Evaluate: func(context.Context, *Input) (*Decision, error) {
			return nil, boom
		},
	}).Classify(context.Background(), &Input{})
	assert.ErrorIs(t, err, boom)
}

func TestAgentQueryRule(t *testing.T) {
	owned := &campaign.Campaign{ID: "c1", Username: "alice", ConversationID: "conv", Token: "$XYZ", Started: true}
	state := campaign.NewState([]*campaign.Campaign{owned}, nil)
	rule := AgentQueryRule()

	d, err := rule.Evaluate(context.Background(), &Input{Mention: newMention("1", "alice", "conv", "$XYZ?", ""), Campaigns: state})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAgentQuery, d.Outcome)
	assert.Same(t, owned, d.Campaign)

	d, err = rule.Evaluate(context.Background(), &Input{Mention: newMention("2", "bob", "conv", "hi", ""), Campaigns: state})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnauthorized, d.Outcome)

	d, err = rule.Evaluate(context.Background(), &Input{Mention: newMention("3", "alice", "other", "hi", ""), Campaigns: state})
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestCampaignCreationRule(t *testing.T) {
	f := newFixture(t)
	rule := CampaignCreationRule(f.gen, ai.DefaultTemplates(), f.wallet)
	in := &Input{Agent: f.agent, Mention: newMention("9", "zoe", "9", "launch $MOON with 2SOL", ""), Campaigns: campaign.NewState(nil, nil)}

	f.gen.Extractions[ai.CampaignSchema.Name] = map[string]any{
		"token":    "$MOON",
		"bounty":   "2SOL",
		"slogan":   "up only",
		"duration": float64(3600),
	}
	d, err := rule.Evaluate(f.ctx, in)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreateCampaign, d.Outcome)
	assert.Equal(t, "MOON", d.Campaign.Name)
	assert.Equal(t, int64(3600), d.Campaign.Duration)
	assert.Equal(t, "up only", d.Campaign.Slogan)
	assert.Equal(t, "9", d.Campaign.SourceMentionID)

	again, err := rule.Evaluate(f.ctx, in)
	require.NoError(t, err)
	assert.Equal(t, d.Campaign.PublicKey, again.Campaign.PublicKey)

	f.gen.Extractions[ai.CampaignSchema.Name] = map[string]any{"bounty": "2SOL", "duration": "a week"}
	in.Mention = newMention("10", "zoe", "10", "launch something", "")
	d, err = rule.Evaluate(f.ctx, in)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDrop, d.Outcome)
	assert.Equal(t, "campaign token missing", d.Reason)

	f.gen.ExtractErr = errors.New("model down")
	_, err = rule.Evaluate(f.ctx, in)
	assert.Error(t, err)
}
