package mention

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/hrygo/mentionsense/plugin/ai"
	"github.com/hrygo/mentionsense/plugin/wallet"
	"github.com/hrygo/mentionsense/server/internal/observability"
	"github.com/hrygo/mentionsense/server/service/campaign"
	"github.com/hrygo/mentionsense/store"
)

// DefaultRules returns the rule chain in priority order: campaign owner
// queries, shill submissions, the should-respond gate, campaign creation.
func DefaultRules(gen ai.Generator, templates *ai.Templates, provisioner wallet.Provisioner) []Rule {
	return []Rule{
		AgentQueryRule(),
		ShillRule(gen, templates),
		ShouldRespondRule(gen, templates),
		CampaignCreationRule(gen, templates, provisioner),
	}
}

// AgentQueryRule claims mentions posted in a campaign owner's conversation.
// Only the owner gets an answer; anyone else is refused.
func AgentQueryRule() Rule {
	return Rule{
		Name: "agent_query",
		Evaluate: func(_ context.Context, in *Input) (*Decision, error) {
			c := in.Campaigns.FindByConversation(in.Mention.ConversationID)
			if c == nil {
				return nil, nil
			}
			if in.Mention.Username != c.Username {
				return &Decision{
					Outcome:  OutcomeUnauthorized,
					Reason:   "author is not the campaign owner",
					Campaign: c,
				}, nil
			}
			return &Decision{Outcome: OutcomeAgentQuery, Campaign: c}, nil
		},
	}
}

// ShillRule claims mentions naming the token of a started campaign and
// extracts the payout address from them.
func ShillRule(gen ai.Generator, templates *ai.Templates) Rule {
	return Rule{
		Name: "shill",
		Evaluate: func(ctx context.Context, in *Input) (*Decision, error) {
			c := in.Campaigns.FindByTokenMention(in.Mention.Text)
			if c == nil {
				return nil, nil
			}
			prompt, err := templates.Compose(ai.TemplateTransfer, stateFor(in))
			if err != nil {
				return nil, err
			}
			fields, err := gen.ExtractStructured(ctx, prompt, ai.TransferSchema)
			if err != nil {
				return nil, err
			}
			address := ai.StringField(fields, "userAddress")
			if address == "" {
				return &Decision{Outcome: OutcomeDrop, Reason: "no payout address in shill", Campaign: c}, nil
			}
			m := in.Mention
			return &Decision{
				Outcome:  OutcomeShill,
				Campaign: c,
				Submission: &campaign.Submission{
					CampaignID:  c.ID,
					MentionID:   m.ID,
					UserID:      store.StringToID(m.UserID),
					Username:    m.Username,
					UserAddress: address,
					Text:        m.Text,
					URL:         m.PermanentURL,
					CreatedTs:   m.Timestamp.UnixMilli(),
				},
			}, nil
		},
	}
}

// ShouldRespondRule lets only RESPOND verdicts through.
func ShouldRespondRule(gen ai.Generator, templates *ai.Templates) Rule {
	return Rule{
		Name: "should_respond",
		Evaluate: func(ctx context.Context, in *Input) (*Decision, error) {
			prompt, err := templates.Compose(ai.TemplateShouldRespond, stateFor(in))
			if err != nil {
				return nil, err
			}
			verdict, err := gen.ClassifyShouldRespond(ctx, prompt)
			if err != nil {
				return nil, err
			}
			switch verdict {
			case ai.Respond:
				return nil, nil
			case ai.Stop:
				return &Decision{Outcome: OutcomeStop, Reason: "model chose STOP"}, nil
			default:
				return &Decision{Outcome: OutcomeIgnore, Reason: "model chose IGNORE"}, nil
			}
		},
	}
}

var tokenSymbolPattern = regexp.MustCompile(`\$[A-Za-z][A-Za-z0-9_]{0,15}\b`)

// CampaignCreationRule extracts the campaign fields and provisions a funding
// address. It claims every mention that reaches it.
func CampaignCreationRule(gen ai.Generator, templates *ai.Templates, provisioner wallet.Provisioner) Rule {
	return Rule{
		Name: "campaign_creation",
		Evaluate: func(ctx context.Context, in *Input) (*Decision, error) {
			prompt, err := templates.Compose(ai.TemplateCampaignInfo, stateFor(in))
			if err != nil {
				return nil, err
			}
			fields, err := gen.ExtractStructured(ctx, prompt, ai.CampaignSchema)
			if err != nil {
				return nil, err
			}

			m := in.Mention
			token := ai.StringField(fields, "token")
			if token == "" {
				token = tokenSymbolPattern.FindString(m.Text)
			}
			if token == "" {
				return &Decision{Outcome: OutcomeDrop, Reason: "campaign token missing"}, nil
			}
			bounty := ai.StringField(fields, "bounty")
			if bounty == "" {
				return &Decision{Outcome: OutcomeDrop, Reason: "campaign bounty missing"}, nil
			}
			name := ai.StringField(fields, "name")
			if name == "" {
				name = strings.TrimPrefix(token, "$")
			}

			w, err := provisioner.GenerateAddress(ctx, "campaign-"+m.ID+"-"+in.Agent.ID)
			if err != nil {
				return nil, err
			}
			if w == nil || w.Address == "" {
				return &Decision{Outcome: OutcomeDrop, Reason: "no funding address provisioned"}, nil
			}

			return &Decision{
				Outcome: OutcomeCreateCampaign,
				Campaign: &campaign.Campaign{
					Name:            name,
					Token:           token,
					Slogan:          ai.StringField(fields, "slogan"),
					Bounty:          bounty,
					Duration:        parseDuration(ctx, ai.StringField(fields, "duration")),
					PublicKey:       w.Address,
					WalletMetadata:  w.Metadata,
					Username:        m.Username,
					ConversationID:  m.ConversationID,
					SourceMentionID: m.ID,
				},
			}, nil
		},
	}
}

// parseDuration reads whole seconds; anything else is treated as absent.
func parseDuration(ctx context.Context, raw string) int64 {
	if raw == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds < 0 {
		observability.Logger(ctx).Debug("ignoring campaign duration", slog.String("duration", raw))
		return 0
	}
	return int64(seconds)
}

func stateFor(in *Input) ai.State {
	state := ai.State{
		AgentName:             in.Agent.Name,
		AgentHandle:           in.Agent.Handle,
		CurrentPost:           FormatPost(in.Mention),
		FormattedConversation: in.Thread.Format(),
		RecentPosts:           in.RecentPosts,
	}
	return state
}

// campaignState extends the prompt state with the campaign's facts.
func campaignState(in *Input, c *campaign.Campaign) ai.State {
	state := stateFor(in)
	state.CampaignName = c.Name
	state.Token = c.Token
	state.Slogan = c.Slogan
	state.Bounty = c.Bounty
	state.Duration = c.Duration
	state.PublicKey = c.PublicKey
	state.Started = c.Started
	return state
}
