package mention

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/mentionsense/plugin/ai"
	"github.com/hrygo/mentionsense/plugin/ai/memory"
	"github.com/hrygo/mentionsense/plugin/platform"
	"github.com/hrygo/mentionsense/plugin/wallet"
	pipelineerrors "github.com/hrygo/mentionsense/server/internal/errors"
	"github.com/hrygo/mentionsense/server/internal/observability"
	"github.com/hrygo/mentionsense/server/service/campaign"
	"github.com/hrygo/mentionsense/store"
)

// recentWindow is how many recent messages of a conversation go into prompts.
const recentWindow = 10

// Options wires a Handler.
type Options struct {
	Agent     Agent
	Client    platform.Client
	Store     MemoryStore
	Generator ai.Generator
	// Embedder is optional; mentions are stored without vectors when nil.
	Embedder  ai.Embedder
	Templates *ai.Templates
	Wallet    wallet.Provisioner
	Tracker   *campaign.Tracker
	// Recent is optional; a private window is created when nil.
	Recent  *memory.RecentMessages
	Metrics *observability.Metrics
	Hooks   []Hook
	// Rules replaces DefaultRules when set.
	Rules          []Rule
	MaxThreadDepth int
	// Source tags stored memories with the platform name.
	Source string
}

// Handler runs the full handling path of a single mention.
type Handler struct {
	agent      Agent
	store      MemoryStore
	threads    *ThreadBuilder
	classifier *Classifier
	dispatcher *Dispatcher
	tracker    *campaign.Tracker
	generator  ai.Generator
	templates  *ai.Templates
	recent     *memory.RecentMessages
	metrics    *observability.Metrics
	maxDepth   int
}

// NewHandler creates a handler from opts.
func NewHandler(opts Options) *Handler {
	if opts.Templates == nil {
		opts.Templates = ai.DefaultTemplates()
	}
	if opts.Recent == nil {
		opts.Recent = memory.NewRecentMessages(recentWindow, 0)
	}
	if opts.Source == "" {
		opts.Source = "twitter"
	}
	rules := opts.Rules
	if len(rules) == 0 {
		rules = DefaultRules(opts.Generator, opts.Templates, opts.Wallet)
	}
	return &Handler{
		agent:      opts.Agent,
		store:      opts.Store,
		threads:    NewThreadBuilder(opts.Client, opts.Store, opts.Embedder, opts.Agent, opts.Source),
		classifier: NewClassifier(rules...),
		dispatcher: NewDispatcher(opts.Client, opts.Store, opts.Recent, opts.Agent, opts.Source, opts.Hooks...),
		tracker:    opts.Tracker,
		generator:  opts.Generator,
		templates:  opts.Templates,
		recent:     opts.Recent,
		metrics:    opts.Metrics,
		maxDepth:   opts.MaxThreadDepth,
	}
}

// Handle processes m. A mention whose memory already exists is reported as a
// duplicate without any further work. Errors are collaborator failures; every refusal or drop
// is reported through the result's outcome instead.
func (h *Handler) Handle(ctx context.Context, m *platform.Mention) (*Result, error) {
	rc, ok := observability.FromContext(ctx)
	if !ok || rc.MentionID != m.ID {
		rc = observability.NewRequestContext(slog.Default(), h.agent.Handle, m.ID)
		ctx = observability.WithRequestContext(ctx, rc)
	}

	result, err := h.handle(ctx, rc, m)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordFailure()
		}
		return nil, err
	}
	if h.metrics != nil {
		h.metrics.RecordMention(string(result.Outcome), rc.Duration())
	}
	rc.Info("mention handled",
		slog.String(observability.LogFieldOutcome, string(result.Outcome)),
		slog.String("reason", result.Reason),
		slog.Int("thread_length", len(result.Thread)),
		slog.Int64(observability.LogFieldDuration, rc.Duration().Milliseconds()))
	return result, nil
}

func (h *Handler) handle(ctx context.Context, rc *observability.RequestContext, m *platform.Mention) (*Result, error) {
	existing, err := h.store.GetMemory(ctx, store.MemoryIDFor(m.ID, h.agent.ID))
	if err != nil {
		return nil, pipelineerrors.Transient("failed to look up mention", err)
	}
	if existing != nil {
		return &Result{Outcome: OutcomeDuplicate, Reason: "mention already handled"}, nil
	}

	thread, err := h.threads.Build(ctx, m, h.maxDepth)
	if err != nil {
		return nil, pipelineerrors.Transient("failed to build thread", err)
	}
	result := &Result{Thread: thread}
	if strings.TrimSpace(m.Text) == "" {
		result.Outcome = OutcomeEmpty
		result.Reason = "mention has no text"
		return result, nil
	}

	campaigns, err := h.tracker.Snapshot(ctx)
	if err != nil {
		return nil, pipelineerrors.Transient("failed to load campaigns", err)
	}
	roomID := store.RoomIDFor(m.ConversationID, h.agent.ID)
	in := &Input{
		Agent:       h.agent,
		Mention:     m,
		Thread:      thread,
		Campaigns:   campaigns,
		RecentPosts: h.recent.Format(roomID, recentWindow),
	}
	h.recent.Add(roomID, memory.Message{
		MemoryID:  store.MemoryIDFor(m.ID, h.agent.ID),
		UserID:    store.StringToID(m.UserID),
		Username:  m.Username,
		Text:      m.Text,
		Timestamp: m.Timestamp,
	})

	decision, err := h.classifier.Classify(ctx, in)
	if err != nil {
		return nil, pipelineerrors.Transient("failed to classify mention", err)
	}
	result.Outcome = decision.Outcome
	result.Reason = decision.Reason
	result.Campaign = decision.Campaign
	result.Submission = decision.Submission

	switch decision.Outcome {
	case OutcomeAgentQuery:
		reply, prompt, err := h.answerAgentQuery(ctx, in, decision.Campaign)
		if err != nil {
			return nil, pipelineerrors.Transient("failed to answer agent query", err)
		}
		if strings.TrimSpace(reply) == "" {
			result.Outcome = OutcomeDrop
			result.Reason = "empty agent query answer"
			return result, nil
		}
		result.Replies, err = h.dispatcher.Dispatch(ctx, &DispatchRequest{
			Target:  m,
			Text:    reply,
			Action:  store.ActionAgentQuery,
			Context: prompt,
		})
		if err != nil {
			return nil, err
		}

	case OutcomeUnauthorized:
		rc.Warn("ignoring non-owner on campaign thread",
			slog.String(observability.LogFieldErrorCode, string(pipelineerrors.ErrCodeUnauthorizedAuthor)),
			slog.String("author", m.Username),
			slog.String("owner", decision.Campaign.Username))

	case OutcomeShill:
		submission, created, err := h.tracker.RecordSubmission(ctx, decision.Submission)
		if err != nil {
			return nil, pipelineerrors.Transient("failed to record shill submission", err)
		}
		result.Submission = submission
		if !created {
			result.Reason = "submission already recorded"
			rc.Info("shill submission already recorded",
				slog.String(observability.LogFieldErrorCode, string(pipelineerrors.ErrCodeDuplicate)),
				slog.String("campaign_id", submission.CampaignID))
		}

	case OutcomeCreateCampaign:
		proposal, err := h.tracker.Propose(ctx, decision.Campaign)
		if err != nil {
			return nil, pipelineerrors.Transient("failed to store campaign proposal", err)
		}
		result.Campaign = proposal
		reply, err := h.templates.Compose(ai.TemplateFundingRequest, campaignState(in, proposal))
		if err != nil {
			return nil, errors.Wrap(err, "failed to compose funding request")
		}
		result.Replies, err = h.dispatcher.Dispatch(ctx, &DispatchRequest{
			Target:  m,
			Text:    reply,
			Action:  store.ActionRequestFunds,
			Context: FormatPost(m) + "\n\n" + thread.Format(),
		})
		if err != nil {
			return nil, err
		}

	case OutcomeDrop:
		rc.Info("mention dropped",
			slog.String(observability.LogFieldErrorCode, string(pipelineerrors.ErrCodeExtractionFailed)),
			slog.String("reason", decision.Reason))

	default:
		rc.Debug("no response", slog.String(observability.LogFieldOutcome, string(decision.Outcome)))
	}
	return result, nil
}

var fundingQuestionPattern = regexp.MustCompile(`(?i)\b(fund\w*|address|wallet|send|deposit|pay\w*)\b`)

// answerAgentQuery answers the campaign owner. Funding questions about an
// unfunded campaign get the funding instructions; everything else goes to the
// model with the campaign facts.
func (h *Handler) answerAgentQuery(ctx context.Context, in *Input, c *campaign.Campaign) (reply, prompt string, err error) {
	state := campaignState(in, c)
	if !c.Started && fundingQuestionPattern.MatchString(in.Mention.Text) {
		reply, err = h.templates.Compose(ai.TemplateFundingRequest, state)
		return reply, FormatPost(in.Mention), err
	}
	prompt, err = h.templates.Compose(ai.TemplateAgentQuery, state)
	if err != nil {
		return "", "", err
	}
	reply, err = h.generator.Complete(ctx, prompt)
	return reply, prompt, err
}
