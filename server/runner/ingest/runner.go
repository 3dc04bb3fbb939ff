// Package ingest polls the platform for new mentions of the agent and feeds
// them, oldest first, to the mention handler.
package ingest

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/mentionsense/plugin/platform"
	pipelineerrors "github.com/hrygo/mentionsense/server/internal/errors"
	"github.com/hrygo/mentionsense/server/internal/observability"
	"github.com/hrygo/mentionsense/server/service/mention"
)

const (
	// DefaultInterval is the fixed polling period.
	DefaultInterval = 120 * time.Second
	// DefaultSearchLimit is how many recent mentions one tick fetches.
	DefaultSearchLimit = 20
)

// MentionHandler runs the handling path of one mention.
type MentionHandler interface {
	Handle(ctx context.Context, m *platform.Mention) (*mention.Result, error)
}

type Runner struct {
	client   platform.Client
	settings SettingStore
	handler  MentionHandler
	agent    mention.Agent
	interval time.Duration
	limit    int
	metrics  *observability.Metrics
	logger   *slog.Logger

	// mu serializes ticks between Run and RunOnce.
	mu sync.Mutex
}

// NewRunner creates an ingestion runner. Zero interval or limit select the
// defaults.
func NewRunner(client platform.Client, settings SettingStore, handler MentionHandler, agent mention.Agent, interval time.Duration, limit int, metrics *observability.Metrics) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return &Runner{
		client:   client,
		settings: settings,
		handler:  handler,
		agent:    agent,
		interval: interval,
		limit:    limit,
		metrics:  metrics,
		logger:   slog.Default(),
	}
}

// Run ticks immediately and then every interval until ctx is done. Tick
// failures are logged and retried on the next interval.
func (r *Runner) Run(ctx context.Context) error {
	wm, err := LoadWatermark(ctx, r.settings, r.agent.Handle)
	if err != nil {
		return err
	}
	slog.Info("ingestion runner started",
		"agent", r.agent.Handle,
		"interval", r.interval,
		"watermark", string(wm))

	wm = r.tickLogged(ctx, wm)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			wm = r.tickLogged(ctx, wm)
		case <-ctx.Done():
			slog.Info("ingestion runner stopped", "watermark", string(wm))
			return nil
		}
	}
}

// RunOnce loads the persisted watermark and runs a single tick (for manual
// triggers).
func (r *Runner) RunOnce(ctx context.Context) (Watermark, error) {
	wm, err := LoadWatermark(ctx, r.settings, r.agent.Handle)
	if err != nil {
		return "", err
	}
	return r.Tick(ctx, wm)
}

func (r *Runner) tickLogged(ctx context.Context, wm Watermark) Watermark {
	next, err := r.Tick(ctx, wm)
	if err != nil && ctx.Err() == nil {
		slog.Error("ingestion tick failed",
			"error", err,
			observability.LogFieldErrorCode, string(pipelineerrors.Code(err)))
	}
	return next
}

// Tick handles every new mention once, oldest first, and returns the advanced
// watermark. The watermark is persisted after each mention, whether its
// handling succeeded or failed.
func (r *Runner) Tick(ctx context.Context, wm Watermark) (Watermark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tickID := shortuuid.New()
	if r.metrics != nil {
		r.metrics.RecordTick()
	}
	found, err := r.client.Search(ctx, "@"+r.agent.Handle, r.limit, platform.SearchLatest)
	if err != nil {
		return wm, pipelineerrors.Transient("failed to search mentions", err)
	}
	candidates := r.selectCandidates(found, wm)
	if len(candidates) == 0 {
		return wm, nil
	}
	r.logger.Info("new mentions found",
		observability.LogFieldTickID, tickID,
		"count", len(candidates),
		"watermark", string(wm))

	for _, m := range candidates {
		if err := ctx.Err(); err != nil {
			return wm, err
		}
		rc := observability.NewRequestContext(r.logger, r.agent.Handle, m.ID).
			With(slog.String(observability.LogFieldTickID, tickID))
		if _, err := r.handler.Handle(observability.WithRequestContext(ctx, rc), m); err != nil {
			if ctx.Err() != nil {
				return wm, ctx.Err()
			}
			rc.Error("failed to handle mention", err, string(pipelineerrors.Code(err)))
		}

		wm = wm.Advance(m.ID)
		if err := SaveWatermark(ctx, r.settings, r.agent.Handle, wm); err != nil {
			return wm, err
		}
	}
	return wm, nil
}

// selectCandidates dedupes, sorts ascending and drops covered and self-authored
// mentions.
func (r *Runner) selectCandidates(found []*platform.Mention, wm Watermark) []*platform.Mention {
	seen := make(map[string]struct{}, len(found))
	candidates := make([]*platform.Mention, 0, len(found))
	for _, m := range found {
		if m == nil || m.ID == "" {
			continue
		}
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		if wm.Covers(m.ID) || r.isSelf(m) {
			continue
		}
		candidates = append(candidates, m)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return CompareIDs(candidates[i].ID, candidates[j].ID) < 0
	})
	return candidates
}

func (r *Runner) isSelf(m *platform.Mention) bool {
	if r.agent.UserID != "" && m.UserID == r.agent.UserID {
		return true
	}
	return strings.EqualFold(m.Username, r.agent.Handle)
}
