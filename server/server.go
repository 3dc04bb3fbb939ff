// Package server assembles the mention pipeline from a profile and a store.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/mentionsense/internal/profile"
	"github.com/hrygo/mentionsense/plugin/ai"
	"github.com/hrygo/mentionsense/plugin/ai/memory"
	"github.com/hrygo/mentionsense/plugin/platform"
	"github.com/hrygo/mentionsense/plugin/wallet"
	"github.com/hrygo/mentionsense/server/internal/observability"
	"github.com/hrygo/mentionsense/server/runner/ingest"
	"github.com/hrygo/mentionsense/server/service/campaign"
	"github.com/hrygo/mentionsense/server/service/mention"
	"github.com/hrygo/mentionsense/store"
)

// metricsReportInterval is how often the pipeline counters are logged.
const metricsReportInterval = 15 * time.Minute

type Server struct {
	Profile *profile.Profile
	Store   *store.Store
	Agent   mention.Agent

	runner  *ingest.Runner
	recent  *memory.RecentMessages
	metrics *observability.Metrics
}

// Collaborators overrides the external services the server would otherwise
// build from the profile. Nil fields are built from the profile.
type Collaborators struct {
	Client    platform.Client
	Generator ai.Generator
	Embedder  ai.Embedder
	Wallet    wallet.Provisioner
}

// NewServer resolves the agent identity once and wires every pipeline stage.
func NewServer(ctx context.Context, profile *profile.Profile, s *store.Store, c *Collaborators) (*Server, error) {
	if c == nil {
		c = &Collaborators{}
	}
	if err := buildCollaborators(ctx, profile, c); err != nil {
		return nil, err
	}

	self, err := resolveSelf(ctx, profile, c.Client)
	if err != nil {
		return nil, err
	}
	agent := mention.NewAgent(*self)

	templates := ai.DefaultTemplates()
	if profile.TemplatesPath != "" {
		templates, err = ai.LoadTemplates(profile.TemplatesPath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load templates")
		}
	}

	recent := memory.NewRecentMessages(0, 0)
	metrics := observability.NewMetrics(0)
	handler := mention.NewHandler(mention.Options{
		Agent:          agent,
		Client:         c.Client,
		Store:          s,
		Generator:      c.Generator,
		Embedder:       c.Embedder,
		Templates:      templates,
		Wallet:         c.Wallet,
		Tracker:        campaign.NewTracker(s, agent.ID, profile.CampaignScanLimit),
		Recent:         recent,
		Metrics:        metrics,
		MaxThreadDepth: profile.MaxThreadDepth,
	})

	return &Server{
		Profile: profile,
		Store:   s,
		Agent:   agent,
		runner:  ingest.NewRunner(c.Client, s, handler, agent, profile.PollInterval, profile.SearchLimit, metrics),
		recent:  recent,
		metrics: metrics,
	}, nil
}

func buildCollaborators(ctx context.Context, profile *profile.Profile, c *Collaborators) error {
	if c.Client == nil {
		config := platform.DefaultConfig()
		config.BaseURL = profile.PlatformURL
		config.Token = profile.PlatformToken
		config.ClientID = profile.PlatformClientID
		config.ClientSecret = profile.PlatformClientSecret
		config.TokenURL = profile.PlatformTokenURL
		if profile.PostInterval > 0 {
			config.PostInterval = profile.PostInterval
		}
		client, err := platform.NewHTTPClient(ctx, config)
		if err != nil {
			return errors.Wrap(err, "failed to create platform client")
		}
		c.Client = client
	}

	if c.Generator == nil {
		cfg := ai.NewConfigFromProfile(profile)
		if err := cfg.Validate(); err != nil {
			return errors.Wrap(err, "invalid AI configuration")
		}
		provider, err := ai.NewProvider(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to create AI provider")
		}
		c.Generator = provider
		if c.Embedder == nil && cfg.Embedding.Model != "" {
			c.Embedder = provider
		}
	}

	if c.Wallet == nil {
		provisioner, err := wallet.NewHDProvisioner(profile.WalletSecret)
		if err != nil {
			return errors.Wrap(err, "failed to create wallet provisioner")
		}
		c.Wallet = provisioner
	}
	return nil
}

// resolveSelf asks the platform for the authenticated account when it can,
// and falls back to the configured handle.
func resolveSelf(ctx context.Context, profile *profile.Profile, client platform.Client) (*platform.Profile, error) {
	type selfResolver interface {
		Me(ctx context.Context) (*platform.Profile, error)
	}
	if r, ok := client.(selfResolver); ok {
		self, err := r.Me(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve agent account")
		}
		if self.Username == "" {
			self.Username = profile.AgentHandle
		}
		if self.Name == "" {
			self.Name = profile.AgentName
		}
		return self, nil
	}
	return &platform.Profile{Username: profile.AgentHandle, Name: profile.AgentName}, nil
}

// Start runs the ingestion loop and the metrics reporter until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.runner.Run(ctx)
	})
	g.Go(func() error {
		s.reportMetrics(ctx)
		return nil
	})
	return g.Wait()
}

// RunOnce runs a single ingestion tick.
func (s *Server) RunOnce(ctx context.Context) (ingest.Watermark, error) {
	return s.runner.RunOnce(ctx)
}

// Shutdown releases background resources. The store is closed by its owner.
func (s *Server) Shutdown() {
	s.recent.Close()
	snap := s.metrics.Snapshot()
	slog.Info("mentionsense stopped",
		"ticks", snap.Ticks,
		"mentions_handled", snap.MentionsHandled,
		"mentions_failed", snap.MentionsFailed)
}

func (s *Server) reportMetrics(ctx context.Context) {
	ticker := time.NewTicker(metricsReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			snap := s.metrics.Snapshot()
			slog.Info("pipeline metrics",
				"ticks", snap.Ticks,
				"mentions_handled", snap.MentionsHandled,
				"mentions_failed", snap.MentionsFailed,
				"success_rate", snap.SuccessRate(),
				"avg_duration", snap.AverageDuration,
				"outcomes", snap.Outcomes)
		case <-ctx.Done():
			return
		}
	}
}
