package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultPollInterval is how often the mention runner polls the platform.
	DefaultPollInterval = 120 * time.Second
	// DefaultMaxThreadDepth bounds the reply chain walked for every mention.
	DefaultMaxThreadDepth = 10
	// DefaultSearchLimit is the number of most recent mentions fetched per tick.
	DefaultSearchLimit = 20
	// DefaultCampaignScanLimit bounds the campaign registries read per mention.
	DefaultCampaignScanLimit = 100
)

// Profile is the configuration to start the mention agent.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Data is the data directory
	Data string
	// DSN points to where mentionsense stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of the agent
	Version string

	// Agent identity
	AgentHandle string // MENTIONSENSE_AGENT_HANDLE, the handle mentions are searched for
	AgentName   string // MENTIONSENSE_AGENT_NAME (default: handle)

	// Pipeline tuning
	PollInterval      time.Duration
	MaxThreadDepth    int
	SearchLimit       int
	CampaignScanLimit int

	// Platform transport
	PlatformURL          string        // MENTIONSENSE_PLATFORM_URL
	PlatformToken        string        // MENTIONSENSE_PLATFORM_TOKEN (static bearer token)
	PlatformClientID     string        // MENTIONSENSE_PLATFORM_CLIENT_ID
	PlatformClientSecret string        // MENTIONSENSE_PLATFORM_CLIENT_SECRET
	PlatformTokenURL     string        // MENTIONSENSE_PLATFORM_TOKEN_URL
	PostInterval         time.Duration // MENTIONSENSE_POST_INTERVAL (default: 2s)

	// AI Configuration
	AIEnabled        bool   // MENTIONSENSE_AI_ENABLED
	AILLMProvider    string // MENTIONSENSE_AI_LLM_PROVIDER (default: openai)
	AIAPIKey         string // MENTIONSENSE_AI_API_KEY
	AIBaseURL        string // MENTIONSENSE_AI_BASE_URL (default: https://api.openai.com/v1)
	AILLMModel       string // MENTIONSENSE_AI_LLM_MODEL (default: gpt-4o-mini)
	AIEmbeddingModel string // MENTIONSENSE_AI_EMBEDDING_MODEL (empty disables embeddings)
	TemplatesPath    string // MENTIONSENSE_TEMPLATES_PATH, optional YAML prompt overrides

	// Wallet provisioning
	WalletSecret string // MENTIONSENSE_WALLET_SECRET
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and an API key or base URL is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && (p.AIAPIKey != "" || p.AILLMProvider == "ollama")
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads collaborator credentials and endpoints from environment variables.
func (p *Profile) FromEnv() {
	getDurationEnv := func(key string, defaultValue time.Duration) time.Duration {
		if raw := os.Getenv(key); raw != "" {
			if d, err := time.ParseDuration(raw); err == nil {
				return d
			}
			if secs, err := strconv.Atoi(raw); err == nil {
				return time.Duration(secs) * time.Second
			}
			slog.Warn("ignoring malformed duration", slog.String("key", key), slog.String("value", raw))
		}
		return defaultValue
	}

	p.AgentName = getEnvOrDefault("MENTIONSENSE_AGENT_NAME", p.AgentName)

	p.PlatformURL = getEnvOrDefault("MENTIONSENSE_PLATFORM_URL", p.PlatformURL)
	p.PlatformToken = os.Getenv("MENTIONSENSE_PLATFORM_TOKEN")
	p.PlatformClientID = os.Getenv("MENTIONSENSE_PLATFORM_CLIENT_ID")
	p.PlatformClientSecret = os.Getenv("MENTIONSENSE_PLATFORM_CLIENT_SECRET")
	p.PlatformTokenURL = os.Getenv("MENTIONSENSE_PLATFORM_TOKEN_URL")
	p.PostInterval = getDurationEnv("MENTIONSENSE_POST_INTERVAL", 2*time.Second)

	p.AIEnabled = os.Getenv("MENTIONSENSE_AI_ENABLED") == "true"
	p.AILLMProvider = getEnvOrDefault("MENTIONSENSE_AI_LLM_PROVIDER", "openai")
	p.AIAPIKey = os.Getenv("MENTIONSENSE_AI_API_KEY")
	p.AIBaseURL = getEnvOrDefault("MENTIONSENSE_AI_BASE_URL", "https://api.openai.com/v1")
	p.AILLMModel = getEnvOrDefault("MENTIONSENSE_AI_LLM_MODEL", "gpt-4o-mini")
	p.AIEmbeddingModel = os.Getenv("MENTIONSENSE_AI_EMBEDDING_MODEL")
	p.TemplatesPath = os.Getenv("MENTIONSENSE_TEMPLATES_PATH")

	p.WalletSecret = os.Getenv("MENTIONSENSE_WALLET_SECRET")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.AgentHandle == "" {
		return errors.New("agent handle is required")
	}
	p.AgentHandle = strings.TrimPrefix(p.AgentHandle, "@")
	if p.AgentName == "" {
		p.AgentName = p.AgentHandle
	}

	if p.PollInterval <= 0 {
		p.PollInterval = DefaultPollInterval
	}
	if p.MaxThreadDepth <= 0 {
		p.MaxThreadDepth = DefaultMaxThreadDepth
	}
	if p.SearchLimit <= 0 {
		p.SearchLimit = DefaultSearchLimit
	}
	if p.CampaignScanLimit <= 0 {
		p.CampaignScanLimit = DefaultCampaignScanLimit
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "mentionsense")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/mentionsense"
		}
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("mentionsense_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
