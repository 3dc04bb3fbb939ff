package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/mentionsense/internal/profile"
	"github.com/hrygo/mentionsense/internal/version"
	"github.com/hrygo/mentionsense/server"
	"github.com/hrygo/mentionsense/store"
	"github.com/hrygo/mentionsense/store/db"
)

var (
	rootCmd = &cobra.Command{
		Use:   "mentionsense",
		Short: "An agent that answers social mentions and runs token shilling campaigns.",
		Run: func(cmd *cobra.Command, _ []string) {
			run(cmd.Context(), false)
		},
	}

	tickCmd = &cobra.Command{
		Use:   "tick",
		Short: "Run a single ingestion tick and exit.",
		Run: func(cmd *cobra.Command, _ []string) {
			run(cmd.Context(), true)
		},
	}
)

var envKeyReplacer = strings.NewReplacer("-", "_")

func run(ctx context.Context, once bool) {
	instanceProfile := &profile.Profile{
		Mode:              viper.GetString("mode"),
		Data:              viper.GetString("data"),
		Driver:            viper.GetString("driver"),
		DSN:               viper.GetString("dsn"),
		AgentHandle:       viper.GetString("agent-handle"),
		PollInterval:      viper.GetDuration("poll-interval"),
		MaxThreadDepth:    viper.GetInt("max-thread-depth"),
		SearchLimit:       viper.GetInt("search-limit"),
		CampaignScanLimit: viper.GetInt("campaign-scan-limit"),
		Version:           version.GetCurrentVersion(viper.GetString("mode")),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		slog.Error("failed to validate profile", "error", err)
		os.Exit(1)
	}
	setupLogger(instanceProfile)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		slog.Error("failed to create db driver", "error", err)
		os.Exit(1)
	}
	storeInstance := store.New(dbDriver, instanceProfile)
	defer storeInstance.Close()
	if err := storeInstance.Migrate(ctx); err != nil {
		slog.Error("failed to migrate", "error", err)
		return
	}

	s, err := server.NewServer(ctx, instanceProfile, storeInstance, nil)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		return
	}
	defer s.Shutdown()

	printGreetings(instanceProfile, s)

	if once {
		wm, err := s.RunOnce(ctx)
		if err != nil {
			slog.Error("tick failed", "error", err)
			return
		}
		slog.Info("tick completed", "watermark", string(wm))
		return
	}
	if err := s.Start(ctx); err != nil {
		slog.Error("server stopped with error", "error", err)
	}
}

func setupLogger(p *profile.Profile) {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if p.Mode == "prod" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("poll-interval", profile.DefaultPollInterval)
	viper.SetDefault("max-thread-depth", profile.DefaultMaxThreadDepth)
	viper.SetDefault("search-limit", profile.DefaultSearchLimit)
	viper.SetDefault("campaign-scan-limit", profile.DefaultCampaignScanLimit)

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", "database driver (sqlite or postgres)")
	flags.String("dsn", "", "database source name(aka. DSN)")
	flags.String("agent-handle", "", "handle of the agent account, mentions of it are handled")
	flags.Duration("poll-interval", profile.DefaultPollInterval, "interval between two ingestion ticks")
	flags.Int("max-thread-depth", profile.DefaultMaxThreadDepth, "maximum reply chain length walked per mention")
	flags.Int("search-limit", profile.DefaultSearchLimit, "number of recent mentions fetched per tick")
	flags.Int("campaign-scan-limit", profile.DefaultCampaignScanLimit, "maximum campaigns read per mention")

	for _, name := range []string{"mode", "data", "driver", "dsn", "agent-handle", "poll-interval", "max-thread-depth", "search-limit", "campaign-scan-limit"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("mentionsense")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	rootCmd.AddCommand(tickCmd)
}

func printGreetings(p *profile.Profile, s *server.Server) {
	fmt.Printf("mentionsense %s started successfully!\n", p.Version)
	fmt.Printf("Agent: @%s (%s)\n", s.Agent.Handle, s.Agent.Name)
	fmt.Printf("Database driver: %s\n", p.Driver)
	if p.IsDev() {
		fmt.Fprintf(os.Stderr, "Development mode is enabled\n")
		if p.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", p.DSN)
		}
	}
	fmt.Printf("Polling every %s\n", p.PollInterval)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
