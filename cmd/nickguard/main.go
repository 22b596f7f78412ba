package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dalnet/nickguard/internal/config"
	"github.com/dalnet/nickguard/internal/irc"
	"github.com/dalnet/nickguard/internal/metrics"
	"github.com/dalnet/nickguard/internal/nickserv"
)

// Version information - set at build time via ldflags
var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

var (
	configPath string
	pidFile    string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "nickguard",
	Short: "IRC bot that keeps its nickname identified to NickServ",
	Long: `nickguard connects to an IRC server, identifies to NickServ when asked,
and reclaims its configured nickname from ghost connections.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nickguard version %s\n", version)
		fmt.Printf("Built: %s\n", buildDate)
		fmt.Printf("Commit: %s\n", gitCommit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().StringVar(&pidFile, "pidfile", "", "Write the process id to this file")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if pidFile != "" {
		if err := writePIDFile(pidFile); err != nil {
			logger.Warn("could not write PID file", zap.Error(err))
		}
	}

	// Make config path absolute
	if !filepath.IsAbs(configPath) {
		wd, _ := os.Getwd()
		configPath = filepath.Join(wd, configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	var sink nickserv.Sink
	if cfg.MetricsAddr != "" {
		collector := metrics.New()
		sink = collector
		go func() {
			if err := collector.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	irc.Version, irc.BuildDate, irc.GitCommit = version, buildDate, gitCommit
	client, err := irc.NewClient(cfg, logger, sink)
	if err != nil {
		return fmt.Errorf("failed to create IRC client: %w", err)
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutdown requested")
		client.Quit()
	}()

	logger.Info("connecting", zap.String("server", cfg.Address()), zap.String("nick", cfg.Nick))
	if err := client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	logger.Info("connected, entering main loop")
	client.Loop()
	return nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}
