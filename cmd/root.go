package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/log/global"

	"stargazer/internal/config"
	"stargazer/internal/db"
	"stargazer/internal/output"
	"stargazer/internal/telemetry"
)

// LogLevelEnv sets the stderr log level (debug, info, warn, error)
const LogLevelEnv = "STARGAZER_LOG_LEVEL"

var (
	Version    = "0.1.0"
	jsonOutput bool
	verbose    bool
	configPath string

	appConfig    *config.Config
	shutdownOTel telemetry.ShutdownFunc
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

// commandsExemptFromDB lists commands that don't require database initialization
var commandsExemptFromDB = map[string]bool{
	"init":       true,
	"version":    true,
	"help":       true,
	"completion": true,
}

var rootCmd = &cobra.Command{
	Use:   "stg",
	Short: "Stargazer - an offline mirror of your GitHub stars",
	Long: `Stargazer (stg) keeps a local SQLite copy of the repositories you starred on
GitHub so you can search, filter and organize them without the network.

QUICK START:
  stg init                          # Create the local database
  stg config github                 # Store a GitHub token in the system keyring
  stg sync                          # Fetch your stars (first run walks everything)
  stg list --lang Go --sort stars   # Browse the mirror
  stg search ripgrep                # Search names, descriptions, owners, topics

ORGANIZING:
  stg fav <repo>                    # Mark a favorite (use --off to clear)
  stg pin <repo>                    # Pin a repository
  stg tag create tools              # Create a tag, then: stg tag add tools <repo>
  stg preset save go-cli --lang Go --search cli

Repositories can be named by numeric id or owner/name.

SYNCING: the first sync walks every page; later syncs stop as soon as they
reach stars already in the mirror. Favorites, pins and tags are never
touched by a sync.

JSON OUTPUT: Add --json flag to any command for machine-readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		appConfig = cfg
		setupTelemetry(cmd.Context())

		if commandsExemptFromDB[cmd.Name()] {
			return nil
		}
		return db.EnsureInitialized()
	},
}

// Execute runs the root command until it finishes or the process is interrupted
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	db.CloseDB()
	flushTelemetry()

	if err != nil {
		if jsonOutput {
			OutputJSON(map[string]interface{}{"error": true, "message": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default <config dir>/stargazer/config.yaml)")
	rootCmd.Version = Version
}

func OutputJSON(data interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(data)
}

func IsJSONOutput() bool {
	return jsonOutput
}

// formatter returns the output formatter for the --json setting
func formatter() output.Formatter {
	return output.New(jsonOutput)
}

// parseLogLevel maps a level name to a slog level. Unknown names yield fallback.
func parseLogLevel(s string, fallback slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

func setupLogger() {
	level := parseLogLevel(os.Getenv(LogLevelEnv), slog.LevelWarn)
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		dir, err := db.DataDir()
		if err != nil {
			return nil, err
		}
		path = config.DefaultPath(dir)
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %q: %w", path, err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("config loaded", "path", path, "page_size", cfg.PageSize, "telemetry", cfg.Telemetry != nil)
	return cfg, nil
}

func setupTelemetry(ctx context.Context) {
	if appConfig == nil || appConfig.Telemetry == nil || shutdownOTel != nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	tc := appConfig.Telemetry
	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		OTLPEndpoint: tc.OTLPEndpoint,
		Insecure:     tc.Insecure,
		ServiceName:  tc.ServiceName,
		Headers:      tc.Headers,
	})
	if err != nil {
		logger.Error("telemetry setup failed, continuing without telemetry", "error", err)
		return
	}
	shutdownOTel = shutdown

	logger = slog.New(telemetry.NewLogHandler(logger.Handler(), global.GetLoggerProvider()))
	slog.SetDefault(logger)
	logger.Debug("telemetry enabled", "endpoint", tc.OTLPEndpoint)
}

func flushTelemetry() {
	if shutdownOTel == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownOTel(ctx); err != nil {
		logger.Error("telemetry shutdown error", "error", err)
	}
	shutdownOTel = nil
}
