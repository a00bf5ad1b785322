package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nishant5790/ordering-agent/internal/api"
	"github.com/nishant5790/ordering-agent/internal/classify"
	"github.com/nishant5790/ordering-agent/internal/conversation"
	"github.com/nishant5790/ordering-agent/internal/extract"
	"github.com/nishant5790/ordering-agent/internal/genai"
	"github.com/nishant5790/ordering-agent/internal/store"
	"github.com/nishant5790/ordering-agent/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for orderbot state data
	DefaultStateDir = "/var/lib/orderbot"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "orderbot.db"
)

// Config holds environment configuration
type Config struct {
	DbDriver      string
	DatabaseURL   string
	StateDir      string
	OpenAIKey     string
	OpenAIModel   string
	APIAddr       string
	BulkThreshold string
}

// Flags holds command line flag values
type Flags struct {
	stateDir      *string
	dbDriver      *string
	dbDSN         *string
	openaiKey     *string
	openaiModel   *string
	apiAddr       *string
	bulkThreshold *int
	interactive   *bool
}

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	ctrl := buildController(flags, st)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *flags.interactive {
		runInteractive(ctx, ctrl)
		return
	}

	server := api.NewServer(ctrl, st, *flags.apiAddr)
	slog.Info("Bootstrapping orderbot", "api_addr", *flags.apiAddr, "db_driver", *flags.dbDriver)
	if err := server.Run(ctx); err != nil {
		slog.Error("orderbot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("orderbot exited successfully")
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DbDriver:      os.Getenv("DB_DRIVER"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StateDir:      os.Getenv("ORDERBOT_STATE_DIR"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   os.Getenv("OPENAI_MODEL"),
		APIAddr:       os.Getenv("API_ADDR"),
		BulkThreshold: os.Getenv("BULK_THRESHOLD"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No ORDERBOT_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	return config
}

// parseCommandLineFlags parses command line flags with environment variable defaults
func parseCommandLineFlags(config Config) Flags {
	threshold := classify.DefaultBulkThreshold
	if config.BulkThreshold != "" {
		if n, err := strconv.Atoi(config.BulkThreshold); err == nil && n > 0 {
			threshold = n
		} else {
			slog.Warn("Invalid BULK_THRESHOLD, using default", "value", config.BulkThreshold, "default", threshold)
		}
	}

	flags := Flags{
		stateDir:      flag.String("state-dir", config.StateDir, "Directory for state data (SQLite database)"),
		dbDriver:      flag.String("db-driver", config.DbDriver, "Database driver: sqlite3 or postgres (default sqlite3)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "Database DSN (file path for sqlite3, connection string for postgres)"),
		openaiKey:     flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key for classification and extraction"),
		openaiModel:   flag.String("openai-model", config.OpenAIModel, "OpenAI model name"),
		apiAddr:       flag.String("addr", config.APIAddr, "API listen address"),
		bulkThreshold: flag.Int("bulk-threshold", threshold, "Quantity at or above which an order is bulk"),
		interactive:   flag.Bool("interactive", false, "Run an interactive chat on stdin instead of the API server"),
	}
	flag.Parse()
	return flags
}

// buildStore selects and opens the persistence backend.
func buildStore(flags Flags) (store.Store, error) {
	driver := *flags.dbDriver
	dsn := *flags.dbDSN

	if driver == "" {
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			driver = "postgres"
		} else {
			driver = "sqlite3"
		}
	}

	switch driver {
	case "postgres":
		return store.NewPostgresStore(store.WithDSN(dsn))
	case "sqlite3":
		if dsn == "" {
			dsn = filepath.Join(*flags.stateDir, DefaultDBFileName)
			slog.Debug("No database DSN set, using default SQLite path", "dsn", dsn)
		}
		return store.NewSQLiteStore(store.WithDSN(dsn))
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// buildController wires the classifier, extractor, and store together.
// Without an API key the deterministic rules carry the whole flow.
func buildController(flags Flags, st store.Store) *conversation.Controller {
	var client genai.ClientInterface
	var opts []genai.Option
	if *flags.openaiKey != "" {
		opts = append(opts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		opts = append(opts, genai.WithModel(*flags.openaiModel))
	}
	c, err := genai.NewClient(opts...)
	if err != nil {
		slog.Warn("GenAI client not configured, using rule-based classification and extraction", "error", err)
	} else {
		client = c
	}

	return conversation.NewController(
		classify.New(client, *flags.bulkThreshold),
		extract.New(client),
		st,
	)
}

// runInteractive reads messages from stdin and prints replies, one
// session for the whole run.
func runInteractive(ctx context.Context, ctrl *conversation.Controller) {
	sessionID := util.GenerateSessionID()
	fmt.Printf("Session %s started. Type 'quit' to exit.\n\n", sessionID)
	fmt.Println("Bot: Hello! What would you like to order?")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if strings.EqualFold(text, "quit") || strings.EqualFold(text, "exit") {
			fmt.Println("Bot: Goodbye!")
			return
		}

		reply, err := ctrl.Submit(ctx, sessionID, text)
		if err != nil {
			slog.Error("Submit failed", "error", err)
			continue
		}
		fmt.Printf("Bot: %s\n", reply)
	}
}
