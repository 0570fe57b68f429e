package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"discourse/issuegraph/internal/config"
	"discourse/issuegraph/internal/db"
	"discourse/issuegraph/internal/logging"
)

// DBFileName is the run store looked for when walking up from the working directory
const DBFileName = ".issuegraph.db"

var (
	dbPath     string
	configPath string
	logLevel   string

	cfg    = config.DefaultConfig()
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "issuegraph",
	Short:         "Researcher lifecycle metrics from discourse graph exports",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, err := DiscoverConfig()
		if err != nil {
			return err
		}
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Logging.Level = logLevel
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		cfg = loaded

		// level and format were validated above
		logger = logging.Must(cfg.Logging.Level, cfg.Logging.Format)
		if path != "" {
			logger.Debug("config loaded", zap.String("path", path))
		}
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the .issuegraph.db run store")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a .issuegraph.yaml config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
}

// DiscoverConfig finds the config file using priority: env > flag > walk-up.
// An empty path means no file was found and defaults apply.
func DiscoverConfig() (string, error) {
	if envPath := os.Getenv("ISSUEGRAPH_CONFIG"); envPath != "" {
		return envPath, nil
	}
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return "", fmt.Errorf("config not found at --config path: %s", configPath)
		}
		return configPath, nil
	}
	if found, ok := walkUp(config.FileName); ok {
		return found, nil
	}
	return "", nil
}

// DiscoverDB finds the run store path using priority:
// env > flag > walk-up > config > working directory.
// When create is false the store must already exist.
func DiscoverDB(create bool) (string, error) {
	// 1. Environment variable
	if envPath := os.Getenv("ISSUEGRAPH_DB"); envPath != "" {
		return checkDB(envPath, create)
	}

	// 2. CLI flag
	if dbPath != "" {
		path, err := checkDB(dbPath, create)
		if err != nil {
			return "", fmt.Errorf("database not found at --db path: %s", dbPath)
		}
		return path, nil
	}

	// 3. Walk up from CWD
	if found, ok := walkUp(DBFileName); ok {
		return found, nil
	}

	// 4. Config file
	if cfg.Store.Path != "" {
		return checkDB(cfg.Store.Path, create)
	}

	// 5. New store in the working directory
	if create {
		return DBFileName, nil
	}
	return "", fmt.Errorf("no %s found (set ISSUEGRAPH_DB, use --db, or run 'issuegraph analyze --save' first)", DBFileName)
}

func checkDB(path string, create bool) (string, error) {
	if create {
		return path, nil
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("database not found: %s", path)
	}
	return path, nil
}

func walkUp(name string) (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// OpenDatabase discovers and opens the run store
func OpenDatabase(create bool) (*db.DB, error) {
	path, err := DiscoverDB(create)
	if err != nil {
		return nil, err
	}
	logger.Debug("opening run store", zap.String("path", path))
	return db.OpenDB(path)
}
