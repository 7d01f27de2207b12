package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/wod-leaderboard/internal/config"
	"github.com/iliyamo/wod-leaderboard/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "wodboard",
	Short:         "WOD leaderboard server and client",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `wodboard runs the WOD leaderboard API and talks to it.

Server side:  serve, migrate, audit
Client side:  leaderboard, workout, result

Client commands remember the owner and result tokens they receive in a
local ownership file so later deletes and edits need no token flag.`,
}

var (
	configDir     string
	serverURL     string
	ownershipPath string
	jsonOutput    bool
)

func main() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory holding config.yaml and .env")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("WODBOARD_URL", "http://localhost:3001"), "API base URL for client commands")
	rootCmd.PersistentFlags().StringVar(&ownershipPath, "ownership-file", "", "token store for client commands (default ~/.wodboard/ownership.json)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of tables")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(leaderboardCmd())
	rootCmd.AddCommand(workoutCmd())
	rootCmd.AddCommand(resultCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration and the matching logger.
func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, nil, err
	}
	log := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	return cfg, log.With("env", cfg.Env), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
