package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"fishbox/internal/config"
	"fishbox/internal/storage"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	dbPath string
	json   bool
	out    io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{out: out}
	cmd := &cobra.Command{
		Use:   "fishboxctl",
		Short: "FishBox admin CLI",
		Long: `fishboxctl manages the FishBox SQLite database and prints catch statistics.

DATABASE:
  migrate up        Apply all pending migrations
  migrate down      Roll back migrations
  migrate version   Show the current schema version

REPORTS:
  stats             Summary and species distribution for one angler
  leaderboard       Ranking of public catches
  spots             Fishing spots of one angler

The database path defaults to SQLITE_DB_PATH.`,
		SilenceUsage: true,
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", config.Load().SQLiteDBPath, "SQLite database path")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "Output as JSON")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newStatsCmd(opts),
		newLeaderboardCmd(opts),
		newSpotsCmd(opts),
	)
	return cmd
}

func (o *rootOptions) openRepo() (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(o.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", o.dbPath, err)
	}
	return repo, nil
}

func (o *rootOptions) printJSON(v any) error {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
