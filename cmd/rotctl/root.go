package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxwell903/sdr-lead-rotation/internal/config"
	"github.com/maxwell903/sdr-lead-rotation/internal/diag"
	"github.com/maxwell903/sdr-lead-rotation/internal/eligibility"
	"github.com/maxwell903/sdr-lead-rotation/internal/engine"
	"github.com/maxwell903/sdr-lead-rotation/internal/storage"
	"github.com/maxwell903/sdr-lead-rotation/internal/storage/memory"
	"github.com/maxwell903/sdr-lead-rotation/internal/storage/sqlite"
)

// rootCtx is the background context every command runs under. rotctl is a
// one-shot CLI, not a server, so there is nothing to cancel it with beyond
// process exit.
var rootCtx = context.Background()

// eng and store are populated by rootCmd's PersistentPreRunE and consumed
// by every subcommand's RunE. actor and jsonOutput are read the same way.
var (
	eng        *engine.Engine
	store      storage.Storage
	jsonOutput bool
	actorFlag  string
	dbFlag     string
	noDBFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "rotctl",
	Short: "Sales-lead rotation engine",
	Long: `rotctl assigns incoming sales leads to reps in round-robin order across
two independent lanes (sub1k and 1kplus), tracks open replacement marks for
leads that turn out to be bad fits, and answers queries about either lane's
current rotation and statistics.

Every mutating command appends to an append-only event log; the rotation
itself is always a derived view recomputed from that log plus the current
roster, never mutated state stored anywhere else.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store != nil {
			return store.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "path to the SQLite database file (defaults to the db config value)")
	rootCmd.PersistentFlags().BoolVar(&noDBFlag, "no-db", false, "use an in-memory store instead of SQLite, discarding all state on exit")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON instead of rendered panels")
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "", "identity attributed to emitted events (defaults to config, git user.name, or hostname)")
}

func setup(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if !cmd.Flags().Changed("json") {
		jsonOutput = config.GetBool("json")
	}
	actorFlag = config.GetActor(actorFlag)

	dbPath := dbFlag
	if dbPath == "" {
		dbPath = config.GetString("db")
	}

	switch {
	case noDBFlag || dbPath == "":
		store = memory.New()
	default:
		s, err := sqlite.New(rootCtx, dbPath)
		if err != nil {
			diag.Errorf("open database %s: %v", dbPath, err)
			return fmt.Errorf("open database %s: %w", dbPath, err)
		}
		store = s
	}

	e, err := engine.Open(rootCtx, store, engineOptions())
	if err != nil {
		diag.Errorf("open engine: %v", err)
		return fmt.Errorf("open engine: %w", err)
	}
	eng = e
	return nil
}

// engineOptions builds engine.Options from the layered config, falling
// back to engine.DefaultOptions for anything unset.
func engineOptions() engine.Options {
	opts := engine.DefaultOptions()
	if cap := config.GetInt("sequence.cap"); cap > 0 {
		opts.SequenceCap = cap
	}
	opts.Hits.WindowAwareMFR = config.GetBool("hits.window-aware-mfr")
	if config.GetString("eligibility.property-match") == string(eligibility.AllMatch) {
		opts.PropertyMatch = eligibility.AllMatch
	}
	return opts
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
