package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "List, reorder, and edit the rep roster",
}

func init() {
	rootCmd.AddCommand(rosterCmd)
	rosterCmd.AddCommand(rosterListCmd)
	rosterCmd.AddCommand(rosterUpsertCmd)
	rosterCmd.AddCommand(rosterRemoveCmd)
	rosterCmd.AddCommand(rosterReorderCmd)
	rosterCmd.AddCommand(rosterExportCmd)
	rosterCmd.AddCommand(rosterImportCmd)
}

var rosterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every rep and their base-order positions",
	RunE: func(cmd *cobra.Command, args []string) error {
		reps := eng.Roster().Snapshot()
		sort.Slice(reps, func(i, j int) bool { return reps[i].ID < reps[j].ID })
		for _, rep := range reps {
			over := "-"
			if rep.Parameters.CanHandle1kPlus && rep.Over1kOrder != nil {
				over = fmt.Sprintf("%d", *rep.Over1kOrder)
			}
			fmt.Printf("%-12s %-8s sub1k=%-3d 1kplus=%-3s types=%s\n",
				rep.ID, rep.Status, rep.Sub1kOrder, over,
				strings.Join(propertyTypeStrings(rep.Parameters.PropertyTypes), ","))
		}
		return nil
	},
}

var upsertFlags struct {
	displayName     string
	propertyTypes   string
	maxUnits        int
	canHandle1kPlus bool
	status          string
}

var rosterUpsertCmd = &cobra.Command{
	Use:   "upsert <rep-id>",
	Short: "Create or patch a rep",
	Args:  cobra.ExactArgs(1),
	Long: `upsert creates a rep if rep-id is new, appending it to the end of every
lane it participates in, or patches an existing rep's attributes in place.
Either way the roster is re-densified and persisted atomically.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pts, err := parsePropertyTypes(upsertFlags.propertyTypes)
		if err != nil {
			return err
		}
		status := types.RepActive
		if upsertFlags.status == "ooo" {
			status = types.RepOOO
		}
		rep := types.Rep{
			ID:          args[0],
			DisplayName: upsertFlags.displayName,
			Status:      status,
			Parameters: types.RepParameters{
				PropertyTypes:   pts,
				CanHandle1kPlus: upsertFlags.canHandle1kPlus,
			},
		}
		if cmd.Flags().Changed("max-units") {
			m := upsertFlags.maxUnits
			rep.Parameters.MaxUnits = &m
		}
		if existing, ok := eng.Roster().Get(args[0]); ok {
			rep.Sub1kOrder = existing.Sub1kOrder
			rep.Over1kOrder = existing.Over1kOrder
		}
		if err := eng.UpsertRep(rootCtx, rep); err != nil {
			return err
		}
		fmt.Printf("upserted %s\n", rep.ID)
		return nil
	},
}

var rosterRemoveCmd = &cobra.Command{
	Use:   "remove <rep-id>",
	Short: "Remove a rep from the roster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := eng.RemoveRep(rootCtx, args[0]); err != nil {
			return err
		}
		fmt.Printf("removed %s\n", args[0])
		return nil
	},
}

var rosterReorderCmd = &cobra.Command{
	Use:   "reorder <lane> <rep-id> [rep-id...]",
	Short: "Replace a lane's base order",
	Args:  cobra.MinimumNArgs(2),
	Long: `reorder replaces the named lane's base order with the given rep ids, in
order. The ids must be exactly the lane's currently eligible reps (active,
and CanHandle1kPlus for 1kplus), no more, no fewer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		lane, err := parseLaneArg(args[0])
		if err != nil {
			return err
		}
		if err := eng.Reorder(rootCtx, lane, args[1:]); err != nil {
			return err
		}
		fmt.Printf("reordered %s\n", lane)
		return nil
	},
}

func parseLaneArg(s string) (types.Lane, error) {
	switch s {
	case "sub1k":
		return types.LaneSub1k, nil
	case "1kplus":
		return types.Lane1kPlus, nil
	default:
		return "", fmt.Errorf("lane must be sub1k or 1kplus, got %q", s)
	}
}

func propertyTypeStrings(pts types.PropertyTypeSet) []string {
	out := make([]string, 0, len(pts))
	for _, pt := range pts.Slice() {
		out = append(out, string(pt))
	}
	return out
}

// rosterDocument is the YAML-friendly persisted-state layout for roster
// export/import: a plain struct with a string property-type list, since
// types.PropertyTypeSet (a map) round-trips awkwardly through YAML and
// types.Rep's unexported fields don't apply here (Rep has none, unlike
// ReplacementRecord) but the derived Over1kOrder/MaxUnits pointers still
// need an explicit "absent means nil" rendering.
type rosterDocument struct {
	Reps []rosterEntry `yaml:"reps"`
}

type rosterEntry struct {
	ID              string   `yaml:"id"`
	DisplayName     string   `yaml:"display_name,omitempty"`
	Status          string   `yaml:"status"`
	PropertyTypes   []string `yaml:"property_types,omitempty"`
	MaxUnits        *int     `yaml:"max_units,omitempty"`
	CanHandle1kPlus bool     `yaml:"can_handle_1kplus"`
	Sub1kOrder      int      `yaml:"sub1k_order"`
	Over1kOrder     *int     `yaml:"1kplus_order,omitempty"`
}

var rosterExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the roster to a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reps := eng.Roster().Snapshot()
		doc := rosterDocument{Reps: make([]rosterEntry, 0, len(reps))}
		for _, rep := range reps {
			doc.Reps = append(doc.Reps, rosterEntry{
				ID:              rep.ID,
				DisplayName:     rep.DisplayName,
				Status:          string(rep.Status),
				PropertyTypes:   propertyTypeStrings(rep.Parameters.PropertyTypes),
				MaxUnits:        rep.Parameters.MaxUnits,
				CanHandle1kPlus: rep.Parameters.CanHandle1kPlus,
				Sub1kOrder:      rep.Sub1kOrder,
				Over1kOrder:     rep.Over1kOrder,
			})
		}
		out, err := yaml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal roster: %w", err)
		}
		if err := os.WriteFile(args[0], out, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", args[0], err)
		}
		fmt.Printf("exported %d reps to %s\n", len(doc.Reps), args[0])
		return nil
	},
}

var rosterImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the roster from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		var doc rosterDocument
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		for _, entry := range doc.Reps {
			pts, err := parsePropertyTypes(strings.Join(entry.PropertyTypes, ","))
			if err != nil {
				return fmt.Errorf("rep %s: %w", entry.ID, err)
			}
			status := types.RepActive
			if entry.Status == string(types.RepOOO) {
				status = types.RepOOO
			}
			rep := types.Rep{
				ID:          entry.ID,
				DisplayName: entry.DisplayName,
				Status:      status,
				Parameters: types.RepParameters{
					PropertyTypes:   pts,
					MaxUnits:        entry.MaxUnits,
					CanHandle1kPlus: entry.CanHandle1kPlus,
				},
				Sub1kOrder:  entry.Sub1kOrder,
				Over1kOrder: entry.Over1kOrder,
			}
			if err := eng.UpsertRep(rootCtx, rep); err != nil {
				return fmt.Errorf("rep %s: %w", entry.ID, err)
			}
		}
		fmt.Printf("imported %d reps from %s\n", len(doc.Reps), args[0])
		return nil
	},
}

func init() {
	rosterUpsertCmd.Flags().StringVar(&upsertFlags.displayName, "name", "", "rep's display name")
	rosterUpsertCmd.Flags().StringVar(&upsertFlags.propertyTypes, "property-types", "", "comma-separated property types the rep covers")
	rosterUpsertCmd.Flags().IntVar(&upsertFlags.maxUnits, "max-units", 0, "maximum unit count this rep will accept (unset = no cap)")
	rosterUpsertCmd.Flags().BoolVar(&upsertFlags.canHandle1kPlus, "1kplus", false, "rep participates in the 1kplus lane")
	rosterUpsertCmd.Flags().StringVar(&upsertFlags.status, "status", "active", "rep status: active or ooo")
}
