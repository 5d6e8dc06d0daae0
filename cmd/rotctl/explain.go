package main

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

const explainDoc = `# How rotctl assigns leads

## Lanes

A lead's lane is never stored — it is always derived from its unit count:
` + "`unit_count < 1000`" + ` is lane ` + "`sub1k`" + `, ` + "`unit_count >= 1000`" + ` is lane
` + "`1kplus`" + `. The two lanes rotate independently, each with its own base
order and hit counts.

## The sequence formula

Each lane's rotation is a deterministic sequence ` + "`S`" + ` built from the lane's
base order ` + "`B`" + ` (length ` + "`N`" + `) and each rep's net hit count ` + "`h(r)`" + `: a rep at
base position ` + "`p(r)`" + ` next appears at position ` + "`p(r) + h(r)*N`" + ` in ` + "`S`" + `. A rep
with more hits than its peers is delayed by whole cycles of the lane, never
skipped outright.

## Eligibility

Before a rep is offered a lead, it must be active (not out of office on
the lead's day), able to take the lead's unit count (capped reps and the
1kplus-capable flag), and share a property type with the lead under the
configured match policy (any-match by default, all-match optional).

## Replacement marks

A lead marked for replacement opens a FIFO queue entry in its lane; the
resolver's walk visits open queue entries before the base sequence. A
mark closes when its replacement lead is placed, or is dropped without a
replacement via unmark.
`

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Print a walkthrough of lane derivation, the sequence formula, and eligibility",
	RunE: func(cmd *cobra.Command, args []string) error {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return fmt.Errorf("explain: build renderer: %w", err)
		}
		out, err := renderer.Render(explainDoc)
		if err != nil {
			return fmt.Errorf("explain: render: %w", err)
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)
}
