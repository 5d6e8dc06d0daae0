package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/maxwell903/sdr-lead-rotation/internal/resolver"
)

var resolveFlags struct {
	unitCount      int
	propertyTypes  string
	day            string
	replacesLeadID string
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show which rep would receive a lead, without placing it",
	Long: `resolve runs the same derivation place would, but appends nothing: it
answers "who is next" for a prospective lead so the caller can confirm
before committing with place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pts, err := parsePropertyTypes(resolveFlags.propertyTypes)
		if err != nil {
			return err
		}
		day, month, year, err := parseDay(resolveFlags.day, time.Now())
		if err != nil {
			return err
		}

		repID, err := eng.ResolveNextRep(rootCtx, resolver.Request{
			PropertyTypes:   pts,
			UnitCount:       resolveFlags.unitCount,
			Day:             day,
			Month:           month,
			Year:            year,
			ReplacesLeadID:  resolveFlags.replacesLeadID,
		})
		if err != nil {
			return err
		}
		fmt.Println(repID)
		return nil
	},
}

func init() {
	resolveCmd.Flags().IntVar(&resolveFlags.unitCount, "units", 0, "lead's unit count, determines lane")
	resolveCmd.Flags().StringVar(&resolveFlags.propertyTypes, "property-types", "", "comma-separated property types requested (MFH,MF,SFH,Commercial)")
	resolveCmd.Flags().StringVar(&resolveFlags.day, "day", "", "calendar day the lead arrives on (default: today)")
	resolveCmd.Flags().StringVar(&resolveFlags.replacesLeadID, "replaces", "", "original lead id this prospective placement would fulfill")
	rootCmd.AddCommand(resolveCmd)
}
