package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/maxwell903/sdr-lead-rotation/internal/engine"
	"github.com/maxwell903/sdr-lead-rotation/internal/resolver"
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

var placeFlags struct {
	leadID         string
	accountNumber  string
	url            string
	unitCount      int
	propertyTypes  string
	day            string
	replacesLeadID string
	repID          string
	dryRun         bool
}

var placeCmd = &cobra.Command{
	Use:   "place",
	Short: "Place a lead with its resolved (or forced) rep",
	Long: `place appends lead_placed for --lead-id, assigning it to the rep resolve
would pick unless --rep overrides the resolver's choice. With --replaces,
it also fulfills the named original lead's open replacement mark.

--dry-run runs the same resolver pipeline and prints the rep that would
receive the lead without appending anything, the non-committal twin of
resolve.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if placeFlags.leadID == "" {
			return fmt.Errorf("--lead-id is required")
		}
		pts, err := parsePropertyTypes(placeFlags.propertyTypes)
		if err != nil {
			return err
		}
		day, month, year, err := parseDay(placeFlags.day, time.Now())
		if err != nil {
			return err
		}

		repID := placeFlags.repID
		if repID == "" {
			repID, err = eng.ResolveNextRep(rootCtx, resolver.Request{
				PropertyTypes:  pts,
				UnitCount:      placeFlags.unitCount,
				Day:            day,
				Month:          month,
				Year:           year,
				ReplacesLeadID: placeFlags.replacesLeadID,
			})
			if err != nil {
				return err
			}
		}

		if placeFlags.dryRun {
			fmt.Println(repID)
			return nil
		}

		lead := types.Lead{
			ID:            placeFlags.leadID,
			AccountNumber: placeFlags.accountNumber,
			URL:           placeFlags.url,
			PropertyTypes: pts,
			UnitCount:     placeFlags.unitCount,
			AssignedRep:   repID,
			Day:           day,
			Month:         month,
			Year:          year,
		}
		if err := eng.PlaceLead(rootCtx, engine.PlaceRequest{
			Lead:           lead,
			ReplacesLeadID: placeFlags.replacesLeadID,
		}); err != nil {
			return err
		}
		fmt.Printf("placed %s with %s\n", lead.ID, repID)
		return nil
	},
}

func init() {
	placeCmd.Flags().StringVar(&placeFlags.leadID, "lead-id", "", "lead's external id (required)")
	placeCmd.Flags().StringVar(&placeFlags.accountNumber, "account", "", "lead's account number")
	placeCmd.Flags().StringVar(&placeFlags.url, "url", "", "lead's source url")
	placeCmd.Flags().IntVar(&placeFlags.unitCount, "units", 0, "lead's unit count, determines lane")
	placeCmd.Flags().StringVar(&placeFlags.propertyTypes, "property-types", "", "comma-separated property types requested (MFH,MF,SFH,Commercial)")
	placeCmd.Flags().StringVar(&placeFlags.day, "day", "", "calendar day the lead arrives on (default: today)")
	placeCmd.Flags().StringVar(&placeFlags.replacesLeadID, "replaces", "", "original lead id this placement fulfills")
	placeCmd.Flags().StringVar(&placeFlags.repID, "rep", "", "force assignment to this rep instead of resolving one")
	placeCmd.Flags().BoolVar(&placeFlags.dryRun, "dry-run", false, "print the resolved rep without placing anything")
	rootCmd.AddCommand(placeCmd)
}
