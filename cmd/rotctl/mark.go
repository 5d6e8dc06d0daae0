package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

var markFlags struct {
	leadID        string
	repID         string
	unitCount     int
	accountNumber string
	url           string
}

var markCmd = &cobra.Command{
	Use:   "mark",
	Short: "Open a replacement mark on a placed lead",
	Long: `mark flags --lead-id as needing a replacement, opening a record in the
replacement store that query_replacement_queue and a later place --replaces
will see. Calling mark again on a lead whose mark is still open is a no-op
(idempotent); marking a lead whose mark is already closed fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if markFlags.leadID == "" || markFlags.repID == "" {
			return fmt.Errorf("--lead-id and --rep are required")
		}
		lead := types.Lead{
			ID:            markFlags.leadID,
			AccountNumber: markFlags.accountNumber,
			URL:           markFlags.url,
			UnitCount:     markFlags.unitCount,
			AssignedRep:   markFlags.repID,
		}
		markID := uuid.NewString()
		if err := eng.MarkForReplacement(rootCtx, lead, markID); err != nil {
			return err
		}
		fmt.Printf("marked %s (mark %s)\n", lead.ID, markID)
		return nil
	},
}

func init() {
	markCmd.Flags().StringVar(&markFlags.leadID, "lead-id", "", "lead to mark (required)")
	markCmd.Flags().StringVar(&markFlags.repID, "rep", "", "rep currently assigned to the lead (required)")
	markCmd.Flags().IntVar(&markFlags.unitCount, "units", 0, "lead's unit count, determines lane")
	markCmd.Flags().StringVar(&markFlags.accountNumber, "account", "", "lead's account number")
	markCmd.Flags().StringVar(&markFlags.url, "url", "", "lead's source url")
	rootCmd.AddCommand(markCmd)
}
