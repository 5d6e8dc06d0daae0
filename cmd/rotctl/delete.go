package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var deleteFlags struct {
	force bool
}

var deleteCmd = &cobra.Command{
	Use:   "delete <lead-id>",
	Short: "Delete a lead and run the replacement-store cascade",
	Args:  cobra.ExactArgs(1),
	Long: `delete retracts a lead and lets the replacement store's cascade decide
the consequence: deleting the original lead of an open mark drops the mark
and restores the rep's hit; deleting the lead that fulfilled a mark
reopens it; deleting the original lead of an already-closed mark is
blocked (delete the replacement lead first).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !deleteFlags.force {
			var confirmed bool
			err := huh.NewConfirm().
				Title(fmt.Sprintf("Delete lead %s?", args[0])).
				Description("This may reopen or remove a replacement mark. This cannot be undone.").
				Affirmative("Delete").
				Negative("Cancel").
				Value(&confirmed).
				Run()
			if err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					fmt.Fprintln(os.Stderr, "delete canceled.")
					return nil
				}
				return fmt.Errorf("confirm delete: %w", err)
			}
			if !confirmed {
				fmt.Fprintln(os.Stderr, "delete canceled.")
				return nil
			}
		}
		if err := eng.DeleteLead(rootCtx, args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteFlags.force, "force", false, "skip the confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}
