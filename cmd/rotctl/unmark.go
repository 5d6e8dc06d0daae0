package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var unmarkCmd = &cobra.Command{
	Use:   "unmark <lead-id>",
	Short: "Close an open replacement mark without a fulfillment",
	Args:  cobra.ExactArgs(1),
	Long: `unmark closes the open mark on the named lead without a replacement lead,
restoring its rep's hit (the original assignment turned out fine after
all). Use place --replaces instead when a replacement lead exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := eng.Unmark(rootCtx, args[0]); err != nil {
			return err
		}
		fmt.Printf("unmarked %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unmarkCmd)
}
