package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var oooFlags struct {
	day string
}

var oooCmd = &cobra.Command{
	Use:   "ooo <rep-id>",
	Short: "Mark a rep out of office for a calendar day",
	Args:  cobra.ExactArgs(1),
	Long: `ooo excludes the named rep from selection on --day (default: today). This
is an unwindowed, full-history fact: once recorded, a rep's OOO day is
checked against every resolve from then on, regardless of the query
window in force elsewhere.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		day, month, year, err := parseDay(oooFlags.day, time.Now())
		if err != nil {
			return err
		}
		if err := eng.SetOOO(rootCtx, args[0], day, month, year); err != nil {
			return err
		}
		fmt.Printf("marked %s ooo for %04d-%02d-%02d\n", args[0], year, month, day)
		return nil
	},
}

func init() {
	oooCmd.Flags().StringVar(&oooFlags.day, "day", "", "calendar day the rep is out (default: today)")
	rootCmd.AddCommand(oooCmd)
}
