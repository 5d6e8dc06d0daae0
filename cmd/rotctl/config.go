package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/maxwell903/sdr-lead-rotation/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Get, set, or list configuration values",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a configuration value and its source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("%s = %v (%s)\n", args[0], config.GetString(args[0]), config.GetValueSource(args[0]))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value for this process",
	Args:  cobra.ExactArgs(2),
	Long: `set updates the in-process configuration singleton only; it does not
write back to a config file. Use it to override a default for scripting,
or combine with shell profile exports of ROT_* env vars for persistence.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config.Set(args[0], args[1])
		fmt.Printf("%s = %s\n", args[0], args[1])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every configuration setting currently in effect",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := config.AllSettings()
		keys := make([]string, 0, len(settings))
		for k := range settings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s = %v\n", k, settings[k])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
}
