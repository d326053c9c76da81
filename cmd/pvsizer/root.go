package main

import (
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pvsizer",
	Short: "PV and battery sizing from household energy history",
	Long: `pvsizer estimates how added solar production and battery storage would
change a household's energy autonomy. The report command pulls hourly
production/consumption history into CSV files; the simulate command sweeps
battery sizes and PV multipliers over that history and reports the
combinations meeting the autoconsumption and coverage targets.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.json", "configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }
