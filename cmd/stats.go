package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsTop int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show statistics about the mirror",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().IntVar(&statsTop, "top", 10, "Number of languages to show (0 = all)")
}

func runStats(cmd *cobra.Command, args []string) error {
	if statsTop < 0 {
		return fmt.Errorf("--top cannot be negative")
	}
	stats, err := openQuery().Stats(cmd.Context(), statsTop)
	if err != nil {
		return err
	}
	formatter().Stats(stats)
	return nil
}
