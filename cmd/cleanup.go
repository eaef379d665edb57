package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupDryRun bool

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove tag links that point at missing repositories or tags",
	Long: `Remove orphaned tag links from the database.

Links are normally removed together with their repository or tag; orphans only
appear after the database was edited by hand or by an older build.

Examples:
  stg cleanup            # Remove orphaned links
  stg cleanup --dry-run  # Only count them`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be cleaned without making changes")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st := openStore()

	orphaned, err := st.CountOrphanedLinks(ctx)
	if err != nil {
		return err
	}

	if cleanupDryRun || orphaned == 0 {
		if IsJSONOutput() {
			OutputJSON(map[string]interface{}{"dry_run": cleanupDryRun, "orphaned_tag_links": orphaned})
			return nil
		}
		if orphaned == 0 {
			fmt.Println("No orphaned records found")
			return nil
		}
		fmt.Printf("Would remove %d orphaned tag links\n", orphaned)
		return nil
	}

	removed, err := st.DeleteOrphanedLinks(ctx)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"success": true, "removed_tag_links": removed})
		return nil
	}
	fmt.Printf("Removed %d orphaned tag links\n", removed)
	return nil
}
