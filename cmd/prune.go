package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var (
	pruneBefore string
	pruneDryRun bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune [id|owner/name]",
	Short: "Remove stale repositories from the mirror",
	Long: `Remove repositories that no sync has seen for a while, such as stars you
have since removed on GitHub. Tag links go with them.

Examples:
  stg prune --before 30d            # Remove rows not refreshed for 30 days
  stg prune --before 2w --dry-run   # Only count what would be removed
  stg prune BurntSushi/ripgrep      # Remove one repository`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
	pruneCmd.Flags().StringVar(&pruneBefore, "before", "", "Remove rows last synced longer ago than this (e.g. 30d, 2w, 12h)")
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "Show what would be removed without changing anything")
}

// parseAge parses a whole number followed by h, d or w
func parseAge(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid age: %q", s)
	}
	unit := s[len(s)-1]
	value, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid age value: %q", s[:len(s)-1])
	}

	switch unit {
	case 'h':
		return time.Duration(value) * time.Hour, nil
	case 'd':
		return time.Duration(value) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid age unit: %c (use h=hours, d=days, w=weeks)", unit)
	}
}

func runPrune(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st := openStore()

	if len(args) == 1 {
		if pruneBefore != "" {
			return fmt.Errorf("give either a repository or --before, not both")
		}
		repo, err := resolveRepo(ctx, st, args[0])
		if err != nil {
			return err
		}
		if !pruneDryRun {
			if err := st.DeleteRepository(ctx, repo.ID); err != nil {
				return err
			}
		}
		if IsJSONOutput() {
			OutputJSON(map[string]interface{}{"pruned": repo.FullName, "dry_run": pruneDryRun})
			return nil
		}
		if pruneDryRun {
			fmt.Printf("Would remove %s\n", repo.FullName)
		} else {
			fmt.Printf("Removed %s (it returns on the next full sync if still starred)\n", repo.FullName)
		}
		return nil
	}

	if pruneBefore == "" {
		return fmt.Errorf("specify a repository or --before")
	}
	age, err := parseAge(pruneBefore)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-age)

	var n int64
	if pruneDryRun {
		n, err = st.CountCachedBefore(ctx, cutoff)
	} else {
		n, err = st.PruneCachedBefore(ctx, cutoff)
	}
	if err != nil {
		return err
	}
	logger.Info("prune finished", "cutoff", cutoff, "count", n, "dry_run", pruneDryRun)

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"pruned_count": n, "cutoff": cutoff, "dry_run": pruneDryRun})
		return nil
	}
	if pruneDryRun {
		fmt.Printf("Would remove %d repositories last synced before %s\n", n, cutoff.Format(time.RFC3339))
		return nil
	}
	fmt.Printf("Removed %d repositories\n", n)
	return nil
}
