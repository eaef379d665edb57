package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"stargazer/internal/models"
	starsync "stargazer/internal/sync"
)

var (
	syncReset bool
	syncForce bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch new stars from GitHub into the local mirror",
	Long: `Bring the local mirror up to date with your starred repositories.

The first sync walks every page of your stars. After that a sync only reads
pages until it reaches a star that is already mirrored, so a sync with
nothing new costs a single request.

Favorites, pins and tags are never changed by a sync.

Examples:
  stg sync                  # Incremental sync (or the first full walk)
  stg sync --reset          # Forget sync progress and walk everything again
  stg sync --reset --force  # Also delete every mirrored repository first`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVar(&syncReset, "reset", false, "Forget sync progress so every page is walked again")
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "With --reset, delete mirrored repositories (and their favorites, pins and tag links)")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st := openStore()

	if syncForce && !syncReset {
		return fmt.Errorf("--force only applies together with --reset")
	}
	if syncReset {
		if syncForce {
			if err := st.DeleteAllRepositories(ctx); err != nil {
				return err
			}
		}
		if err := st.ResetMetadata(ctx, models.DataTypeStarredRepos); err != nil {
			return err
		}
		logger.Info("sync progress reset", "deleted_repositories", syncForce)
	}

	engine, err := newEngine(st)
	if err != nil {
		return err
	}

	stop := showProgress(engine.Progress())
	outcome, err := engine.Refresh(ctx)
	stop()
	if err != nil {
		return describeSyncError(err)
	}

	total, err := st.Count(ctx)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{
			"success":  true,
			"strategy": outcome.Strategy,
			"run_id":   outcome.RunID,
			"pages":    outcome.Pages,
			"inserted": outcome.Inserted,
			"updated":  outcome.Updated,
			"total":    total,
		})
		return nil
	}

	fmt.Printf("Sync complete (%s): %d new, %d updated, %d pages\n",
		outcome.Strategy, outcome.Inserted, outcome.Updated, outcome.Pages)
	fmt.Printf("Mirrored repositories: %d\n", total)
	return nil
}

// showProgress prints a live counter on an interactive stderr. The returned
// function stops it.
func showProgress(b *starsync.Broadcaster) func() {
	if IsJSONOutput() || !term.IsTerminal(int(os.Stderr.Fd())) {
		return func() {}
	}

	updates, cancel := b.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		printed := false
		for p := range updates {
			if !p.IsLoading {
				continue
			}
			fmt.Fprintf(os.Stderr, "\r%s: %d repositories", phaseLabel(p.Phase), p.LoadedCount)
			printed = true
		}
		if printed {
			fmt.Fprintln(os.Stderr)
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func phaseLabel(p starsync.Phase) string {
	switch p {
	case starsync.PhaseInitialSync:
		return "Fetching all stars"
	case starsync.PhaseIncrementalSync:
		return "Fetching new stars"
	default:
		return "Syncing"
	}
}
