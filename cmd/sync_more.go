package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	starsync "stargazer/internal/sync"
)

var syncMoreLoaded int

var syncMoreCmd = &cobra.Command{
	Use:   "more",
	Short: "Fetch the next page after the rows already loaded",
	Long: `Fetch one more page of stars, continuing after --loaded rows.

This is the "load more" path: it does not touch sync progress, so a later
'stg sync' still behaves as before. Without --loaded the current number of
mirrored repositories is used.`,
	RunE: runSyncMore,
}

func init() {
	syncCmd.AddCommand(syncMoreCmd)
	syncMoreCmd.Flags().IntVar(&syncMoreLoaded, "loaded", -1, "Number of rows already loaded (default: mirrored count)")
}

func runSyncMore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st := openStore()

	loaded := syncMoreLoaded
	if loaded < 0 {
		n, err := st.Count(ctx)
		if err != nil {
			return err
		}
		loaded = int(n)
	}

	engine, err := newEngine(st)
	if err != nil {
		return err
	}
	outcome, err := engine.Synchronize(ctx, starsync.Trigger{Type: starsync.Append, Loaded: loaded})
	if err != nil {
		return describeSyncError(err)
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{
			"success":     true,
			"loaded":      loaded,
			"inserted":    outcome.Inserted,
			"updated":     outcome.Updated,
			"end_of_data": outcome.EndOfData,
		})
		return nil
	}

	fmt.Printf("Fetched page after %d rows: %d new, %d updated\n", loaded, outcome.Inserted, outcome.Updated)
	if outcome.EndOfData {
		fmt.Println("No more stars to load")
	}
	return nil
}
