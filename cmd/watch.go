package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"stargazer/internal/output"
	"stargazer/internal/query"
)

var (
	watchFilters   filterFlags
	watchLimit     int
	watchNoRefresh bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of the mirror that follows syncs and edits",
	Long: `Show the filtered list and keep it current. The view is redrawn whenever
the database changes, including changes made by other stg commands in this
process, and a sync runs on start unless --no-refresh is given.

Type a line to search (debounced), or one of:
  /refresh   sync again
  /dismiss   hide a sync error when cached rows are shown
  /clear     clear the search
  /quit      exit (Ctrl-C works too)`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchFilters.register(watchCmd, true)
	watchCmd.Flags().IntVarP(&watchLimit, "limit", "n", 20, "Rows to show per redraw (0 = all)")
	watchCmd.Flags().BoolVar(&watchNoRefresh, "no-refresh", false, "Do not sync on start")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	st := openStore()

	filter, err := watchFilters.build(ctx, cmd, st)
	if err != nil {
		return err
	}

	var refresh query.RefreshFunc
	if !watchNoRefresh {
		engine, err := newEngine(st)
		if err != nil {
			return err
		}
		refresh = func(ctx context.Context) error {
			_, err := engine.Refresh(ctx)
			return err
		}
	}

	feed := query.NewFeed(openQuery(), st, refresh, query.FeedOptions{
		Debounce: currentConfig().SearchDebounce,
		Logger:   logger,
	})
	feed.SetFilter(filter)

	snapshots, err := feed.Start(ctx)
	if err != nil {
		return err
	}

	go readWatchCommands(ctx, cancel, feed)

	for snap := range snapshots {
		renderSnapshot(snap)
	}
	return nil
}

func readWatchCommands(ctx context.Context, quit context.CancelFunc, feed *query.Feed) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "/quit", "/q":
			quit()
			return
		case "/refresh":
			go func() {
				if err := feed.Refresh(ctx); err != nil {
					logger.Debug("refresh failed", "error", err)
				}
			}()
		case "/dismiss":
			if !feed.Dismiss() {
				fmt.Fprintln(os.Stderr, "Nothing to dismiss")
			}
		case "/clear":
			feed.SetSearch("")
		default:
			feed.SetSearch(line)
		}
	}
}

func renderSnapshot(snap query.Snapshot) {
	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{
			"status":       statusLabel(snap.Status),
			"error":        statusError(snap.Status),
			"search":       snap.Filter.Search,
			"count":        len(snap.Repos),
			"repositories": snap.Repos,
		})
		return
	}

	fmt.Printf("\n--- %s · %d repositories", statusLabel(snap.Status), len(snap.Repos))
	if snap.Filter.Search != "" {
		fmt.Printf(" · search %q", snap.Filter.Search)
	}
	fmt.Println(" ---")

	if failed, ok := snap.Status.(query.Failed); ok {
		fmt.Println(failed.Message)
		if failed.Dismissible {
			fmt.Println("(showing cached data, type /dismiss to hide this)")
		}
	}

	repos := snap.Repos
	if watchLimit > 0 && len(repos) > watchLimit {
		repos = repos[:watchLimit]
	}
	f := output.New(false)
	for i := range repos {
		f.RepoBrief(&repos[i])
	}
	if len(repos) < len(snap.Repos) {
		fmt.Printf("... and %d more\n", len(snap.Repos)-len(repos))
	}
}

func statusLabel(s query.Status) string {
	switch s.(type) {
	case query.Loading:
		return "syncing"
	case query.Failed:
		return "error"
	default:
		return "ready"
	}
}

func statusError(s query.Status) string {
	if failed, ok := s.(query.Failed); ok {
		return string(failed.Category)
	}
	return ""
}
