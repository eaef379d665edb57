package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchFilters filterFlags

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search mirrored repositories",
	Long: `Search names, owners, descriptions and topics in the local mirror.
Matching is case-insensitive; the usual filter flags narrow the result.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchFilters.register(searchCmd, false)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st := openStore()

	text := strings.TrimSpace(args[0])
	if text == "" {
		return fmt.Errorf("search query cannot be empty")
	}

	filter, err := searchFilters.build(ctx, cmd, st)
	if err != nil {
		return err
	}
	filter.Search = text

	matches, err := openQuery().List(ctx, filter)
	if err != nil {
		return err
	}

	formatter().RepoList(matches, fmt.Sprintf("Matches for %q", text))
	return nil
}
