package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	listFilters   filterFlags
	listLimit     int
	listOffset    int
	listLanguages bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List mirrored repositories",
	Aliases: []string{"ls"},
	Long: `List repositories from the local mirror. Works offline.

Examples:
  stg list --sort starred --limit 20
  stg list --lang Go --min-stars 1000 --has-topics
  stg list --favorites --tag cli --tag tui
  stg list --preset go-tools --offset 50
  stg list --languages          # Languages usable with --lang`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listFilters.register(listCmd, true)
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Maximum number of repositories (0 = all)")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "Skip this many repositories")
	listCmd.Flags().BoolVar(&listLanguages, "languages", false, "List the distinct languages instead of repositories")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if listLanguages {
		return runListLanguages(cmd)
	}
	st := openStore()

	if listLimit < 0 || listOffset < 0 {
		return fmt.Errorf("--limit and --offset cannot be negative")
	}

	filter, err := listFilters.build(ctx, cmd, st)
	if err != nil {
		return err
	}

	limit := listLimit
	if limit == 0 {
		limit = -1
	}
	repos, err := openQuery().Page(ctx, filter, listOffset, limit)
	if err != nil {
		return err
	}

	formatter().RepoList(repos, "")
	return nil
}

func runListLanguages(cmd *cobra.Command) error {
	langs, err := openQuery().Languages(cmd.Context())
	if err != nil {
		return err
	}
	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"count": len(langs), "languages": langs})
		return nil
	}
	writeLanguages(os.Stdout, langs)
	return nil
}

func writeLanguages(w io.Writer, langs []string) {
	if len(langs) == 0 {
		fmt.Fprintln(w, "No languages found")
		return
	}
	for _, lang := range langs {
		fmt.Fprintln(w, lang)
	}
}
