package cmd

import (
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <id|owner/name>",
	Short: "Show repository details",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st := openStore()

	repo, err := resolveRepo(ctx, st, args[0])
	if err != nil {
		return err
	}
	tags, err := st.TagsFor(ctx, repo.ID)
	if err != nil {
		return err
	}

	formatter().Repo(repo, tags)
	return nil
}
