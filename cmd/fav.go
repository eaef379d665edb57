package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"stargazer/internal/models"
	"stargazer/internal/store"
)

var favOff bool

var favCmd = &cobra.Command{
	Use:     "fav <id|owner/name>...",
	Short:   "Mark repositories as favorites",
	Aliases: []string{"favorite"},
	Args:    cobra.MinimumNArgs(1),
	RunE:    runFav,
}

func init() {
	rootCmd.AddCommand(favCmd)
	favCmd.Flags().BoolVar(&favOff, "off", false, "Remove the favorite mark instead")
}

func runFav(cmd *cobra.Command, args []string) error {
	return setRepoFlag(cmd.Context(), args, "favorite", !favOff, func(st *store.Store, r *models.Repository, v bool) error {
		return st.SetFavorite(cmd.Context(), r.ID, v)
	})
}

// setRepoFlag resolves every ref first so nothing changes when one is unknown
func setRepoFlag(ctx context.Context, refs []string, label string, value bool,
	set func(*store.Store, *models.Repository, bool) error) error {
	st := openStore()

	repos := make([]*models.Repository, 0, len(refs))
	for _, ref := range refs {
		repo, err := resolveRepo(ctx, st, ref)
		if err != nil {
			return err
		}
		repos = append(repos, repo)
	}

	changed := make([]string, 0, len(repos))
	for _, repo := range repos {
		if err := set(st, repo, value); err != nil {
			return fmt.Errorf("failed to update %s: %w", repo.FullName, err)
		}
		changed = append(changed, repo.FullName)
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"success": true, label: value, "repositories": changed})
		return nil
	}

	verb := "Marked"
	if !value {
		verb = "Unmarked"
	}
	for _, name := range changed {
		fmt.Printf("%s %s as %s\n", verb, name, label)
	}
	return nil
}
