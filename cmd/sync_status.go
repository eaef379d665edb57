package cmd

import (
	"github.com/spf13/cobra"

	"stargazer/internal/models"
)

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how far the mirror is synced",
	Long:  `Show when the mirror was last synced, whether the first full walk finished, and the newest starring time seen.`,
	RunE:  runSyncStatus,
}

func init() {
	syncCmd.AddCommand(syncStatusCmd)
}

func runSyncStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st := openStore()

	meta, err := st.Metadata(ctx, models.DataTypeStarredRepos)
	if err != nil {
		return err
	}
	cached, err := st.Count(ctx)
	if err != nil {
		return err
	}

	formatter().SyncStatus(meta, cached)
	return nil
}
