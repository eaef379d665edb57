package cmd

import (
	"github.com/spf13/cobra"

	"stargazer/internal/models"
	"stargazer/internal/store"
)

var pinOff bool

var pinCmd = &cobra.Command{
	Use:   "pin <id|owner/name>...",
	Short: "Pin repositories",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPin,
}

func init() {
	rootCmd.AddCommand(pinCmd)
	pinCmd.Flags().BoolVar(&pinOff, "off", false, "Unpin instead")
}

func runPin(cmd *cobra.Command, args []string) error {
	return setRepoFlag(cmd.Context(), args, "pinned", !pinOff, func(st *store.Store, r *models.Repository, v bool) error {
		return st.SetPinned(cmd.Context(), r.ID, v)
	})
}
