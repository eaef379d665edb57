package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"stargazer/internal/query"
	"stargazer/internal/store"
)

var presetFilters filterFlags

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Save and reuse search presets",
	Long: `A preset stores a sort order, filters and search text under a name.
Use it with 'stg list --preset <name>'. Presets cannot be edited; delete and
save again instead.`,
}

var presetSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the given filters as a preset",
	Long: `Save the given filters as a preset. Tag filters are not stored.

Example:
  stg preset save go-tools --lang Go --has-topics --sort stars`,
	Args: cobra.ExactArgs(1),
	RunE: runPresetSave,
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List presets",
	Args:  cobra.NoArgs,
	RunE:  runPresetList,
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetDelete,
}

func init() {
	rootCmd.AddCommand(presetCmd)
	presetCmd.AddCommand(presetSaveCmd)
	presetCmd.AddCommand(presetListCmd)
	presetCmd.AddCommand(presetDeleteCmd)

	presetFilters.register(presetSaveCmd, true)
}

func runPresetSave(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st := openStore()

	if len(presetFilters.tags) > 0 {
		return fmt.Errorf("presets do not store tag filters; drop --tag")
	}
	filter, err := presetFilters.build(ctx, cmd, st)
	if err != nil {
		return err
	}

	preset := filter.Preset(args[0])
	if err := st.CreatePreset(ctx, preset); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("preset %q already exists (delete it first to replace it)", args[0])
		}
		return err
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"success": true, "preset": preset})
		return nil
	}
	fmt.Printf("Saved preset %s: %s\n", preset.Name, preset.Summary())
	return nil
}

func runPresetList(cmd *cobra.Command, args []string) error {
	presets, err := openStore().ListPresets(cmd.Context())
	if err != nil {
		return err
	}
	formatter().PresetList(presets)
	return nil
}

func runPresetDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st := openStore()

	preset, err := st.PresetByName(ctx, args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("preset not found: %s (use 'stg preset list' to see presets)", args[0])
	}
	if err != nil {
		return err
	}
	if err := st.DeletePreset(ctx, preset.ID); err != nil {
		return err
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"success": true, "deleted": preset.Name})
		return nil
	}
	fmt.Printf("Deleted preset %s (%s)\n", preset.Name, summarize(query.FromPreset(preset)))
	return nil
}

func summarize(f query.Filter) string {
	return f.Preset("").Summary()
}
