package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"stargazer/internal/store"
)

var tagColor string

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Organize repositories with tags",
}

var tagCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagCreate,
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tags and how many repositories carry each",
	Args:  cobra.NoArgs,
	RunE:  runTagList,
}

var tagDeleteCmd = &cobra.Command{
	Use:   "delete <tag>",
	Short: "Delete a tag and detach it from every repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagDelete,
}

var tagAddCmd = &cobra.Command{
	Use:   "add <tag> <id|owner/name>...",
	Short: "Attach a tag to repositories",
	Long: `Attach a tag to one or more repositories.

Example:
  stg tag add cli BurntSushi/ripgrep spf13/cobra`,
	Args: cobra.MinimumNArgs(2),
	RunE: runTagAdd,
}

var tagRemoveCmd = &cobra.Command{
	Use:   "remove <tag> <id|owner/name>...",
	Short: "Detach a tag from repositories",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTagRemove,
}

func init() {
	rootCmd.AddCommand(tagCmd)
	tagCmd.AddCommand(tagCreateCmd)
	tagCmd.AddCommand(tagListCmd)
	tagCmd.AddCommand(tagDeleteCmd)
	tagCmd.AddCommand(tagAddCmd)
	tagCmd.AddCommand(tagRemoveCmd)

	tagCreateCmd.Flags().StringVarP(&tagColor, "color", "c", "", "Color as #RRGGBB (default #6366F1)")
}

func runTagCreate(cmd *cobra.Command, args []string) error {
	tag, err := openStore().CreateTag(cmd.Context(), args[0], tagColor)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("tag %q already exists (use 'stg tag list' to see tags)", args[0])
		}
		return err
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"success": true, "tag": tag})
		return nil
	}
	fmt.Printf("Created tag [%d] %s %s\n", tag.ID, tag.Name, tag.Color)
	return nil
}

func runTagList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st := openStore()

	tags, err := st.ListTags(ctx)
	if err != nil {
		return err
	}
	usage, err := st.TagUsage(ctx)
	if err != nil {
		return err
	}

	formatter().TagList(tags, usage)
	return nil
}

func runTagDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st := openStore()

	tag, err := resolveTag(ctx, st, args[0])
	if err != nil {
		return err
	}
	if err := st.DeleteTag(ctx, tag.ID); err != nil {
		return err
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"success": true, "deleted": tag.Name})
		return nil
	}
	fmt.Printf("Deleted tag %s\n", tag.Name)
	return nil
}

func runTagAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st := openStore()

	tag, err := resolveTag(ctx, st, args[0])
	if err != nil {
		return err
	}

	var tagged []string
	for _, ref := range args[1:] {
		repo, err := resolveRepo(ctx, st, ref)
		if err != nil {
			return err
		}
		if err := st.AddTag(ctx, repo.ID, tag.ID); err != nil {
			return fmt.Errorf("failed to tag %s: %w", repo.FullName, err)
		}
		tagged = append(tagged, repo.FullName)
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"success": true, "tag": tag.Name, "repositories": tagged})
		return nil
	}
	for _, name := range tagged {
		fmt.Printf("Tagged %s with %s\n", name, tag.Name)
	}
	return nil
}

func runTagRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st := openStore()

	tag, err := resolveTag(ctx, st, args[0])
	if err != nil {
		return err
	}

	var untagged []string
	for _, ref := range args[1:] {
		repo, err := resolveRepo(ctx, st, ref)
		if err != nil {
			return err
		}
		err = st.RemoveTag(ctx, repo.ID, tag.ID)
		if errors.Is(err, store.ErrNotFound) {
			logger.Warn("repository did not carry tag", "repository", repo.FullName, "tag", tag.Name)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to untag %s: %w", repo.FullName, err)
		}
		untagged = append(untagged, repo.FullName)
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"success": true, "tag": tag.Name, "repositories": untagged})
		return nil
	}
	for _, name := range untagged {
		fmt.Printf("Removed %s from %s\n", tag.Name, name)
	}
	return nil
}
