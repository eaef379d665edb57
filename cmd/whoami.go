package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"stargazer/internal/db"
	"stargazer/internal/models"
	"stargazer/internal/remote"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the GitHub account behind the token",
	Long:  `Ask GitHub who the configured token belongs to and show the remaining API quota.`,
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	client, err := newRemote()
	if err != nil {
		return err
	}

	user, rate, err := client.CurrentUser(cmd.Context())
	if err != nil {
		return fmt.Errorf("%s: %w", remote.CategoryOf(err).Message(), err)
	}

	login := user.GetLogin()
	if err := db.SetConfig(models.ConfigGitHubUser, login); err != nil {
		logger.Warn("failed to remember GitHub user", "error", err)
	}
	dbPath, _ := db.GetDefaultDBPath()

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{
			"login":          login,
			"name":           user.GetName(),
			"public_repos":   user.GetPublicRepos(),
			"rate_limit":     rate.Limit,
			"rate_remaining": rate.Remaining,
			"rate_reset":     rate.Reset.Time,
			"database":       dbPath,
		})
		return nil
	}

	if name := user.GetName(); name != "" {
		fmt.Printf("GitHub:   @%s (%s)\n", login, name)
	} else {
		fmt.Printf("GitHub:   @%s\n", login)
	}
	if rate.Limit > 0 {
		fmt.Printf("Quota:    %d/%d requests left, resets %s\n",
			rate.Remaining, rate.Limit, humanize.Time(rate.Reset.Time))
	}
	fmt.Printf("Database: %s\n", dbPath)
	return nil
}
