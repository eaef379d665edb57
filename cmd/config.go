package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"stargazer/internal/auth"
	"stargazer/internal/config"
	"stargazer/internal/db"
	"stargazer/internal/models"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage stargazer configuration",
}

var configGitHubCmd = &cobra.Command{
	Use:   "github",
	Short: "Configure GitHub access",
	Long: `Store the GitHub token used to read your starred repositories.

The token is kept in the system keyring. The ` + auth.EnvToken + ` environment
variable takes precedence when set.

To create a token:
  1. Go to GitHub Settings → Developer settings → Personal access tokens
  2. Generate a fine-grained token (no repository permissions are needed
     for public stars) or a classic token with no scopes
  3. Copy the token immediately (shown only once)

Examples:
  stg config github                 # Prompt for the token (input hidden)
  echo "$TOKEN" | stg config github --token -
  stg config github --show
  stg config github --clear`,
	RunE: runConfigGitHub,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Print the configuration in effect after defaults are applied, as YAML.
Write it to the config file to start customizing.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var (
	configGitHubToken string
	configGitHubShow  bool
	configGitHubClear bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGitHubCmd)
	configCmd.AddCommand(configShowCmd)

	configGitHubCmd.Flags().StringVar(&configGitHubToken, "token", "", "GitHub token, or - to read it from stdin")
	configGitHubCmd.Flags().BoolVar(&configGitHubShow, "show", false, "Show current configuration")
	configGitHubCmd.Flags().BoolVar(&configGitHubClear, "clear", false, "Remove the stored token")
}

func runConfigGitHub(cmd *cobra.Command, args []string) error {
	if configGitHubShow {
		return showGitHubConfig()
	}
	if configGitHubClear {
		return clearGitHubConfig()
	}

	token := configGitHubToken
	var err error
	switch {
	case token == "-":
		token, err = readLine(os.Stdin)
	case token == "":
		token, err = promptToken()
	}
	if err != nil {
		return err
	}
	return saveGitHubToken(token)
}

func showGitHubConfig() error {
	user, _ := db.GetConfig(models.ConfigGitHubUser)
	tokenSet, _ := db.GetConfig(models.ConfigGitHubTokenSet)
	fromEnv := strings.TrimSpace(os.Getenv(auth.EnvToken)) != ""

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{
			"user":           user,
			"token_set":      tokenSet == "true",
			"token_from_env": fromEnv,
		})
		return nil
	}

	fmt.Println("GitHub Configuration:")
	if user != "" {
		fmt.Printf("  User:  @%s\n", user)
	} else {
		fmt.Println("  User:  (unknown, run 'stg whoami')")
	}
	switch {
	case fromEnv:
		fmt.Printf("  Token: (from %s)\n", auth.EnvToken)
	case tokenSet == "true":
		fmt.Println("  Token: (stored in system keyring)")
	default:
		fmt.Println("  Token: (not configured)")
	}
	return nil
}

func clearGitHubConfig() error {
	if err := auth.Clear(); err != nil {
		return err
	}
	if err := db.SetConfig(models.ConfigGitHubTokenSet, "false"); err != nil {
		return fmt.Errorf("failed to save token flag: %w", err)
	}
	if err := db.SetConfig(models.ConfigGitHubUser, ""); err != nil {
		return fmt.Errorf("failed to clear user: %w", err)
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"success": true, "message": "GitHub configuration cleared"})
	} else {
		fmt.Println("GitHub configuration cleared")
	}
	return nil
}

func saveGitHubToken(token string) error {
	if err := auth.Save(token); err != nil {
		return err
	}
	if err := db.SetConfig(models.ConfigGitHubTokenSet, "true"); err != nil {
		return fmt.Errorf("failed to save token flag: %w", err)
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"success": true, "message": "GitHub token stored"})
	} else {
		fmt.Println("GitHub token stored in system keyring")
		fmt.Println("Run 'stg whoami' to check it")
	}
	return nil
}

func promptToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(os.Stdin)
	}

	fmt.Print("GitHub token (input hidden): ")
	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", fmt.Errorf("token is required")
	}
	return token, nil
}

func readLine(f *os.File) (string, error) {
	line, err := bufio.NewReader(f).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return "", fmt.Errorf("token is required")
	}
	return line, nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()

	path := configPath
	if path == "" {
		if dir, err := db.DataDir(); err == nil {
			path = config.DefaultPath(dir)
		}
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"path": path, "config": cfg})
		return nil
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	fmt.Printf("# %s\n%s", path, out)
	return nil
}
