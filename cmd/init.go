package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"stargazer/internal/auth"
	"stargazer/internal/db"
	"stargazer/internal/models"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the local stargazer database",
	Long: `Create the local SQLite database that mirrors your starred repositories.

The database lives in <config dir>/stargazer/db.sqlite unless
STARGAZER_DB_PATH points elsewhere.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Delete the existing database and start over")
}

func runInit(cmd *cobra.Command, args []string) error {
	dbPath, err := db.GetDefaultDBPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(dbPath); err == nil {
		if !forceInit {
			return fmt.Errorf("already initialized at %s. Use --force to start over", dbPath)
		}
		db.CloseDB()
		// WAL mode leaves sidecar files next to the database.
		for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to remove existing database: %w", err)
			}
		}
	}

	if _, err := db.InitDB(dbPath); err != nil {
		return err
	}

	if err := db.SetConfig(models.ConfigSchemaVersion, models.SchemaVersion); err != nil {
		return fmt.Errorf("failed to save schema version: %w", err)
	}
	if err := db.SetConfig(models.ConfigInitializedAt, time.Now().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to save initialization time: %w", err)
	}

	_, tokenErr := auth.Lookup(cmd.Context())
	hasToken := tokenErr == nil

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"success": true, "path": dbPath, "token_configured": hasToken})
		return nil
	}

	fmt.Printf("Stargazer initialized in %s\n", dbPath)
	fmt.Println("\nNext steps:")
	if !hasToken {
		fmt.Println("  stg config github               Store a GitHub token")
	}
	fmt.Println("  stg sync                        Fetch your starred repositories")
	fmt.Println("  stg list                        Browse the mirror")
	return nil
}
