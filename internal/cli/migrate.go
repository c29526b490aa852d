package cli

import (
	"fmt"

	"github.com/emmayusufu/googledriveclone/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		if err := database.Migrate(cmd.Context(), db); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}

		if flagJSON {
			JSON(cmd.OutOrStdout(), map[string]bool{"migrated": true})
			return nil
		}
		Success(cmd.OutOrStdout(), "Migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
