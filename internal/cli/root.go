// Package cli implements drivectl, the operator command line for the drive backend.
package cli

import (
	"fmt"
	"os"

	"github.com/emmayusufu/googledriveclone/internal/config"
	"github.com/emmayusufu/googledriveclone/internal/database"
	"github.com/emmayusufu/googledriveclone/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	flagJSON bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "drivectl",
	Short: "Operate the drive backend from the terminal",
	Long: `drivectl runs maintenance tasks against the drive metadata store and
object storage, using the same environment as the server.

  drivectl migrate                      Apply schema migrations
  drivectl reconcile --grace 5m         Finish folders stuck without a remote path
  drivectl tree --user ada@example.com  Print a user's folder tree
  drivectl user create --email ...      Seed a user`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.SetOutput(os.Stderr)

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func openDB() (*gorm.DB, error) {
	db, err := database.Connect(cfg.DB.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}
