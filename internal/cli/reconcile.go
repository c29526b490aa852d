package cli

import (
	"fmt"
	"time"

	"github.com/emmayusufu/googledriveclone/internal/services"
	"github.com/emmayusufu/googledriveclone/internal/storage"
	"github.com/spf13/cobra"
)

var flagGrace time.Duration

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Create remote paths for folders whose creation was interrupted",
	Long: `Run one reconciliation pass. Folders that have existed for longer than
--grace without a remote path get their path created and recorded.

  drivectl reconcile                 Use the configured grace period
  drivectl reconcile --grace 0s      Include folders created just now`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		store, err := storage.New(cmd.Context(), cfg.Storage)
		if err != nil {
			return fmt.Errorf("initializing storage: %w", err)
		}

		grace := cfg.Reconcile.Grace
		if cmd.Flags().Changed("grace") {
			grace = flagGrace
		}

		result, err := services.NewReconciler(db, store).MaterializePending(cmd.Context(), grace)
		if err != nil {
			return fmt.Errorf("reconciling: %w", err)
		}

		if flagJSON {
			JSON(cmd.OutOrStdout(), result)
			return nil
		}
		ReconcileSummary(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	reconcileCmd.Flags().DurationVar(&flagGrace, "grace", 5*time.Minute, "Only touch folders older than this")
	rootCmd.AddCommand(reconcileCmd)
}
