package cli

import (
	"fmt"

	"github.com/emmayusufu/googledriveclone/internal/services"
	"github.com/spf13/cobra"
)

var flagTreeUser string

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print a user's folder tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}

		user, err := services.NewUserService(db).FindByEmail(cmd.Context(), flagTreeUser)
		if err != nil {
			return fmt.Errorf("looking up %s: %w", flagTreeUser, err)
		}

		// Tree assembly reads metadata only.
		tree, err := services.NewHierarchyService(db, nil).BuildTree(cmd.Context(), user.ID)
		if err != nil {
			return fmt.Errorf("building tree: %w", err)
		}

		if flagJSON {
			JSON(cmd.OutOrStdout(), tree)
			return nil
		}
		FolderTree(cmd.OutOrStdout(), tree)
		return nil
	},
}

func init() {
	treeCmd.Flags().StringVar(&flagTreeUser, "user", "", "Email of the folder owner")
	_ = treeCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(treeCmd)
}
