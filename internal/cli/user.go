package cli

import (
	"fmt"

	"github.com/emmayusufu/googledriveclone/internal/services"
	"github.com/spf13/cobra"
)

var (
	flagEmail    string
	flagPassword string
	flagName     string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	Long: `Create a user with a bcrypt-hashed password.

  drivectl user create --email ada@example.com --password s3cretpass --name Ada`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}

		user, err := services.NewUserService(db).Register(cmd.Context(), flagEmail, flagPassword, flagName)
		if err != nil {
			return fmt.Errorf("creating user: %w", describeValidation(err))
		}

		if flagJSON {
			JSON(cmd.OutOrStdout(), user)
			return nil
		}
		Success(cmd.OutOrStdout(), fmt.Sprintf("Created user %s (id: %s)", user.Email, user.ID))
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&flagEmail, "email", "", "Email address")
	userCreateCmd.Flags().StringVar(&flagPassword, "password", "", "Password (at least 8 characters)")
	userCreateCmd.Flags().StringVar(&flagName, "name", "", "Display name")
	for _, name := range []string{"email", "password", "name"} {
		_ = userCreateCmd.MarkFlagRequired(name)
	}

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}
