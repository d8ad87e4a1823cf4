package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/redmonkez12/tours-api/cmd/toursctl/ui"
	"github.com/redmonkez12/tours-api/internal/auth"
	"github.com/redmonkez12/tours-api/internal/config"
	"github.com/redmonkez12/tours-api/internal/logging"
	"github.com/redmonkez12/tours-api/internal/store"
	"github.com/redmonkez12/tours-api/internal/user"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "toursctl",
		Short:         "Administer Natours users",
		Long:          "Create admins, change roles and import or delete users directly in the configured database.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	createAdminCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a user with role admin",
		Args:  cobra.NoArgs,
		RunE:  withApp(runCreateAdmin),
	}
	// Flags for non-interactive mode (CI/scripting)
	createAdminCmd.Flags().String("name", "", "Full name")
	createAdminCmd.Flags().String("email", "", "Email address")
	createAdminCmd.Flags().String("password", "", "Password (prompted when omitted)")

	setRoleCmd := &cobra.Command{
		Use:   "set-role <email> <role>",
		Short: "Change a user's role (user, guide, lead-guide, admin)",
		Args:  cobra.ExactArgs(2),
		RunE:  withApp(runSetRole),
	}

	importCmd := &cobra.Command{
		Use:   "import-users <file.json>",
		Short: "Import users from a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runImportUsers),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete-users",
		Short: "Delete every user",
		Args:  cobra.NoArgs,
		RunE:  withApp(runDeleteUsers),
	}
	deleteCmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")

	rootCmd.AddCommand(createAdminCmd, setRoleCmd, importCmd, deleteCmd)

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

type command func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error

// withApp opens the configured user store for the duration of one command.
func withApp(run command) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadStore()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		logger := logging.NewLogger(false)
		users, closeStore, err := store.OpenUsers(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer closeStore(context.Background())

		hasher, err := auth.NewHasher(cfg.Auth.PasswordHasher, cfg.Auth.BcryptCost)
		if err != nil {
			return err
		}

		a := &app{
			users: users,
			auth:  auth.NewService(users, hasher, nil, nil, logger, cfg.Auth.PasswordResetTTL),
		}
		return run(ctx, a, cmd, args)
	}
}

func runCreateAdmin(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	var in ui.AdminInput
	in.Name, _ = cmd.Flags().GetString("name")
	in.Email, _ = cmd.Flags().GetString("email")
	in.Password, _ = cmd.Flags().GetString("password")

	if err := ui.RunAdminForm(&in); err != nil {
		return fmt.Errorf("form cancelled: %w", err)
	}

	admin, err := a.createAdmin(ctx, in.Name, in.Email, in.Password)
	if err != nil {
		return err
	}

	ui.PrintSuccess("Admin created")
	ui.PrintDetail("id", admin.ID.String())
	ui.PrintDetail("email", admin.Email)
	return nil
}

func runSetRole(ctx context.Context, a *app, _ *cobra.Command, args []string) error {
	updated, err := a.setRole(ctx, args[0], user.Role(args[1]))
	if err != nil {
		return err
	}

	ui.PrintSuccess("Role updated")
	ui.PrintDetail("email", updated.Email)
	ui.PrintDetail("role", string(updated.Role))
	return nil
}

func runImportUsers(ctx context.Context, a *app, _ *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	n, err := a.importUsers(ctx, f)
	if err != nil {
		if n > 0 {
			ui.PrintDetail("imported", fmt.Sprintf("%d before the failure", n))
		}
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Data successfully loaded! %d users imported", n))
	return nil
}

func runDeleteUsers(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		ui.PrintTitle("Delete users")
		ok, err := ui.Confirm("Delete every user? This cannot be undone.")
		if err != nil {
			return fmt.Errorf("prompt cancelled: %w", err)
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	n, err := a.deleteUsers(ctx)
	if err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Data successfully deleted! %d users removed", n))
	return nil
}
