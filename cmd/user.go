package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/tracker/internal/auth"
	"github.com/joescharf/tracker/internal/output"
)

var (
	userPassword string
	userRole     string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage web UI accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return userListRun(cmd.Context())
	},
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create an account",
	Long:  "Create an account. Without --password a random password is generated and printed once.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return userAddRun(cmd.Context(), args[0])
	},
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd <username>",
	Short: "Replace an account's password",
	Long:  "Replace an account's password. Without --password a random password is generated and printed once.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return userPasswdRun(cmd.Context(), args[0])
	},
}

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List accounts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return userListRun(cmd.Context())
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "Password (generated when empty)")
	userAddCmd.Flags().StringVar(&userRole, "role", "user", "Role: admin or user")
	userPasswdCmd.Flags().StringVar(&userPassword, "password", "", "New password (generated when empty)")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userPasswdCmd)
	userCmd.AddCommand(userListCmd)
	rootCmd.AddCommand(userCmd)
}

// passwordOrGenerated returns the --password value, or a fresh one and true.
func passwordOrGenerated() (string, bool, error) {
	if userPassword != "" {
		return userPassword, false, nil
	}
	p, err := auth.GeneratePassword()
	if err != nil {
		return "", false, fmt.Errorf("generate password: %w", err)
	}
	return p, true, nil
}

func userAddRun(ctx context.Context, username string) error {
	a, err := getDeps(ctx)
	if err != nil {
		return err
	}
	if userRole != "admin" && userRole != "user" {
		return fmt.Errorf("unknown role %q (admin or user)", userRole)
	}
	if dryRun {
		ui.DryRunMsg("Would create %s account %s", userRole, username)
		return nil
	}

	password, generated, err := passwordOrGenerated()
	if err != nil {
		return err
	}
	if err := a.users.Add(ctx, username, password, userRole); err != nil {
		return err
	}
	ui.Success("Created %s account %s", userRole, output.Cyan(username))
	if generated {
		fmt.Fprintf(ui.Out, "  password: %s\n", password)
	}
	return nil
}

func userPasswdRun(ctx context.Context, username string) error {
	a, err := getDeps(ctx)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would reset the password of %s", username)
		return nil
	}

	password, generated, err := passwordOrGenerated()
	if err != nil {
		return err
	}
	if err := a.users.SetPassword(ctx, username, password); err != nil {
		return err
	}
	ui.Success("Password updated for %s", output.Cyan(username))
	if generated {
		fmt.Fprintf(ui.Out, "  password: %s\n", password)
	}
	return nil
}

func userListRun(ctx context.Context) error {
	a, err := getDeps(ctx)
	if err != nil {
		return err
	}
	users, err := a.users.List(ctx)
	if err != nil {
		return err
	}
	table := ui.Table([]string{"User", "Role"})
	for _, u := range users {
		_ = table.Append([]string{u.Username, u.Role})
	}
	return table.Render()
}
