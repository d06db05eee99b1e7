package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/billtrack/billtrack/internal/client"
	"github.com/billtrack/billtrack/internal/dashboard"
	"github.com/billtrack/billtrack/internal/model"
)

func newLoginCmd(c *cli) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the email to act as",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := c.loadSession()
			if err != nil {
				return err
			}

			if strings.TrimSpace(email) == "" {
				server := sess.Server()
				form := huh.NewForm(huh.NewGroup(
					huh.NewInput().
						Title("Email").
						Value(&email).
						Validate(requireText("email")),
					huh.NewInput().
						Title("Server").
						Value(&server),
				))
				if err := form.RunWithContext(cmd.Context()); err != nil {
					return fmt.Errorf("login form: %w", err)
				}
				sess.ServerURL = strings.TrimSpace(server)
			}

			sess.Email = model.NormalizeEmail(email)
			if sess.Email == "" {
				return errors.New("email is required")
			}
			if err := c.store.Save(sess); err != nil {
				return err
			}
			printf(cmd, "Logged in as %s (%s)\n", sess.Email, sess.Server())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email to log in as")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.store.Clear(); err != nil {
				return err
			}
			printf(cmd, "Logged out\n")
			return nil
		},
	}
}

func newWhoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored identity and its role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := c.requireSession()
			if err != nil {
				return err
			}

			role := dashboard.RoleUnknown
			user, err := c.client(sess).GetUserDetails(cmd.Context(), sess.Email)
			switch {
			case err == nil:
				role = dashboard.RoleFor(user.UserType)
			case errors.Is(err, client.ErrNotFound):
				c.logger.Debug("user not registered", "email", sess.Email)
			default:
				c.logger.Warn("fetch user type", "error", err)
			}

			printf(cmd, "email:  %s\nserver: %s\nrole:   %s\n", sess.Email, sess.Server(), role)
			return nil
		},
	}
}

func newUsersCmd(c *cli) *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage user roles",
	}

	var userType string
	set := &cobra.Command{
		Use:   "set EMAIL",
		Short: "Create or update a user's role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.loadSession()
			if err != nil {
				return err
			}
			ut, ok := model.ParseUserType(userType)
			if !ok {
				return fmt.Errorf("--type must be %q or %q", model.UserTypeManager, model.UserTypeMember)
			}
			user, err := c.client(sess).UpsertUser(cmd.Context(), args[0], ut)
			if err != nil {
				return err
			}
			printf(cmd, "%s is a %s\n", user.Email, user.UserType)
			return nil
		},
	}
	set.Flags().StringVar(&userType, "type", string(model.UserTypeMember), "role: manager or member")

	users.AddCommand(set)
	return users
}

func requireText(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}
