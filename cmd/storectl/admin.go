package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/3lprints/storefront/internal/apperrors"
	"github.com/3lprints/storefront/internal/models"
	"github.com/3lprints/storefront/internal/sanitize"
	"github.com/3lprints/storefront/internal/validation"
)

func createAdminCmd(v *viper.Viper) *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account, or promote an existing user and reset its password",
		RunE: func(cmd *cobra.Command, args []string) error {
			email = sanitize.Email(email)
			if !validation.ValidEmail(email) {
				return fmt.Errorf("invalid email %q", email)
			}
			if len(password) < 8 {
				return errors.New("password must be at least 8 characters")
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, v)
			if err != nil {
				return err
			}
			defer a.Close()

			var pw models.Password
			if err := pw.Set(password); err != nil {
				return err
			}

			// 1. Existing user: promote and reset the password
			u, err := a.Repos.Users.GetByEmail(ctx, email)
			switch {
			case err == nil:
				if err := a.Repos.Users.UpdateRole(ctx, u.ID, models.RoleAdmin); err != nil {
					return err
				}
				if err := a.Repos.Users.SetPassword(ctx, u.ID, pw.Hash); err != nil {
					return err
				}
				fmt.Printf("Promoted %s (%s) to admin\n", email, u.ID)
				return nil
			case !apperrors.IsKind(err, apperrors.KindNotFound):
				return err
			}

			// 2. New admin
			u = &models.User{Email: email, Role: models.RoleAdmin, PasswordHash: &pw.Hash}
			if name != "" {
				n := sanitize.String(name, 120)
				u.FullName = &n
			}
			if err := a.Repos.Users.Create(ctx, u); err != nil {
				return err
			}
			fmt.Printf("Created admin %s (%s)\n", email, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "admin email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "admin password (min 8 characters)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "full name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func issueTokenCmd(v *viper.Viper) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Print a signed admin session token for an existing admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, v)
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.Repos.Users.GetByEmail(ctx, sanitize.Email(email))
			if err != nil {
				return err
			}
			if !u.IsAdmin() {
				return fmt.Errorf("%s is not an admin", u.Email)
			}

			token, expires, err := a.Auth.GenerateToken(u.Email, u.Role)
			if err != nil {
				return err
			}
			fmt.Println(token)
			fmt.Printf("expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "admin email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
