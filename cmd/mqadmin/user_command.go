package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/mediaqueue/internal/store"
	"github.com/kiranshivaraju/mediaqueue/pkg/models"
)

func newUserCommand(ctx *commandContext) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	userCmd.AddCommand(newUserCreateCommand(ctx))
	return userCmd
}

func newUserCreateCommand(ctx *commandContext) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := strings.TrimSpace(args[0])
			if username == "" {
				return errors.New("username must not be empty")
			}
			email = strings.TrimSpace(email)
			if !strings.Contains(email, "@") {
				return fmt.Errorf("invalid email %q", email)
			}

			return ctx.withStore(cmd.Context(), func(s adminStore) error {
				user := &models.User{
					Username:  username,
					Email:     email,
					CreatedAt: time.Now().UTC(),
				}
				if err := s.CreateUser(cmd.Context(), user); err != nil {
					if errors.Is(err, store.ErrDuplicateKey) {
						return fmt.Errorf("username or email already registered")
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created user #%d (%s)\n", user.ID, user.Username)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
