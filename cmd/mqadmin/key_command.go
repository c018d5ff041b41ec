package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/mediaqueue/internal/apikey"
)

func newKeyCommand(ctx *commandContext) *cobra.Command {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Manage API keys",
	}
	keyCmd.AddCommand(newKeyCreateCommand(ctx))
	return keyCmd
}

func newKeyCreateCommand(ctx *commandContext) *cobra.Command {
	var userID int64
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue an API key for a user",
		Long:  "Issue an API key for a user. The raw key is printed once and cannot be recovered.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user must be a positive user id")
			}

			key, raw, err := apikey.New(userID, name)
			if err != nil {
				return err
			}

			return ctx.withStore(cmd.Context(), func(s adminStore) error {
				if err := s.CreateAPIKey(cmd.Context(), key); err != nil {
					return fmt.Errorf("store key: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Key %s issued for user #%d\n", key.ID, key.UserID)
				fmt.Fprintln(out, raw)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "User id that owns the key")
	cmd.Flags().StringVar(&name, "name", "default", "Label for the key")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
