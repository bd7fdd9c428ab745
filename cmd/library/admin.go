package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tazhibayda/library-service/internal/domain"
	"github.com/tazhibayda/library-service/internal/repo"
)

func newIndexesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the MongoDB indexes and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, flush, err := setup("library-admin")
			if err != nil {
				return err
			}
			defer flush()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
			if err != nil {
				return fatal("mongo connect", err)
			}
			defer store.Close(context.Background())
			return store.EnsureIndexes(ctx)
		},
	}
}

func newPromoteCommand() *cobra.Command {
	var (
		email string
		role  string
	)
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Set the role of an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := domain.Role(role)
			if r != domain.RoleAdmin && r != domain.RoleUser {
				return fmt.Errorf("unknown role %q", role)
			}
			cfg, flush, err := setup("library-admin")
			if err != nil {
				return err
			}
			defer flush()
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
			if err != nil {
				return fatal("mongo connect", err)
			}
			defer store.Close(context.Background())

			u, err := store.SetRole(ctx, email, r)
			if err != nil {
				return fmt.Errorf("set role for %s: %w", email, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", u.Email, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email of the user")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleAdmin), "Role to set (user or admin)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
