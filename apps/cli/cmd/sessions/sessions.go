package sessionscmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paramvora-myacara/oz-listings-api/platform/go/persistence"
)

// Command groups session maintenance helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Session maintenance utilities",
	}

	cmd.AddCommand(cleanupCommand())
	return cmd
}

func cleanupCommand() *cobra.Command {
	var databaseURL string

	c := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired admin sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			sessionStore, err := persistence.NewSessionStore(ctx, pool)
			if err != nil {
				return fmt.Errorf("init session store: %w", err)
			}

			deleted, err := sessionStore.DeleteExpiredSessions(ctx)
			if err != nil {
				return fmt.Errorf("delete expired sessions: %w", err)
			}

			fmt.Printf("deleted %d expired sessions\n", deleted)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string")
	_ = c.MarkFlagRequired("database-url")

	return c
}
