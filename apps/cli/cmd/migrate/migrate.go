package migratecmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	sqlassets "github.com/paramvora-myacara/oz-listings-api/database"
	"github.com/paramvora-myacara/oz-listings-api/platform/go/persistence"
)

// Command applies the embedded schema DDL. Every statement is idempotent, so
// re-running against an existing database is safe.
func Command() *cobra.Command {
	var databaseURL string

	c := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			for i, ddl := range sqlassets.Ordered() {
				if _, err := pool.Exec(ctx, ddl); err != nil {
					return fmt.Errorf("apply schema asset %d: %w", i, err)
				}
			}

			fmt.Println("schema up to date")
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string")
	_ = c.MarkFlagRequired("database-url")

	return c
}
