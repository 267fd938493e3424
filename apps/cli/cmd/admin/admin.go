package admincmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/paramvora-myacara/oz-listings-api/domains/admins/be/repo"
	"github.com/paramvora-myacara/oz-listings-api/domains/admins/be/service"
	platformauth "github.com/paramvora-myacara/oz-listings-api/platform/go/auth"
	"github.com/paramvora-myacara/oz-listings-api/platform/go/persistence"
)

// bootstrapTTL is irrelevant for CLI operations that never issue sessions, but
// the service constructor requires a positive value.
const bootstrapTTL = time.Hour

// Command groups admin-user helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin user utilities (create, grant listing access)",
	}

	cmd.AddCommand(createCommand())
	cmd.AddCommand(grantCommand())
	return cmd
}

func createCommand() *cobra.Command {
	var (
		databaseURL string
		email       string
		password    string
		role        string
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Create an admin user with an argon2id-hashed password",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svc, cleanup, err := buildService(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer cleanup()

			admin, err := svc.CreateAdmin(ctx, email, password, platformauth.Role(role))
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}

			fmt.Printf("created admin %s (%s) role=%s\n", admin.Email, admin.ID, admin.Role)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string")
	c.Flags().StringVar(&email, "email", "", "Admin login email")
	c.Flags().StringVar(&password, "password", "", "Admin password (min 12 characters)")
	c.Flags().StringVar(&role, "role", string(platformauth.RoleCustomer), "Role: internal_admin or customer")
	_ = c.MarkFlagRequired("database-url")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("password")

	return c
}

func grantCommand() *cobra.Command {
	var (
		databaseURL string
		email       string
		slug        string
	)

	c := &cobra.Command{
		Use:   "grant",
		Short: "Grant an admin user edit access to a listing slug",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			adminStore, err := persistence.NewAdminStore(ctx, pool)
			if err != nil {
				return fmt.Errorf("init admin store: %w", err)
			}

			normalized, err := persistence.NormalizeSlug(slug)
			if err != nil {
				return err
			}

			admin, err := adminStore.GetAdminByEmail(ctx, email)
			if err != nil {
				return fmt.Errorf("find admin: %w", err)
			}

			if err := adminStore.CreateGrant(ctx, admin.ID, normalized); err != nil {
				return fmt.Errorf("create grant: %w", err)
			}

			fmt.Printf("granted %s access to %s\n", admin.Email, normalized)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string")
	c.Flags().StringVar(&email, "email", "", "Admin login email")
	c.Flags().StringVar(&slug, "slug", "", "Listing slug to grant")
	_ = c.MarkFlagRequired("database-url")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("slug")

	return c
}

func buildService(ctx context.Context, databaseURL string) (service.Service, func(), error) {
	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
	if err != nil {
		return nil, nil, fmt.Errorf("init pool: %w", err)
	}

	adminStore, err := persistence.NewAdminStore(ctx, pool)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, nil, fmt.Errorf("init admin store: %w", err)
	}
	sessionStore, err := persistence.NewSessionStore(ctx, pool)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, nil, fmt.Errorf("init session store: %w", err)
	}

	svc := service.New(repo.NewPostgresRepository(adminStore, sessionStore), bootstrapTTL)
	return svc, func() { persistence.ClosePool(pool) }, nil
}
