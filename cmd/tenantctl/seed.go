// AngelaMos | 2026
// seed.go

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/event"
	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
	"github.com/carterperez-dev/templates/tenant-backend/internal/user"
)

type seedAccount struct {
	role     rbac.Role
	email    string
	password string
}

func newSeedCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the initial ADMIN and DEVELOPER accounts",
		Long: "Create the initial ADMIN and DEVELOPER accounts from the seed config. " +
			"Accounts whose email already exists are left untouched.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			be, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer be.Close()

			logger := slog.Default()
			dispatcher := event.NewDispatcher(be.failures, logger)
			defer func() { _ = dispatcher.Shutdown(context.WithoutCancel(ctx)) }()

			svc := user.NewService(be.store, core.NewArgon2Hasher(cfg.Auth.Argon2), dispatcher, logger)

			accounts := []seedAccount{
				{rbac.RoleAdmin, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword},
				{rbac.RoleDeveloper, cfg.Seed.DeveloperEmail, cfg.Seed.DeveloperPassword},
			}
			for _, a := range accounts {
				if err := seed(ctx, cmd, svc, be, a); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func seed(ctx context.Context, cmd *cobra.Command, svc *user.Service, be *backend, a seedAccount) error {
	if a.email == "" {
		cmd.Printf("skip %s: no email configured\n", a.role)
		return nil
	}
	if len(a.password) < 8 {
		return fmt.Errorf("%s seed password must be at least 8 characters", a.role)
	}

	exists, err := be.store.Users.ExistsByEmail(ctx, user.NormalizeEmail(a.email))
	if err != nil {
		return err
	}
	if exists {
		cmd.Printf("skip %s: %s already exists\n", a.role, a.email)
		return nil
	}

	p, err := svc.Create(ctx, user.CreateUserRequest{
		FirstName: string(a.role),
		LastName:  "Account",
		Email:     a.email,
		Password:  a.password,
		Role:      string(a.role),
	})
	if err != nil {
		return fmt.Errorf("seed %s: %w", a.role, err)
	}
	cmd.Printf("created %s %s (%s)\n", a.role, p.User.Email, p.User.ID)
	return nil
}
