// AngelaMos | 2026
// reconcile.go

package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/templates/tenant-backend/internal/company"
	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/event"
	"github.com/carterperez-dev/templates/tenant-backend/internal/notify"
	"github.com/carterperez-dev/templates/tenant-backend/internal/staff"
	"github.com/carterperez-dev/templates/tenant-backend/internal/user"
)

func newReconcileCommand(load configLoader) *cobra.Command {
	var (
		batch    int
		listOnly bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Replay pending reaction failures once",
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

			if listOnly {
				pending, err := be.failures.Pending(ctx, batch)
				if err != nil {
					return err
				}
				for _, f := range pending {
					cmd.Printf("%s\t%s\t%s\tattempts=%d\t%s\n",
						f.ID, f.EventType, f.Reaction, f.Attempts, f.Error)
				}
				return nil
			}

			notifier, closer, err := notify.FromConfig(cfg.Mail, cfg.Broker, logger)
			if err != nil {
				return err
			}
			defer closer.Close()

			dispatcher := event.NewDispatcher(be.failures, logger,
				event.WithReactionTimeout(cfg.Events.ReactionTimeout),
				event.WithMaxAttempts(cfg.Events.MaxAttempts),
			)
			defer func() { _ = dispatcher.Shutdown(context.WithoutCancel(ctx)) }()

			user.RegisterReactions(dispatcher, logger)
			company.NewReactions(be.store, core.NewArgon2Hasher(cfg.Auth.Argon2), notifier, logger).Register(dispatcher)
			staff.NewReactions(be.store, notifier, logger).Register(dispatcher)

			redis, err := core.NewRedis(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			defer redis.Close()

			report, err := event.NewReconciler(
				dispatcher,
				event.NewRedisLocker(redis.Client),
				0,
				batch,
				logger,
			).RunOnce(ctx)
			if err != nil {
				return err
			}

			cmd.Printf("attempted=%d resolved=%d failed=%d skipped=%d exhausted=%d\n",
				report.Attempted, report.Resolved, report.Failed, report.Skipped, report.Exhausted)
			return nil
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 50, "maximum failures to replay")
	cmd.Flags().BoolVar(&listOnly, "list", false, "only list pending failures")
	return cmd
}
