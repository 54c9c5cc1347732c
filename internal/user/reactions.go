// AngelaMos | 2026
// reactions.go

package user

import (
	"context"
	"log/slog"

	"github.com/carterperez-dev/templates/tenant-backend/internal/event"
)

const ReactionAuditDelete = "audit-delete"

// RegisterReactions attaches the user reactions to d.
func RegisterReactions(d *event.Dispatcher, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	d.Register(event.UserDeleted, ReactionAuditDelete, func(_ context.Context, e event.Event) error {
		var p DeletedPayload
		if err := e.Decode(&p); err != nil {
			return err
		}

		attrs := []any{"event_id", e.ID, "user_id", p.UserID}
		if p.CompanyID != nil {
			attrs = append(attrs, "company_id", *p.CompanyID)
		}
		logger.Info("user deleted", attrs...)
		return nil
	})
}
