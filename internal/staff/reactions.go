// AngelaMos | 2026
// reactions.go

package staff

import (
	"context"
	"errors"
	"log/slog"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/event"
	"github.com/carterperez-dev/templates/tenant-backend/internal/notify"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

const (
	ReactionNotifyWelcome  = "notify-welcome"
	ReactionSyncMembership = "sync-membership"
	ReactionAuditDelete    = "audit-delete"
)

type Reactions struct {
	store    *store.Store
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewReactions(st *store.Store, notifier notify.Notifier, logger *slog.Logger) *Reactions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reactions{store: st, notifier: notifier, logger: logger}
}

func (r *Reactions) Register(d *event.Dispatcher) {
	d.Register(event.StaffCreated, ReactionNotifyWelcome, r.NotifyWelcome)
	d.Register(event.StaffUpdated, ReactionSyncMembership, r.SyncMembership)
	d.Register(event.StaffDeleted, ReactionAuditDelete, r.AuditDelete)
}

func (r *Reactions) NotifyWelcome(ctx context.Context, e event.Event) error {
	var p CreatedPayload
	if err := e.Decode(&p); err != nil {
		return err
	}

	companyName := ""
	c, err := r.store.Companies.GetByID(ctx, p.CompanyID)
	switch {
	case err == nil:
		companyName = c.Name
	case errors.Is(err, core.ErrNotFound):
		r.logger.Info("staff company gone, skipping welcome",
			"company_id", p.CompanyID,
			"user_id", p.UserID,
		)
		return nil
	default:
		return err
	}

	return r.notifier.Send(ctx, notify.Message{
		Kind: notify.KindStaffWelcome,
		To:   p.Email,
		Data: map[string]string{
			"name":    p.FirstName + " " + p.LastName,
			"company": companyName,
			"email":   p.Email,
		},
	})
}

// SyncMembership applies the membership half of a staff update. A member
// removed in the meantime leaves nothing to sync.
func (r *Reactions) SyncMembership(ctx context.Context, e event.Event) error {
	var p UpdatedPayload
	if err := e.Decode(&p); err != nil {
		return err
	}
	if p.Membership.empty() {
		return nil
	}

	return r.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		m, err := r.store.Memberships.GetByUser(ctx, p.UserID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil
			}
			return err
		}
		if m.CompanyID != p.CompanyID {
			return nil
		}

		patch := p.Membership
		if patch.PhoneNumber != nil {
			m.PhoneNumber = optionalPhone(*patch.PhoneNumber)
		}
		if patch.Title != nil {
			m.Title = store.NonEmpty(*patch.Title)
		}
		if patch.Role != nil {
			m.Role = store.NonEmpty(*patch.Role)
		}
		if patch.IDNumber != nil {
			m.IDNumber = store.NonEmpty(*patch.IDNumber)
		}
		if patch.IDAttachment != nil {
			m.IDAttachment = store.NonEmpty(*patch.IDAttachment)
		}
		if patch.IsActive != nil {
			m.IsActive = *patch.IsActive
		}
		return r.store.Memberships.Update(ctx, m)
	})
}

func (r *Reactions) AuditDelete(_ context.Context, e event.Event) error {
	var p DeletedPayload
	if err := e.Decode(&p); err != nil {
		return err
	}

	r.logger.Info("staff member removed",
		"event_id", e.ID,
		"user_id", p.UserID,
		"company_id", p.CompanyID,
	)
	return nil
}
