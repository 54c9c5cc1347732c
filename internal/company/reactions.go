// AngelaMos | 2026
// reactions.go

package company

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/event"
	"github.com/carterperez-dev/templates/tenant-backend/internal/notify"
	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

const (
	ReactionProvisionContact = "provision-contact"
	ReactionNotifyContact    = "notify-contact"
	ReactionSyncContact      = "sync-contact"
	ReactionAuditDelete      = "audit-delete"
)

var ErrContactNotProvisioned = errors.New("company contact is not provisioned")

// Reactions carries the follow-up work for company events. Every reaction
// checks for existing rows before writing so a replay converges.
type Reactions struct {
	store    *store.Store
	hasher   core.PasswordHasher
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewReactions(
	st *store.Store,
	hasher core.PasswordHasher,
	notifier notify.Notifier,
	logger *slog.Logger,
) *Reactions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reactions{store: st, hasher: hasher, notifier: notifier, logger: logger}
}

func (r *Reactions) Register(d *event.Dispatcher) {
	d.Register(event.CompanyCreated, ReactionProvisionContact, r.ProvisionContact)
	d.Register(event.CompanyCreated, ReactionNotifyContact, r.NotifyContact)
	d.Register(event.CompanyUpdated, ReactionSyncContact, r.SyncContact)
	d.Register(event.CompanyDeleted, ReactionAuditDelete, r.AuditDelete)
}

// ProvisionContact creates the contact user, its COMPANY_ADMIN role and the
// membership in one transaction.
func (r *Reactions) ProvisionContact(ctx context.Context, e event.Event) error {
	var p CreatedPayload
	if err := e.Decode(&p); err != nil {
		return err
	}
	contact := p.ContactPerson

	return r.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := r.store.Companies.GetByID(ctx, p.CompanyID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				r.logger.Warn("company gone before contact provisioning",
					"company_id", p.CompanyID,
				)
				return nil
			}
			return err
		}

		existing, err := r.store.Users.GetByEmail(ctx, contact.Email)
		switch {
		case err == nil:
			return r.adoptExisting(ctx, existing, p.CompanyID)
		case !errors.Is(err, core.ErrNotFound):
			return err
		}

		hash, err := core.UnusablePasswordHash(r.hasher)
		if err != nil {
			return fmt.Errorf("contact password: %w", err)
		}

		u := &store.User{
			ID:           uuid.New().String(),
			FirstName:    contact.FirstName,
			LastName:     contact.LastName,
			Email:        contact.Email,
			PasswordHash: hash,
			PhoneNumber:  contact.PhoneNumber,
		}
		if err := r.store.Users.Create(ctx, u); err != nil {
			return err
		}
		if err := r.store.Roles.Assign(ctx, store.NewRoleAssignment(u.ID, rbac.RoleCompanyAdmin)); err != nil {
			return err
		}
		return r.store.Memberships.Create(ctx, &store.Membership{
			ID:           uuid.New().String(),
			CompanyID:    p.CompanyID,
			UserID:       u.ID,
			PhoneNumber:  optionalPhone(contact.PhoneNumber),
			Title:        store.NonEmpty(contact.Title),
			Role:         store.NonEmpty(contact.Role),
			IDNumber:     store.NonEmpty(contact.IDNumber),
			IDAttachment: store.NonEmpty(contact.IDAttachment),
			IsActive:     true,
		})
	})
}

// adoptExisting finishes a provisioning that already created the user. A
// user belonging elsewhere is a conflict the operator has to resolve.
func (r *Reactions) adoptExisting(ctx context.Context, u *store.User, companyID string) error {
	m, err := r.store.Memberships.GetByUser(ctx, u.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ConflictError("contactPerson.email", "contact email belongs to another account")
		}
		return err
	}
	if m.CompanyID != companyID {
		return core.ConflictError("contactPerson.email", "contact email belongs to another company")
	}

	has, err := r.store.Roles.Exists(ctx, u.ID, rbac.RoleCompanyAdmin)
	if err != nil || has {
		return err
	}
	return r.store.Roles.Assign(ctx, store.NewRoleAssignment(u.ID, rbac.RoleCompanyAdmin))
}

// NotifyContact tells the provisioned contact about the new account.
func (r *Reactions) NotifyContact(ctx context.Context, e event.Event) error {
	var p CreatedPayload
	if err := e.Decode(&p); err != nil {
		return err
	}

	u, err := r.store.Users.GetByEmail(ctx, p.ContactPerson.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrContactNotProvisioned
		}
		return err
	}
	m, err := r.store.Memberships.GetByUser(ctx, u.ID)
	if err != nil || m.CompanyID != p.CompanyID {
		return ErrContactNotProvisioned
	}

	return r.notifier.Send(ctx, notify.Message{
		Kind: notify.KindContactProvisioned,
		To:   u.Email,
		Data: map[string]string{
			"name":    u.FullName(),
			"company": p.Name,
			"email":   u.Email,
		},
	})
}

// SyncContact copies contact changes onto the contact user and membership.
func (r *Reactions) SyncContact(ctx context.Context, e event.Event) error {
	var p UpdatedPayload
	if err := e.Decode(&p); err != nil {
		return err
	}
	if p.ContactPerson == nil {
		return nil
	}
	patch := p.ContactPerson

	return r.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		contact, err := r.store.Memberships.FindContact(ctx, p.CompanyID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return ErrContactNotProvisioned
			}
			return err
		}

		u := contact.User
		setString(&u.FirstName, patch.FirstName)
		setString(&u.LastName, patch.LastName)
		setString(&u.Email, patch.Email)
		setString(&u.PhoneNumber, patch.PhoneNumber)
		if err := r.store.Users.Update(ctx, &u); err != nil {
			return err
		}

		m := contact.Membership
		if patch.PhoneNumber != nil {
			m.PhoneNumber = optionalPhone(*patch.PhoneNumber)
		}
		setDefaulted(&m.Title, patch.Title)
		setDefaulted(&m.Role, patch.Role)
		setDefaulted(&m.IDNumber, patch.IDNumber)
		setDefaulted(&m.IDAttachment, patch.IDAttachment)
		return r.store.Memberships.Update(ctx, &m)
	})
}

func (r *Reactions) AuditDelete(_ context.Context, e event.Event) error {
	var p DeletedPayload
	if err := e.Decode(&p); err != nil {
		return err
	}

	r.logger.Info("company deleted",
		"event_id", e.ID,
		"company_id", p.CompanyID,
		"name", p.Name,
		"memberships_removed", p.Memberships,
	)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDefaulted(dst *string, v *string) {
	if v != nil {
		*dst = store.NonEmpty(*v)
	}
}
