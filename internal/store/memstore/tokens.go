// AngelaMos | 2026
// tokens.go

package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

type tokenRepo struct {
	s *Store
}

func (r *tokenRepo) Create(ctx context.Context, token *store.RefreshToken) error {
	return r.s.do(ctx, func(t *tables) error {
		if _, ok := t.users[token.UserID]; !ok {
			return fmt.Errorf("create refresh token: %w",
				store.ForeignKeyViolation(store.ConstraintRefreshTokenUserFK, false))
		}
		token.CreatedAt = r.s.now()
		t.tokens[token.ID] = *token
		return nil
	})
}

func (r *tokenRepo) FindByHash(ctx context.Context, tokenHash string) (*store.RefreshToken, error) {
	var out *store.RefreshToken
	err := r.s.do(ctx, func(t *tables) error {
		for _, tok := range t.tokens {
			if tok.TokenHash == tokenHash {
				out = &tok
				return nil
			}
		}
		return fmt.Errorf("find refresh token: %w", core.ErrNotFound)
	})
	return out, err
}

func (r *tokenRepo) Rotate(ctx context.Context, usedID string, next *store.RefreshToken) error {
	return r.s.do(ctx, func(t *tables) error {
		used, ok := t.tokens[usedID]
		if !ok || used.IsUsed || used.RevokedAt != nil {
			return fmt.Errorf("rotate refresh token: %w", store.ErrRefreshTokenSpent)
		}
		if _, ok := t.users[next.UserID]; !ok {
			return fmt.Errorf("rotate refresh token: %w",
				store.ForeignKeyViolation(store.ConstraintRefreshTokenUserFK, false))
		}

		now := r.s.now()
		next.CreatedAt = now
		t.tokens[next.ID] = *next

		replacedBy := next.ID
		used.IsUsed = true
		used.UsedAt = &now
		used.ReplacedByID = &replacedBy
		t.tokens[usedID] = used
		return nil
	})
}

func (r *tokenRepo) RevokeByID(ctx context.Context, id string) error {
	return r.s.do(ctx, func(t *tables) error {
		tok, ok := t.tokens[id]
		if !ok || tok.RevokedAt != nil {
			return fmt.Errorf("revoke refresh token: %w", core.ErrNotFound)
		}
		now := r.s.now()
		tok.RevokedAt = &now
		t.tokens[id] = tok
		return nil
	})
}

func (r *tokenRepo) RevokeByFamilyID(ctx context.Context, familyID string) error {
	return r.revokeWhere(ctx, func(tok store.RefreshToken) bool { return tok.FamilyID == familyID })
}

func (r *tokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	return r.revokeWhere(ctx, func(tok store.RefreshToken) bool { return tok.UserID == userID })
}

func (r *tokenRepo) revokeWhere(ctx context.Context, match func(store.RefreshToken) bool) error {
	return r.s.do(ctx, func(t *tables) error {
		now := r.s.now()
		for id, tok := range t.tokens {
			if tok.RevokedAt == nil && match(tok) {
				tok.RevokedAt = &now
				t.tokens[id] = tok
			}
		}
		return nil
	})
}

func (r *tokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.s.do(ctx, func(t *tables) error {
		for id, tok := range t.tokens {
			if tok.ExpiresAt.Before(before) {
				delete(t.tokens, id)
				n++
			}
		}
		return nil
	})
	return n, err
}
