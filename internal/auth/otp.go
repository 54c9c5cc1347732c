// AngelaMos | 2026
// otp.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
)

const otpKeyPrefix = "otp:password_reset:"

// OTPStore keeps one pending password-reset code per email. Codes are
// stored hashed and consumed on first read.
type OTPStore interface {
	Save(ctx context.Context, email, codeHash string, ttl time.Duration) error
	Take(ctx context.Context, email string) (string, error)
}

type RedisOTPStore struct {
	client *redis.Client
}

func NewRedisOTPStore(client *redis.Client) *RedisOTPStore {
	return &RedisOTPStore{client: client}
}

func (s *RedisOTPStore) Save(
	ctx context.Context,
	email, codeHash string,
	ttl time.Duration,
) error {
	if err := s.client.Set(ctx, otpKeyPrefix+email, codeHash, ttl).Err(); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	return nil
}

// Take returns and deletes the stored hash, or core.ErrNotFound.
func (s *RedisOTPStore) Take(ctx context.Context, email string) (string, error) {
	hash, err := s.client.GetDel(ctx, otpKeyPrefix+email).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("take otp: %w", core.ErrNotFound)
		}
		return "", fmt.Errorf("take otp: %w", err)
	}
	return hash, nil
}
