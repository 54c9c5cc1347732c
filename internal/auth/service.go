// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/middleware"
	"github.com/carterperez-dev/templates/tenant-backend/internal/notify"
	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidOTP         = errors.New("invalid or expired code")
)

// SignupRole is granted to every self-registered account.
const SignupRole = rbac.RoleClient

type UserInfo struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Roles        []rbac.Role
	TokenVersion int
}

func (u *UserInfo) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Registration carries an already hashed password.
type Registration struct {
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	PhoneNumber  string
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Register(ctx context.Context, reg Registration, role rbac.Role) (*UserInfo, error)
	IncrementTokenVersion(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

type Service struct {
	tokens       store.RefreshTokens
	jwt          *JWTManager
	userProvider UserProvider
	otps         OTPStore
	notifier     notify.Notifier
	hasher       core.Passwords
	otpTTL       time.Duration
	logger       *slog.Logger
}

type Deps struct {
	Tokens   store.RefreshTokens
	JWT      *JWTManager
	Users    UserProvider
	OTPs     OTPStore
	Notifier notify.Notifier
	Hasher   core.Passwords
	OTPTTL   time.Duration
	Logger   *slog.Logger
}

func NewService(d Deps) *Service {
	if d.Hasher == nil {
		d.Hasher = core.Argon2Hasher{}
	}
	if d.OTPTTL <= 0 {
		d.OTPTTL = time.Hour
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Service{
		tokens:       d.Tokens,
		jwt:          d.JWT,
		userProvider: d.Users,
		otps:         d.OTPs,
		notifier:     d.Notifier,
		hasher:       d.Hasher,
		otpTTL:       d.OTPTTL,
		logger:       d.Logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	user, err := s.userProvider.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // spend the same work as a real check
			_, _, _ = s.hasher.Verify(req.Password, "")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.userProvider.UpdatePassword(ctx, user.ID, newHash)
	}

	return s.createAuthResponse(ctx, user, userAgent, ipAddress, "", nil)
}

// Signup registers a CLIENT account and signs it in.
func (s *Service) Signup(
	ctx context.Context,
	req SignupRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.userProvider.Register(ctx, Registration{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        normalizeEmail(req.Email),
		PasswordHash: passwordHash,
		PhoneNumber:  req.PhoneNumber,
	}, SignupRole)
	if err != nil {
		if errors.Is(err, ErrEmailExists) || errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("register user: %w", err)
	}

	return s.createAuthResponse(ctx, user, userAgent, ipAddress, "", nil)
}

func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, userAgent, ipAddress string,
) (*AuthResponse, error) {
	tokenHash := core.HashToken(refreshToken)

	storedToken, err := s.tokens.FindByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("find token: %w", err)
	}

	if storedToken.IsUsed {
		//nolint:errcheck // security revocation continues regardless
		_ = s.tokens.RevokeByFamilyID(ctx, storedToken.FamilyID)
		return nil, ErrTokenReuse
	}

	if !storedToken.IsValid() {
		if storedToken.IsRevoked() {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
		}
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	user, err := s.userProvider.GetByID(ctx, storedToken.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return s.createAuthResponse(
		ctx,
		user,
		userAgent,
		ipAddress,
		storedToken.FamilyID,
		&storedToken.ID,
	)
}

func (s *Service) Logout(
	ctx context.Context,
	refreshToken, userID string,
) error {
	tokenHash := core.HashToken(refreshToken)

	storedToken, err := s.tokens.FindByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find token: %w", err)
	}

	if storedToken.UserID != userID {
		return fmt.Errorf("logout: %w", core.ErrForbidden)
	}

	if err := s.tokens.RevokeByID(ctx, storedToken.ID); err != nil &&
		!errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("revoke token: %w", err)
	}

	return nil
}

// LogoutAll revokes every refresh token and invalidates issued access tokens.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke all tokens: %w", err)
	}

	if err := s.userProvider.IncrementTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	return nil
}

func (s *Service) ChangePassword(
	ctx context.Context,
	userID, currentPassword, newPassword string,
) error {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	valid, _, err := s.hasher.Verify(currentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return ErrInvalidCredentials
	}

	return s.setPassword(ctx, userID, newPassword)
}

// ForgotPassword emails a one-time reset code. Unknown emails succeed
// silently so the endpoint does not reveal which accounts exist.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.userProvider.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("get user: %w", err)
	}

	code, err := core.GenerateOTP(3)
	if err != nil {
		return err
	}

	if err := s.otps.Save(ctx, email, core.HashToken(code), s.otpTTL); err != nil {
		return core.DependencyError("otp store", err)
	}

	err = s.notifier.Send(ctx, notify.Message{
		Kind: notify.KindPasswordReset,
		To:   user.Email,
		Data: map[string]string{
			"name": user.FullName(),
			"otp":  code,
			"ttl":  s.otpTTL.String(),
		},
	})
	if err != nil {
		return core.DependencyError("mail", err)
	}

	return nil
}

// ResetPassword consumes the code, stores the new hash and signs out every
// session of the account.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	email := normalizeEmail(req.Email)

	stored, err := s.otps.Take(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrInvalidOTP
		}
		return core.DependencyError("otp store", err)
	}

	if !core.CompareTokenHash(strings.ToUpper(req.OTP), stored) {
		return ErrInvalidOTP
	}

	user, err := s.userProvider.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrInvalidOTP
		}
		return fmt.Errorf("get user: %w", err)
	}

	return s.setPassword(ctx, user.ID, req.NewPassword)
}

func (s *Service) setPassword(ctx context.Context, userID, password string) error {
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.userProvider.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.LogoutAll(ctx, userID); err != nil {
		return fmt.Errorf("logout all: %w", err)
	}

	return nil
}

func (s *Service) GetCurrentUser(
	ctx context.Context,
	userID string,
) (*UserResponse, error) {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return nil, core.NameNotFound(err, "user")
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func (s *Service) createAuthResponse(
	ctx context.Context,
	user *UserInfo,
	userAgent, ipAddress, familyID string,
	oldTokenID *string,
) (*AuthResponse, error) {
	accessToken, err := s.jwt.CreateAccessToken(middleware.AccessTokenClaims{
		UserID:       user.ID,
		TokenVersion: user.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refreshData, err := s.jwt.CreateRefreshToken(familyID)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	newTokenID := uuid.New().String()

	refreshToken := &store.RefreshToken{
		ID:        newTokenID,
		UserID:    user.ID,
		TokenHash: refreshData.Hash,
		FamilyID:  refreshData.FamilyID,
		ExpiresAt: refreshData.ExpiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}

	if oldTokenID == nil {
		err = s.tokens.Create(ctx, refreshToken)
	} else {
		err = s.tokens.Rotate(ctx, *oldTokenID, refreshToken)
	}
	if errors.Is(err, store.ErrRefreshTokenSpent) {
		//nolint:errcheck // security revocation continues regardless
		_ = s.tokens.RevokeByFamilyID(ctx, refreshData.FamilyID)
		return nil, ErrTokenReuse
	}
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	expiresIn := s.jwt.AccessTokenTTL()

	return &AuthResponse{
		User: toUserResponse(user),
		Tokens: TokenResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshData.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int(expiresIn.Seconds()),
			ExpiresAt:    time.Now().Add(expiresIn),
		},
	}, nil
}
