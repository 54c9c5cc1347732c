// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"

	"github.com/carterperez-dev/templates/tenant-backend/internal/config"
)

const (
	defaultArgonTime    = 1
	defaultArgonMemory  = 64 * 1024
	defaultArgonThreads = 4
	argonKeyLen         = 32
	saltLength          = 16
)

var errHashFormat = errors.New("invalid password hash")

// PasswordHasher is the one-way hashing collaborator used by the services.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// PasswordVerifier checks a password against a stored hash. rehash is set
// when the password matched a hash made with outdated parameters.
type PasswordVerifier interface {
	Verify(password, encodedHash string) (ok bool, rehash string, err error)
}

type Passwords interface {
	PasswordHasher
	PasswordVerifier
}

// Argon2Hasher hashes with argon2id in the PHC string format. Zero fields
// take the defaults (t=1, m=64MiB, p=4).
type Argon2Hasher struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

func NewArgon2Hasher(cfg config.Argon2Config) Argon2Hasher {
	return Argon2Hasher{
		Time:      cfg.Time,
		MemoryKiB: cfg.MemoryKiB,
		Threads:   cfg.Threads,
	}
}

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
}

func (h Argon2Hasher) params() argonParams {
	p := argonParams{
		memory:  h.MemoryKiB,
		time:    h.Time,
		threads: h.Threads,
		keyLen:  argonKeyLen,
	}
	if p.memory == 0 {
		p.memory = defaultArgonMemory
	}
	if p.time == 0 {
		p.time = defaultArgonTime
	}
	if p.threads == 0 {
		p.threads = defaultArgonThreads
	}
	return p
}

func (h Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	p := h.params()
	key := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.memory,
		p.time,
		p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify compares in constant time. An empty encodedHash is checked against
// a dummy hash and never matches, so a missing account costs the same work
// as a wrong password.
func (h Argon2Hasher) Verify(password, encodedHash string) (bool, string, error) {
	if encodedHash == "" {
		_, _, _ = verifyArgon2(password, dummyHash(h))
		return false, "", nil
	}

	ok, params, err := verifyArgon2(password, encodedHash)
	if err != nil || !ok {
		return false, "", err
	}

	if params == h.params() {
		return true, "", nil
	}

	rehash, err := h.Hash(password)
	if err != nil {
		// The password matched; an upgrade can wait for the next login.
		return true, "", nil //nolint:nilerr
	}
	return true, rehash, nil
}

func verifyArgon2(password, encodedHash string) (bool, argonParams, error) {
	params, salt, key, err := decodeHash(encodedHash)
	if err != nil {
		return false, argonParams{}, err
	}

	other := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, params.keyLen)
	return subtle.ConstantTimeCompare(key, other) == 1, params, nil
}

var (
	dummyHashOnce sync.Once
	dummyHashVal  string
)

func dummyHash(h Argon2Hasher) string {
	dummyHashOnce.Do(func() {
		hash, err := h.Hash("dummy password for missing accounts")
		if err != nil {
			panic(fmt.Sprintf("security: generate dummy hash: %v", err))
		}
		dummyHashVal = hash
	})
	return dummyHashVal
}

// decodeHash parses "$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>".
func decodeHash(encodedHash string) (argonParams, []byte, []byte, error) {
	var params argonParams

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, errHashFormat
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return params, nil, nil, fmt.Errorf("%w: version %q", errHashFormat, parts[2])
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &params.threads); err != nil {
		return params, nil, nil, fmt.Errorf("%w: params: %w", errHashFormat, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, fmt.Errorf("%w: salt: %w", errHashFormat, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, fmt.Errorf("%w: key: %w", errHashFormat, err)
	}

	//nolint:gosec // G115: argon2 keys are 32 bytes
	params.keyLen = uint32(len(key))

	return params, salt, key, nil
}

func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func GenerateRefreshToken() (string, error) {
	return GenerateSecureToken(32)
}

// GenerateOTP returns an uppercase hex one-time code of 2*n characters.
func GenerateOTP(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// UnusablePasswordHash hashes a random secret nobody knows. Provisioned
// accounts start with it and set a real password through the reset flow.
func UnusablePasswordHash(hasher PasswordHasher) (string, error) {
	secret, err := GenerateSecureToken(32)
	if err != nil {
		return "", err
	}
	return hasher.Hash(secret)
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func CompareTokenHash(token, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(hash)) == 1
}
