package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"rhportal/internal/domain/access"
	cryptoutil "rhportal/internal/platform/crypto"
)

const StatusActive = "active"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCodeRequired means the password matched but the account has a TOTP
	// second factor and no code was supplied.
	ErrCodeRequired = errors.New("second factor code required")
)

// Identity is who the login check says the caller is.
type Identity struct {
	Identifier  string      `json:"identifier"`
	DisplayName string      `json:"displayName"`
	Rank        access.Rank `json:"rank"`
}

type Credentials struct {
	Identifier string
	Secret     string
	Code       string
}

type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (Identity, error)
}

type AccountFinder interface {
	FindActive(ctx context.Context, identifier string) (Account, error)
	TouchLogin(ctx context.Context, id string) error
}

type Service struct {
	Accounts AccountFinder
	Crypto   *cryptoutil.Service
}

func NewService(accounts AccountFinder, crypto *cryptoutil.Service) *Service {
	return &Service{Accounts: accounts, Crypto: crypto}
}

// Compared against when the account does not exist so both paths cost one bcrypt check.
var dummyHash, _ = HashPassword("rhportal-dummy-password")

func (s *Service) Authenticate(ctx context.Context, creds Credentials) (Identity, error) {
	identifier := NormalizeIdentifier(creds.Identifier)
	if identifier == "" || creds.Secret == "" {
		return Identity{}, ErrInvalidCredentials
	}

	acct, err := s.Accounts.FindActive(ctx, identifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrNotFound) {
			_ = CheckPassword(dummyHash, creds.Secret)
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, err
	}
	if err := CheckPassword(acct.PasswordHash, creds.Secret); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	if !acct.Rank.Valid() {
		return Identity{}, ErrInvalidCredentials
	}

	if len(acct.TOTPSecretEnc) > 0 {
		if strings.TrimSpace(creds.Code) == "" {
			return Identity{}, ErrCodeRequired
		}
		secret, err := s.Crypto.DecryptString(acct.TOTPSecretEnc)
		if err != nil || secret == "" {
			return Identity{}, ErrInvalidCredentials
		}
		if !totp.Validate(strings.TrimSpace(creds.Code), secret) {
			return Identity{}, ErrInvalidCredentials
		}
	}

	_ = s.Accounts.TouchLogin(ctx, acct.ID)
	return Identity{Identifier: acct.Identifier, DisplayName: acct.DisplayName, Rank: acct.Rank}, nil
}

func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
