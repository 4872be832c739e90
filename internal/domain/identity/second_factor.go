package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	cryptoutil "rhportal/internal/platform/crypto"
)

const totpIssuer = "Portal RH"

var (
	ErrSecondFactorUnavailable = errors.New("second factor requires an encryption key")
	ErrSecondFactorActive      = errors.New("second factor already enabled")
	ErrSecondFactorMissing     = errors.New("second factor not set up")
	ErrInvalidCode             = errors.New("invalid second factor code")
)

type SecondFactorStore interface {
	SecondFactor(ctx context.Context, identifier string) (active, pending []byte, err error)
	SetPendingTOTP(ctx context.Context, identifier string, sealed []byte) error
	ActivateTOTP(ctx context.Context, identifier string) error
	ClearTOTP(ctx context.Context, identifier string) error
}

// Enrollment is what an authenticator app needs to start producing codes.
type Enrollment struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}

// SecondFactors enrolls and removes TOTP secrets. A new secret stays pending
// until a code generated from it is confirmed, so a half-finished setup never
// locks the account.
type SecondFactors struct {
	Store  SecondFactorStore
	Crypto *cryptoutil.Service
}

func NewSecondFactors(store SecondFactorStore, crypto *cryptoutil.Service) *SecondFactors {
	return &SecondFactors{Store: store, Crypto: crypto}
}

func (f *SecondFactors) Begin(ctx context.Context, identifier string) (Enrollment, error) {
	if !f.Crypto.Configured() {
		return Enrollment{}, ErrSecondFactorUnavailable
	}
	identifier = NormalizeIdentifier(identifier)
	active, _, err := f.Store.SecondFactor(ctx, identifier)
	if err != nil {
		return Enrollment{}, err
	}
	if len(active) > 0 {
		return Enrollment{}, ErrSecondFactorActive
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: identifier,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("generate totp secret: %w", err)
	}
	sealed, err := f.Crypto.EncryptString(key.Secret())
	if err != nil {
		return Enrollment{}, fmt.Errorf("seal totp secret: %w", err)
	}
	if err := f.Store.SetPendingTOTP(ctx, identifier, sealed); err != nil {
		return Enrollment{}, fmt.Errorf("store totp secret: %w", err)
	}
	return Enrollment{Secret: key.Secret(), OTPAuthURL: key.URL()}, nil
}

// Confirm activates the pending secret once code matches it.
func (f *SecondFactors) Confirm(ctx context.Context, identifier, code string) error {
	if !f.Crypto.Configured() {
		return ErrSecondFactorUnavailable
	}
	identifier = NormalizeIdentifier(identifier)
	_, pending, err := f.Store.SecondFactor(ctx, identifier)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return ErrSecondFactorMissing
	}
	if err := f.check(pending, code); err != nil {
		return err
	}
	return f.Store.ActivateTOTP(ctx, identifier)
}

// Disable removes the active secret. It needs a current code, not just a session.
func (f *SecondFactors) Disable(ctx context.Context, identifier, code string) error {
	if !f.Crypto.Configured() {
		return ErrSecondFactorUnavailable
	}
	identifier = NormalizeIdentifier(identifier)
	active, _, err := f.Store.SecondFactor(ctx, identifier)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		return ErrSecondFactorMissing
	}
	if err := f.check(active, code); err != nil {
		return err
	}
	return f.Store.ClearTOTP(ctx, identifier)
}

func (f *SecondFactors) check(sealed []byte, code string) error {
	secret, err := f.Crypto.DecryptString(sealed)
	if err != nil || secret == "" {
		return ErrInvalidCode
	}
	if !totp.Validate(strings.TrimSpace(code), secret) {
		return ErrInvalidCode
	}
	return nil
}
