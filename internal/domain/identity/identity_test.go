package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoutil "rhportal/internal/platform/crypto"
)

type fakeAccounts struct {
	accounts map[string]Account
	touched  []string
	err      error
}

func (f *fakeAccounts) FindActive(_ context.Context, identifier string) (Account, error) {
	if f.err != nil {
		return Account{}, f.err
	}
	acct, ok := f.accounts[identifier]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acct, nil
}

func (f *fakeAccounts) TouchLogin(_ context.Context, id string) error {
	f.touched = append(f.touched, id)
	return nil
}

func newFake(t *testing.T, accts ...Account) *fakeAccounts {
	t.Helper()
	f := &fakeAccounts{accounts: map[string]Account{}}
	for _, a := range accts {
		f.accounts[a.Identifier] = a
	}
	return f
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	return hash
}

func TestAuthenticate(t *testing.T) {
	accounts := newFake(t, Account{ID: "1", Identifier: "gerente", DisplayName: "Gerente", Rank: 3, PasswordHash: mustHash(t, "123456")})
	svc := NewService(accounts, nil)

	id, err := svc.Authenticate(context.Background(), Credentials{Identifier: "  GERENTE ", Secret: "123456"})
	require.NoError(t, err)
	assert.Equal(t, Identity{Identifier: "gerente", DisplayName: "Gerente", Rank: 3}, id)
	assert.Equal(t, []string{"1"}, accounts.touched)
}

func TestAuthenticateRejects(t *testing.T) {
	accounts := newFake(t,
		Account{ID: "1", Identifier: "admin", Rank: 5, PasswordHash: mustHash(t, "123456")},
		Account{ID: "2", Identifier: "broken", Rank: 0, PasswordHash: mustHash(t, "123456")},
	)
	svc := NewService(accounts, nil)

	cases := map[string]Credentials{
		"wrong password":  {Identifier: "admin", Secret: "654321"},
		"unknown account": {Identifier: "ninguem", Secret: "123456"},
		"empty secret":    {Identifier: "admin"},
		"empty id":        {Secret: "123456"},
		"invalid rank":    {Identifier: "broken", Secret: "123456"},
	}
	for name, creds := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Authenticate(context.Background(), creds)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
	assert.Empty(t, accounts.touched)
}

func TestAuthenticateStoreError(t *testing.T) {
	accounts := newFake(t)
	accounts.err = errors.New("connection refused")
	_, err := NewService(accounts, nil).Authenticate(context.Background(), Credentials{Identifier: "admin", Secret: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateSecondFactor(t *testing.T) {
	crypto, err := cryptoutil.New(strings.Repeat("0f", 32))
	require.NoError(t, err)
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "RH Portal", AccountName: "admin"})
	require.NoError(t, err)
	sealed, err := crypto.EncryptString(key.Secret())
	require.NoError(t, err)

	accounts := newFake(t, Account{ID: "1", Identifier: "admin", Rank: 5, PasswordHash: mustHash(t, "123456"), TOTPSecretEnc: sealed})
	svc := NewService(accounts, crypto)

	_, err = svc.Authenticate(context.Background(), Credentials{Identifier: "admin", Secret: "123456"})
	assert.ErrorIs(t, err, ErrCodeRequired)

	_, err = svc.Authenticate(context.Background(), Credentials{Identifier: "admin", Secret: "123456", Code: "000000x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)
	id, err := svc.Authenticate(context.Background(), Credentials{Identifier: "admin", Secret: "123456", Code: code})
	require.NoError(t, err)
	assert.Equal(t, "admin", id.Identifier)
}
