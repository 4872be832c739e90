package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rhportal/internal/domain/access"
)

var ErrNotFound = errors.New("account not found")

type Account struct {
	ID            string
	Identifier    string
	DisplayName   string
	Rank          access.Rank
	PasswordHash  string
	Status        string
	TOTPSecretEnc []byte
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) FindActive(ctx context.Context, identifier string) (Account, error) {
	var out Account
	var rank int
	err := s.DB.QueryRow(ctx, `
    SELECT id, identifier, display_name, rank, password_hash, status, totp_secret_enc
    FROM accounts
    WHERE lower(identifier) = lower($1) AND status = $2
  `, identifier, StatusActive).Scan(&out.ID, &out.Identifier, &out.DisplayName, &rank, &out.PasswordHash, &out.Status, &out.TOTPSecretEnc)
	if err != nil {
		return Account{}, err
	}
	out.Rank = access.RankOf(rank)
	return out, nil
}

func (s *Store) TouchLogin(ctx context.Context, id string) error {
	_, err := s.DB.Exec(ctx, "UPDATE accounts SET last_login = now() WHERE id = $1", id)
	return err
}

// Upsert creates or refreshes an account by identifier. The password hash is
// replaced only for new accounts.
func (s *Store) Upsert(ctx context.Context, acct Account) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO accounts (identifier, display_name, rank, password_hash, status)
    VALUES (lower($1),$2,$3,$4,$5)
    ON CONFLICT (identifier) DO UPDATE
      SET display_name = EXCLUDED.display_name, rank = EXCLUDED.rank
    RETURNING id
  `, acct.Identifier, acct.DisplayName, int(acct.Rank), acct.PasswordHash, acct.Status).Scan(&id)
	return id, err
}

// SecondFactor returns the sealed active and pending TOTP secrets. Either may be nil.
func (s *Store) SecondFactor(ctx context.Context, identifier string) (active, pending []byte, err error) {
	err = s.DB.QueryRow(ctx, `
    SELECT totp_secret_enc, totp_pending_enc
    FROM accounts
    WHERE identifier = lower($1) AND status = $2
  `, identifier, StatusActive).Scan(&active, &pending)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	return active, pending, err
}

func (s *Store) SetPendingTOTP(ctx context.Context, identifier string, sealed []byte) error {
	return s.execOne(ctx, "UPDATE accounts SET totp_pending_enc = $1 WHERE identifier = lower($2)", sealed, identifier)
}

// ActivateTOTP promotes the pending secret, after which login asks for a code.
func (s *Store) ActivateTOTP(ctx context.Context, identifier string) error {
	return s.execOne(ctx, `
    UPDATE accounts SET totp_secret_enc = totp_pending_enc, totp_pending_enc = NULL
    WHERE identifier = lower($1) AND totp_pending_enc IS NOT NULL
  `, identifier)
}

func (s *Store) ClearTOTP(ctx context.Context, identifier string) error {
	return s.execOne(ctx, "UPDATE accounts SET totp_secret_enc = NULL, totp_pending_enc = NULL WHERE identifier = lower($1)", identifier)
}

func (s *Store) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := s.DB.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
