package session

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	DB *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO sessions (id_hash, identifier, expires_at)
    VALUES ($1,$2,$3)
  `, rec.ID, rec.Identifier, rec.ExpiresAt)
	return err
}

func (s *PostgresStore) Active(ctx context.Context, id string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM sessions
    WHERE id_hash = $1 AND expires_at > now() AND revoked_at IS NULL
  `, id).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *PostgresStore) Revoke(ctx context.Context, id string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE id_hash = $1 AND revoked_at IS NULL", id)
	return err
}

// Purge deletes records that expired or were revoked before cutoff.
func (s *PostgresStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM sessions
    WHERE expires_at < $1 OR (revoked_at IS NOT NULL AND revoked_at < $1)
  `, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
