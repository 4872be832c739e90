package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ActionLoginSucceeded = "auth.login.succeeded"
	ActionLoginFailed    = "auth.login.failed"
	ActionLogout         = "auth.logout"
	ActionAccessDenied   = "access.denied"
	ActionSessionRefresh = "auth.session.refreshed"
	ActionTOTPEnabled    = "auth.totp.enabled"
	ActionTOTPDisabled   = "auth.totp.disabled"
)

type Event struct {
	ID        string          `json:"id"`
	Actor     string          `json:"actor"`
	Action    string          `json:"action"`
	Path      string          `json:"path"`
	Outcome   string          `json:"outcome"`
	RequestID string          `json:"requestId"`
	IP        string          `json:"ip"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

type Filter struct {
	Action string
	Actor  string
}

// Recorder is what request handlers need; failures are the caller's to log.
type Recorder interface {
	Record(ctx context.Context, evt Event, detail any) error
}

type Service struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Service {
	return &Service{DB: db}
}

func (s *Service) Record(ctx context.Context, evt Event, detail any) error {
	var detailJSON []byte
	if detail != nil {
		payload, err := json.Marshal(detail)
		if err != nil {
			return err
		}
		detailJSON = payload
	}

	_, err := s.DB.Exec(ctx, `
    INSERT INTO audit_events (actor, action, path, outcome, request_id, ip, detail_json)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
  `, evt.Actor, evt.Action, evt.Path, evt.Outcome, evt.RequestID, evt.IP, detailJSON)
	return err
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error) {
	query, args := buildListQuery(filter)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.Actor, &evt.Action, &evt.Path, &evt.Outcome, &evt.RequestID, &evt.IP, &evt.Detail, &evt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func buildListQuery(filter Filter) (string, []any) {
	query := "SELECT id, actor, action, path, outcome, request_id, ip, detail_json, created_at FROM audit_events WHERE 1=1"
	var args []any
	if filter.Action != "" {
		args = append(args, filter.Action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filter.Actor != "" {
		args = append(args, filter.Actor)
		query += fmt.Sprintf(" AND actor = $%d", len(args))
	}
	return query, args
}
