package postgres

import (
	"context"

	"github.com/higher-endeavors/endeavors/internal/app/domain/audit"
)

func (s *Store) AppendAudit(ctx context.Context, e audit.Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_log (created_at, user_id, role, method, path, status, request_id, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.Time, e.UserID, e.Role, e.Method, e.Path, e.Status, e.RequestID, e.IP, e.UserAgent)
	return err
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]audit.Entry, error) {
	result := []audit.Entry{}
	err := s.pool.Select(ctx, &result, `
		SELECT id, created_at, user_id, role, method, path, status, request_id, ip, user_agent
		FROM audit_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, clampLimit(limit, 100, 1000))
	return result, err
}

// EventProcessed reports whether a payment webhook event was already handled.
func (s *Store) EventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.pool.Get(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM stripe_events WHERE event_id = $1)`, eventID)
	return exists, err
}

func (s *Store) RecordEvent(ctx context.Context, eventID, eventType string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO stripe_events (event_id, event_type) VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, eventType)
	return err
}
