package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/provider-gateway/internal/audit"
)

// SaveAuditEvent сохраняет событие аудита. Детали хранятся в JSONB.
func (s *Storage) SaveAuditEvent(ctx context.Context, e audit.Event) error {
	const op = "storage.SaveAuditEvent"

	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO audit_events (id, kind, severity, details, created_at)
			  VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.DB.ExecContext(ctx, query,
		e.ID, string(e.Kind), string(e.Severity), string(details), e.Timestamp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListAuditEvents возвращает последние события указанного типа, новые первыми.
// Пустой kind означает все типы.
func (s *Storage) ListAuditEvents(ctx context.Context, kind audit.Kind, limit int) ([]audit.Event, error) {
	const op = "storage.ListAuditEvents"

	query := `SELECT id, kind, severity, details, created_at
			  FROM audit_events
			  WHERE $1 = '' OR kind = $1
			  ORDER BY created_at DESC
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var res []audit.Event
	for rows.Next() {
		var (
			e                   audit.Event
			eventKind, severity string
			details             []byte
		)
		if err := rows.Scan(&e.ID, &eventKind, &severity, &details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		e.Kind = audit.Kind(eventKind)
		e.Severity = audit.Severity(severity)
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}
