package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/service"
)

const alertColumns = `id, user_id, file_id, conversation_id, alert_type, severity, message, value, source_metadata, created_at`

// severityOrder sorts critical first, then warning, then info.
const severityOrder = `CASE severity WHEN 'critical' THEN 0 WHEN 'warning' THEN 1 ELSE 2 END`

// AppendAlerts inserts alerts and returns how many rows were added. An alert whose
// fingerprint is already stored for the same file is skipped, so re-running detection
// over unchanged fragments adds nothing. Stored alerts are never modified.
func (s *SQLiteStorage) AppendAlerts(ctx context.Context, alerts []model.Alert) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if len(alerts) == 0 {
		return 0, nil
	}
	for i := range alerts {
		if err := validateAlert(&alerts[i]); err != nil {
			return 0, fmt.Errorf("alert at index %d: %w", i, err)
		}
	}

	inserted := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO alerts (`+alertColumns+`, fingerprint)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(file_id, fingerprint) DO NOTHING
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i := range alerts {
			a := &alerts[i]
			if a.CreatedAt.IsZero() {
				a.CreatedAt = time.Now().UTC()
			}
			metadata, err := json.Marshal(a.Metadata)
			if err != nil {
				return fmt.Errorf("failed to encode alert metadata: %w", err)
			}

			result, err := stmt.ExecContext(ctx,
				a.ID, a.UserID, a.FileID, a.ConversationID, a.Type, a.Severity,
				a.Message, a.Value, string(metadata), a.CreatedAt.UTC(), a.Fingerprint(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert alert %s: %w", a.ID, err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to check affected rows: %w", err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListAlertsByFile returns a file's alerts, most severe first and newest first within
// a severity.
func (s *SQLiteStorage) ListAlertsByFile(ctx context.Context, fileID string, filter service.AlertFilter) ([]model.Alert, error) {
	if err := validateString(fileID, "file id"); err != nil {
		return nil, err
	}
	return s.listAlerts(ctx, "file_id", fileID, filter)
}

// ListAlertsByConversation returns the alerts of every file in a conversation.
func (s *SQLiteStorage) ListAlertsByConversation(ctx context.Context, conversationID string, filter service.AlertFilter) ([]model.Alert, error) {
	if err := validateString(conversationID, "conversation id"); err != nil {
		return nil, err
	}
	return s.listAlerts(ctx, "conversation_id", conversationID, filter)
}

// ListAlertsByUser returns a user's alerts across all files.
func (s *SQLiteStorage) ListAlertsByUser(ctx context.Context, userID string, filter service.AlertFilter) ([]model.Alert, error) {
	if err := validateString(userID, "user id"); err != nil {
		return nil, err
	}
	return s.listAlerts(ctx, "user_id", userID, filter)
}

// listAlerts filters on column, which is always one of the fixed names above.
func (s *SQLiteStorage) listAlerts(ctx context.Context, column, value string, filter service.AlertFilter) ([]model.Alert, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateSeverityFilter(filter.Severity); err != nil {
		return nil, err
	}

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE ` + column + ` = ?`
	args := []any{value}
	if filter.Severity != "" {
		query += ` AND severity = ?`
		args = append(args, filter.Severity)
	}
	query += ` ORDER BY ` + severityOrder + `, created_at DESC, rowid`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var alerts []model.Alert
	for rows.Next() {
		var (
			a              model.Alert
			conversationID sql.NullString
			metadata       string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.FileID, &conversationID, &a.Type, &a.Severity,
			&a.Message, &a.Value, &metadata, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if conversationID.Valid {
			a.ConversationID = &conversationID.String
		}
		if err := json.Unmarshal([]byte(metadata), &a.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata of alert %s: %w", a.ID, err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, nil
}

// AlertStats counts a user's alerts by severity and type. Every severity and type is
// present in the result, zero when absent.
func (s *SQLiteStorage) AlertStats(ctx context.Context, userID string) (model.AlertStats, error) {
	stats := model.NewAlertStats()
	if err := validateContext(ctx); err != nil {
		return stats, err
	}
	if err := validateString(userID, "user id"); err != nil {
		return stats, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT severity, alert_type, COUNT(*)
		FROM alerts
		WHERE user_id = ?
		GROUP BY severity, alert_type
	`, userID)
	if err != nil {
		return stats, fmt.Errorf("failed to query alert stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			severity model.Severity
			typ      model.AlertType
			count    int
		)
		if err := rows.Scan(&severity, &typ, &count); err != nil {
			return stats, fmt.Errorf("failed to scan alert stats: %w", err)
		}
		stats.BySeverity[severity] += count
		stats.ByType[typ] += count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("failed to iterate alert stats: %w", err)
	}
	return stats, nil
}
