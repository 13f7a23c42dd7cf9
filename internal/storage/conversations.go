package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/common"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
)

// SaveConversation creates a conversation. Saving an existing id is a no-op.
func (s *SQLiteStorage) SaveConversation(ctx context.Context, conv *model.Conversation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("%w: conversation", ErrNilParameter)
	}
	if err := validateString(conv.ID, "conversation id"); err != nil {
		return err
	}
	if err := validateString(conv.UserID, "user id"); err != nil {
		return err
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, conv.ID, conv.UserID, conv.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation by id.
func (s *SQLiteStorage) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "conversation id"); err != nil {
		return nil, err
	}

	var conv model.Conversation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, created_at FROM conversations WHERE id = ?
	`, id).Scan(&conv.ID, &conv.UserID, &conv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

// DeleteConversation removes a conversation. Its files, fragments and alerts are
// removed with it.
func (s *SQLiteStorage) DeleteConversation(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "conversation id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return requireAffected(result, "conversation", id)
}

// SaveFile records an uploaded file. A file attached to a conversation must belong to
// the conversation's user.
func (s *SQLiteStorage) SaveFile(ctx context.Context, file *model.File) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateFile(file); err != nil {
		return err
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}

	summary, err := encodeSummary(file.TemporalSummary)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if file.ConversationID != nil {
			var owner string
			err := tx.QueryRowContext(ctx, `SELECT user_id FROM conversations WHERE id = ?`, *file.ConversationID).Scan(&owner)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("conversation %s: %w", *file.ConversationID, common.ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("failed to check conversation: %w", err)
			}
			if owner != file.UserID {
				return fmt.Errorf("%w: %s", ErrConversationUser, *file.ConversationID)
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO files (id, user_id, conversation_id, file_name, temporal_summary, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, file.ID, file.UserID, file.ConversationID, file.FileName, summary, file.CreatedAt.UTC())
		if isConstraintViolation(err) {
			return fmt.Errorf("file %s: %w", file.ID, common.ErrDuplicateEntry)
		}
		if err != nil {
			return fmt.Errorf("failed to save file: %w", err)
		}
		return nil
	})
}

// GetFile retrieves a file by id.
func (s *SQLiteStorage) GetFile(ctx context.Context, id string) (*model.File, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "file id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, conversation_id, file_name, temporal_summary, created_at
		FROM files WHERE id = ?
	`, id)
	file, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

// ListConversationFiles returns the files of a conversation in upload order.
func (s *SQLiteStorage) ListConversationFiles(ctx context.Context, conversationID string) ([]model.File, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(conversationID, "conversation id"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, conversation_id, file_name, temporal_summary, created_at
		FROM files
		WHERE conversation_id = ?
		ORDER BY created_at, rowid
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []model.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate files: %w", err)
	}
	return files, nil
}

// UpdateFileTemporalSummary replaces the temporal summary of a file.
func (s *SQLiteStorage) UpdateFileTemporalSummary(ctx context.Context, fileID string, summary *model.FileTemporalSummary) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(fileID, "file id"); err != nil {
		return err
	}

	encoded, err := encodeSummary(summary)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE files SET temporal_summary = ? WHERE id = ?`, encoded, fileID)
	if err != nil {
		return fmt.Errorf("failed to update temporal summary: %w", err)
	}
	return requireAffected(result, "file", fileID)
}

// DeleteFile removes a file with its fragments and alerts.
func (s *SQLiteStorage) DeleteFile(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "file id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return requireAffected(result, "file", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*model.File, error) {
	var (
		file           model.File
		conversationID sql.NullString
		summary        sql.NullString
	)
	if err := row.Scan(&file.ID, &file.UserID, &conversationID, &file.FileName, &summary, &file.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan file: %w", err)
	}
	if conversationID.Valid {
		file.ConversationID = &conversationID.String
	}
	if summary.Valid && summary.String != "" {
		var decoded model.FileTemporalSummary
		if err := json.Unmarshal([]byte(summary.String), &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode temporal summary of file %s: %w", file.ID, err)
		}
		file.TemporalSummary = &decoded
	}
	return &file, nil
}

func encodeSummary(summary *model.FileTemporalSummary) (sql.NullString, error) {
	if summary == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode temporal summary: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func requireAffected(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, common.ErrNotFound)
	}
	return nil
}
