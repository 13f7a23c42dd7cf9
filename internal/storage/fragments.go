package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
)

// SaveFragments stores the fragments of a file in input order, replacing any fragments
// previously stored for it. Fragments are stamped with fileID.
func (s *SQLiteStorage) SaveFragments(ctx context.Context, fileID string, fragments []model.Fragment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(fileID, "file id"); err != nil {
		return err
	}
	if err := validateFragments(fragments); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM fragments WHERE file_id = ?`, fileID); err != nil {
			return fmt.Errorf("failed to clear fragments: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO fragments (
				file_id, id, seq, content, source_kind, file_name, sheet_name, cell_ref,
				page_number, extracted_date, numeric_value, metric_key, record_id, role
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i := range fragments {
			f := &fragments[i]
			kind, pos := model.FlattenPosition(f.Position)

			var date sql.NullString
			if f.ExtractedDate != nil {
				date = sql.NullString{String: f.ExtractedDate.Format(model.DateLayout), Valid: true}
			}

			_, err := stmt.ExecContext(ctx,
				fileID, f.ID, i, f.Content, kind, pos.FileName,
				nullString(pos.SheetName), nullString(pos.CellRef), nullInt(pos.PageNumber),
				date, f.NumericValue, nullString(f.MetricKey), nullString(f.RecordID), nullString(string(f.Role)),
			)
			if err != nil {
				return fmt.Errorf("failed to insert fragment %s: %w", f.ID, err)
			}
		}
		return nil
	})
}

// GetFragmentsByFile returns the fragments of a file in the order they were saved.
func (s *SQLiteStorage) GetFragmentsByFile(ctx context.Context, fileID string) ([]model.Fragment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(fileID, "file id"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, source_kind, file_name, sheet_name, cell_ref, page_number,
			extracted_date, numeric_value, metric_key, record_id, role
		FROM fragments
		WHERE file_id = ?
		ORDER BY seq
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fragments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fragments []model.Fragment
	for rows.Next() {
		var (
			f                                       model.Fragment
			kind                                    model.SourceKind
			pos                                     model.PositionRecord
			sheet, cell, date, metric, record, role sql.NullString
			page                                    sql.NullInt64
			value                                   sql.NullFloat64
		)
		if err := rows.Scan(&f.ID, &f.Content, &kind, &pos.FileName, &sheet, &cell, &page,
			&date, &value, &metric, &record, &role); err != nil {
			return nil, fmt.Errorf("failed to scan fragment: %w", err)
		}

		pos.SheetName = sheet.String
		pos.CellRef = cell.String
		pos.PageNumber = int(page.Int64)
		f.Position, err = model.BuildPosition(kind, pos)
		if err != nil {
			return nil, fmt.Errorf("fragment %s: %w", f.ID, err)
		}

		f.FileID = fileID
		f.MetricKey = metric.String
		f.RecordID = record.String
		f.Role = model.FieldRole(role.String)
		if value.Valid {
			f.NumericValue = model.Float(value.Float64)
		}
		if date.Valid {
			d, err := time.Parse(model.DateLayout, date.String)
			if err != nil {
				return nil, fmt.Errorf("fragment %s: invalid extracted date: %w", f.ID, err)
			}
			f.ExtractedDate = &d
		}

		fragments = append(fragments, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fragments: %w", err)
	}
	return fragments, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}
