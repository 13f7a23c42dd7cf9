package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire layout of calendar dates.
const DateLayout = "2006-01-02"

// ErrInvalidFragment is returned when a fragment violates its invariants.
var ErrInvalidFragment = errors.New("invalid fragment")

// PositionRecord is the flat wire/storage form of a Position.
type PositionRecord struct {
	FileName   string `json:"file_name"`
	SheetName  string `json:"sheet_name,omitempty"`
	CellRef    string `json:"cell_ref,omitempty"`
	PageNumber int    `json:"page_number,omitempty"`
}

type fragmentWire struct {
	ExtractedDate *string        `json:"extracted_date,omitempty"`
	NumericValue  *float64       `json:"numeric_value,omitempty"`
	ID            string         `json:"id"`
	FileID        string         `json:"file_id,omitempty"`
	Content       string         `json:"content"`
	SourceKind    SourceKind     `json:"source_kind"`
	MetricKey     string         `json:"metric_key,omitempty"`
	RecordID      string         `json:"record_id,omitempty"`
	Role          FieldRole      `json:"role,omitempty"`
	Position      PositionRecord `json:"position"`
}

// FlattenPosition converts a Position into its flat record form.
func FlattenPosition(p Position) (SourceKind, PositionRecord) {
	switch v := p.(type) {
	case SpreadsheetCell:
		return SourceSpreadsheetCell, PositionRecord{FileName: v.FileName, SheetName: v.SheetName, CellRef: v.CellRef}
	case PDFPage:
		return SourcePDFPage, PositionRecord{FileName: v.FileName, PageNumber: v.PageNumber}
	}
	return "", PositionRecord{}
}

// BuildPosition converts a flat record back into the Position variant for kind.
func BuildPosition(kind SourceKind, r PositionRecord) (Position, error) {
	switch kind {
	case SourceSpreadsheetCell:
		return SpreadsheetCell{FileName: r.FileName, SheetName: r.SheetName, CellRef: r.CellRef}, nil
	case SourcePDFPage:
		return PDFPage{FileName: r.FileName, PageNumber: r.PageNumber}, nil
	}
	return nil, fmt.Errorf("%w: unknown source kind %q", ErrInvalidFragment, kind)
}

// MarshalJSON encodes the fragment with a flat position and ISO calendar date.
func (f Fragment) MarshalJSON() ([]byte, error) {
	kind, pos := FlattenPosition(f.Position)
	w := fragmentWire{
		ID:           f.ID,
		FileID:       f.FileID,
		Content:      f.Content,
		SourceKind:   kind,
		Position:     pos,
		MetricKey:    f.MetricKey,
		NumericValue: f.NumericValue,
		RecordID:     f.RecordID,
		Role:         f.Role,
	}
	if f.ExtractedDate != nil {
		s := f.ExtractedDate.Format(DateLayout)
		w.ExtractedDate = &s
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (f *Fragment) UnmarshalJSON(data []byte) error {
	var w fragmentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	pos, err := BuildPosition(w.SourceKind, w.Position)
	if err != nil {
		return err
	}

	*f = Fragment{
		ID:           w.ID,
		FileID:       w.FileID,
		Content:      w.Content,
		Position:     pos,
		MetricKey:    w.MetricKey,
		NumericValue: w.NumericValue,
		RecordID:     w.RecordID,
		Role:         w.Role,
	}
	if w.ExtractedDate != nil {
		d, err := time.Parse(DateLayout, *w.ExtractedDate)
		if err != nil {
			return fmt.Errorf("%w: extracted_date: %v", ErrInvalidFragment, err)
		}
		f.ExtractedDate = &d
	}
	return nil
}

// Validate checks the persisted-fragment invariants.
func (f *Fragment) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidFragment)
	}
	if f.Content == "" {
		return fmt.Errorf("%w %s: missing content", ErrInvalidFragment, f.ID)
	}
	if f.Position == nil {
		return fmt.Errorf("%w %s: missing position", ErrInvalidFragment, f.ID)
	}
	if missing := f.Position.Complete(); missing != "" {
		return fmt.Errorf("%w %s: position missing %s", ErrInvalidFragment, f.ID, missing)
	}
	if !f.Role.Valid() {
		return fmt.Errorf("%w %s: unknown role %q", ErrInvalidFragment, f.ID, f.Role)
	}
	return nil
}
