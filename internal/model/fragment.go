package model

import (
	"time"
)

// SourceKind identifies the kind of document location a fragment was extracted from.
type SourceKind string

const (
	// SourceSpreadsheetCell is a single cell of a spreadsheet sheet.
	SourceSpreadsheetCell SourceKind = "spreadsheet_cell"
	// SourcePDFPage is a page of a PDF document.
	SourcePDFPage SourceKind = "pdf_page"
)

// Valid reports whether k is one of the known source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceSpreadsheetCell, SourcePDFPage:
		return true
	default:
		return false
	}
}

// Position locates a fragment inside its source document.
// The set of implementations is closed: SpreadsheetCell and PDFPage.
type Position interface {
	// Kind returns the source kind this position belongs to.
	Kind() SourceKind
	// Complete reports the first missing field, or "" if the position is fully populated.
	Complete() string
	isPosition()
}

// SpreadsheetCell locates a fragment in a spreadsheet.
type SpreadsheetCell struct {
	FileName  string `json:"file_name"`
	SheetName string `json:"sheet_name"`
	CellRef   string `json:"cell_ref"`
}

// Kind implements Position.
func (SpreadsheetCell) Kind() SourceKind { return SourceSpreadsheetCell }

// Complete implements Position.
func (c SpreadsheetCell) Complete() string {
	switch {
	case c.FileName == "":
		return "file_name"
	case c.SheetName == "":
		return "sheet_name"
	case c.CellRef == "":
		return "cell_ref"
	}
	return ""
}

func (SpreadsheetCell) isPosition() {}

// PDFPage locates a fragment on a PDF page.
type PDFPage struct {
	FileName   string `json:"file_name"`
	PageNumber int    `json:"page_number"`
}

// Kind implements Position.
func (PDFPage) Kind() SourceKind { return SourcePDFPage }

// Complete implements Position.
func (p PDFPage) Complete() string {
	switch {
	case p.FileName == "":
		return "file_name"
	case p.PageNumber <= 0:
		return "page_number"
	}
	return ""
}

func (PDFPage) isPosition() {}

// FieldRole is an ingestion hint describing what a tabular fragment measures.
type FieldRole string

const (
	// RoleNone means ingestion did not label the field.
	RoleNone FieldRole = ""
	// RoleStock is an on-hand stock or inventory level.
	RoleStock FieldRole = "stock"
	// RoleQuantity is an ordered or shipped quantity.
	RoleQuantity FieldRole = "quantity"
	// RoleLeadTime is a computed lead time in days.
	RoleLeadTime FieldRole = "lead_time"
	// RoleOrderDate is the order date of a record.
	RoleOrderDate FieldRole = "order_date"
	// RoleShipDate is the ship date of a record.
	RoleShipDate FieldRole = "ship_date"
	// RoleDeliveryDate is the delivery date of a record.
	RoleDeliveryDate FieldRole = "delivery_date"
	// RoleStartDate is the start date of a record.
	RoleStartDate FieldRole = "start_date"
	// RoleEndDate is the end date of a record.
	RoleEndDate FieldRole = "end_date"
)

// Valid reports whether r is a known role (RoleNone included).
func (r FieldRole) Valid() bool {
	switch r {
	case RoleNone, RoleStock, RoleQuantity, RoleLeadTime,
		RoleOrderDate, RoleShipDate, RoleDeliveryDate, RoleStartDate, RoleEndDate:
		return true
	default:
		return false
	}
}

// Fragment is an immutable unit of retrievable document content.
type Fragment struct {
	Position      Position
	ExtractedDate *time.Time
	NumericValue  *float64
	ID            string
	FileID        string
	Content       string
	MetricKey     string
	// RecordID groups fragments that belong to the same logical record (same row of an order table).
	RecordID string
	Role     FieldRole
}

// SourceKind returns the kind of the fragment's position, or "" when it has none.
func (f *Fragment) SourceKind() SourceKind {
	if f.Position == nil {
		return ""
	}
	return f.Position.Kind()
}

// FileName returns the name of the file the fragment comes from.
func (f *Fragment) FileName() string {
	switch p := f.Position.(type) {
	case SpreadsheetCell:
		return p.FileName
	case PDFPage:
		return p.FileName
	}
	return ""
}

// FragmentKey identifies a fragment across files. Fragment IDs are only unique
// within their file.
type FragmentKey struct {
	FileID string
	ID     string
}

// Key returns the fragment's cross-file identity. Fragments not yet stored fall
// back to their file name.
func (f *Fragment) Key() FragmentKey {
	file := f.FileID
	if file == "" {
		file = f.FileName()
	}
	return FragmentKey{FileID: file, ID: f.ID}
}

// HasTrendInputs reports whether the fragment can take part in trend computation.
func (f *Fragment) HasTrendInputs() bool {
	return f.MetricKey != "" && f.NumericValue != nil && f.ExtractedDate != nil
}

// Date truncates t to a calendar date in UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DatePtr returns a pointer to the calendar date of t.
func DatePtr(t time.Time) *time.Time {
	d := Date(t)
	return &d
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
