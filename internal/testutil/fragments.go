package testutil

import (
	"time"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
)

// CellBuilder builds spreadsheet fragments.
//
// Example:
//
//	f := testutil.Cell("f1", "C12").Sheet("Ventes").Metric("stock").Value(-42).Build()
type CellBuilder struct {
	f    model.Fragment
	cell model.SpreadsheetCell
}

// Cell starts a spreadsheet fragment in stock.xlsx, sheet "Feuil1".
func Cell(id, ref string) *CellBuilder {
	return &CellBuilder{
		f:    model.Fragment{ID: id, Content: "cellule " + ref},
		cell: model.SpreadsheetCell{FileName: "stock.xlsx", SheetName: "Feuil1", CellRef: ref},
	}
}

// File sets the file name.
func (b *CellBuilder) File(name string) *CellBuilder {
	b.cell.FileName = name
	return b
}

// Sheet sets the sheet name.
func (b *CellBuilder) Sheet(name string) *CellBuilder {
	b.cell.SheetName = name
	return b
}

// Content sets the text content.
func (b *CellBuilder) Content(content string) *CellBuilder {
	b.f.Content = content
	return b
}

// Metric sets the metric key.
func (b *CellBuilder) Metric(key string) *CellBuilder {
	b.f.MetricKey = key
	return b
}

// Value sets the numeric value.
func (b *CellBuilder) Value(v float64) *CellBuilder {
	b.f.NumericValue = model.Float(v)
	return b
}

// On sets the extracted date.
func (b *CellBuilder) On(year int, month time.Month, day int) *CellBuilder {
	b.f.ExtractedDate = model.DatePtr(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
	return b
}

// Record sets the ingestion pairing hints.
func (b *CellBuilder) Record(recordID string, role model.FieldRole) *CellBuilder {
	b.f.RecordID = recordID
	b.f.Role = role
	return b
}

// Build returns the fragment.
func (b *CellBuilder) Build() model.Fragment {
	f := b.f
	f.Position = b.cell
	return f
}

// Page builds a PDF page fragment.
func Page(id, fileName string, page int, content string) model.Fragment {
	return model.Fragment{
		ID:       id,
		Content:  content,
		Position: model.PDFPage{FileName: fileName, PageNumber: page},
	}
}
