package citation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/temporal"
)

func salesCell(id string, date time.Time, value float64, content string) model.Fragment {
	return model.Fragment{
		ID:            id,
		Content:       content,
		Position:      model.SpreadsheetCell{FileName: "sales.xlsx", SheetName: "Ventes", CellRef: "C12"},
		ExtractedDate: model.DatePtr(date),
		MetricKey:     "ventes_unites",
		NumericValue:  model.Float(value),
	}
}

func TestFormat_SpreadsheetWithTrend(t *testing.T) {
	previous := salesCell("nov", time.Date(2025, time.November, 15, 0, 0, 0, 0, time.UTC), 120, "120 unités")
	current := salesCell("dec", time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC), 150, "150 unités")

	contexts := temporal.NewEngine(temporal.DefaultConfig()).Compute([]model.Fragment{current, previous})
	tc, ok := contexts[current.Key()]
	require.True(t, ok)

	got, err := Format(&current, &tc)
	require.NoError(t, err)
	assert.Equal(t,
		"Selon la cellule C12 (feuille 'Ventes', fichier sales.xlsx, date: 15 décembre 2025): 150 unités (+25% vs période précédente)",
		got)
}

func TestFormat_SpreadsheetTrendClause(t *testing.T) {
	f := salesCell("f", time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC), 80, "80 unités")
	prefix := "Selon la cellule C12 (feuille 'Ventes', fichier sales.xlsx, date: 03 février 2026): 80 unités"

	tests := []struct {
		name string
		tc   *model.TemporalContext
		want string
	}{
		{
			name: "no context",
			want: prefix,
		},
		{
			name: "down",
			tc:   &model.TemporalContext{DeltaPct: model.Float(-33.333333), Direction: model.DirectionDown},
			want: prefix + " (-33.3% vs période précédente)",
		},
		{
			name: "up with decimals",
			tc:   &model.TemporalContext{DeltaPct: model.Float(12.25), Direction: model.DirectionUp},
			want: prefix + " (+12.3% vs période précédente)",
		},
		{
			name: "flat drops the clause",
			tc:   &model.TemporalContext{DeltaPct: model.Float(1.5), Direction: model.DirectionFlat},
			want: prefix,
		},
		{
			name: "null delta drops the clause",
			tc:   &model.TemporalContext{Direction: model.DirectionFlat, ReferenceFragmentID: "ref"},
			want: prefix,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(&f, tt.tc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_UndatedCell(t *testing.T) {
	f := model.Fragment{
		ID:       "stock",
		Content:  "Stock: -42",
		Position: model.SpreadsheetCell{FileName: "stocks.xlsx", SheetName: "Dépôt", CellRef: "B7"},
	}

	got, err := Format(&f, nil)
	require.NoError(t, err)
	assert.Equal(t, "Selon la cellule B7 (feuille 'Dépôt', fichier stocks.xlsx): Stock: -42", got)
}

func TestFormat_PDFPage(t *testing.T) {
	f := model.Fragment{
		ID:       "p3",
		Content:  "Les délais fournisseurs ont augmenté au T3.",
		Position: model.PDFPage{FileName: "rapport.pdf", PageNumber: 3},
	}

	got, err := Format(&f, nil)
	require.NoError(t, err)
	assert.Equal(t, "Selon la page 3 du fichier rapport.pdf: Les délais fournisseurs ont augmenté au T3.", got)

	// Dates and trends never reach a PDF citation.
	f.ExtractedDate = model.DatePtr(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	got, err = Format(&f, &model.TemporalContext{DeltaPct: model.Float(40), Direction: model.DirectionUp})
	require.NoError(t, err)
	assert.Equal(t, "Selon la page 3 du fichier rapport.pdf: Les délais fournisseurs ont augmenté au T3.", got)
}

func TestFormat_IncompletePosition(t *testing.T) {
	tests := []struct {
		name    string
		pos     model.Position
		kind    model.SourceKind
		missing string
	}{
		{name: "no position", pos: nil, kind: "", missing: "position"},
		{name: "cell without sheet", pos: model.SpreadsheetCell{FileName: "a.xlsx", CellRef: "A1"}, kind: model.SourceSpreadsheetCell, missing: "sheet_name"},
		{name: "cell without ref", pos: model.SpreadsheetCell{FileName: "a.xlsx", SheetName: "S"}, kind: model.SourceSpreadsheetCell, missing: "cell_ref"},
		{name: "cell without file", pos: model.SpreadsheetCell{SheetName: "S", CellRef: "A1"}, kind: model.SourceSpreadsheetCell, missing: "file_name"},
		{name: "page zero", pos: model.PDFPage{FileName: "r.pdf"}, kind: model.SourcePDFPage, missing: "page_number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := model.Fragment{ID: "bad", Content: "x", Position: tt.pos}

			got, err := Format(&f, nil)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.True(t, errors.Is(err, ErrIncompletePosition))

			var fe *FormatError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, "bad", fe.FragmentID)
			assert.Equal(t, tt.kind, fe.SourceKind)
			assert.Equal(t, tt.missing, fe.Missing)
		})
	}
}

func TestFormatAll(t *testing.T) {
	fragments := []model.Fragment{
		{ID: "b", Content: "B", Position: model.PDFPage{FileName: "r.pdf", PageNumber: 2}},
		{ID: "a", Content: "A", Position: model.PDFPage{FileName: "r.pdf", PageNumber: 1}},
	}

	got, err := FormatAll(fragments, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Selon la page 2 du fichier r.pdf: B",
		"Selon la page 1 du fichier r.pdf: A",
	}, got)

	fragments = append(fragments, model.Fragment{ID: "c", Position: model.PDFPage{FileName: "r.pdf"}})
	_, err = FormatAll(fragments, nil)
	assert.ErrorIs(t, err, ErrIncompletePosition)
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "25", FormatPercent(25.0))
	assert.Equal(t, "12.3", FormatPercent(12.345))
	assert.Equal(t, "0.5", FormatPercent(0.46))
	assert.Equal(t, "0", FormatPercent(-0.01))
	assert.Equal(t, "100", FormatPercent(99.96))
}
