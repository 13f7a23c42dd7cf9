package prompt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/citation"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/temporal"
)

var today = time.Date(2026, time.January, 5, 14, 30, 0, 0, time.UTC)

func salesFragment(id string, month time.Month, year int, value float64, content string) model.Fragment {
	return model.Fragment{
		ID:            id,
		FileID:        "file-sales",
		Content:       content,
		Position:      model.SpreadsheetCell{FileName: "sales.xlsx", SheetName: "Ventes", CellRef: "C12"},
		ExtractedDate: model.DatePtr(time.Date(year, month, 15, 0, 0, 0, 0, time.UTC)),
		MetricKey:     "ventes_unites",
		NumericValue:  model.Float(value),
	}
}

func pdfFragment(id string, page int) model.Fragment {
	return model.Fragment{
		ID:       id,
		FileID:   "file-report",
		Content:  "Synthèse page " + id,
		Position: model.PDFPage{FileName: "rapport.pdf", PageNumber: page},
	}
}

func TestAssemble_NoRetrievalResults(t *testing.T) {
	pc, err := NewAssembler(nil).Assemble(Request{Now: today, Query: "Quelle est la capitale de la France ?"})
	require.NoError(t, err)

	require.Len(t, pc.Blocks, 2)
	assert.Equal(t, Block{Kind: BlockCurrentDate, Text: "DATE ACTUELLE: 05 janvier 2026"}, pc.Blocks[0])
	assert.Equal(t, Block{Kind: BlockInstruction, Text: InstructionText}, pc.Blocks[1])
	assert.Empty(t, pc.Texts(BlockCitation))
	assert.False(t, pc.Degraded)
}

func TestAssemble_CitationsKeepRankOrder(t *testing.T) {
	retrieved := []model.Fragment{
		pdfFragment("p3", 3),
		salesFragment("dec", time.December, 2025, 150, "150 unités"),
		salesFragment("nov", time.November, 2025, 120, "120 unités"),
	}

	pc, err := NewAssembler(nil).Assemble(Request{Now: today, Retrieved: retrieved})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Selon la page 3 du fichier rapport.pdf: Synthèse page p3",
		"Selon la cellule C12 (feuille 'Ventes', fichier sales.xlsx, date: 15 décembre 2025): 150 unités (+25% vs période précédente)",
		"Selon la cellule C12 (feuille 'Ventes', fichier sales.xlsx, date: 15 novembre 2025): 120 unités",
	}, pc.Texts(BlockCitation))

	assert.Equal(t, BlockCurrentDate, pc.Blocks[0].Kind)
	assert.Equal(t, BlockInstruction, pc.Blocks[len(pc.Blocks)-1].Kind)
}

func TestAssemble_TrendsOnlyFromRetrievedSet(t *testing.T) {
	// The November peer was not retrieved this time, so December has no trend.
	retrieved := []model.Fragment{salesFragment("dec", time.December, 2025, 150, "150 unités")}

	pc, err := NewAssembler(nil).Assemble(Request{Now: today, Retrieved: retrieved})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Selon la cellule C12 (feuille 'Ventes', fichier sales.xlsx, date: 15 décembre 2025): 150 unités",
	}, pc.Texts(BlockCitation))
}

func TestAssemble_SameIDInTwoFiles(t *testing.T) {
	// Fragment IDs are per file; b.xlsx's r2 must not borrow a.xlsx's r2 trend.
	nov := salesFragment("r1", time.November, 2025, 100, "100 unités")
	dec := salesFragment("r2", time.December, 2025, 150, "150 unités")
	other := model.Fragment{
		ID:       "r2",
		FileID:   "file-b",
		Content:  "stock B",
		Position: model.SpreadsheetCell{FileName: "b.xlsx", SheetName: "Feuil1", CellRef: "C2"},
	}

	pc, err := NewAssembler(nil).Assemble(Request{Now: today, Retrieved: []model.Fragment{dec, other, nov}})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Selon la cellule C12 (feuille 'Ventes', fichier sales.xlsx, date: 15 décembre 2025): 150 unités (+50% vs période précédente)",
		"Selon la cellule C2 (feuille 'Feuil1', fichier b.xlsx): stock B",
		"Selon la cellule C12 (feuille 'Ventes', fichier sales.xlsx, date: 15 novembre 2025): 100 unités",
	}, pc.Texts(BlockCitation))
}

func TestAssemble_Alerts(t *testing.T) {
	alerts := []model.Alert{
		{FileID: "file-a", Severity: model.SeverityInfo, Message: "délai atypique: 80 jours"},
		{FileID: "file-other", Severity: model.SeverityCritical, Message: "stock négatif détecté: -1"},
		{FileID: "file-a", Severity: model.SeverityCritical, Message: "stock négatif détecté: -42 (cellule C12, feuille Ventes)"},
		{FileID: "file-b", Severity: model.SeverityWarning, Message: "quantité négative détectée: -5"},
	}

	pc, err := NewAssembler(nil).Assemble(Request{
		Now:                 today,
		Alerts:              alerts,
		ConversationFileIDs: []string{"file-a", "file-b"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"ALERTE (critical): stock négatif détecté: -42 (cellule C12, feuille Ventes)",
		"ALERTE (warning): quantité négative détectée: -5",
		"ALERTE (info): délai atypique: 80 jours",
	}, pc.Texts(BlockAlert))

	kinds := make([]BlockKind, len(pc.Blocks))
	for i, b := range pc.Blocks {
		kinds[i] = b.Kind
	}
	assert.Equal(t, []BlockKind{BlockCurrentDate, BlockAlert, BlockAlert, BlockAlert, BlockInstruction}, kinds)
}

func TestAssemble_NoConversationFilesMeansNoAlerts(t *testing.T) {
	pc, err := NewAssembler(nil).Assemble(Request{
		Now:    today,
		Alerts: []model.Alert{{FileID: "file-a", Severity: model.SeverityCritical, Message: "x"}},
	})
	require.NoError(t, err)
	assert.Empty(t, pc.Texts(BlockAlert))
}

func TestAssemble_IncompletePositionFails(t *testing.T) {
	bad := model.Fragment{ID: "bad", Content: "x", Position: model.SpreadsheetCell{FileName: "a.xlsx", CellRef: "A1"}}

	_, err := NewAssembler(nil).Assemble(Request{Now: today, Retrieved: []model.Fragment{bad}})
	require.Error(t, err)
	assert.ErrorIs(t, err, citation.ErrIncompletePosition)
}

func TestAssemble_CustomFlatBand(t *testing.T) {
	retrieved := []model.Fragment{
		salesFragment("dec", time.December, 2025, 105, "105 unités"),
		salesFragment("nov", time.November, 2025, 100, "100 unités"),
	}
	wide := NewAssembler(temporal.NewEngine(temporal.Config{FlatBandPct: 10}))

	pc, err := wide.Assemble(Request{Now: today, Retrieved: retrieved})
	require.NoError(t, err)
	assert.Equal(t,
		"Selon la cellule C12 (feuille 'Ventes', fichier sales.xlsx, date: 15 décembre 2025): 105 unités",
		pc.Texts(BlockCitation)[0])
}

func TestDegraded(t *testing.T) {
	pc := NewAssembler(nil).Degraded(today, "retrieval: timeout")

	assert.True(t, pc.Degraded)
	assert.Equal(t, []string{"retrieval: timeout"}, pc.DegradedReasons)
	assert.Equal(t, "DATE ACTUELLE: 05 janvier 2026\n"+InstructionText, pc.Render())
}
