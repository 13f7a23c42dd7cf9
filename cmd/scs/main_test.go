package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/common"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/config"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/processing"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/retrieval"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/service"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/temporal"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/testutil"
)

const fragmentsJSON = `[
  {"content": "Stock disponible: -42", "source_kind": "spreadsheet_cell",
   "position": {"file_name": "stock.xlsx", "sheet_name": "Feuil1", "cell_ref": "C12"},
   "metric_key": "stock_disponible", "numeric_value": -42, "extracted_date": "2024-03-01"},
  {"id": "p1", "content": "Rapport trimestriel", "source_kind": "pdf_page",
   "position": {"file_name": "rapport.pdf", "page_number": 3}}
]`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(viper.New())
	require.NoError(t, err)
	return cfg
}

func TestDecodeFragments(t *testing.T) {
	fragments, err := decodeFragments(strings.NewReader(fragmentsJSON))
	require.NoError(t, err)
	require.Len(t, fragments, 2)

	assert.NotEmpty(t, fragments[0].ID)
	assert.Equal(t, "p1", fragments[1].ID)
	assert.Equal(t, model.SourceSpreadsheetCell, fragments[0].SourceKind())
	assert.Equal(t, model.PDFPage{FileName: "rapport.pdf", PageNumber: 3}, fragments[1].Position)
	require.NotNil(t, fragments[0].ExtractedDate)
	assert.Equal(t, "2024-03-01", fragments[0].ExtractedDate.Format(model.DateLayout))
}

func TestDecodeFragments_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "fragments"},
		{"unknown source kind", `[{"id": "x", "content": "c", "source_kind": "image", "position": {"file_name": "a"}}]`},
		{"bad date", `[{"id": "x", "content": "c", "source_kind": "pdf_page", "position": {"file_name": "a", "page_number": 1}, "extracted_date": "01/03/2024"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeFragments(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestParseDay(t *testing.T) {
	now := time.Date(2026, time.October, 19, 15, 4, 0, 0, time.UTC)

	got, err := parseDay("", now)
	require.NoError(t, err)
	assert.Equal(t, now, got)

	got, err = parseDay("2024-01-15", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), got)

	_, err = parseDay("15/01/2024", now)
	assert.Error(t, err)
}

func TestIngest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testConfig(t)
	proc, err := newProcessor(cfg, db.Storage)
	require.NoError(t, err)
	ctx := context.Background()

	fragments, err := decodeFragments(strings.NewReader(fragmentsJSON))
	require.NoError(t, err)

	res, err := ingest(ctx, db.Storage, proc, ingestOptions{UserID: "user-1", FileName: "stock.xlsx"}, fragments)
	require.NoError(t, err)
	assert.Equal(t, 2, res.FragmentCount)
	assert.Equal(t, 1, res.Inserted)

	file, err := db.Storage.GetFile(ctx, res.FileID)
	require.NoError(t, err)
	assert.Equal(t, "stock.xlsx", file.FileName)
	require.NotNil(t, file.ConversationID)

	conv, err := db.Storage.GetConversation(ctx, *file.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", conv.UserID)

	// A second file joins the existing conversation.
	second, err := ingest(ctx, db.Storage, proc, ingestOptions{UserID: "user-1", ConversationID: conv.ID}, nil)
	require.NoError(t, err)
	files, err := db.Storage.ListConversationFiles(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Equal(t, 0, second.Detected)
}

func TestIngest_RejectsForeignConversation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedConversation("conv-1", "user-1")
	proc, err := newProcessor(testConfig(t), db.Storage)
	require.NoError(t, err)

	_, err = ingest(context.Background(), db.Storage, proc, ingestOptions{UserID: "user-2", ConversationID: "conv-1"}, nil)
	require.Error(t, err)
	var userErr *common.UserError
	assert.ErrorAs(t, err, &userErr)

	_, err = ingest(context.Background(), db.Storage, proc, ingestOptions{}, nil)
	assert.ErrorAs(t, err, &userErr)
}

func TestListAlerts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedConversation("conv-1", "user-1")
	db.SeedFile("conv-1", "file-1",
		testutil.Cell("f1", "C12").Metric("stock").Value(-5).Build(),
		testutil.Cell("f2", "D12").Metric("qty").Value(-1).Build(),
	)
	proc, err := newProcessor(testConfig(t), db.Storage)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = proc.ProcessFile(ctx, "file-1")
	require.NoError(t, err)

	tests := []struct {
		name    string
		scope   alertScope
		filter  service.AlertFilter
		want    int
		wantErr bool
	}{
		{name: "by file", scope: alertScope{FileID: "file-1"}, want: 2},
		{name: "by conversation", scope: alertScope{ConversationID: "conv-1"}, want: 2},
		{name: "by user with severity", scope: alertScope{UserID: "user-1"}, filter: service.AlertFilter{Severity: model.SeverityCritical}, want: 1},
		{name: "no scope", scope: alertScope{}, wantErr: true},
		{name: "two scopes", scope: alertScope{FileID: "file-1", UserID: "user-1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts, err := listAlerts(ctx, db.Storage, tt.scope, tt.filter)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, alerts, tt.want)
		})
	}

	alerts, err := listAlerts(ctx, db.Storage, alertScope{FileID: "file-1"}, service.AlertFilter{})
	require.NoError(t, err)
	out := renderAlerts(alerts)
	assert.Contains(t, out, "negative_stock")
	assert.Contains(t, out, "negative_quantity")
}

func TestRenderStats(t *testing.T) {
	stats := model.NewAlertStats()
	stats.Total = 3
	stats.BySeverity[model.SeverityCritical] = 3
	stats.ByType[model.AlertNegativeStock] = 3

	out := renderStats(stats)
	assert.Contains(t, out, "negative_stock")
	assert.Contains(t, out, "lead_time_outlier")
	assert.Contains(t, out, "total")
}

func TestWriteTrends(t *testing.T) {
	fragments := []model.Fragment{
		testutil.Cell("jan", "B2").Metric("ventes").Value(100).On(2024, time.January, 1).Build(),
		testutil.Cell("feb", "B3").Metric("ventes").Value(125).On(2024, time.February, 1).Build(),
	}
	file := &model.File{ID: "file-1", FileName: "ventes.xlsx"}

	var buf bytes.Buffer
	require.NoError(t, writeTrends(&buf, file, fragments, temporal.NewEngine(temporal.DefaultConfig())))

	out := buf.String()
	assert.Contains(t, out, "ventes.xlsx")
	assert.Contains(t, out, "01 février 2024")
	assert.Contains(t, out, "25%")
	assert.Contains(t, out, "jan")
}

func TestRenderResults(t *testing.T) {
	out := renderResults([]processing.Result{
		{FileID: "file-1", FragmentCount: 4, Detected: 2, Inserted: 1},
		{FileID: "missing", Err: common.ErrNotFound},
	})
	assert.Contains(t, out, "file-1")
	assert.Contains(t, out, "missing")
	assert.Contains(t, out, "not found")
}

func TestNewGateway(t *testing.T) {
	cfg := testConfig(t)

	gw, err := newGateway(cfg)
	require.NoError(t, err)
	assert.IsType(t, retrieval.Disabled{}, gw)

	cfg.Retrieval.Endpoint = "http://index.local/search"
	gw, err = newGateway(cfg)
	require.NoError(t, err)
	assert.IsType(t, &retrieval.RetryingGateway{}, gw)
}
