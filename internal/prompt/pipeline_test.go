package prompt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/common"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/retrieval"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/service"
)

type fakeFiles struct {
	service.FileStore
	files map[string][]model.File
	err   error
}

func (f *fakeFiles) ListConversationFiles(_ context.Context, conversationID string) ([]model.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.files[conversationID], nil
}

type fakeAlerts struct {
	service.AlertStore
	byFile map[string][]model.Alert
	err    error
}

func (f *fakeAlerts) ListAlertsByFile(_ context.Context, fileID string, _ service.AlertFilter) ([]model.Alert, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byFile[fileID], nil
}

type gatewayFunc func(ctx context.Context, q retrieval.Query) ([]model.Fragment, error)

func (fn gatewayFunc) Search(ctx context.Context, q retrieval.Query) ([]model.Fragment, error) {
	return fn(ctx, q)
}

func newTestPipeline(t *testing.T, gw retrieval.Gateway, alerts *fakeAlerts) *Pipeline {
	t.Helper()
	files := &fakeFiles{files: map[string][]model.File{
		"conv-1": {{ID: "file-sales"}, {ID: "file-report"}},
	}}
	if alerts == nil {
		alerts = &fakeAlerts{}
	}
	p, err := NewPipeline(Deps{Gateway: gw, Files: files, Alerts: alerts}, 50*time.Millisecond)
	require.NoError(t, err)
	return p
}

func TestPipeline_Build(t *testing.T) {
	var scope retrieval.Scope
	gw := gatewayFunc(func(_ context.Context, q retrieval.Query) ([]model.Fragment, error) {
		scope = q.Scope
		return []model.Fragment{
			salesFragment("dec", time.December, 2025, 150, "150 unités"),
			salesFragment("nov", time.November, 2025, 120, "120 unités"),
		}, nil
	})
	alerts := &fakeAlerts{byFile: map[string][]model.Alert{
		"file-sales": {{FileID: "file-sales", Severity: model.SeverityCritical, Message: "stock négatif détecté: -42"}},
	}}

	pc, err := newTestPipeline(t, gw, alerts).Build(context.Background(), Query{
		Now:            today,
		Text:           "évolution des ventes",
		UserID:         "user-1",
		ConversationID: "conv-1",
	})
	require.NoError(t, err)

	assert.Equal(t, retrieval.Scope{UserID: "user-1", ConversationID: "conv-1", FileIDs: []string{"file-sales", "file-report"}}, scope)
	assert.False(t, pc.Degraded)
	assert.Len(t, pc.Texts(BlockCitation), 2)
	assert.Equal(t, []string{"ALERTE (critical): stock négatif détecté: -42"}, pc.Texts(BlockAlert))
}

func TestPipeline_DegradesOnRetrievalTimeout(t *testing.T) {
	gw := gatewayFunc(func(ctx context.Context, _ retrieval.Query) ([]model.Fragment, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	alerts := &fakeAlerts{byFile: map[string][]model.Alert{
		"file-sales": {{FileID: "file-sales", Severity: model.SeverityCritical, Message: "stock négatif détecté: -42"}},
	}}

	pc, err := newTestPipeline(t, gw, alerts).Build(context.Background(), Query{
		Now: today, Text: "ventes", UserID: "user-1", ConversationID: "conv-1",
	})
	require.NoError(t, err)

	assert.True(t, pc.Degraded)
	require.Len(t, pc.DegradedReasons, 1)
	assert.Contains(t, pc.DegradedReasons[0], "retrieval")
	require.Len(t, pc.Blocks, 2)
	assert.Equal(t, BlockCurrentDate, pc.Blocks[0].Kind)
	assert.Equal(t, BlockInstruction, pc.Blocks[1].Kind)
}

func TestPipeline_DegradesOnUnavailableIndex(t *testing.T) {
	for name, gw := range map[string]retrieval.Gateway{
		"unavailable": gatewayFunc(func(context.Context, retrieval.Query) ([]model.Fragment, error) {
			return nil, common.ErrRetrievalUnavailable
		}),
		"disabled": retrieval.Disabled{},
	} {
		t.Run(name, func(t *testing.T) {
			pc, err := newTestPipeline(t, gw, nil).Build(context.Background(), Query{
				Now: today, Text: "ventes", UserID: "user-1", ConversationID: "conv-1",
			})
			require.NoError(t, err)
			assert.True(t, pc.Degraded)
			assert.Equal(t, "DATE ACTUELLE: 05 janvier 2026\n"+InstructionText, pc.Render())
		})
	}
}

func TestPipeline_DegradesOnAlertLookupFailure(t *testing.T) {
	gw := retrieval.Static{Fragments: []model.Fragment{pdfFragment("p1", 1)}}
	alerts := &fakeAlerts{err: errors.New("database is locked")}

	pc, err := newTestPipeline(t, gw, alerts).Build(context.Background(), Query{
		Now: today, Text: "synthèse", UserID: "user-1", ConversationID: "conv-1",
	})
	require.NoError(t, err)
	assert.True(t, pc.Degraded)
	require.Len(t, pc.DegradedReasons, 1)
	assert.Equal(t, "alerts: failed to list alerts for file file-sales: database is locked", pc.DegradedReasons[0])
	assert.Equal(t, []string{"Selon la page 1 du fichier rapport.pdf: Synthèse page p1"}, pc.Texts(BlockCitation))
	assert.Empty(t, pc.Texts(BlockAlert))
	assert.Equal(t, BlockInstruction, pc.Blocks[len(pc.Blocks)-1].Kind)
}

func TestPipeline_CanceledQueryAborts(t *testing.T) {
	gw := gatewayFunc(func(ctx context.Context, _ retrieval.Query) ([]model.Fragment, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPipeline(t, gw, nil).Build(ctx, Query{
		Now: today, Text: "ventes", UserID: "user-1", ConversationID: "conv-1",
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_StorageErrorFails(t *testing.T) {
	p, err := NewPipeline(Deps{
		Gateway: retrieval.Static{},
		Files:   &fakeFiles{err: common.ErrDatabaseCorrupted},
		Alerts:  &fakeAlerts{},
	}, 0)
	require.NoError(t, err)

	_, err = p.Build(context.Background(), Query{Now: today, Text: "x", UserID: "u", ConversationID: "conv-1"})
	assert.ErrorIs(t, err, common.ErrDatabaseCorrupted)
}

func TestPipeline_RequiresNow(t *testing.T) {
	p := newTestPipeline(t, retrieval.Static{}, nil)
	_, err := p.Build(context.Background(), Query{Text: "x", UserID: "u"})
	assert.Error(t, err)
}

func TestNewPipeline_ValidatesDeps(t *testing.T) {
	_, err := NewPipeline(Deps{}, 0)
	assert.Error(t, err)
}
