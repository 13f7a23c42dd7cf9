package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/common"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
)

func TestConversationsAndFiles(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	seedFile(t, store, "conv-1", "file-a")
	convID := "conv-1"
	require.NoError(t, store.SaveFile(ctx, &model.File{
		ID: "file-b", UserID: "user-1", ConversationID: &convID, FileName: "rapport.pdf",
		CreatedAt: time.Now().Add(time.Minute),
	}))

	conv, err := store.GetConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", conv.UserID)
	assert.False(t, conv.CreatedAt.IsZero())

	files, err := store.ListConversationFiles(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "file-a", files[0].ID)
	assert.Equal(t, "file-b", files[1].ID)
	require.NotNil(t, files[1].ConversationID)
	assert.Equal(t, "conv-1", *files[1].ConversationID)

	// Saving the same conversation again is harmless.
	require.NoError(t, store.SaveConversation(ctx, &model.Conversation{ID: "conv-1", UserID: "user-1"}))
}

func TestSaveFile_Errors(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	seedFile(t, store, "conv-1", "file-a")

	missing := "conv-404"
	err := store.SaveFile(ctx, &model.File{ID: "f", UserID: "user-1", ConversationID: &missing, FileName: "x.xlsx"})
	assert.ErrorIs(t, err, common.ErrNotFound)

	other := "conv-1"
	err = store.SaveFile(ctx, &model.File{ID: "f", UserID: "user-2", ConversationID: &other, FileName: "x.xlsx"})
	assert.ErrorIs(t, err, ErrConversationUser)

	err = store.SaveFile(ctx, &model.File{ID: "f", UserID: "user-1"})
	assert.ErrorIs(t, err, ErrInvalidFile)

	err = store.SaveFile(ctx, nil)
	assert.ErrorIs(t, err, ErrNilParameter)

	err = store.SaveFile(ctx, &model.File{ID: "file-a", UserID: "user-1", ConversationID: &other, FileName: "x.xlsx"})
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestFileWithoutConversation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SaveFile(ctx, &model.File{ID: "loose", UserID: "user-1", FileName: "stock.xlsx"}))

	file, err := store.GetFile(ctx, "loose")
	require.NoError(t, err)
	assert.Nil(t, file.ConversationID)
	assert.Nil(t, file.TemporalSummary)
}

func TestUpdateFileTemporalSummary(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	seedFile(t, store, "conv-1", "file-a")

	earliest := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	latest := time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)
	summary := &model.FileTemporalSummary{
		Earliest:   &earliest,
		Latest:     &latest,
		LeadTimes:  &model.LeadTimeStats{Count: 3, Mean: 12, Median: 10, Min: 5, Max: 21, StdDev: 8.18},
		MetricKeys: []string{"lead_time", "stock"},
	}
	require.NoError(t, store.UpdateFileTemporalSummary(ctx, "file-a", summary))

	file, err := store.GetFile(ctx, "file-a")
	require.NoError(t, err)
	require.NotNil(t, file.TemporalSummary)
	assert.True(t, earliest.Equal(*file.TemporalSummary.Earliest))
	assert.True(t, latest.Equal(*file.TemporalSummary.Latest))
	assert.Equal(t, summary.LeadTimes, file.TemporalSummary.LeadTimes)
	assert.Equal(t, []string{"lead_time", "stock"}, file.TemporalSummary.MetricKeys)

	err = store.UpdateFileTemporalSummary(ctx, "file-404", summary)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetFile_NotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.GetFile(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.GetConversation(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteCascades(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	seedFile(t, store, "conv-1", "file-a")
	convID := "conv-1"
	require.NoError(t, store.SaveFile(ctx, &model.File{ID: "file-b", UserID: "user-1", ConversationID: &convID, FileName: "b.xlsx"}))
	require.NoError(t, store.SaveFragments(ctx, "file-a", testFragments()))
	require.NoError(t, store.SaveFragments(ctx, "file-b", testFragments()))

	alerts := []model.Alert{
		testAlert("a1", "file-a", model.SeverityCritical, "stock négatif détecté: -42"),
		testAlert("b1", "file-b", model.SeverityWarning, "quantité négative détectée: -5"),
	}
	_, err := store.AppendAlerts(ctx, alerts)
	require.NoError(t, err)

	t.Run("file deletion removes its fragments and alerts", func(t *testing.T) {
		require.NoError(t, store.DeleteFile(ctx, "file-a"))

		fragments, err := store.GetFragmentsByFile(ctx, "file-a")
		require.NoError(t, err)
		assert.Empty(t, fragments)

		remaining, err := store.ListAlertsByConversation(ctx, "conv-1", defaultFilter)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, "b1", remaining[0].ID)

		assert.ErrorIs(t, store.DeleteFile(ctx, "file-a"), common.ErrNotFound)
	})

	t.Run("conversation deletion removes everything below it", func(t *testing.T) {
		require.NoError(t, store.DeleteConversation(ctx, "conv-1"))

		_, err := store.GetFile(ctx, "file-b")
		assert.ErrorIs(t, err, common.ErrNotFound)

		fragments, err := store.GetFragmentsByFile(ctx, "file-b")
		require.NoError(t, err)
		assert.Empty(t, fragments)

		remaining, err := store.ListAlertsByUser(ctx, "user-1", defaultFilter)
		require.NoError(t, err)
		assert.Empty(t, remaining)

		assert.ErrorIs(t, store.DeleteConversation(ctx, "conv-1"), common.ErrNotFound)
	})
}
