// Package testutil provides test utilities shared across packages: an in-memory
// database and fragment builders.
package testutil

import (
	"context"
	"testing"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new migrated in-memory database that is closed when the test
// ends.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// SeedConversation creates a conversation for userID.
func (db *TestDB) SeedConversation(id, userID string) *model.Conversation {
	db.t.Helper()
	conv := &model.Conversation{ID: id, UserID: userID}
	if err := db.Storage.SaveConversation(context.Background(), conv); err != nil {
		db.t.Fatalf("failed to seed conversation %q: %v", id, err)
	}
	return conv
}

// SeedFile creates a file in conversation convID, owned by the conversation's user, and
// stores its fragments when any are given.
func (db *TestDB) SeedFile(convID, fileID string, fragments ...model.Fragment) *model.File {
	db.t.Helper()
	ctx := context.Background()

	conv, err := db.Storage.GetConversation(ctx, convID)
	if err != nil {
		db.t.Fatalf("failed to load conversation %q: %v", convID, err)
	}

	file := &model.File{ID: fileID, UserID: conv.UserID, ConversationID: &conv.ID, FileName: fileID}
	if err := db.Storage.SaveFile(ctx, file); err != nil {
		db.t.Fatalf("failed to seed file %q: %v", fileID, err)
	}
	if len(fragments) > 0 {
		if err := db.Storage.SaveFragments(ctx, fileID, fragments); err != nil {
			db.t.Fatalf("failed to seed fragments of %q: %v", fileID, err)
		}
	}
	return file
}
