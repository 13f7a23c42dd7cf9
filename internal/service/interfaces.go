// Package service defines the interfaces shared by the application services.
package service

import (
	"context"
	"time"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
)

// AlertFilter narrows alert listings.
type AlertFilter struct {
	// Severity keeps only alerts of this severity when set.
	Severity model.Severity
	Limit    int
}

// FragmentStore reads and writes document fragments produced by ingestion.
type FragmentStore interface {
	SaveFragments(ctx context.Context, fileID string, fragments []model.Fragment) error
	GetFragmentsByFile(ctx context.Context, fileID string) ([]model.Fragment, error)
}

// FileStore persists conversations and the files attached to them.
type FileStore interface {
	SaveConversation(ctx context.Context, conv *model.Conversation) error
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error

	SaveFile(ctx context.Context, file *model.File) error
	GetFile(ctx context.Context, id string) (*model.File, error)
	ListConversationFiles(ctx context.Context, conversationID string) ([]model.File, error)
	UpdateFileTemporalSummary(ctx context.Context, fileID string, summary *model.FileTemporalSummary) error
	DeleteFile(ctx context.Context, id string) error
}

// AlertStore is append-only: alerts are never updated in place, only removed with
// their owning file or conversation.
type AlertStore interface {
	// AppendAlerts stores new alerts and returns how many were inserted. Alerts whose
	// fingerprint already exists for the same file are skipped.
	AppendAlerts(ctx context.Context, alerts []model.Alert) (int, error)
	ListAlertsByFile(ctx context.Context, fileID string, filter AlertFilter) ([]model.Alert, error)
	ListAlertsByConversation(ctx context.Context, conversationID string, filter AlertFilter) ([]model.Alert, error)
	ListAlertsByUser(ctx context.Context, userID string, filter AlertFilter) ([]model.Alert, error)
	AlertStats(ctx context.Context, userID string) (model.AlertStats, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	FragmentStore
	FileStore
	AlertStore

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
