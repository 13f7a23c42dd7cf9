// Package storage provides the SQLite persistence layer for conversations, files,
// fragments and alerts.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrEmptySlice       = errors.New("slice cannot be empty")
	ErrInvalidAlert     = errors.New("invalid alert")
	ErrInvalidFile      = errors.New("invalid file")
	ErrInvalidSeverity  = errors.New("invalid severity")
	ErrConversationUser = errors.New("conversation belongs to another user")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateFragments validates a batch of fragments about to be stored.
func validateFragments(fragments []model.Fragment) error {
	if len(fragments) == 0 {
		return fmt.Errorf("%w: fragments", ErrEmptySlice)
	}
	seen := make(map[string]struct{}, len(fragments))
	for i := range fragments {
		if err := fragments[i].Validate(); err != nil {
			return fmt.Errorf("fragment at index %d: %w", i, err)
		}
		if _, dup := seen[fragments[i].ID]; dup {
			return fmt.Errorf("fragment at index %d: %w: duplicate id %s", i, model.ErrInvalidFragment, fragments[i].ID)
		}
		seen[fragments[i].ID] = struct{}{}
	}
	return nil
}

// validateFile validates a file record.
func validateFile(file *model.File) error {
	if file == nil {
		return fmt.Errorf("%w: file", ErrNilParameter)
	}
	if strings.TrimSpace(file.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidFile)
	}
	if strings.TrimSpace(file.UserID) == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidFile)
	}
	if strings.TrimSpace(file.FileName) == "" {
		return fmt.Errorf("%w: missing file name", ErrInvalidFile)
	}
	return nil
}

// validateAlert validates an alert against the closed type and severity sets.
func validateAlert(alert *model.Alert) error {
	if alert == nil {
		return fmt.Errorf("%w: alert", ErrNilParameter)
	}
	if strings.TrimSpace(alert.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidAlert)
	}
	if strings.TrimSpace(alert.UserID) == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidAlert)
	}
	if strings.TrimSpace(alert.FileID) == "" {
		return fmt.Errorf("%w: missing file id", ErrInvalidAlert)
	}
	if !alert.Type.Valid() {
		return fmt.Errorf("%w: unknown alert type %q", ErrInvalidAlert, alert.Type)
	}
	if !alert.Severity.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSeverity, alert.Severity)
	}
	if alert.Message == "" {
		return fmt.Errorf("%w: missing message", ErrInvalidAlert)
	}
	return nil
}

// validateSeverityFilter accepts an empty filter or a known severity.
func validateSeverityFilter(s model.Severity) error {
	if s == "" || s.Valid() {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
}
