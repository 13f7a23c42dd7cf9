package citation

import (
	"errors"
	"fmt"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
)

// ErrIncompletePosition is matched by every FormatError.
var ErrIncompletePosition = errors.New("incomplete fragment position")

// FormatError reports a fragment whose position does not satisfy its source kind.
// It signals an ingestion contract violation and is never patched over.
type FormatError struct {
	FragmentID string
	SourceKind model.SourceKind
	// Missing names the first absent position field.
	Missing string
}

func (e *FormatError) Error() string {
	kind := string(e.SourceKind)
	if kind == "" {
		kind = "unknown"
	}
	return fmt.Sprintf("cannot cite fragment %q: %s position is missing %s", e.FragmentID, kind, e.Missing)
}

// Is makes errors.Is(err, ErrIncompletePosition) hold for any FormatError.
func (e *FormatError) Is(target error) bool {
	return target == ErrIncompletePosition
}
