// Package retrieval defines the contract for fetching ranked fragments for a query.
// Index and embedding mechanics live behind the Gateway.
package retrieval

import (
	"context"
	"fmt"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/common"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
)

// Scope restricts a search to the documents of one conversation.
type Scope struct {
	UserID         string   `json:"user_id"`
	ConversationID string   `json:"conversation_id,omitempty"`
	FileIDs        []string `json:"file_ids,omitempty"`
}

// Query is a retrieval request. Either Text or Embedding must be set.
type Query struct {
	Text      string
	Embedding []float32
	Scope     Scope
	TopK      int
}

// Validate checks that the query can be sent.
func (q Query) Validate() error {
	if q.Text == "" && len(q.Embedding) == 0 {
		return fmt.Errorf("query requires text or embedding")
	}
	if q.Scope.UserID == "" {
		return fmt.Errorf("query requires a user id")
	}
	if q.TopK < 0 {
		return fmt.Errorf("top_k must not be negative, got %d", q.TopK)
	}
	return nil
}

// Gateway returns fragments ranked from most to least relevant.
type Gateway interface {
	Search(ctx context.Context, q Query) ([]model.Fragment, error)
}

// Disabled is the gateway used when no retrieval endpoint is configured. Every search
// fails with ErrRetrievalDisabled so callers fall back to temporal-only grounding.
type Disabled struct{}

// Search implements Gateway.
func (Disabled) Search(context.Context, Query) ([]model.Fragment, error) {
	return nil, common.ErrRetrievalDisabled
}

// Static serves a fixed ranked list, filtered by the query's file scope.
type Static struct {
	Fragments []model.Fragment
}

// Search implements Gateway.
func (s Static) Search(ctx context.Context, q Query) ([]model.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	allowed := make(map[string]struct{}, len(q.Scope.FileIDs))
	for _, id := range q.Scope.FileIDs {
		allowed[id] = struct{}{}
	}

	var out []model.Fragment
	for _, f := range s.Fragments {
		if len(allowed) > 0 {
			if _, ok := allowed[f.FileID]; !ok {
				continue
			}
		}
		out = append(out, f)
		if q.TopK > 0 && len(out) == q.TopK {
			break
		}
	}
	return out, nil
}

var (
	_ Gateway = Disabled{}
	_ Gateway = Static{}
	_ Gateway = (*HTTPGateway)(nil)
	_ Gateway = (*RetryingGateway)(nil)
)
