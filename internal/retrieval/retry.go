package retrieval

import (
	"context"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/common"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/service"
)

// RetryingGateway retries transient failures of another gateway inside the caller's
// deadline.
type RetryingGateway struct {
	next Gateway
	opts service.RetryOptions
}

// WithRetry wraps next with retries.
func WithRetry(next Gateway, opts service.RetryOptions) *RetryingGateway {
	return &RetryingGateway{next: next, opts: opts}
}

// Search implements Gateway.
func (r *RetryingGateway) Search(ctx context.Context, q Query) ([]model.Fragment, error) {
	var out []model.Fragment
	err := common.WithRetry(ctx, func() error {
		fragments, err := r.next.Search(ctx, q)
		if err != nil {
			if !common.IsRetryable(err) {
				return &common.RetryableError{Err: err, Retryable: false}
			}
			return err
		}
		out = fragments
		return nil
	}, r.opts)
	if err != nil {
		return nil, err
	}
	return out, nil
}
