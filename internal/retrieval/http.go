package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/common"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
)

// Default HTTP gateway settings.
const (
	DefaultTimeout           = 5 * time.Second
	DefaultTopK              = 5
	DefaultRequestsPerSecond = 10.0
	DefaultMaxResponseBytes  = 8 << 20
)

// HTTPConfig configures an HTTPGateway.
type HTTPConfig struct {
	Endpoint          string
	Timeout           time.Duration
	TopK              int
	RequestsPerSecond float64
	Burst             int
	// MaxResponseBytes caps the size of a search response body.
	MaxResponseBytes int64
	// Client overrides the HTTP client, mostly for tests.
	Client *http.Client
}

// HTTPGateway queries a vector-index service over HTTP. It is safe for concurrent use.
type HTTPGateway struct {
	client   *http.Client
	limiter  *rate.Limiter
	endpoint string
	timeout  time.Duration
	topK     int
	maxBody  int64
}

type searchRequest struct {
	Query          string    `json:"query,omitempty"`
	Embedding      []float32 `json:"embedding,omitempty"`
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	FileIDs        []string  `json:"file_ids,omitempty"`
	TopK           int       `json:"top_k"`
}

type searchResponse struct {
	Fragments []model.Fragment `json:"fragments"`
}

// NewHTTPGateway creates a gateway for cfg.Endpoint.
func NewHTTPGateway(cfg HTTPConfig) (*HTTPGateway, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: retrieval endpoint is required", common.ErrMissingConfig)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = DefaultMaxResponseBytes
	}
	if cfg.Burst <= 0 {
		cfg.Burst = max(1, int(cfg.RequestsPerSecond))
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &HTTPGateway{
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		endpoint: endpoint,
		timeout:  cfg.Timeout,
		topK:     cfg.TopK,
		maxBody:  cfg.MaxResponseBytes,
	}, nil
}

// Search posts the query and decodes the ranked fragments. Rank order is the order of
// the response. The configured timeout applies on top of any deadline already on ctx.
func (g *HTTPGateway) Search(ctx context.Context, q Query) ([]model.Fragment, error) {
	if err := q.Validate(); err != nil {
		return nil, &common.RetryableError{Err: err, Retryable: false}
	}
	topK := q.TopK
	if topK == 0 {
		topK = g.topK
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %w", common.ErrRetrievalUnavailable, err)
	}

	body, err := json.Marshal(searchRequest{
		Query:          q.Text,
		Embedding:      q.Embedding,
		UserID:         q.Scope.UserID,
		ConversationID: q.Scope.ConversationID,
		FileIDs:        q.Scope.FileIDs,
		TopK:           topK,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to create request: %w", err), Retryable: false}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrRetrievalUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, g.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", common.ErrRetrievalUnavailable, err)
	}
	if int64(len(payload)) > g.maxBody {
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("retrieval response exceeds %d bytes", g.maxBody),
			Retryable: false,
		}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %w (status %d)", common.ErrRetrievalUnavailable, common.ErrRateLimit, resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d: %s", common.ErrRetrievalUnavailable, resp.StatusCode, truncate(payload))
	case resp.StatusCode != http.StatusOK:
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("retrieval rejected query (status %d): %s", resp.StatusCode, truncate(payload)),
			Retryable: false,
		}
	}

	var decoded searchResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to parse search response: %w", err), Retryable: false}
	}

	slog.Debug("Retrieval search completed",
		"conversation_id", q.Scope.ConversationID,
		"result_count", len(decoded.Fragments),
		"duration", time.Since(start))

	return decoded.Fragments, nil
}

func truncate(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
