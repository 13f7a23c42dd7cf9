package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/retrieval"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/service"
)

// DefaultRetrievalTimeout bounds the retrieval step of one query.
const DefaultRetrievalTimeout = 5 * time.Second

// Deps holds the collaborators of a Pipeline.
type Deps struct {
	Gateway   retrieval.Gateway
	Files     service.FileStore
	Alerts    service.AlertStore
	Assembler *Assembler
}

// Validate ensures all required dependencies are present.
func (d Deps) Validate() error {
	if d.Gateway == nil {
		return fmt.Errorf("gateway is required")
	}
	if d.Files == nil {
		return fmt.Errorf("file store is required")
	}
	if d.Alerts == nil {
		return fmt.Errorf("alert store is required")
	}
	return nil
}

// Query is a user question scoped to a conversation.
type Query struct {
	Now            time.Time
	Text           string
	UserID         string
	ConversationID string
	Embedding      []float32
	TopK           int
}

// Pipeline runs one query end to end: file scope lookup, retrieval, alert lookup and
// assembly. Each call is independent of every other.
type Pipeline struct {
	deps    Deps
	timeout time.Duration
}

// NewPipeline creates a pipeline. A zero timeout uses DefaultRetrievalTimeout.
func NewPipeline(deps Deps, timeout time.Duration) (*Pipeline, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if deps.Assembler == nil {
		deps.Assembler = NewAssembler(nil)
	}
	if timeout <= 0 {
		timeout = DefaultRetrievalTimeout
	}
	return &Pipeline{deps: deps, timeout: timeout}, nil
}

// Build produces the PromptContext for q. Retrieval and alert lookup failures degrade
// the context to temporal-only grounding instead of failing the query; only storage
// errors resolving the conversation and citation format errors are returned.
func (p *Pipeline) Build(ctx context.Context, q Query) (PromptContext, error) {
	if q.Now.IsZero() {
		return PromptContext{}, fmt.Errorf("query requires the current date")
	}

	fileIDs, err := p.conversationFiles(ctx, q.ConversationID)
	if err != nil {
		return PromptContext{}, err
	}

	retrieved, err := p.retrieve(ctx, q, fileIDs)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return PromptContext{}, ctx.Err()
		}
		slog.Warn("Retrieval failed, falling back to temporal-only grounding",
			"conversation_id", q.ConversationID,
			"degraded", true,
			"error", err)
		return p.deps.Assembler.Degraded(q.Now, "retrieval: "+err.Error()), nil
	}

	var degradedReasons []string
	alerts, err := p.alerts(ctx, fileIDs)
	if err != nil {
		slog.Warn("Alert lookup failed, assembling without alerts",
			"conversation_id", q.ConversationID,
			"degraded", true,
			"error", err)
		alerts = nil
		degradedReasons = append(degradedReasons, "alerts: "+err.Error())
	}

	pc, err := p.deps.Assembler.Assemble(Request{
		Now:                 q.Now,
		Query:               q.Text,
		Retrieved:           retrieved,
		Alerts:              alerts,
		ConversationFileIDs: fileIDs,
	})
	if err != nil {
		return PromptContext{}, err
	}
	if len(degradedReasons) > 0 {
		pc.Degraded = true
		pc.DegradedReasons = append(pc.DegradedReasons, degradedReasons...)
	}

	slog.Debug("Prompt context assembled",
		"conversation_id", q.ConversationID,
		"citation_count", len(pc.Texts(BlockCitation)),
		"alert_count", len(pc.Texts(BlockAlert)),
		"degraded", pc.Degraded)

	return pc, nil
}

func (p *Pipeline) conversationFiles(ctx context.Context, conversationID string) ([]string, error) {
	if conversationID == "" {
		return nil, nil
	}
	files, err := p.deps.Files.ListConversationFiles(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation files: %w", err)
	}
	ids := make([]string, len(files))
	for i := range files {
		ids[i] = files[i].ID
	}
	return ids, nil
}

func (p *Pipeline) retrieve(ctx context.Context, q Query, fileIDs []string) ([]model.Fragment, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.deps.Gateway.Search(ctx, retrieval.Query{
		Text:      q.Text,
		Embedding: q.Embedding,
		TopK:      q.TopK,
		Scope: retrieval.Scope{
			UserID:         q.UserID,
			ConversationID: q.ConversationID,
			FileIDs:        fileIDs,
		},
	})
}

func (p *Pipeline) alerts(ctx context.Context, fileIDs []string) ([]model.Alert, error) {
	var out []model.Alert
	for _, id := range fileIDs {
		alerts, err := p.deps.Alerts.ListAlertsByFile(ctx, id, service.AlertFilter{})
		if err != nil {
			return nil, fmt.Errorf("failed to list alerts for file %s: %w", id, err)
		}
		out = append(out, alerts...)
	}
	return out, nil
}
