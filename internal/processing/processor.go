// Package processing runs anomaly detection over uploaded files, out of band from
// query handling.
package processing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/anomaly"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/common"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/service"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/temporal"
)

// DefaultConcurrency is the number of files processed at once.
const DefaultConcurrency = 4

// Deps contains all dependencies required by the processor.
type Deps struct {
	// Files resolves file ownership and stores temporal summaries.
	Files service.FileStore
	// Fragments provides the ingested fragments of a file.
	Fragments service.FragmentStore
	// Alerts receives detected alerts.
	Alerts service.AlertStore
	// Detector evaluates the anomaly rules.
	Detector *anomaly.Detector
}

// Validate ensures all required dependencies are provided.
func (d *Deps) Validate() error {
	if d.Files == nil {
		return fmt.Errorf("file store dependency is required")
	}
	if d.Fragments == nil {
		return fmt.Errorf("fragment store dependency is required")
	}
	if d.Alerts == nil {
		return fmt.Errorf("alert store dependency is required")
	}
	if d.Detector == nil {
		return fmt.Errorf("detector dependency is required")
	}
	return nil
}

// Result describes one processed file.
type Result struct {
	Summary *model.FileTemporalSummary
	Err     error
	FileID  string
	// Detected counts the alerts produced by this run, Inserted the ones that were new.
	Detected      int
	Inserted      int
	FragmentCount int
	Duration      time.Duration
}

// Processor runs per-file detection. Files never share state, so several can be
// processed at once.
type Processor struct {
	deps        Deps
	concurrency int
}

// NewProcessor creates a processor. A concurrency below one uses DefaultConcurrency.
func NewProcessor(deps Deps, concurrency int) (*Processor, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Processor{deps: deps, concurrency: concurrency}, nil
}

// Ingest stores a new file with its fragments and runs detection on it. A file nothing
// was extracted from is stored without fragments.
func (p *Processor) Ingest(ctx context.Context, file *model.File, fragments []model.Fragment) (*Result, error) {
	if err := p.deps.Files.SaveFile(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	if len(fragments) > 0 {
		if err := p.deps.Fragments.SaveFragments(ctx, file.ID, fragments); err != nil {
			return nil, fmt.Errorf("failed to save fragments: %w", err)
		}
	}
	return p.ProcessFile(ctx, file.ID)
}

// ProcessFile detects the anomalies of one file, appends new alerts and stores the
// file's temporal summary. Running it again over unchanged fragments inserts nothing.
func (p *Processor) ProcessFile(ctx context.Context, fileID string) (*Result, error) {
	start := time.Now()

	file, err := p.deps.Files.GetFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load file: %w", err)
	}
	fragments, err := p.deps.Fragments.GetFragmentsByFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fragments: %w", err)
	}

	alerts := p.deps.Detector.Detect(fragments, fileID)
	for i := range alerts {
		alerts[i].UserID = file.UserID
		alerts[i].ConversationID = file.ConversationID
	}

	inserted, err := p.deps.Alerts.AppendAlerts(ctx, alerts)
	if err != nil {
		return nil, fmt.Errorf("failed to store alerts: %w", err)
	}

	summary := temporal.Summarize(fragments, p.deps.Detector.LeadTimes(fragments))
	if err := p.deps.Files.UpdateFileTemporalSummary(ctx, fileID, summary); err != nil {
		return nil, fmt.Errorf("failed to store temporal summary: %w", err)
	}

	result := &Result{
		FileID:        fileID,
		Summary:       summary,
		Detected:      len(alerts),
		Inserted:      inserted,
		FragmentCount: len(fragments),
		Duration:      time.Since(start),
	}

	common.LogInfo("Processed file", common.Fields{
		"file_id":        fileID,
		"fragment_count": result.FragmentCount,
		"alert_count":    result.Detected,
		"inserted":       result.Inserted,
		"duration":       result.Duration,
	})

	return result, nil
}

// ProcessFiles processes files concurrently. A failing file does not stop the others;
// its error is recorded on its Result and joined into the returned error. Results keep
// the order of fileIDs. onDone, if set, is called once per file and never concurrently.
func (p *Processor) ProcessFiles(ctx context.Context, fileIDs []string, onDone func(Result)) ([]Result, error) {
	results := make([]Result, len(fileIDs))

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(p.concurrency)

	for i, id := range fileIDs {
		i, id := i, id
		g.Go(func() error {
			res, err := p.processOne(ctx, id)
			if err != nil {
				res = &Result{FileID: id, Err: err}
			}
			results[i] = *res

			if onDone != nil {
				mu.Lock()
				onDone(*res)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("file %s: %w", r.FileID, r.Err))
		}
	}
	return results, errors.Join(errs...)
}

func (p *Processor) processOne(ctx context.Context, fileID string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := p.ProcessFile(ctx, fileID)
	if err != nil {
		common.LogError(err, "File processing failed", common.Fields{"file_id": fileID})
		return nil, err
	}
	return res, nil
}
