package temporal

import (
	"log/slog"
	"math"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
)

// DefaultFlatBandPct is the default half-width of the "flat" band, in percent.
const DefaultFlatBandPct = 2.0

// Config tunes trend classification.
type Config struct {
	// FlatBandPct is the absolute percent change at or below which a trend is flat.
	FlatBandPct float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{FlatBandPct: DefaultFlatBandPct}
}

// Engine computes temporal contexts. It holds no per-query state and is safe for
// concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine. A negative band is treated as zero.
func NewEngine(cfg Config) *Engine {
	if cfg.FlatBandPct < 0 {
		cfg.FlatBandPct = 0
	}
	return &Engine{cfg: cfg}
}

// Compute returns the temporal context of every fragment that has a same-metric peer
// with an earlier date. Fragments without metric key, value, date or earlier peer
// have no entry. Entries are keyed by file and ID since IDs repeat across files.
func (e *Engine) Compute(fragments []model.Fragment) map[model.FragmentKey]model.TemporalContext {
	out := make(map[model.FragmentKey]model.TemporalContext)
	ix := NewIndex(fragments)

	for _, metric := range ix.Metrics() {
		ix.pairs(metric, func(current, reference *model.Fragment) {
			out[current.Key()] = e.compare(*current.NumericValue, *reference.NumericValue, reference.ID)
		})
	}

	slog.Debug("Computed temporal contexts",
		"fragment_count", len(fragments),
		"indexed", ix.Len(),
		"contexts", len(out))

	return out
}

func (e *Engine) compare(value, reference float64, referenceID string) model.TemporalContext {
	tc := model.TemporalContext{
		ReferenceFragmentID: referenceID,
		Direction:           model.DirectionFlat,
	}
	if reference == 0 {
		return tc
	}

	delta := (value - reference) / math.Abs(reference) * 100
	tc.DeltaPct = &delta
	tc.Direction = e.Classify(delta)
	return tc
}

// Classify maps a percent change to a direction using the configured flat band.
func (e *Engine) Classify(deltaPct float64) model.Direction {
	switch {
	case deltaPct > e.cfg.FlatBandPct:
		return model.DirectionUp
	case deltaPct < -e.cfg.FlatBandPct:
		return model.DirectionDown
	default:
		return model.DirectionFlat
	}
}
