package temporal

import (
	"sort"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
)

// Index is an arena of trend-eligible fragments with a per-metric ordered index.
type Index struct {
	byMetric map[string][]int
	arena    []model.Fragment
}

// NewIndex builds the index over fragments carrying a metric key, a value and a date.
// Other fragments are ignored. Within a metric, fragments are ordered by date and
// keep their input order on ties.
func NewIndex(fragments []model.Fragment) *Index {
	ix := &Index{
		byMetric: make(map[string][]int),
		arena:    make([]model.Fragment, 0, len(fragments)),
	}

	for i := range fragments {
		if !fragments[i].HasTrendInputs() {
			continue
		}
		ix.arena = append(ix.arena, fragments[i])
		pos := len(ix.arena) - 1
		ix.byMetric[fragments[i].MetricKey] = append(ix.byMetric[fragments[i].MetricKey], pos)
	}

	for _, series := range ix.byMetric {
		sort.SliceStable(series, func(a, b int) bool {
			return ix.arena[series[a]].ExtractedDate.Before(*ix.arena[series[b]].ExtractedDate)
		})
	}

	return ix
}

// Len returns the number of indexed fragments.
func (ix *Index) Len() int {
	return len(ix.arena)
}

// Metrics returns the indexed metric keys in lexical order.
func (ix *Index) Metrics() []string {
	keys := make([]string, 0, len(ix.byMetric))
	for k := range ix.byMetric {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Series returns the fragments of one metric in date order.
func (ix *Index) Series(metric string) []model.Fragment {
	positions := ix.byMetric[metric]
	out := make([]model.Fragment, len(positions))
	for i, p := range positions {
		out[i] = ix.arena[p]
	}
	return out
}

// pairs calls fn for every fragment of the metric that has a strictly earlier peer,
// passing the fragment and its nearest prior-period reference.
func (ix *Index) pairs(metric string, fn func(current, reference *model.Fragment)) {
	series := ix.byMetric[metric]

	// groupStart is the first position of the run of fragments sharing the current date.
	groupStart := 0
	for i := 1; i < len(series); i++ {
		current := &ix.arena[series[i]]
		previous := &ix.arena[series[i-1]]
		if !current.ExtractedDate.Equal(*previous.ExtractedDate) {
			groupStart = i
		}
		if groupStart == 0 {
			continue
		}
		fn(current, &ix.arena[series[groupStart-1]])
	}
}
