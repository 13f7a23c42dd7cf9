package temporal

import (
	"math"
	"sort"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
)

// LeadTimeStats summarizes a set of lead times in days. It returns nil when values is empty.
// The standard deviation is the sample standard deviation (n-1), zero for a single value.
func LeadTimeStats(values []float64) *model.LeadTimeStats {
	if len(values) == 0 {
		return nil
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	n := float64(len(sorted))
	mean := sum / n

	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}

	var std float64
	if len(sorted) > 1 {
		var sq float64
		for _, v := range sorted {
			sq += (v - mean) * (v - mean)
		}
		std = math.Sqrt(sq / (n - 1))
	}

	return &model.LeadTimeStats{
		Count:  len(sorted),
		Mean:   mean,
		Median: median,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		StdDev: std,
	}
}

// Summarize builds the temporal summary of one file from its fragments and the lead
// times detected among them.
func Summarize(fragments []model.Fragment, leadTimes []float64) *model.FileTemporalSummary {
	summary := &model.FileTemporalSummary{
		MetricKeys: []string{},
		LeadTimes:  LeadTimeStats(leadTimes),
	}

	seen := make(map[string]struct{})
	for i := range fragments {
		f := &fragments[i]
		if f.ExtractedDate != nil {
			d := *f.ExtractedDate
			if summary.Earliest == nil || d.Before(*summary.Earliest) {
				summary.Earliest = &d
			}
			if summary.Latest == nil || d.After(*summary.Latest) {
				summary.Latest = &d
			}
		}
		if f.MetricKey != "" {
			if _, ok := seen[f.MetricKey]; !ok {
				seen[f.MetricKey] = struct{}{}
				summary.MetricKeys = append(summary.MetricKeys, f.MetricKey)
			}
		}
	}
	sort.Strings(summary.MetricKeys)

	return summary
}
