package temporal

import (
	"fmt"
	"math"
	"time"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
)

const (
	// MinSeasonalityMonths is the minimum span, and number of distinct calendar months,
	// a series needs before seasonality is looked for.
	MinSeasonalityMonths = 6
	// MinSeasonalityDeviationPct is the peak deviation below which no seasonality is reported.
	MinSeasonalityDeviationPct = 15.0
)

// Seasonality describes the peak and low months of a metric.
type Seasonality struct {
	Description      string     `json:"pattern_description"`
	PeakMonth        time.Month `json:"peak_month"`
	LowMonth         time.Month `json:"low_month"`
	PeakDeviationPct float64    `json:"peak_deviation_pct"`
	LowDeviationPct  float64    `json:"low_deviation_pct"`
}

// DetectSeasonality looks for a seasonal pattern in the dated numeric fragments of a
// single metric. It returns nil when the series is too short or too regular.
func DetectSeasonality(series []model.Fragment) *Seasonality {
	var (
		sums   [12]float64
		counts [12]int
		first  time.Time
		last   time.Time
		points int
	)

	for i := range series {
		f := &series[i]
		if f.ExtractedDate == nil || f.NumericValue == nil {
			continue
		}
		d := *f.ExtractedDate
		if points == 0 || d.Before(first) {
			first = d
		}
		if points == 0 || d.After(last) {
			last = d
		}
		points++
		sums[d.Month()-1] += *f.NumericValue
		counts[d.Month()-1]++
	}

	if points < 2 || last.Sub(first).Hours()/24/30 < MinSeasonalityMonths {
		return nil
	}

	var (
		months  int
		overall float64
		peak    = -1
		low     = -1
		avgs    [12]float64
	)
	for m := 0; m < 12; m++ {
		if counts[m] == 0 {
			continue
		}
		avgs[m] = sums[m] / float64(counts[m])
		overall += avgs[m]
		months++
		if peak < 0 || avgs[m] > avgs[peak] {
			peak = m
		}
		if low < 0 || avgs[m] < avgs[low] {
			low = m
		}
	}
	if months < MinSeasonalityMonths {
		return nil
	}
	overall /= float64(months)
	if overall == 0 {
		return nil
	}

	peakDev := (avgs[peak] - overall) / overall * 100
	lowDev := (avgs[low] - overall) / overall * 100
	if math.Abs(peakDev) < MinSeasonalityDeviationPct {
		return nil
	}

	desc := fmt.Sprintf("Pic en %s (%+.1f%%)", MonthNameFR(time.Month(peak+1)), peakDev)
	if math.Abs(lowDev) > MinSeasonalityDeviationPct {
		desc += fmt.Sprintf(", creux en %s (%+.1f%%)", MonthNameFR(time.Month(low+1)), lowDev)
	}

	return &Seasonality{
		Description:      desc,
		PeakMonth:        time.Month(peak + 1),
		LowMonth:         time.Month(low + 1),
		PeakDeviationPct: math.Round(peakDev*10) / 10,
		LowDeviationPct:  math.Round(lowDev*10) / 10,
	}
}
