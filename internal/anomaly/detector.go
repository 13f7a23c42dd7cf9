package anomaly

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/temporal"
)

// datePair is a start-side/end-side role pair whose order must not be inverted.
type datePair struct {
	start      model.FieldRole
	end        model.FieldRole
	startLabel string
	endLabel   string
}

var datePairs = []datePair{
	{start: model.RoleShipDate, end: model.RoleDeliveryDate, startLabel: "date d'expédition", endLabel: "la date de livraison"},
	{start: model.RoleOrderDate, end: model.RoleDeliveryDate, startLabel: "date de commande", endLabel: "la date de livraison"},
	{start: model.RoleStartDate, end: model.RoleEndDate, startLabel: "date de début", endLabel: "la date de fin"},
}

// Detector evaluates the anomaly rules. It is safe for concurrent use.
type Detector struct {
	labeler *Labeler
	now     func() time.Time
	newID   func() string
	cfg     Config
}

// NewDetector creates a detector. Zero fields of cfg take their documented default.
func NewDetector(cfg Config) *Detector {
	cfg = cfg.withDefaults()
	return &Detector{
		cfg:     cfg,
		labeler: NewLabeler(cfg.StockKeywords, cfg.QuantityKeywords, cfg.LeadTimeKeywords),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Labeler returns the labeler the detector uses.
func (d *Detector) Labeler() *Labeler {
	return d.labeler
}

// finding is an alert tied to the input position of the fragment that raised it.
type finding struct {
	alert model.Alert
	index int
}

// Detect evaluates every rule over the spreadsheet fragments of one file. PDF fragments
// are never evaluated. Alerts come back in the order of their source fragments.
func (d *Detector) Detect(fragments []model.Fragment, fileID string) []model.Alert {
	var (
		findings  []finding
		leadTimes []int
		records   = newRecordSet()
	)

	for i := range fragments {
		f := &fragments[i]
		if f.SourceKind() != model.SourceSpreadsheetCell {
			continue
		}

		role := d.labeler.Label(f)
		switch role {
		case model.RoleStock:
			if f.NumericValue != nil && *f.NumericValue < 0 {
				findings = append(findings, d.finding(i, f, fileID, model.AlertNegativeStock, model.SeverityCritical,
					fmt.Sprintf("stock négatif détecté: %s", formatNumber(*f.NumericValue)), formatNumber(*f.NumericValue)))
			}
		case model.RoleQuantity:
			if f.NumericValue != nil && *f.NumericValue < 0 {
				findings = append(findings, d.finding(i, f, fileID, model.AlertNegativeQuantity, model.SeverityWarning,
					fmt.Sprintf("quantité négative détectée: %s", formatNumber(*f.NumericValue)), formatNumber(*f.NumericValue)))
			}
		case model.RoleLeadTime:
			if f.NumericValue != nil {
				leadTimes = append(leadTimes, i)
			}
		case model.RoleShipDate, model.RoleDeliveryDate, model.RoleOrderDate, model.RoleStartDate, model.RoleEndDate:
			if f.RecordID != "" && f.ExtractedDate != nil {
				records.add(f.RecordID, role, i)
			}
		}
	}

	findings = append(findings, d.leadTimeFindings(fragments, leadTimes, fileID)...)
	findings = append(findings, d.dateFindings(fragments, records, fileID)...)

	sort.SliceStable(findings, func(a, b int) bool {
		return findings[a].index < findings[b].index
	})

	alerts := make([]model.Alert, len(findings))
	for i := range findings {
		alerts[i] = findings[i].alert
	}

	slog.Debug("Anomaly detection finished",
		"file_id", fileID,
		"fragment_count", len(fragments),
		"alert_count", len(alerts))

	return alerts
}

// LeadTimes returns the lead time values of the fragments labelled as lead times.
func (d *Detector) LeadTimes(fragments []model.Fragment) []float64 {
	var out []float64
	for i := range fragments {
		f := &fragments[i]
		if f.SourceKind() != model.SourceSpreadsheetCell || f.NumericValue == nil {
			continue
		}
		if d.labeler.Label(f) == model.RoleLeadTime {
			out = append(out, *f.NumericValue)
		}
	}
	return out
}

func (d *Detector) leadTimeFindings(fragments []model.Fragment, indexes []int, fileID string) []finding {
	if len(indexes) == 0 {
		return nil
	}

	inRange := make([]float64, 0, len(indexes))
	for _, i := range indexes {
		if v := *fragments[i].NumericValue; v >= 0 && v <= d.cfg.LeadTimeMaxDays {
			inRange = append(inRange, v)
		}
	}
	peers := newPeerStats(inRange)
	useStats := len(inRange)-1 >= d.cfg.LeadTimeMinSamples

	var out []finding
	for _, i := range indexes {
		f := &fragments[i]
		v := *f.NumericValue
		value := formatNumber(v)

		if v < 0 || v > d.cfg.LeadTimeMaxDays {
			out = append(out, d.finding(i, f, fileID, model.AlertLeadTimeOutlier, model.SeverityWarning,
				fmt.Sprintf("délai hors limites: %s jours (attendu entre 0 et %s)", value, formatNumber(d.cfg.LeadTimeMaxDays)), value))
			continue
		}
		if !useStats {
			continue
		}
		// Each value is measured against the others so it cannot widen its own bound.
		mean, std := peers.without(v)
		if dev := math.Abs(v - mean); dev > leadTimeEpsilon && dev > d.cfg.LeadTimeStdDevs*std {
			out = append(out, d.finding(i, f, fileID, model.AlertLeadTimeOutlier, model.SeverityInfo,
				fmt.Sprintf("délai atypique: %s jours (moyenne %.1f, écart-type %.1f)", value, mean, std), value))
		}
	}
	return out
}

// leadTimeEpsilon absorbs rounding noise when the other values are all equal.
const leadTimeEpsilon = 1e-9

// peerStats holds sums shifted by the overall mean, from which the mean and
// sample standard deviation of the set minus one value are derived in O(1).
type peerStats struct {
	n     float64
	shift float64
	sum   float64
	sumSq float64
}

func newPeerStats(values []float64) peerStats {
	p := peerStats{n: float64(len(values))}
	if len(values) == 0 {
		return p
	}
	for _, v := range values {
		p.shift += v
	}
	p.shift /= p.n
	for _, v := range values {
		d := v - p.shift
		p.sum += d
		p.sumSq += d * d
	}
	return p
}

// without returns the mean and sample standard deviation of the set with one
// occurrence of v removed. It needs at least three values.
func (p peerStats) without(v float64) (mean, std float64) {
	k := p.n - 1
	if k < 2 {
		return v, 0
	}
	d := v - p.shift
	m := (p.sum - d) / k
	variance := (p.sumSq - d*d - k*m*m) / (k - 1)
	if variance < 0 {
		variance = 0
	}
	return p.shift + m, math.Sqrt(variance)
}

func (d *Detector) dateFindings(fragments []model.Fragment, records *recordSet, fileID string) []finding {
	var out []finding
	for _, id := range records.order {
		roles := records.byID[id]
		for _, pair := range datePairs {
			si, sok := roles[pair.start]
			ei, eok := roles[pair.end]
			if !sok || !eok || si < 0 || ei < 0 {
				continue
			}
			start, end := &fragments[si], &fragments[ei]
			if !start.ExtractedDate.After(*end.ExtractedDate) {
				continue
			}

			msg := fmt.Sprintf("incohérence de dates: %s %s postérieure à %s %s",
				pair.startLabel, temporal.FormatDateFR(*start.ExtractedDate),
				pair.endLabel, temporal.FormatDateFR(*end.ExtractedDate))
			out = append(out, d.finding(si, start, fileID, model.AlertDateInconsistency, model.SeverityWarning,
				msg, start.ExtractedDate.Format(model.DateLayout)))
		}
	}
	return out
}

func (d *Detector) finding(index int, f *model.Fragment, fileID string, typ model.AlertType, sev model.Severity, msg, value string) finding {
	return finding{
		index: index,
		alert: model.Alert{
			ID:        d.newID(),
			FileID:    fileID,
			Type:      typ,
			Severity:  sev,
			Message:   msg + positionSuffix(f),
			Value:     value,
			Metadata:  model.SourceOf(f),
			CreatedAt: d.now().UTC(),
		},
	}
}

// positionSuffix renders " (cellule C12, feuille Ventes)" for spreadsheet fragments.
func positionSuffix(f *model.Fragment) string {
	switch p := f.Position.(type) {
	case model.SpreadsheetCell:
		return fmt.Sprintf(" (cellule %s, feuille %s)", p.CellRef, p.SheetName)
	case model.PDFPage:
		return fmt.Sprintf(" (page %d)", p.PageNumber)
	}
	return ""
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// recordSet groups date fragments by ingestion-supplied record id. A role seen twice in
// the same record is marked ambiguous (-1) and never paired.
type recordSet struct {
	byID  map[string]map[model.FieldRole]int
	order []string
}

func newRecordSet() *recordSet {
	return &recordSet{byID: make(map[string]map[model.FieldRole]int)}
}

func (r *recordSet) add(recordID string, role model.FieldRole, index int) {
	roles, ok := r.byID[recordID]
	if !ok {
		roles = make(map[model.FieldRole]int)
		r.byID[recordID] = roles
		r.order = append(r.order, recordID)
	}
	if _, dup := roles[role]; dup {
		roles[role] = -1
		return
	}
	roles[role] = index
}
