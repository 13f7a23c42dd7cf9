package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// AlertType is the closed set of anomaly kinds the detector may emit.
type AlertType string

const (
	// AlertNegativeStock flags a stock or inventory level below zero.
	AlertNegativeStock AlertType = "negative_stock"
	// AlertDateInconsistency flags a record whose start-side date is after its end-side date.
	AlertDateInconsistency AlertType = "date_inconsistency"
	// AlertNegativeQuantity flags an ordered or shipped quantity below zero.
	AlertNegativeQuantity AlertType = "negative_quantity"
	// AlertLeadTimeOutlier flags a lead time outside the expected range.
	AlertLeadTimeOutlier AlertType = "lead_time_outlier"
)

// AlertTypes lists every alert type in a stable order.
var AlertTypes = []AlertType{
	AlertNegativeStock,
	AlertDateInconsistency,
	AlertNegativeQuantity,
	AlertLeadTimeOutlier,
}

// Valid reports whether t belongs to the closed set.
func (t AlertType) Valid() bool {
	switch t {
	case AlertNegativeStock, AlertDateInconsistency, AlertNegativeQuantity, AlertLeadTimeOutlier:
		return true
	default:
		return false
	}
}

// Severity is the urgency of an alert.
type Severity string

const (
	// SeverityCritical requires immediate attention.
	SeverityCritical Severity = "critical"
	// SeverityWarning should be reviewed.
	SeverityWarning Severity = "warning"
	// SeverityInfo is informational.
	SeverityInfo Severity = "info"
)

// Severities lists every severity from most to least urgent.
var Severities = []Severity{SeverityCritical, SeverityWarning, SeverityInfo}

// Valid reports whether s belongs to the closed set.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return true
	default:
		return false
	}
}

// Rank orders severities, lower is more urgent.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// AlertSource points an alert back at the fragment that triggered it.
type AlertSource struct {
	FragmentID string     `json:"fragment_id"`
	SourceKind SourceKind `json:"source_kind"`
	PositionRecord
}

// SourceOf builds the alert metadata for a fragment.
func SourceOf(f *Fragment) AlertSource {
	kind, pos := FlattenPosition(f.Position)
	return AlertSource{
		FragmentID:     f.ID,
		SourceKind:     kind,
		PositionRecord: pos,
	}
}

// Alert is a persisted anomaly finding. Alerts are append-only.
type Alert struct {
	CreatedAt      time.Time   `json:"created_at"`
	ConversationID *string     `json:"conversation_id,omitempty"`
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	FileID         string      `json:"file_id"`
	Type           AlertType   `json:"alert_type"`
	Severity       Severity    `json:"severity"`
	Message        string      `json:"message"`
	Value          string      `json:"value"`
	Metadata       AlertSource `json:"metadata"`
}

// Fingerprint identifies the detected condition independently of id and creation time.
func (a *Alert) Fingerprint() string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s|%d",
		a.Type, a.Severity, a.Message, a.Value,
		a.Metadata.FragmentID, a.Metadata.SourceKind,
		a.Metadata.SheetName, a.Metadata.CellRef, a.Metadata.PageNumber)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// AlertStats aggregates alert counts.
type AlertStats struct {
	BySeverity map[Severity]int  `json:"by_severity"`
	ByType     map[AlertType]int `json:"by_type"`
	Total      int               `json:"total"`
}

// NewAlertStats returns stats with every severity and type present at zero.
func NewAlertStats() AlertStats {
	s := AlertStats{
		BySeverity: make(map[Severity]int, len(Severities)),
		ByType:     make(map[AlertType]int, len(AlertTypes)),
	}
	for _, sev := range Severities {
		s.BySeverity[sev] = 0
	}
	for _, t := range AlertTypes {
		s.ByType[t] = 0
	}
	return s
}
