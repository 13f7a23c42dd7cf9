package model

// Direction is the qualitative trend of a fragment against its prior period.
type Direction string

const (
	// DirectionUp means the value rose by more than the flat band.
	DirectionUp Direction = "up"
	// DirectionDown means the value fell by more than the flat band.
	DirectionDown Direction = "down"
	// DirectionFlat means the change stayed inside the flat band, or is undefined.
	DirectionFlat Direction = "flat"
)

// TemporalContext is the trend of a fragment against its nearest prior-period peer.
// It is derived per query and never persisted.
type TemporalContext struct {
	// DeltaPct is nil when the reference value is zero.
	DeltaPct            *float64  `json:"delta_pct"`
	ReferenceFragmentID string    `json:"reference_fragment_id"`
	Direction           Direction `json:"direction"`
}
