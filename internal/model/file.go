package model

import "time"

// Conversation groups the files a user uploaded into one chat.
type Conversation struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
}

// File is an uploaded document whose fragments have been extracted by ingestion.
type File struct {
	CreatedAt       time.Time            `json:"created_at"`
	TemporalSummary *FileTemporalSummary `json:"temporal_summary,omitempty"`
	ConversationID  *string              `json:"conversation_id,omitempty"`
	ID              string               `json:"id"`
	UserID          string               `json:"user_id"`
	FileName        string               `json:"file_name"`
}

// FileTemporalSummary describes the dated content of a file.
type FileTemporalSummary struct {
	Earliest   *time.Time     `json:"earliest,omitempty"`
	Latest     *time.Time     `json:"latest,omitempty"`
	LeadTimes  *LeadTimeStats `json:"lead_times,omitempty"`
	MetricKeys []string       `json:"metric_keys"`
}

// LeadTimeStats summarizes the lead times observed in one file.
type LeadTimeStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean_days"`
	Median float64 `json:"median_days"`
	Min    float64 `json:"min_days"`
	Max    float64 `json:"max_days"`
	StdDev float64 `json:"std_days"`
}
