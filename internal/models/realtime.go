package models

import "time"

// Sweep kinds for the match engine backlog.
const (
	SweepSighting      = "sighting"
	SweepSearchRequest = "search_request"
)

// SweepRequest asks the match engine to scan one newly created record
// against the opposite collection.
type SweepRequest struct {
	Kind     string `json:"kind"`
	RecordID string `json:"record_id"`
}

// MatchEvent is published on Redis pub/sub whenever a candidate clears the
// score threshold. The live admin feed and the Telegram notifier consume it.
type MatchEvent struct {
	SearchRequestID string    `json:"search_request_id"`
	SightingID      string    `json:"sighting_id"`
	MissingName     string    `json:"missing_name"`
	Score           float64   `json:"score"`
	OccurredAt      time.Time `json:"occurred_at"`
}
