package models

import "time"

// MatchCandidate is a scored pairing of a search request and a sighting,
// derived by the match engine. The pair is unique; re-scoring upserts the
// existing row instead of inserting a duplicate.
//
// Confirmed is a tri-state: nil until a confirmation touches the pair, true
// for the confirmed pair, false for siblings explicitly retired by a
// confirmation. Retired candidates are kept as "also considered" history.
type MatchCandidate struct {
	ID              uint   `gorm:"primaryKey" json:"-"`
	SearchRequestID string `gorm:"uniqueIndex:idx_candidate_pair;index" json:"searchRequestId"`
	SightingID      string `gorm:"uniqueIndex:idx_candidate_pair;index" json:"sightingId"`

	Score      float64   `json:"score"`
	ComputedAt time.Time `json:"computedAt"`
	Confirmed  *bool     `json:"confirmed,omitempty"`
}
