package config

import "time"

// Scoring weights for a (search request, sighting) pair. They sum to 1 so
// the combined score stays in [0,1].
const (
	NameWeight     = 0.40
	AgeWeight      = 0.20
	GenderWeight   = 0.15
	LocationWeight = 0.15
	DateWeight     = 0.10

	// AgeSpreadYears is the age difference at which age similarity hits 0.
	AgeSpreadYears = 10.0
	// DateSpreadDays is the gap between last-seen date and sighting date at
	// which date similarity hits 0.
	DateSpreadDays = 30.0

	// DefaultScoreThreshold is the minimum combined score a candidate needs
	// to be persisted. Keeps near-zero pairs out of the candidate table.
	DefaultScoreThreshold = 0.35
)

const (
	// DefaultRejectionReason is recorded when an admin rejects a volunteer
	// without giving a reason.
	DefaultRejectionReason = "Application not approved"

	// TokenTTL is the lifetime of issued auth tokens.
	TokenTTL = 72 * time.Hour

	// SweepIdlePause is how long the engine sleeps when both the channel and
	// the Redis backlog are empty.
	SweepIdlePause = 100 * time.Millisecond
)
