package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SearchRequest statuses. The match engine moves pending requests to matched
// when a candidate clears the threshold; only an explicit confirmation moves
// a request to confirmed. Terminal states are retained for audit, never
// deleted by the matching path.
const (
	SearchPending   = "pending"
	SearchMatched   = "matched"
	SearchConfirmed = "confirmed"
)

// SearchRequest is a family's submission describing a missing person.
// Fields other than Status and MatchedSightingID are immutable after
// creation, which is what makes re-scoring a pair idempotent.
type SearchRequest struct {
	ID          string `gorm:"primaryKey" json:"id"`
	SubmittedBy string `gorm:"index" json:"submittedBy"`

	Name             string    `json:"name"`
	ApproxAge        int       `json:"approxAge"`
	Gender           string    `json:"gender"`
	LastSeenLocation string    `json:"lastSeenLocation"`
	DateLastSeen     time.Time `json:"dateLastSeen"`
	Description      string    `json:"description"`
	PhotoPath        string    `json:"photoPath"`

	Status            string  `gorm:"index;default:pending" json:"status"`
	MatchedSightingID *string `json:"matchedSightingId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r *SearchRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}
