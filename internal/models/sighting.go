package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sighting statuses. A sighting stays unclaimed until it becomes some
// request's top candidate (proposed), and is only resolved by an explicit
// match confirmation. One sighting may be proposed against several requests
// at once; disambiguation is a human decision.
const (
	SightingUnclaimed = "unclaimed"
	SightingProposed  = "proposed"
	SightingConfirmed = "confirmed"
)

// Sighting is a volunteer's report of an unidentified or found person at a
// relief camp. Created once; only Status changes afterwards.
type Sighting struct {
	ID          string `gorm:"primaryKey" json:"id"`
	SubmittedBy string `gorm:"index" json:"submittedBy"`

	Name        string `json:"name"`
	ApproxAge   int    `json:"approxAge"`
	Gender      string `json:"gender"`
	Location    string `json:"location"`
	Description string `json:"description"`
	PhotoPath   string `json:"photoPath"`

	Status string `gorm:"index;default:unclaimed" json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Sighting) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return
}
