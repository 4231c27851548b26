package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Camp represents a relief camp.
//
// Occupied counts displaced persons sheltered at the camp. It is independent
// of the number of assigned volunteers and the two must never be conflated.
type Camp struct {
	ID            string  `gorm:"primaryKey" json:"id"`
	Name          string  `json:"name"`
	Location      string  `json:"location"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Capacity      int     `json:"capacity"`
	Occupied      int     `json:"occupied"`
	ContactPerson string  `json:"contactPerson"`
	Phone         string  `json:"phone"`

	// VolunteersAssigned is the camp-side half of the assignment relation.
	// Membership here must stay symmetric with Volunteer.AssignedCampID.
	VolunteersAssigned pq.StringArray `gorm:"type:text[]" json:"volunteersAssigned"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Camp) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// HasVolunteer reports whether the volunteer id is in the camp's member set.
func (c *Camp) HasVolunteer(volunteerID string) bool {
	for _, id := range c.VolunteersAssigned {
		if id == volunteerID {
			return true
		}
	}
	return false
}
