package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Family statuses. The family workflow is coarser than the volunteer one:
// two outcomes, no rejection reason.
const (
	FamilyPending  = "pending"
	FamilyApproved = "approved"
)

// Family represents a family searching for a missing person.
type Family struct {
	ID       string `gorm:"primaryKey" json:"id"`
	Name     string `json:"name"`
	Email    string `gorm:"uniqueIndex" json:"email"`
	Password string `json:"-"`
	Phone    string `json:"phone"`

	Status     string     `gorm:"index;default:pending" json:"status"`
	ApprovedBy *string    `json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (f *Family) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return
}

// IsApproved reports whether the family account may log in.
func (f *Family) IsApproved() bool {
	return f.Status == FamilyApproved
}
