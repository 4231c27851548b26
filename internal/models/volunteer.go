package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq" // needed for pq.StringArray
	"gorm.io/gorm"
)

// Volunteer statuses. A registration starts as pending and is moved by an
// admin to active or rejected. Rejected is terminal; active volunteers can
// later be deactivated.
const (
	VolunteerPending  = "pending"
	VolunteerActive   = "active"
	VolunteerRejected = "rejected"
	VolunteerInactive = "inactive"
)

// Volunteer represents a registered relief volunteer.
// Only the approval workflow and the camp ledger mutate status and
// assignment fields after registration.
type Volunteer struct {
	ID       string `gorm:"primaryKey" json:"id"`
	Name     string `json:"name"`
	Email    string `gorm:"uniqueIndex" json:"email"`
	Password string `json:"-"`
	Phone    string `json:"phone"`
	Gender   string `json:"gender"`
	City     string `json:"city"`
	State    string `json:"state"`

	// Identity verification. IDNumber is globally unique so a rejected
	// applicant cannot re-register under the same document.
	IDType   string `json:"idType"`
	IDNumber string `gorm:"uniqueIndex" json:"idNumber"`

	Occupation string         `json:"occupation"`
	Skills     pq.StringArray `gorm:"type:text[]" json:"skills"`

	// AssignedCampID is the back-reference of the camp ledger. It must stay
	// symmetric with Camp.VolunteersAssigned.
	AssignedCampID *string `gorm:"index" json:"assignedCamp"`

	Status          string     `gorm:"index;default:pending" json:"status"`
	ApprovedBy      *string    `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	RejectedBy      *string    `json:"rejectedBy,omitempty"`
	RejectedAt      *time.Time `json:"rejectedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	DeactivatedBy   *string    `json:"deactivatedBy,omitempty"`
	DeactivatedAt   *time.Time `json:"deactivatedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate is a GORM hook that assigns a fresh UUID when the record has
// no ID yet.
func (v *Volunteer) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	return
}

// IsApproved reports whether the volunteer has passed admin approval and may
// log in.
func (v *Volunteer) IsApproved() bool {
	return v.Status == VolunteerActive
}
