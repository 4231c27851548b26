// Package approval governs the volunteer and family account lifecycles.
// Every transition is a compare-and-set on status, so two admins racing on
// the same record produce exactly one winner; the loser gets an
// InvalidStateError carrying the state the record is actually in.
package approval

import (
	"time"

	"reunite/backend/internal/apperr"
	"reunite/backend/internal/config"
	"reunite/backend/internal/models"

	"github.com/sirupsen/logrus"
)

// Store is the slice of the storage layer the approval workflow needs.
// *storage.Service satisfies it.
type Store interface {
	GetVolunteerByID(id string) (*models.Volunteer, error)
	TransitionVolunteerStatus(id, from string, updates map[string]interface{}) (bool, error)
	DeleteVolunteer(id string) error

	GetFamilyByID(id string) (*models.Family, error)
	TransitionFamilyStatus(id, from string, updates map[string]interface{}) (bool, error)
}

// Service handles the business logic of account approval.
type Service struct {
	Store Store
	Log   *logrus.Logger
}

// NewService creates a new approval service.
func NewService(store Store, log *logrus.Logger) *Service {
	return &Service{Store: store, Log: log}
}

// ApproveVolunteer moves a pending volunteer to active and records who
// approved it and when.
func (s *Service) ApproveVolunteer(volunteerID, adminID string) (*models.Volunteer, error) {
	return s.transitionVolunteer(volunteerID, models.VolunteerPending, map[string]interface{}{
		"status":      models.VolunteerActive,
		"approved_by": adminID,
		"approved_at": time.Now(),
	})
}

// RejectVolunteer moves a pending volunteer to rejected. Rejected is
// terminal: the record never transitions again, and the unique email and
// idNumber indexes keep a rejected applicant from re-registering.
func (s *Service) RejectVolunteer(volunteerID, adminID, reason string) (*models.Volunteer, error) {
	if reason == "" {
		reason = config.DefaultRejectionReason
	}
	return s.transitionVolunteer(volunteerID, models.VolunteerPending, map[string]interface{}{
		"status":           models.VolunteerRejected,
		"rejected_by":      adminID,
		"rejected_at":      time.Now(),
		"rejection_reason": reason,
	})
}

// DeactivateVolunteer administratively retires an active volunteer and
// records who did it. Not reachable from rejected.
func (s *Service) DeactivateVolunteer(volunteerID, adminID string) (*models.Volunteer, error) {
	return s.transitionVolunteer(volunteerID, models.VolunteerActive, map[string]interface{}{
		"status":         models.VolunteerInactive,
		"deactivated_by": adminID,
		"deactivated_at": time.Now(),
	})
}

func (s *Service) transitionVolunteer(id, from string, updates map[string]interface{}) (*models.Volunteer, error) {
	moved, err := s.Store.TransitionVolunteerStatus(id, from, updates)
	if err != nil {
		return nil, err
	}
	if !moved {
		v, err := s.Store.GetVolunteerByID(id)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, &apperr.NotFoundError{Kind: "volunteer", ID: id}
		}
		return nil, &apperr.InvalidStateError{Kind: "volunteer", ID: id, Current: v.Status, Want: from}
	}

	v, err := s.Store.GetVolunteerByID(id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, &apperr.NotFoundError{Kind: "volunteer", ID: id}
	}
	s.Log.WithFields(logrus.Fields{"volunteer": id, "status": v.Status}).Info("volunteer status changed")
	return v, nil
}

// DeleteVolunteer hard-deletes a volunteer record. Refused while the
// volunteer is still referenced by a camp assignment; the caller must
// unassign first so the camp's member set never holds a dangling id.
func (s *Service) DeleteVolunteer(volunteerID string) error {
	v, err := s.Store.GetVolunteerByID(volunteerID)
	if err != nil {
		return err
	}
	if v == nil {
		return &apperr.NotFoundError{Kind: "volunteer", ID: volunteerID}
	}
	if v.AssignedCampID != nil {
		return &apperr.ConflictError{
			Kind:          "volunteer",
			ID:            volunteerID,
			ConflictingID: *v.AssignedCampID,
			Reason:        "still assigned to a camp",
		}
	}
	return s.Store.DeleteVolunteer(volunteerID)
}

// ApproveFamily moves a pending family to approved. The family workflow is
// the same two-outcome shape as the volunteer one, just without a rejection
// reason.
func (s *Service) ApproveFamily(familyID, adminID string) (*models.Family, error) {
	moved, err := s.Store.TransitionFamilyStatus(familyID, models.FamilyPending, map[string]interface{}{
		"status":      models.FamilyApproved,
		"approved_by": adminID,
		"approved_at": time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if !moved {
		f, err := s.Store.GetFamilyByID(familyID)
		if err != nil {
			return nil, err
		}
		if f == nil {
			return nil, &apperr.NotFoundError{Kind: "family", ID: familyID}
		}
		return nil, &apperr.InvalidStateError{Kind: "family", ID: familyID, Current: f.Status, Want: models.FamilyPending}
	}

	f, err := s.Store.GetFamilyByID(familyID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, &apperr.NotFoundError{Kind: "family", ID: familyID}
	}
	s.Log.WithField("family", familyID).Info("family approved")
	return f, nil
}
