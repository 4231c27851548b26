// Package campledger maintains the many-to-one relation between volunteers
// and relief camps. The relation is stored redundantly on both sides (the
// camp's member array and the volunteer's back-reference) with no shared
// transaction, so every mutation is a two-step saga: each step is atomic,
// the sequence is not, and Reconcile is the compensation that repairs a
// crash between the steps.
package campledger

import (
	"reunite/backend/internal/apperr"
	"reunite/backend/internal/models"

	"github.com/sirupsen/logrus"
)

// Store is the slice of the storage layer the ledger needs.
// *storage.Service satisfies it.
type Store interface {
	GetVolunteerByID(id string) (*models.Volunteer, error)
	GetCampByID(id string) (*models.Camp, error)
	ListVolunteersByStatus(status string) ([]models.Volunteer, error)
	ListCamps() ([]models.Camp, error)

	AddVolunteerToCampSet(campID, volunteerID string) error
	RemoveVolunteerFromCampSet(campID, volunteerID string) error
	SetVolunteerCamp(volunteerID string, campID *string) error
	ClearCampAssignments(campID string) error
	DeleteCamp(id string) error
}

// Ledger handles camp assignment and the symmetry invariant: for every
// volunteer v with an assigned camp c, c's member set contains v, and vice
// versa.
type Ledger struct {
	Store Store
	Log   *logrus.Logger
}

func NewLedger(store Store, log *logrus.Logger) *Ledger {
	return &Ledger{Store: store, Log: log}
}

// Assign adds the volunteer to the camp's member set, then writes the
// volunteer's back-reference. Membership goes first: a crash in between
// leaves a member without a back-reference, which Reconcile completes into
// a full assignment. Re-assigning to the same camp is a no-op success;
// assigning a volunteer who belongs to a different camp is a ConflictError.
func (l *Ledger) Assign(volunteerID, campID string) (*models.Camp, error) {
	v, err := l.Store.GetVolunteerByID(volunteerID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, &apperr.NotFoundError{Kind: "volunteer", ID: volunteerID}
	}
	camp, err := l.Store.GetCampByID(campID)
	if err != nil {
		return nil, err
	}
	if camp == nil {
		return nil, &apperr.NotFoundError{Kind: "camp", ID: campID}
	}

	if v.AssignedCampID != nil && *v.AssignedCampID != campID {
		return nil, &apperr.ConflictError{
			Kind:          "volunteer",
			ID:            volunteerID,
			ConflictingID: *v.AssignedCampID,
			Reason:        "already assigned to another camp, unassign first",
		}
	}

	if err := l.Store.AddVolunteerToCampSet(campID, volunteerID); err != nil {
		return nil, err
	}
	if err := l.Store.SetVolunteerCamp(volunteerID, &campID); err != nil {
		// Half-applied assignment; Reconcile finishes it on the next pass.
		l.Log.WithError(err).WithFields(logrus.Fields{
			"volunteer": volunteerID,
			"camp":      campID,
		}).Error("assignment back-reference write failed, reconciliation will repair")
		return nil, err
	}

	return l.Store.GetCampByID(campID)
}

// Unassign is the mirror saga: remove from the member set, then clear the
// back-reference. A crash in between leaves a back-reference without
// membership, which Reconcile completes into a full unassignment.
func (l *Ledger) Unassign(volunteerID, campID string) (*models.Camp, error) {
	v, err := l.Store.GetVolunteerByID(volunteerID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, &apperr.NotFoundError{Kind: "volunteer", ID: volunteerID}
	}
	camp, err := l.Store.GetCampByID(campID)
	if err != nil {
		return nil, err
	}
	if camp == nil {
		return nil, &apperr.NotFoundError{Kind: "camp", ID: campID}
	}

	if err := l.Store.RemoveVolunteerFromCampSet(campID, volunteerID); err != nil {
		return nil, err
	}
	if v.AssignedCampID != nil && *v.AssignedCampID == campID {
		if err := l.Store.SetVolunteerCamp(volunteerID, nil); err != nil {
			l.Log.WithError(err).WithFields(logrus.Fields{
				"volunteer": volunteerID,
				"camp":      campID,
			}).Error("unassignment back-reference clear failed, reconciliation will repair")
			return nil, err
		}
	}

	return l.Store.GetCampByID(campID)
}

// WouldExceedCapacity reports whether sheltering one more displaced person
// would push the camp past its capacity. A pure query: Assign never enforces
// it, callers may.
func (l *Ledger) WouldExceedCapacity(campID string) (bool, error) {
	camp, err := l.Store.GetCampByID(campID)
	if err != nil {
		return false, err
	}
	if camp == nil {
		return false, &apperr.NotFoundError{Kind: "camp", ID: campID}
	}
	return camp.Occupied+1 > camp.Capacity, nil
}

// RemoveCamp deletes a camp after clearing every member's back-reference,
// so no volunteer is left pointing at a camp that no longer exists.
func (l *Ledger) RemoveCamp(campID string) error {
	camp, err := l.Store.GetCampByID(campID)
	if err != nil {
		return err
	}
	if camp == nil {
		return &apperr.NotFoundError{Kind: "camp", ID: campID}
	}
	if err := l.Store.ClearCampAssignments(campID); err != nil {
		return err
	}
	return l.Store.DeleteCamp(campID)
}

// Reconcile walks both sides of the relation and repairs every divergence,
// returning how many it fixed. Direction of repair follows the saga order:
// membership without a back-reference is an interrupted Assign and is
// completed forward; a back-reference without membership is an interrupted
// Unassign and is completed by clearing the reference. Repairs are logged as
// ConsistencyErrors and never surfaced to callers; the pass itself only
// fails when it cannot read the records at all.
func (l *Ledger) Reconcile() (int, error) {
	volunteers, err := l.Store.ListVolunteersByStatus("")
	if err != nil {
		return 0, err
	}
	camps, err := l.Store.ListCamps()
	if err != nil {
		return 0, err
	}

	volByID := make(map[string]*models.Volunteer, len(volunteers))
	for i := range volunteers {
		volByID[volunteers[i].ID] = &volunteers[i]
	}
	campByID := make(map[string]*models.Camp, len(camps))
	for i := range camps {
		campByID[camps[i].ID] = &camps[i]
	}

	repaired := 0

	// Camp side: every member must exist and point back at this camp.
	for i := range camps {
		camp := &camps[i]
		for _, memberID := range camp.VolunteersAssigned {
			v, exists := volByID[memberID]
			if !exists {
				l.repair(&apperr.ConsistencyError{
					VolunteerID: memberID,
					CampID:      camp.ID,
					Detail:      "member no longer exists, removing from set",
				})
				if err := l.Store.RemoveVolunteerFromCampSet(camp.ID, memberID); err != nil {
					l.Log.WithError(err).Error("reconcile: failed to drop stale member")
					continue
				}
				repaired++
				continue
			}
			switch {
			case v.AssignedCampID == nil:
				// Interrupted Assign: membership written, back-reference not.
				l.repair(&apperr.ConsistencyError{
					VolunteerID: memberID,
					CampID:      camp.ID,
					Detail:      "member missing back-reference, completing assignment",
				})
				campID := camp.ID
				if err := l.Store.SetVolunteerCamp(memberID, &campID); err != nil {
					l.Log.WithError(err).Error("reconcile: failed to complete assignment")
					continue
				}
				v.AssignedCampID = &campID
				repaired++
			case *v.AssignedCampID != camp.ID:
				// Volunteer claims a different camp; that claim wins and this
				// membership is stale.
				l.repair(&apperr.ConsistencyError{
					VolunteerID: memberID,
					CampID:      camp.ID,
					Detail:      "member assigned elsewhere, removing from set",
				})
				if err := l.Store.RemoveVolunteerFromCampSet(camp.ID, memberID); err != nil {
					l.Log.WithError(err).Error("reconcile: failed to drop conflicting member")
					continue
				}
				repaired++
			}
		}
	}

	// Volunteer side: every back-reference must point at an existing camp
	// that lists the volunteer.
	for i := range volunteers {
		v := &volunteers[i]
		if v.AssignedCampID == nil {
			continue
		}
		camp, exists := campByID[*v.AssignedCampID]
		if !exists {
			l.repair(&apperr.ConsistencyError{
				VolunteerID: v.ID,
				CampID:      *v.AssignedCampID,
				Detail:      "camp no longer exists, clearing back-reference",
			})
			if err := l.Store.SetVolunteerCamp(v.ID, nil); err != nil {
				l.Log.WithError(err).Error("reconcile: failed to clear dangling back-reference")
				continue
			}
			repaired++
			continue
		}
		if !camp.HasVolunteer(v.ID) {
			// Interrupted Unassign: membership removed, back-reference kept.
			l.repair(&apperr.ConsistencyError{
				VolunteerID: v.ID,
				CampID:      camp.ID,
				Detail:      "back-reference without membership, completing unassignment",
			})
			if err := l.Store.SetVolunteerCamp(v.ID, nil); err != nil {
				l.Log.WithError(err).Error("reconcile: failed to complete unassignment")
				continue
			}
			repaired++
		}
	}

	if repaired > 0 {
		l.Log.WithField("repaired", repaired).Warn("assignment reconciliation repaired divergences")
	}
	return repaired, nil
}

func (l *Ledger) repair(cerr *apperr.ConsistencyError) {
	l.Log.WithFields(logrus.Fields{
		"volunteer": cerr.VolunteerID,
		"camp":      cerr.CampID,
	}).Warn(cerr.Error())
}
