// Package apperr defines the error taxonomy shared by the core services.
// Handlers map these types to HTTP statuses at the boundary; the services
// themselves never deal in status codes.
package apperr

import "fmt"

// ValidationError marks a single record as unusable for an operation, e.g. a
// sighting missing the fields the scorer compares on. It isolates that
// record and must never abort a batch.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an unknown record id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// InvalidStateError reports a transition attempted from a state that does
// not permit it. Current carries the state the record was actually in so the
// caller can render a specific message.
type InvalidStateError struct {
	Kind    string
	ID      string
	Current string
	Want    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s is %q, expected %q", e.Kind, e.ID, e.Current, e.Want)
}

// ConflictError reports an operation that would violate an exclusivity rule,
// e.g. assigning a volunteer who already belongs to another camp.
// ConflictingID names the record that holds the conflicting claim.
type ConflictError struct {
	Kind          string
	ID            string
	ConflictingID string
	Reason        string
}

func (e *ConflictError) Error() string {
	if e.ConflictingID != "" {
		return fmt.Sprintf("%s %s: %s (conflicts with %s)", e.Kind, e.ID, e.Reason, e.ConflictingID)
	}
	return fmt.Sprintf("%s %s: %s", e.Kind, e.ID, e.Reason)
}

// ConsistencyError records a divergent camp/volunteer back-reference found
// by the reconciliation pass. It is logged while being repaired and is never
// surfaced to callers.
type ConsistencyError struct {
	VolunteerID string
	CampID      string
	Detail      string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("assignment divergence volunteer=%s camp=%s: %s", e.VolunteerID, e.CampID, e.Detail)
}
