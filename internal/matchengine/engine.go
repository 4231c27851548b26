// Package matchengine matches search requests against sightings as both
// streams arrive independently. Sweeps run on a single goroutine fed by a
// channel plus a Redis-backed backlog, so record creation never blocks on
// matching and a restart resumes unfinished sweeps.
package matchengine

import (
	"time"

	"reunite/backend/internal/apperr"
	"reunite/backend/internal/config"
	"reunite/backend/internal/models"

	"github.com/sirupsen/logrus"
)

// Store is the slice of the storage layer the engine needs.
// *storage.Service satisfies it.
type Store interface {
	GetSearchRequestByID(id string) (*models.SearchRequest, error)
	GetSightingByID(id string) (*models.Sighting, error)
	ListSearchRequestsByStatus(statuses ...string) ([]models.SearchRequest, error)
	ListSightingsByStatus(statuses ...string) ([]models.Sighting, error)
	TransitionSearchRequestStatus(id, from string, updates map[string]interface{}) (bool, error)
	TransitionSightingStatus(id, from string, updates map[string]interface{}) (bool, error)

	UpsertMatchCandidate(c *models.MatchCandidate) error
	GetMatchCandidate(searchRequestID, sightingID string) (*models.MatchCandidate, error)
	ListCandidatesForSearch(searchRequestID string) ([]models.MatchCandidate, error)
	SetCandidateConfirmed(searchRequestID, sightingID string, confirmed bool) error
	RetireSiblingCandidates(sightingID, keepSearchRequestID string) error

	AddSweepBacklog(req models.SweepRequest) error
	RemoveSweepBacklog(req models.SweepRequest) error
	ListSweepBacklog() ([]models.SweepRequest, error)
	PublishMatchEvent(ev models.MatchEvent) error
}

// SweepSummary aggregates one sweep's outcome. A single bad record must
// never block matching for the others, so failures are counted here instead
// of aborting.
type SweepSummary struct {
	Attempted int // pairs considered
	Scored    int // candidates persisted (score at/above threshold)
	Skipped   int // pairs skipped for missing comparison fields
	Failed    int // pairs that errored (storage etc.)
}

// Engine computes, ranks and persists match candidates.
type Engine struct {
	Store     Store
	Log       *logrus.Logger
	Threshold float64

	SweepCh chan models.SweepRequest
}

func NewEngine(store Store, log *logrus.Logger) *Engine {
	return &Engine{
		Store:     store,
		Log:       log,
		Threshold: config.DefaultScoreThreshold,
		SweepCh:   make(chan models.SweepRequest, 64),
	}
}

// Run drains the sweep channel and, when idle, the Redis backlog. It never
// returns; start it on its own goroutine.
func (e *Engine) Run() {
	e.Log.Info("match engine started")

	for {
		select {
		case req := <-e.SweepCh:
			e.process(req)
		default:
			backlog, err := e.Store.ListSweepBacklog()
			if err != nil {
				e.Log.WithError(err).Error("failed to read sweep backlog")
				time.Sleep(config.SweepIdlePause)
				continue
			}
			if len(backlog) == 0 {
				time.Sleep(config.SweepIdlePause)
				continue
			}
			for _, req := range backlog {
				e.process(req)
			}
		}
	}
}

// OnSightingCreated schedules a sweep of pending search requests against the
// new sighting. Never blocks: the request lands in the Redis backlog first,
// and the channel send is best effort.
func (e *Engine) OnSightingCreated(sg *models.Sighting) {
	e.enqueue(models.SweepRequest{Kind: models.SweepSighting, RecordID: sg.ID})
}

// OnSearchRequestCreated schedules the symmetric sweep over open sightings.
// Both directions are required: either record can arrive first, and omitting
// one direction silently loses matches.
func (e *Engine) OnSearchRequestCreated(r *models.SearchRequest) {
	e.enqueue(models.SweepRequest{Kind: models.SweepSearchRequest, RecordID: r.ID})
}

func (e *Engine) enqueue(req models.SweepRequest) {
	if err := e.Store.AddSweepBacklog(req); err != nil {
		// Backlog write failed; the channel send below still delivers the
		// sweep unless the process dies first.
		e.Log.WithError(err).WithField("record", req.RecordID).Error("failed to persist sweep backlog entry")
	}
	select {
	case e.SweepCh <- req:
	default:
		// Channel full; the Run loop picks the entry up from the backlog.
	}
}

func (e *Engine) process(req models.SweepRequest) {
	summary := e.Sweep(req)

	if err := e.Store.RemoveSweepBacklog(req); err != nil {
		e.Log.WithError(err).Warn("failed to clear sweep backlog entry")
	}

	e.Log.WithFields(logrus.Fields{
		"kind":      req.Kind,
		"record":    req.RecordID,
		"attempted": summary.Attempted,
		"scored":    summary.Scored,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	}).Info("sweep complete")
}

// Sweep runs one sweep synchronously and returns its summary. Run calls it
// from the engine goroutine; it is safe to call directly as well because
// every write it performs is an idempotent upsert or a compare-and-set.
func (e *Engine) Sweep(req models.SweepRequest) SweepSummary {
	switch req.Kind {
	case models.SweepSighting:
		return e.sweepSighting(req.RecordID)
	case models.SweepSearchRequest:
		return e.sweepSearchRequest(req.RecordID)
	default:
		e.Log.WithField("kind", req.Kind).Warn("unknown sweep kind, dropping")
		return SweepSummary{}
	}
}

// sweepSighting scans every pending search request against one sighting.
func (e *Engine) sweepSighting(sightingID string) SweepSummary {
	var summary SweepSummary

	sg, err := e.Store.GetSightingByID(sightingID)
	if err != nil {
		e.Log.WithError(err).WithField("sighting", sightingID).Error("sweep aborted: cannot load sighting")
		summary.Failed++
		return summary
	}
	if sg == nil || sg.Status == models.SightingConfirmed {
		return summary
	}

	reqs, err := e.Store.ListSearchRequestsByStatus(models.SearchPending)
	if err != nil {
		e.Log.WithError(err).Error("sweep aborted: cannot list pending search requests")
		summary.Failed++
		return summary
	}

	for i := range reqs {
		r := &reqs[i]
		summary.Attempted++
		if !e.scorePair(r, sg, &summary) {
			continue
		}
		e.promote(r.ID)
	}
	return summary
}

// sweepSearchRequest scans one search request against every sighting that is
// not yet confirmed. Proposed sightings stay in scope because one sighting
// may match several requests pending human disambiguation.
func (e *Engine) sweepSearchRequest(searchRequestID string) SweepSummary {
	var summary SweepSummary

	r, err := e.Store.GetSearchRequestByID(searchRequestID)
	if err != nil {
		e.Log.WithError(err).WithField("search_request", searchRequestID).Error("sweep aborted: cannot load search request")
		summary.Failed++
		return summary
	}
	if r == nil || r.Status != models.SearchPending {
		return summary
	}

	sightings, err := e.Store.ListSightingsByStatus(models.SightingUnclaimed, models.SightingProposed)
	if err != nil {
		e.Log.WithError(err).Error("sweep aborted: cannot list open sightings")
		summary.Failed++
		return summary
	}

	for i := range sightings {
		summary.Attempted++
		e.scorePair(r, &sightings[i], &summary)
	}
	if summary.Scored > 0 {
		e.promote(r.ID)
	}
	return summary
}

// scorePair scores one pair, persists the candidate when it clears the
// threshold and publishes a match event. Failures are isolated to the pair.
// Returns true when a candidate was persisted.
func (e *Engine) scorePair(r *models.SearchRequest, sg *models.Sighting, summary *SweepSummary) bool {
	score, err := Score(r, sg)
	if err != nil {
		// Missing comparison fields on one side; skip the pair, not the sweep.
		summary.Skipped++
		e.Log.WithError(err).WithFields(logrus.Fields{
			"search_request": r.ID,
			"sighting":       sg.ID,
		}).Debug("pair skipped")
		return false
	}
	if score < e.Threshold {
		return false
	}

	candidate := &models.MatchCandidate{
		SearchRequestID: r.ID,
		SightingID:      sg.ID,
		Score:           score,
		ComputedAt:      time.Now(),
	}
	if err := e.Store.UpsertMatchCandidate(candidate); err != nil {
		summary.Failed++
		e.Log.WithError(err).WithFields(logrus.Fields{
			"search_request": r.ID,
			"sighting":       sg.ID,
		}).Error("failed to persist candidate")
		return false
	}
	summary.Scored++

	if err := e.Store.PublishMatchEvent(models.MatchEvent{
		SearchRequestID: r.ID,
		SightingID:      sg.ID,
		MissingName:     r.Name,
		Score:           score,
		OccurredAt:      time.Now(),
	}); err != nil {
		e.Log.WithError(err).Warn("failed to publish match event")
	}
	return true
}

// promote moves a still-pending request to matched when its top candidate
// clears the threshold. The compare-and-set keeps concurrent sweeps from
// double-promoting; the loser's ranking lands in the same candidate table
// either way. The sighting is only flagged proposed, never resolved, until
// an explicit confirmation.
func (e *Engine) promote(searchRequestID string) {
	candidates, err := e.Store.ListCandidatesForSearch(searchRequestID)
	if err != nil {
		e.Log.WithError(err).WithField("search_request", searchRequestID).Error("failed to rank candidates")
		return
	}
	if len(candidates) == 0 || candidates[0].Score < e.Threshold {
		return
	}
	top := candidates[0]

	moved, err := e.Store.TransitionSearchRequestStatus(searchRequestID, models.SearchPending, map[string]interface{}{
		"status":              models.SearchMatched,
		"matched_sighting_id": top.SightingID,
	})
	if err != nil {
		e.Log.WithError(err).WithField("search_request", searchRequestID).Error("failed to promote search request")
		return
	}
	if !moved {
		return
	}

	if _, err := e.Store.TransitionSightingStatus(top.SightingID, models.SightingUnclaimed, map[string]interface{}{
		"status": models.SightingProposed,
	}); err != nil {
		e.Log.WithError(err).WithField("sighting", top.SightingID).Error("failed to flag sighting as proposed")
	}

	e.Log.WithFields(logrus.Fields{
		"search_request": searchRequestID,
		"sighting":       top.SightingID,
		"score":          top.Score,
	}).Info("search request matched")
}

// ListCandidates returns a request's candidates, highest score first.
func (e *Engine) ListCandidates(searchRequestID string) ([]models.MatchCandidate, error) {
	r, err := e.Store.GetSearchRequestByID(searchRequestID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, &apperr.NotFoundError{Kind: "search request", ID: searchRequestID}
	}
	return e.Store.ListCandidatesForSearch(searchRequestID)
}

// ConfirmMatch settles a candidate: the search request and the sighting both
// move to confirmed, the winning candidate is marked confirmed and every
// other candidate referencing the sighting is retired (kept with
// confirmed=false). Confirming the same pair again is a no-op success.
func (e *Engine) ConfirmMatch(searchRequestID, sightingID string) (*models.SearchRequest, *models.Sighting, error) {
	r, err := e.Store.GetSearchRequestByID(searchRequestID)
	if err != nil {
		return nil, nil, err
	}
	if r == nil {
		return nil, nil, &apperr.NotFoundError{Kind: "search request", ID: searchRequestID}
	}
	sg, err := e.Store.GetSightingByID(sightingID)
	if err != nil {
		return nil, nil, err
	}
	if sg == nil {
		return nil, nil, &apperr.NotFoundError{Kind: "sighting", ID: sightingID}
	}
	candidate, err := e.Store.GetMatchCandidate(searchRequestID, sightingID)
	if err != nil {
		return nil, nil, err
	}
	if candidate == nil {
		return nil, nil, &apperr.NotFoundError{Kind: "match candidate", ID: searchRequestID + "/" + sightingID}
	}

	if r.Status == models.SearchConfirmed {
		if r.MatchedSightingID != nil && *r.MatchedSightingID == sightingID {
			return r, sg, nil
		}
		return nil, nil, &apperr.InvalidStateError{
			Kind:    "search request",
			ID:      searchRequestID,
			Current: r.Status,
			Want:    models.SearchPending + " or " + models.SearchMatched,
		}
	}

	moved, err := e.Store.TransitionSearchRequestStatus(searchRequestID, r.Status, map[string]interface{}{
		"status":              models.SearchConfirmed,
		"matched_sighting_id": sightingID,
	})
	if err != nil {
		return nil, nil, err
	}
	if !moved {
		// Lost a race; report whatever state the request is in now.
		current, err := e.Store.GetSearchRequestByID(searchRequestID)
		if err != nil {
			return nil, nil, err
		}
		state := "unknown"
		if current != nil {
			state = current.Status
		}
		return nil, nil, &apperr.InvalidStateError{
			Kind:    "search request",
			ID:      searchRequestID,
			Current: state,
			Want:    r.Status,
		}
	}

	if sg.Status != models.SightingConfirmed {
		if _, err := e.Store.TransitionSightingStatus(sightingID, sg.Status, map[string]interface{}{
			"status": models.SightingConfirmed,
		}); err != nil {
			return nil, nil, err
		}
	}

	if err := e.Store.SetCandidateConfirmed(searchRequestID, sightingID, true); err != nil {
		return nil, nil, err
	}
	if err := e.Store.RetireSiblingCandidates(sightingID, searchRequestID); err != nil {
		return nil, nil, err
	}

	r, err = e.Store.GetSearchRequestByID(searchRequestID)
	if err != nil {
		return nil, nil, err
	}
	sg, err = e.Store.GetSightingByID(sightingID)
	if err != nil {
		return nil, nil, err
	}
	return r, sg, nil
}
