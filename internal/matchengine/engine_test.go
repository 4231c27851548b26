package matchengine_test

import (
	"errors"
	"io"
	"testing"
	"time"

	"reunite/backend/internal/apperr"
	"reunite/backend/internal/matchengine"
	"reunite/backend/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestEngine(store *MockStore) *matchengine.Engine {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return matchengine.NewEngine(store, log)
}

func strptr(s string) *string { return &s }

// TestSweepSightingPersistsAndPromotes: a new sighting that strongly matches a
// pending request produces a candidate, publishes an event and moves the
// request to matched / the sighting to proposed.
func TestSweepSightingPersistsAndPromotes(t *testing.T) {
	store := new(MockStore)
	engine := newTestEngine(store)

	sg := &models.Sighting{ID: "sg-1", Name: "Ravi Kumar", ApproxAge: 35, Gender: "male", Location: "sector 12", Status: models.SightingUnclaimed}
	strong := models.SearchRequest{ID: "req-1", Name: "Ravi Kumar", ApproxAge: 34, Gender: "male", LastSeenLocation: "sector 12", Status: models.SearchPending}
	weak := models.SearchRequest{ID: "req-2", Name: "Meena Sharma", ApproxAge: 70, Status: models.SearchPending}

	store.On("GetSightingByID", "sg-1").Return(sg, nil)
	store.On("ListSearchRequestsByStatus", []string{models.SearchPending}).Return([]models.SearchRequest{strong, weak}, nil)
	store.On("UpsertMatchCandidate", mock.AnythingOfType("*models.MatchCandidate")).Return(nil).Once()
	store.On("PublishMatchEvent", mock.AnythingOfType("models.MatchEvent")).Return(nil).Once()
	store.On("ListCandidatesForSearch", "req-1").Return([]models.MatchCandidate{
		{SearchRequestID: "req-1", SightingID: "sg-1", Score: 0.9},
	}, nil)
	store.On("TransitionSearchRequestStatus", "req-1", models.SearchPending, mock.Anything).Return(true, nil).Once()
	store.On("TransitionSightingStatus", "sg-1", models.SightingUnclaimed, mock.Anything).Return(true, nil).Once()

	summary := engine.Sweep(models.SweepRequest{Kind: models.SweepSighting, RecordID: "sg-1"})

	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 1, summary.Scored)
	assert.Zero(t, summary.Failed)
	store.AssertExpectations(t)
}

// TestSweepSkipsUnscorablePair: a request with no name is skipped without
// aborting the sweep for the remaining requests.
func TestSweepSkipsUnscorablePair(t *testing.T) {
	store := new(MockStore)
	engine := newTestEngine(store)

	sg := &models.Sighting{ID: "sg-1", Name: "Ravi Kumar", Status: models.SightingUnclaimed}
	nameless := models.SearchRequest{ID: "req-bad", Name: "", Status: models.SearchPending}
	good := models.SearchRequest{ID: "req-1", Name: "Ravi Kumar", Status: models.SearchPending}

	store.On("GetSightingByID", "sg-1").Return(sg, nil)
	store.On("ListSearchRequestsByStatus", []string{models.SearchPending}).Return([]models.SearchRequest{nameless, good}, nil)
	store.On("UpsertMatchCandidate", mock.Anything).Return(nil).Once()
	store.On("PublishMatchEvent", mock.Anything).Return(nil).Once()
	store.On("ListCandidatesForSearch", "req-1").Return([]models.MatchCandidate{
		{SearchRequestID: "req-1", SightingID: "sg-1", Score: 0.4},
	}, nil)
	store.On("TransitionSearchRequestStatus", "req-1", models.SearchPending, mock.Anything).Return(true, nil)
	store.On("TransitionSightingStatus", "sg-1", models.SightingUnclaimed, mock.Anything).Return(true, nil)

	summary := engine.Sweep(models.SweepRequest{Kind: models.SweepSighting, RecordID: "sg-1"})

	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Scored)
	assert.Zero(t, summary.Failed)
}

// TestSweepIsolatesStorageFailure: a failed candidate write counts as a
// failure for that pair only.
func TestSweepIsolatesStorageFailure(t *testing.T) {
	store := new(MockStore)
	engine := newTestEngine(store)

	sg := &models.Sighting{ID: "sg-1", Name: "Ravi Kumar", Status: models.SightingUnclaimed}
	first := models.SearchRequest{ID: "req-1", Name: "Ravi Kumar", Status: models.SearchPending}
	second := models.SearchRequest{ID: "req-2", Name: "Ravi Kumar", Status: models.SearchPending}

	store.On("GetSightingByID", "sg-1").Return(sg, nil)
	store.On("ListSearchRequestsByStatus", []string{models.SearchPending}).Return([]models.SearchRequest{first, second}, nil)
	store.On("UpsertMatchCandidate", mock.Anything).Return(errors.New("db down")).Once()
	store.On("UpsertMatchCandidate", mock.Anything).Return(nil).Once()
	store.On("PublishMatchEvent", mock.Anything).Return(nil).Once()
	store.On("ListCandidatesForSearch", "req-2").Return([]models.MatchCandidate{
		{SearchRequestID: "req-2", SightingID: "sg-1", Score: 0.4},
	}, nil)
	store.On("TransitionSearchRequestStatus", "req-2", models.SearchPending, mock.Anything).Return(true, nil)
	store.On("TransitionSightingStatus", "sg-1", models.SightingUnclaimed, mock.Anything).Return(true, nil)

	summary := engine.Sweep(models.SweepRequest{Kind: models.SweepSighting, RecordID: "sg-1"})

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Scored)
	store.AssertExpectations(t)
}

// TestSweepDirectionsAgree: the sighting-triggered and request-triggered
// sweeps persist the same score for the same pair.
func TestSweepDirectionsAgree(t *testing.T) {
	sg := &models.Sighting{ID: "sg-1", Name: "Anita Devi", ApproxAge: 58, Gender: "female", Location: "riverside shelter", Status: models.SightingUnclaimed}
	req := &models.SearchRequest{ID: "req-1", Name: "Anita Devi", ApproxAge: 61, Gender: "female", LastSeenLocation: "riverside shelter block B", Status: models.SearchPending}

	var scores []float64
	capture := func(args mock.Arguments) {
		scores = append(scores, args.Get(0).(*models.MatchCandidate).Score)
	}

	store := new(MockStore)
	engine := newTestEngine(store)
	store.On("GetSightingByID", "sg-1").Return(sg, nil)
	store.On("ListSearchRequestsByStatus", []string{models.SearchPending}).Return([]models.SearchRequest{*req}, nil)
	store.On("UpsertMatchCandidate", mock.Anything).Run(capture).Return(nil)
	store.On("PublishMatchEvent", mock.Anything).Return(nil)
	store.On("ListCandidatesForSearch", "req-1").Return([]models.MatchCandidate{{SearchRequestID: "req-1", SightingID: "sg-1", Score: 0.9}}, nil)
	store.On("TransitionSearchRequestStatus", "req-1", models.SearchPending, mock.Anything).Return(true, nil)
	store.On("TransitionSightingStatus", "sg-1", models.SightingUnclaimed, mock.Anything).Return(true, nil)
	engine.Sweep(models.SweepRequest{Kind: models.SweepSighting, RecordID: "sg-1"})

	store2 := new(MockStore)
	engine2 := newTestEngine(store2)
	store2.On("GetSearchRequestByID", "req-1").Return(req, nil)
	store2.On("ListSightingsByStatus", []string{models.SightingUnclaimed, models.SightingProposed}).Return([]models.Sighting{*sg}, nil)
	store2.On("UpsertMatchCandidate", mock.Anything).Run(capture).Return(nil)
	store2.On("PublishMatchEvent", mock.Anything).Return(nil)
	store2.On("ListCandidatesForSearch", "req-1").Return([]models.MatchCandidate{{SearchRequestID: "req-1", SightingID: "sg-1", Score: 0.9}}, nil)
	store2.On("TransitionSearchRequestStatus", "req-1", models.SearchPending, mock.Anything).Return(true, nil)
	store2.On("TransitionSightingStatus", "sg-1", models.SightingUnclaimed, mock.Anything).Return(true, nil)
	engine2.Sweep(models.SweepRequest{Kind: models.SweepSearchRequest, RecordID: "req-1"})

	require.Len(t, scores, 2)
	assert.Equal(t, scores[0], scores[1])
}

// TestSweepResolvedRecordsAreNoops: confirmed sightings and non-pending
// requests are not swept.
func TestSweepResolvedRecordsAreNoops(t *testing.T) {
	store := new(MockStore)
	engine := newTestEngine(store)

	store.On("GetSightingByID", "sg-done").Return(&models.Sighting{ID: "sg-done", Status: models.SightingConfirmed}, nil)
	store.On("GetSearchRequestByID", "req-done").Return(&models.SearchRequest{ID: "req-done", Status: models.SearchMatched}, nil)

	assert.Zero(t, engine.Sweep(models.SweepRequest{Kind: models.SweepSighting, RecordID: "sg-done"}).Attempted)
	assert.Zero(t, engine.Sweep(models.SweepRequest{Kind: models.SweepSearchRequest, RecordID: "req-done"}).Attempted)
	store.AssertNotCalled(t, "ListSearchRequestsByStatus", mock.Anything)
	store.AssertNotCalled(t, "ListSightingsByStatus", mock.Anything)
}

// TestRepeatSweepDoesNotDoublePromote: re-sweeping a pair upserts the same
// candidate and the compare-and-set refuses the second promotion.
func TestRepeatSweepDoesNotDoublePromote(t *testing.T) {
	store := new(MockStore)
	engine := newTestEngine(store)

	sg := &models.Sighting{ID: "sg-1", Name: "Ravi Kumar", Status: models.SightingUnclaimed}
	req := models.SearchRequest{ID: "req-1", Name: "Ravi Kumar", Status: models.SearchPending}

	store.On("GetSightingByID", "sg-1").Return(sg, nil)
	store.On("ListSearchRequestsByStatus", []string{models.SearchPending}).Return([]models.SearchRequest{req}, nil)
	store.On("UpsertMatchCandidate", mock.Anything).Return(nil).Twice()
	store.On("PublishMatchEvent", mock.Anything).Return(nil).Twice()
	store.On("ListCandidatesForSearch", "req-1").Return([]models.MatchCandidate{{SearchRequestID: "req-1", SightingID: "sg-1", Score: 0.4}}, nil)
	store.On("TransitionSearchRequestStatus", "req-1", models.SearchPending, mock.Anything).Return(true, nil).Once()
	store.On("TransitionSearchRequestStatus", "req-1", models.SearchPending, mock.Anything).Return(false, nil).Once()
	store.On("TransitionSightingStatus", "sg-1", models.SightingUnclaimed, mock.Anything).Return(true, nil).Once()

	first := engine.Sweep(models.SweepRequest{Kind: models.SweepSighting, RecordID: "sg-1"})
	again := engine.Sweep(models.SweepRequest{Kind: models.SweepSighting, RecordID: "sg-1"})

	assert.Equal(t, 1, first.Scored)
	assert.Equal(t, 1, again.Scored)
	assert.Zero(t, again.Failed)
	store.AssertExpectations(t)
}

// TestConfirmMatchRetiresSiblings: confirming settles both records and keeps
// rival candidates as retired history rather than deleting them.
func TestConfirmMatchRetiresSiblings(t *testing.T) {
	store := new(MockStore)
	engine := newTestEngine(store)

	matched := &models.SearchRequest{ID: "req-1", Status: models.SearchMatched, MatchedSightingID: strptr("sg-1")}
	settled := &models.SearchRequest{ID: "req-1", Status: models.SearchConfirmed, MatchedSightingID: strptr("sg-1")}
	proposed := &models.Sighting{ID: "sg-1", Status: models.SightingProposed}
	resolved := &models.Sighting{ID: "sg-1", Status: models.SightingConfirmed}

	store.On("GetSearchRequestByID", "req-1").Return(matched, nil).Once()
	store.On("GetSightingByID", "sg-1").Return(proposed, nil).Once()
	store.On("GetMatchCandidate", "req-1", "sg-1").Return(&models.MatchCandidate{SearchRequestID: "req-1", SightingID: "sg-1", Score: 0.9}, nil)
	store.On("TransitionSearchRequestStatus", "req-1", models.SearchMatched, mock.Anything).Return(true, nil)
	store.On("TransitionSightingStatus", "sg-1", models.SightingProposed, mock.Anything).Return(true, nil)
	store.On("SetCandidateConfirmed", "req-1", "sg-1", true).Return(nil).Once()
	store.On("RetireSiblingCandidates", "sg-1", "req-1").Return(nil).Once()
	store.On("GetSearchRequestByID", "req-1").Return(settled, nil).Once()
	store.On("GetSightingByID", "sg-1").Return(resolved, nil).Once()

	r, sg, err := engine.ConfirmMatch("req-1", "sg-1")
	require.NoError(t, err)
	assert.Equal(t, models.SearchConfirmed, r.Status)
	assert.Equal(t, models.SightingConfirmed, sg.Status)
	store.AssertExpectations(t)
}

// TestConfirmMatchIdempotent: confirming an already confirmed pair succeeds
// without touching storage again.
func TestConfirmMatchIdempotent(t *testing.T) {
	store := new(MockStore)
	engine := newTestEngine(store)

	store.On("GetSearchRequestByID", "req-1").Return(&models.SearchRequest{
		ID: "req-1", Status: models.SearchConfirmed, MatchedSightingID: strptr("sg-1"),
	}, nil)
	store.On("GetSightingByID", "sg-1").Return(&models.Sighting{ID: "sg-1", Status: models.SightingConfirmed}, nil)
	store.On("GetMatchCandidate", "req-1", "sg-1").Return(&models.MatchCandidate{SearchRequestID: "req-1", SightingID: "sg-1"}, nil)

	_, _, err := engine.ConfirmMatch("req-1", "sg-1")
	require.NoError(t, err)
	store.AssertNotCalled(t, "TransitionSearchRequestStatus", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "RetireSiblingCandidates", mock.Anything, mock.Anything)
}

// TestConfirmMatchRejectsConflictingSighting: a request already confirmed
// against one sighting cannot be confirmed against another.
func TestConfirmMatchRejectsConflictingSighting(t *testing.T) {
	store := new(MockStore)
	engine := newTestEngine(store)

	store.On("GetSearchRequestByID", "req-1").Return(&models.SearchRequest{
		ID: "req-1", Status: models.SearchConfirmed, MatchedSightingID: strptr("sg-other"),
	}, nil)
	store.On("GetSightingByID", "sg-1").Return(&models.Sighting{ID: "sg-1", Status: models.SightingProposed}, nil)
	store.On("GetMatchCandidate", "req-1", "sg-1").Return(&models.MatchCandidate{SearchRequestID: "req-1", SightingID: "sg-1"}, nil)

	_, _, err := engine.ConfirmMatch("req-1", "sg-1")
	var stateErr *apperr.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, models.SearchConfirmed, stateErr.Current)
}

// TestConfirmMatchUnknownCandidate: confirming a pair the engine never scored
// is a not-found, not a silent success.
func TestConfirmMatchUnknownCandidate(t *testing.T) {
	store := new(MockStore)
	engine := newTestEngine(store)

	store.On("GetSearchRequestByID", "req-1").Return(&models.SearchRequest{ID: "req-1", Status: models.SearchPending}, nil)
	store.On("GetSightingByID", "sg-1").Return(&models.Sighting{ID: "sg-1", Status: models.SightingUnclaimed}, nil)
	store.On("GetMatchCandidate", "req-1", "sg-1").Return(nil, nil)

	_, _, err := engine.ConfirmMatch("req-1", "sg-1")
	var notFound *apperr.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

// TestEnqueueNeverBlocks: record creation must not stall even when the sweep
// channel is saturated; the backlog entry carries the sweep instead.
func TestEnqueueNeverBlocks(t *testing.T) {
	store := new(MockStore)
	engine := newTestEngine(store)

	store.On("AddSweepBacklog", mock.AnythingOfType("models.SweepRequest")).Return(nil)

	for i := 0; i < cap(engine.SweepCh); i++ {
		engine.SweepCh <- models.SweepRequest{Kind: models.SweepSighting, RecordID: "filler"}
	}

	done := make(chan struct{})
	go func() {
		engine.OnSightingCreated(&models.Sighting{ID: "sg-1"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full sweep channel")
	}
	store.AssertCalled(t, "AddSweepBacklog", models.SweepRequest{Kind: models.SweepSighting, RecordID: "sg-1"})
}
