package matchengine_test

import (
	"reunite/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetSearchRequestByID(id string) (*models.SearchRequest, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SearchRequest), args.Error(1)
}

func (m *MockStore) GetSightingByID(id string) (*models.Sighting, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Sighting), args.Error(1)
}

func (m *MockStore) ListSearchRequestsByStatus(statuses ...string) ([]models.SearchRequest, error) {
	args := m.Called(statuses)
	return args.Get(0).([]models.SearchRequest), args.Error(1)
}

func (m *MockStore) ListSightingsByStatus(statuses ...string) ([]models.Sighting, error) {
	args := m.Called(statuses)
	return args.Get(0).([]models.Sighting), args.Error(1)
}

func (m *MockStore) TransitionSearchRequestStatus(id, from string, updates map[string]interface{}) (bool, error) {
	args := m.Called(id, from, updates)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) TransitionSightingStatus(id, from string, updates map[string]interface{}) (bool, error) {
	args := m.Called(id, from, updates)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) UpsertMatchCandidate(c *models.MatchCandidate) error {
	args := m.Called(c)
	return args.Error(0)
}

func (m *MockStore) GetMatchCandidate(searchRequestID, sightingID string) (*models.MatchCandidate, error) {
	args := m.Called(searchRequestID, sightingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MatchCandidate), args.Error(1)
}

func (m *MockStore) ListCandidatesForSearch(searchRequestID string) ([]models.MatchCandidate, error) {
	args := m.Called(searchRequestID)
	return args.Get(0).([]models.MatchCandidate), args.Error(1)
}

func (m *MockStore) SetCandidateConfirmed(searchRequestID, sightingID string, confirmed bool) error {
	args := m.Called(searchRequestID, sightingID, confirmed)
	return args.Error(0)
}

func (m *MockStore) RetireSiblingCandidates(sightingID, keepSearchRequestID string) error {
	args := m.Called(sightingID, keepSearchRequestID)
	return args.Error(0)
}

func (m *MockStore) AddSweepBacklog(req models.SweepRequest) error {
	args := m.Called(req)
	return args.Error(0)
}

func (m *MockStore) RemoveSweepBacklog(req models.SweepRequest) error {
	args := m.Called(req)
	return args.Error(0)
}

func (m *MockStore) ListSweepBacklog() ([]models.SweepRequest, error) {
	args := m.Called()
	return args.Get(0).([]models.SweepRequest), args.Error(1)
}

func (m *MockStore) PublishMatchEvent(ev models.MatchEvent) error {
	args := m.Called(ev)
	return args.Error(0)
}
