package approval_test

import (
	"reunite/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetVolunteerByID(id string) (*models.Volunteer, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Volunteer), args.Error(1)
}

func (m *MockStore) TransitionVolunteerStatus(id, from string, updates map[string]interface{}) (bool, error) {
	args := m.Called(id, from, updates)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) DeleteVolunteer(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockStore) GetFamilyByID(id string) (*models.Family, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Family), args.Error(1)
}

func (m *MockStore) TransitionFamilyStatus(id, from string, updates map[string]interface{}) (bool, error) {
	args := m.Called(id, from, updates)
	return args.Bool(0), args.Error(1)
}
