package matchengine_test

import (
	"testing"
	"time"

	"reunite/backend/internal/apperr"
	"reunite/backend/internal/matchengine"
	"reunite/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// TestScoreCloseMatch verifies the canonical near-identical pair scores well
// above the persistence threshold.
func TestScoreCloseMatch(t *testing.T) {
	req := &models.SearchRequest{
		Name:             "Ravi Kumar",
		ApproxAge:        34,
		Gender:           "male",
		LastSeenLocation: "Sector 12 camp",
		DateLastSeen:     day("2025-07-10"),
	}
	sg := &models.Sighting{
		Name:      "Ravi Kumar",
		ApproxAge: 35,
		Gender:    "male",
		Location:  "Sector 12",
		CreatedAt: day("2025-07-12"),
	}

	score, err := matchengine.Score(req, sg)
	require.NoError(t, err)

	// name 0.40 + age 0.18 + gender 0.15 + location 0.10 + date 0.093
	assert.InDelta(t, 0.92, score, 0.02)
	assert.GreaterOrEqual(t, score, 0.35)
}

// TestScoreGenderMismatchDisqualifies: differing stated genders zero the
// pair regardless of everything else matching perfectly.
func TestScoreGenderMismatchDisqualifies(t *testing.T) {
	req := &models.SearchRequest{
		Name:             "Ravi Kumar",
		ApproxAge:        34,
		Gender:           "female",
		LastSeenLocation: "Sector 12 camp",
		DateLastSeen:     day("2025-07-10"),
	}
	sg := &models.Sighting{
		Name:      "Ravi Kumar",
		ApproxAge: 34,
		Gender:    "male",
		Location:  "Sector 12 camp",
		CreatedAt: day("2025-07-10"),
	}

	score, err := matchengine.Score(req, sg)
	require.NoError(t, err)
	assert.Zero(t, score)
}

// TestScoreUnspecifiedGenderIsNotDisqualifying: a missing gender on either
// side only forfeits the gender weight.
func TestScoreUnspecifiedGenderIsNotDisqualifying(t *testing.T) {
	req := &models.SearchRequest{Name: "Ravi Kumar", Gender: ""}
	sg := &models.Sighting{Name: "Ravi Kumar", Gender: "male"}

	score, err := matchengine.Score(req, sg)
	require.NoError(t, err)

	// Identical names alone are worth the full name weight.
	assert.InDelta(t, 0.40, score, 0.001)
}

// TestScoreMissingNameIsValidationError: a record without a name cannot be
// scored and must be skippable, not fatal.
func TestScoreMissingNameIsValidationError(t *testing.T) {
	req := &models.SearchRequest{Name: "  "}
	sg := &models.Sighting{Name: "Ravi Kumar"}

	_, err := matchengine.Score(req, sg)
	var validationErr *apperr.ValidationError
	require.ErrorAs(t, err, &validationErr)

	_, err = matchengine.Score(&models.SearchRequest{Name: "Ravi"}, &models.Sighting{})
	require.ErrorAs(t, err, &validationErr)
}

// TestScoreDeterministic: the score is a pure function of the two records,
// so the sighting-triggered and request-triggered sweeps see the same value.
func TestScoreDeterministic(t *testing.T) {
	req := &models.SearchRequest{
		Name:             "Anita Devi",
		ApproxAge:        61,
		Gender:           "female",
		LastSeenLocation: "riverside shelter block B",
		DateLastSeen:     day("2025-07-01"),
	}
	sg := &models.Sighting{
		Name:      "Anita Devi",
		ApproxAge: 58,
		Gender:    "female",
		Location:  "riverside shelter",
		CreatedAt: day("2025-07-20"),
	}

	first, err := matchengine.Score(req, sg)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := matchengine.Score(req, sg)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

// TestScoreTokenOverlapNameOrder: transposed name tokens still count as a
// full name match.
func TestScoreTokenOverlapNameOrder(t *testing.T) {
	req := &models.SearchRequest{Name: "Ravi Kumar"}
	sg := &models.Sighting{Name: "Kumar Ravi"}

	score, err := matchengine.Score(req, sg)
	require.NoError(t, err)
	assert.InDelta(t, 0.40, score, 0.001)
}

// TestScoreAgeProximity checks both ends of the age window.
func TestScoreAgeProximity(t *testing.T) {
	base := &models.Sighting{Name: "x", ApproxAge: 30}

	same, err := matchengine.Score(&models.SearchRequest{Name: "x", ApproxAge: 30}, base)
	require.NoError(t, err)

	far, err := matchengine.Score(&models.SearchRequest{Name: "x", ApproxAge: 55}, base)
	require.NoError(t, err)

	// 25 years apart exceeds the 10 year spread, so the whole age weight is
	// gone; equal ages keep all of it.
	assert.InDelta(t, 0.20, same-far, 0.001)
}

// TestScoreDistantPairBelowThreshold: unrelated records stay under the
// persistence threshold.
func TestScoreDistantPairBelowThreshold(t *testing.T) {
	req := &models.SearchRequest{
		Name:             "Sunil Joshi",
		ApproxAge:        12,
		Gender:           "male",
		LastSeenLocation: "old market",
		DateLastSeen:     day("2025-01-01"),
	}
	sg := &models.Sighting{
		Name:      "Meena Sharma",
		ApproxAge: 70,
		Gender:    "male",
		Location:  "north ridge",
		CreatedAt: day("2025-07-12"),
	}

	score, err := matchengine.Score(req, sg)
	require.NoError(t, err)
	assert.Less(t, score, 0.35)
}
