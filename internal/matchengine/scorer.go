package matchengine

import (
	"math"
	"strings"

	"reunite/backend/internal/apperr"
	"reunite/backend/internal/config"
	"reunite/backend/internal/models"
)

// Score computes the weighted similarity of a (search request, sighting)
// pair in [0,1]. It is a pure function of the two records, so re-scoring the
// same pair always yields the same value regardless of which side triggered
// the sweep.
//
// Names are required on both sides; a missing name returns a
// ValidationError so the caller can skip that record without aborting the
// batch. A gender stated on both sides that differs disqualifies the pair
// outright (score 0), it is not merely penalizing. Other missing fields just
// contribute nothing to the score.
func Score(req *models.SearchRequest, sg *models.Sighting) (float64, error) {
	reqName := normalize(req.Name)
	sgName := normalize(sg.Name)
	if reqName == "" {
		return 0, &apperr.ValidationError{Field: "search_request.name", Reason: "required for scoring"}
	}
	if sgName == "" {
		return 0, &apperr.ValidationError{Field: "sighting.name", Reason: "required for scoring"}
	}

	reqGender := normalize(req.Gender)
	sgGender := normalize(sg.Gender)
	if reqGender != "" && sgGender != "" && reqGender != sgGender {
		return 0, nil
	}

	score := config.NameWeight * nameSimilarity(reqName, sgName)

	if req.ApproxAge > 0 && sg.ApproxAge > 0 {
		diff := math.Abs(float64(req.ApproxAge - sg.ApproxAge))
		score += config.AgeWeight * (1 - math.Min(1, diff/config.AgeSpreadYears))
	}

	if reqGender != "" && reqGender == sgGender {
		score += config.GenderWeight
	}

	score += config.LocationWeight * tokenOverlap(normalize(req.LastSeenLocation), normalize(sg.Location))

	if !req.DateLastSeen.IsZero() && !sg.CreatedAt.IsZero() {
		days := math.Abs(sg.CreatedAt.Sub(req.DateLastSeen).Hours()) / 24
		score += config.DateWeight * (1 - math.Min(1, days/config.DateSpreadDays))
	}

	return score, nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// nameSimilarity takes the better of token overlap and edit-distance ratio,
// so "Ravi Kumar" vs "Kumar Ravi" and "Ravi Kumar" vs "Ravi Kumaar" both
// score high.
func nameSimilarity(a, b string) float64 {
	return math.Max(tokenOverlap(a, b), editRatio(a, b))
}

// tokenOverlap is the Jaccard index of the whitespace-separated token sets.
func tokenOverlap(a, b string) float64 {
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(tokensA))
	for _, t := range tokensA {
		setA[t] = true
	}
	union := make(map[string]bool, len(tokensA)+len(tokensB))
	for t := range setA {
		union[t] = true
	}

	shared := 0
	for _, t := range tokensB {
		if !union[t] {
			union[t] = true
			continue
		}
		if setA[t] {
			shared++
			// count each shared token once
			setA[t] = false
		}
	}
	return float64(shared) / float64(len(union))
}

// editRatio is 1 − levenshtein/maxLen, over the full normalized strings.
func editRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
