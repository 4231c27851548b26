package handler

import (
	"net/http"
	"time"

	"reunite/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type submitSightingRequest struct {
	Name        string `json:"name" binding:"required"`
	ApproxAge   int    `json:"approxAge"`
	Gender      string `json:"gender"`
	Location    string `json:"location"`
	Description string `json:"description"`
	PhotoPath   string `json:"photoPath"`
}

// SubmitSighting persists a volunteer's report of a found person and
// schedules a match sweep. The sweep is an asynchronous side effect; the
// response never waits for it.
func (h *Handler) SubmitSighting(c *gin.Context) {
	p := currentPrincipal(c)
	if !p.CanReportSighting() {
		c.JSON(http.StatusForbidden, gin.H{"error": "volunteer access required"})
		return
	}

	var req submitSightingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sg := &models.Sighting{
		SubmittedBy: p.ID,
		Name:        req.Name,
		ApproxAge:   req.ApproxAge,
		Gender:      req.Gender,
		Location:    req.Location,
		Description: req.Description,
		PhotoPath:   req.PhotoPath,
		Status:      models.SightingUnclaimed,
	}
	if err := h.Storage.SaveSighting(sg); err != nil {
		h.writeError(c, err)
		return
	}
	h.Engine.OnSightingCreated(sg)

	c.JSON(http.StatusCreated, sg)
}

type submitSearchRequest struct {
	Name             string `json:"name" binding:"required"`
	ApproxAge        int    `json:"approxAge"`
	Gender           string `json:"gender"`
	LastSeenLocation string `json:"lastSeenLocation"`
	DateLastSeen     string `json:"dateLastSeen"` // YYYY-MM-DD
	Description      string `json:"description"`
	PhotoPath        string `json:"photoPath"`
}

// SubmitSearchRequest persists a family's missing-person report and
// schedules the symmetric match sweep over open sightings.
func (h *Handler) SubmitSearchRequest(c *gin.Context) {
	p := currentPrincipal(c)
	if !p.CanSubmitSearch() {
		c.JSON(http.StatusForbidden, gin.H{"error": "family access required"})
		return
	}

	var req submitSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var lastSeen time.Time
	if req.DateLastSeen != "" {
		var err error
		lastSeen, err = time.Parse("2006-01-02", req.DateLastSeen)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dateLastSeen must be YYYY-MM-DD"})
			return
		}
	}

	r := &models.SearchRequest{
		SubmittedBy:      p.ID,
		Name:             req.Name,
		ApproxAge:        req.ApproxAge,
		Gender:           req.Gender,
		LastSeenLocation: req.LastSeenLocation,
		DateLastSeen:     lastSeen,
		Description:      req.Description,
		PhotoPath:        req.PhotoPath,
		Status:           models.SearchPending,
	}
	if err := h.Storage.SaveSearchRequest(r); err != nil {
		h.writeError(c, err)
		return
	}
	h.Engine.OnSearchRequestCreated(r)

	c.JSON(http.StatusCreated, r)
}

// ListCandidates returns a search request's candidates, highest score first.
func (h *Handler) ListCandidates(c *gin.Context) {
	candidates, err := h.Engine.ListCandidates(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, candidates)
}

type confirmMatchRequest struct {
	SearchRequestID string `json:"searchRequestId" binding:"required"`
	SightingID      string `json:"sightingId" binding:"required"`
}

// ConfirmMatch settles a candidate pair. Idempotent: confirming the same
// pair twice succeeds.
func (h *Handler) ConfirmMatch(c *gin.Context) {
	var req confirmMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	searchReq, sighting, err := h.Engine.ConfirmMatch(req.SearchRequestID, req.SightingID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"searchRequest": searchReq, "sighting": sighting})
}

// ListSearchRequests returns search requests, optionally filtered by status.
func (h *Handler) ListSearchRequests(c *gin.Context) {
	var statuses []string
	if s := c.Query("status"); s != "" {
		statuses = append(statuses, s)
	}
	reqs, err := h.Storage.ListSearchRequestsByStatus(statuses...)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}

// ListSightings returns sightings, optionally filtered by status.
func (h *Handler) ListSightings(c *gin.Context) {
	var statuses []string
	if s := c.Query("status"); s != "" {
		statuses = append(statuses, s)
	}
	sightings, err := h.Storage.ListSightingsByStatus(statuses...)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sightings)
}
