package handler

import (
	"net/http"

	"reunite/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// --- Volunteer management ---

func (h *Handler) GetPendingVolunteers(c *gin.Context) {
	vols, err := h.Storage.ListVolunteersByStatus(models.VolunteerPending)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, vols)
}

func (h *Handler) GetAllVolunteers(c *gin.Context) {
	vols, err := h.Storage.ListVolunteersByStatus(c.Query("status"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, vols)
}

func (h *Handler) ApproveVolunteer(c *gin.Context) {
	v, err := h.Approval.ApproveVolunteer(c.Param("id"), currentPrincipal(c).ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) RejectVolunteer(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	// Body is optional; a missing reason falls back to the default text.
	_ = c.ShouldBindJSON(&body)

	v, err := h.Approval.RejectVolunteer(c.Param("id"), currentPrincipal(c).ID, body.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) DeactivateVolunteer(c *gin.Context) {
	v, err := h.Approval.DeactivateVolunteer(c.Param("id"), currentPrincipal(c).ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) DeleteVolunteer(c *gin.Context) {
	if err := h.Approval.DeleteVolunteer(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "volunteer deleted"})
}

// --- Family management ---

func (h *Handler) GetPendingFamilies(c *gin.Context) {
	fams, err := h.Storage.ListFamiliesByStatus(models.FamilyPending)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fams)
}

func (h *Handler) GetAllFamilies(c *gin.Context) {
	fams, err := h.Storage.ListFamiliesByStatus(c.Query("status"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fams)
}

func (h *Handler) ApproveFamily(c *gin.Context) {
	f, err := h.Approval.ApproveFamily(c.Param("id"), currentPrincipal(c).ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *Handler) DeleteFamily(c *gin.Context) {
	if err := h.Storage.DeleteFamily(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "family deleted"})
}

// --- Camp management ---

type campRequest struct {
	Name          string  `json:"name" binding:"required"`
	Location      string  `json:"location" binding:"required"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Capacity      int     `json:"capacity" binding:"min=0"`
	Occupied      int     `json:"occupied" binding:"min=0"`
	ContactPerson string  `json:"contactPerson"`
	Phone         string  `json:"phone"`
}

func (h *Handler) CreateCamp(c *gin.Context) {
	var req campRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	camp := &models.Camp{
		Name:          req.Name,
		Location:      req.Location,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Capacity:      req.Capacity,
		Occupied:      req.Occupied,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
	}
	if err := h.Storage.SaveCamp(camp); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, camp)
}

func (h *Handler) UpdateCamp(c *gin.Context) {
	camp, err := h.Storage.GetCampByID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if camp == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "camp not found"})
		return
	}

	var req campRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	camp.Name = req.Name
	camp.Location = req.Location
	camp.Latitude = req.Latitude
	camp.Longitude = req.Longitude
	camp.Capacity = req.Capacity
	camp.Occupied = req.Occupied
	camp.ContactPerson = req.ContactPerson
	camp.Phone = req.Phone

	if err := h.Storage.SaveCamp(camp); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, camp)
}

func (h *Handler) GetCamp(c *gin.Context) {
	camp, err := h.Storage.GetCampByID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if camp == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "camp not found"})
		return
	}
	c.JSON(http.StatusOK, camp)
}

func (h *Handler) ListCamps(c *gin.Context) {
	camps, err := h.Storage.ListCamps()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, camps)
}

func (h *Handler) DeleteCamp(c *gin.Context) {
	if err := h.Ledger.RemoveCamp(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "camp deleted"})
}

func (h *Handler) CampCapacity(c *gin.Context) {
	exceeded, err := h.Ledger.WouldExceedCapacity(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wouldExceedCapacity": exceeded})
}

// --- Assignment ---

type assignmentRequest struct {
	CampID      string `json:"campId" binding:"required"`
	VolunteerID string `json:"volunteerId" binding:"required"`
}

func (h *Handler) AssignVolunteer(c *gin.Context) {
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	camp, err := h.Ledger.Assign(req.VolunteerID, req.CampID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "volunteer assigned", "camp": camp})
}

func (h *Handler) UnassignVolunteer(c *gin.Context) {
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	camp, err := h.Ledger.Unassign(req.VolunteerID, req.CampID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "volunteer removed", "camp": camp})
}

// ReconcileAssignments runs the maintenance pass repairing divergent
// camp/volunteer back-references.
func (h *Handler) ReconcileAssignments(c *gin.Context) {
	repaired, err := h.Ledger.Reconcile()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"repaired": repaired})
}

// --- Record cleanup ---

// DeleteSearchRequest removes a search request and its candidates, e.g. a
// duplicate or withdrawn submission.
func (h *Handler) DeleteSearchRequest(c *gin.Context) {
	if err := h.Storage.DeleteSearchRequest(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "search request deleted"})
}

// DeleteSighting removes a sighting and its candidates.
func (h *Handler) DeleteSighting(c *gin.Context) {
	if err := h.Storage.DeleteSighting(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sighting deleted"})
}

// --- Dashboard ---

func (h *Handler) GetAdminStats(c *gin.Context) {
	stats := gin.H{}

	counts := []struct {
		key   string
		fetch func() (int64, error)
	}{
		{"totalVolunteers", func() (int64, error) { return h.Storage.CountVolunteers("") }},
		{"pendingApprovals", func() (int64, error) { return h.Storage.CountVolunteers(models.VolunteerPending) }},
		{"activeVolunteers", func() (int64, error) { return h.Storage.CountVolunteers(models.VolunteerActive) }},
		{"rejectedVolunteers", func() (int64, error) { return h.Storage.CountVolunteers(models.VolunteerRejected) }},
		{"totalFamilies", func() (int64, error) { return h.Storage.CountFamilies("") }},
		{"pendingFamilies", func() (int64, error) { return h.Storage.CountFamilies(models.FamilyPending) }},
		{"totalCamps", func() (int64, error) { return h.Storage.CountCamps() }},
		{"openSearches", func() (int64, error) { return h.Storage.CountSearchRequests(models.SearchPending) }},
		{"matchedSearches", func() (int64, error) { return h.Storage.CountSearchRequests(models.SearchMatched) }},
		{"familiesReunited", func() (int64, error) { return h.Storage.CountSearchRequests(models.SearchConfirmed) }},
		{"unclaimedSightings", func() (int64, error) { return h.Storage.CountSightings(models.SightingUnclaimed) }},
	}
	for _, c2 := range counts {
		n, err := c2.fetch()
		if err != nil {
			h.writeError(c, err)
			return
		}
		stats[c2.key] = n
	}

	c.JSON(http.StatusOK, stats)
}
