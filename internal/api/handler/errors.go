package handler

import (
	"errors"
	"net/http"

	"reunite/backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

// writeError maps the core error taxonomy to HTTP statuses. The response
// carries enough detail for a specific client message (current state,
// conflicting id) without leaking anything the caller did not supply.
func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		validationErr *apperr.ValidationError
		notFoundErr   *apperr.NotFoundError
		stateErr      *apperr.InvalidStateError
		conflictErr   *apperr.ConflictError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":         stateErr.Error(),
			"currentStatus": stateErr.Current,
		})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":         conflictErr.Error(),
			"conflictingId": conflictErr.ConflictingID,
		})
	default:
		h.Log.WithError(err).Error("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
