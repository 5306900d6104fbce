package server

import (
	"errors"
	"net/http"

	"github.com/markerlab/markerlab/internal/dispatcher"
	"github.com/markerlab/markerlab/internal/review"
	"github.com/markerlab/markerlab/internal/shotboundary"
	"github.com/markerlab/markerlab/internal/stash"
	"github.com/markerlab/markerlab/internal/worker"
	"github.com/markerlab/markerlab/pkg/core"
)

// writeServiceError maps domain errors onto status codes. Planner and review
// refusals are 422 and carry the error text unchanged.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case shotboundary.IsPlanError(err):
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), "PLAN_REJECTED")
	case errors.Is(err, review.ErrNoSelection), errors.Is(err, review.ErrInvalidTime):
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), "REVIEW_REJECTED")
	case errors.Is(err, worker.ErrInvalidArgument), errors.Is(err, review.ErrUnknownKind):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.Is(err, core.ErrNotFound), errors.Is(err, worker.ErrMarkerNotFound), errors.Is(err, stash.ErrSceneNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, dispatcher.ErrUnknownCommand):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, dispatcher.ErrQueueFull):
		WriteError(w, http.StatusServiceUnavailable, err.Error(), "BUSY")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}
