package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"freight/internal/domain"
	"freight/internal/service"
)

// CheckpointHandler handles HTTP requests for checkpoint submissions.
type CheckpointHandler struct {
	checkpointService *service.CheckpointService
}

// NewCheckpointHandler creates a new CheckpointHandler.
func NewCheckpointHandler(checkpointService *service.CheckpointService) *CheckpointHandler {
	return &CheckpointHandler{checkpointService: checkpointService}
}

// CheckpointRequest is the HTTP body for a checkpoint submission.
type CheckpointRequest struct {
	EventType     string   `json:"eventType" binding:"required"`
	StopID        *string  `json:"stopId"`
	StopLabel     *string  `json:"stopLabel"`
	OdometerMiles *float64 `json:"odometerMiles"`
	Lat           *float64 `json:"lat"`
	Lon           *float64 `json:"lon"`
	Notes         *string  `json:"notes"`
}

// CheckpointResponse is the HTTP response for a checkpoint submission.
type CheckpointResponse struct {
	Success bool         `json:"success"`
	Trip    TripSnapshot `json:"trip"`
	Event   LoggedEvent  `json:"event"`
}

// LoggedEvent is the wire shape of a stored checkpoint event.
type LoggedEvent struct {
	ID            string   `json:"id"`
	TripID        string   `json:"tripId"`
	EventType     string   `json:"eventType"`
	StopID        *string  `json:"stopId,omitempty"`
	StopLabel     *string  `json:"stopLabel,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
	OdometerMiles *float64 `json:"odometerMiles,omitempty"`
	Lat           *float64 `json:"lat,omitempty"`
	Lon           *float64 `json:"lon,omitempty"`
	RecordedAt    string   `json:"recordedAt"`
}

// LogCheckpoint handles POST /v1/trips/:id/checkpoints
func (h *CheckpointHandler) LogCheckpoint(c *gin.Context) {
	var req CheckpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: err.Error()})
		return
	}

	result, err := h.checkpointService.LogCheckpoint(c.Request.Context(), service.LogCheckpointRequest{
		TripID:        c.Param("id"),
		EventType:     req.EventType,
		StopID:        req.StopID,
		StopLabel:     req.StopLabel,
		OdometerMiles: req.OdometerMiles,
		Lat:           req.Lat,
		Lon:           req.Lon,
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, CheckpointResponse{
		Success: true,
		Trip:    buildTripSnapshot(result.Trip),
		Event:   buildLoggedEvent(result.Event),
	})
}

func buildLoggedEvent(event *domain.TripEvent) LoggedEvent {
	return LoggedEvent{
		ID:            event.ID,
		TripID:        event.TripID,
		EventType:     string(event.Type),
		StopID:        event.StopID,
		StopLabel:     event.StopLabel,
		Notes:         event.Notes,
		OdometerMiles: event.OdometerMiles,
		Lat:           event.Lat,
		Lon:           event.Lon,
		RecordedAt:    event.RecordedAt.UTC().Format(time.RFC3339),
	}
}
