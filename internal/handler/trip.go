package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"freight/internal/domain"
	redisstore "freight/internal/redis"
	"freight/internal/repository"
	"freight/internal/service"
	"freight/pkg/ws"
)

// TripHandler handles HTTP requests for trips and costing recomputes.
type TripHandler struct {
	tripRepo      repository.TripRepository
	eventRepo     repository.TripEventRepository
	addOnService  *service.AddOnService
	totalsService *service.TotalsService
	cache         *redisstore.SnapshotCache
	positions     *redisstore.PositionStore
	hub           *ws.Hub
	logger        *zap.Logger
}

// NewTripHandler creates a new TripHandler. cache, positions and hub may be nil.
func NewTripHandler(
	tripRepo repository.TripRepository,
	eventRepo repository.TripEventRepository,
	addOnService *service.AddOnService,
	totalsService *service.TotalsService,
	cache *redisstore.SnapshotCache,
	positions *redisstore.PositionStore,
	hub *ws.Hub,
	logger *zap.Logger,
) *TripHandler {
	return &TripHandler{
		tripRepo:      tripRepo,
		eventRepo:     eventRepo,
		addOnService:  addOnService,
		totalsService: totalsService,
		cache:         cache,
		positions:     positions,
		hub:           hub,
		logger:        logger,
	}
}

// TripSnapshot is the wire shape of a trip's costing state.
type TripSnapshot struct {
	ID               string   `json:"id"`
	Driver           string   `json:"driver"`
	Unit             string   `json:"unit"`
	Status           string   `json:"status"`
	Miles            float64  `json:"miles"`
	Revenue          *float64 `json:"revenue"`
	ExpectedRevenue  *float64 `json:"expectedRevenue"`
	FixedCPM         *float64 `json:"fixedCPM"`
	WageCPM          *float64 `json:"wageCPM"`
	RollingCPM       *float64 `json:"rollingCPM"`
	AddOnsCPM        *float64 `json:"addOnsCPM"`
	TotalVariableCPM *float64 `json:"totalVariableCPM"`
	TotalCPM         *float64 `json:"totalCPM"`
	VariableCost     *float64 `json:"variableCost"`
	FixedCost        *float64 `json:"fixedCost"`
	TotalCost        *float64 `json:"totalCost"`
	Profit           *float64 `json:"profit"`
	MarginPct        *float64 `json:"marginPct"`
	BorderCrossings  int      `json:"borderCrossings"`
	Pickups          int      `json:"pickups"`
	Deliveries       int      `json:"deliveries"`
	DropHooks        int      `json:"dropHooks"`
}

func buildTripSnapshot(trip *domain.Trip) TripSnapshot {
	return TripSnapshot{
		ID:               trip.ID,
		Driver:           trip.Driver,
		Unit:             trip.Unit,
		Status:           string(trip.Status),
		Miles:            trip.Miles,
		Revenue:          trip.Revenue,
		ExpectedRevenue:  trip.ExpectedRevenue,
		FixedCPM:         trip.FixedCPM,
		WageCPM:          trip.WageCPM,
		RollingCPM:       trip.RollingCPM,
		AddOnsCPM:        trip.AddOnsCPM,
		TotalVariableCPM: trip.TotalVariableCPM,
		TotalCPM:         trip.TotalCPM,
		VariableCost:     trip.VariableCost,
		FixedCost:        trip.FixedCost,
		TotalCost:        trip.TotalCost,
		Profit:           trip.Profit,
		MarginPct:        trip.Margin,
		BorderCrossings:  trip.BorderCrossings,
		Pickups:          trip.Pickups,
		Deliveries:       trip.Deliveries,
		DropHooks:        trip.DropHooks,
	}
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	tripID := c.Param("id")
	ctx := c.Request.Context()

	if h.cache != nil {
		if cached, err := h.cache.GetTrip(ctx, tripID); err == nil && cached != nil {
			respondJSON(c, http.StatusOK, buildTripSnapshot(cached))
			return
		}
	}

	trip, err := h.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.cache != nil {
		_ = h.cache.SetTrip(ctx, trip)
	}

	respondJSON(c, http.StatusOK, buildTripSnapshot(trip))
}

// ListEvents handles GET /v1/trips/:id/events
func (h *TripHandler) ListEvents(c *gin.Context) {
	tripID := c.Param("id")

	if _, err := h.tripRepo.GetByID(c.Request.Context(), tripID); err != nil {
		respondError(c, err)
		return
	}

	events, err := h.eventRepo.ListByTrip(c.Request.Context(), tripID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]LoggedEvent, 0, len(events))
	for _, event := range events {
		response = append(response, buildLoggedEvent(event))
	}

	respondJSON(c, http.StatusOK, response)
}

// RecalculateAddOns handles POST /v1/trips/:id/costing/recalculate
func (h *TripHandler) RecalculateAddOns(c *gin.Context) {
	trip, err := h.addOnService.Recalculate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"success": true,
		"trip":    buildTripSnapshot(trip),
	})
}

// CostSnapshotResponse mirrors service.CostSnapshot on the wire.
type CostSnapshotResponse struct {
	FixedCPM         *float64 `json:"fixedCPM"`
	WageCPM          *float64 `json:"wageCPM"`
	RollingCPM       *float64 `json:"rollingCPM"`
	AddOnsCPM        *float64 `json:"addOnsCPM"`
	TotalVariableCPM *float64 `json:"totalVariableCPM"`
	TotalCPM         *float64 `json:"totalCPM"`
	VariableCost     *float64 `json:"variableCost"`
	FixedCost        *float64 `json:"fixedCost"`
	TotalCost        *float64 `json:"totalCost"`
	Profit           *float64 `json:"profit"`
	MarginPct        *float64 `json:"marginPct"`
}

func buildCostSnapshot(s service.CostSnapshot) CostSnapshotResponse {
	return CostSnapshotResponse{
		FixedCPM:         s.FixedCPM,
		WageCPM:          s.WageCPM,
		RollingCPM:       s.RollingCPM,
		AddOnsCPM:        s.AddOnsCPM,
		TotalVariableCPM: s.TotalVariableCPM,
		TotalCPM:         s.TotalCPM,
		VariableCost:     s.VariableCost,
		FixedCost:        s.FixedCost,
		TotalCost:        s.TotalCost,
		Profit:           s.Profit,
		MarginPct:        s.Margin,
	}
}

// RecalculateTotals handles POST /v1/trips/:id/totals/recalculate
func (h *TripHandler) RecalculateTotals(c *gin.Context) {
	result, err := h.totalsService.Recalculate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := gin.H{
		"success": true,
		"trip":    buildTripSnapshot(result.Trip),
		"before":  buildCostSnapshot(result.Before),
		"after":   buildCostSnapshot(result.After),
	}
	if result.AppliedTemplate != nil {
		response["appliedTemplate"] = gin.H{
			"id":   result.AppliedTemplate.ID,
			"name": result.AppliedTemplate.Name,
		}
	}

	respondJSON(c, http.StatusOK, response)
}

// NearbyTripPosition is the wire shape of one geo lookup hit.
type NearbyTripPosition struct {
	TripID string  `json:"tripId"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// Nearby handles GET /v1/trips/nearby?lat=&lon=&radiusKm=
func (h *TripHandler) Nearby(c *gin.Context) {
	if h.positions == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Success: false, Error: "position tracking not enabled"})
		return
	}

	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lon, err2 := strconv.ParseFloat(c.Query("lon"), 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "lat and lon are required"})
		return
	}

	radiusKm := 50.0
	if raw := c.Query("radiusKm"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			radiusKm = parsed
		}
	}

	positions, err := h.positions.FindNearbyTrips(c.Request.Context(), lat, lon, radiusKm)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]NearbyTripPosition, 0, len(positions))
	for _, p := range positions {
		response = append(response, NearbyTripPosition{TripID: p.TripID, Lat: p.Lat, Lon: p.Lon})
	}

	respondJSON(c, http.StatusOK, response)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Status updates carry no sensitive payloads; dispatch dashboards
	// connect from arbitrary origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Stream handles GET /v1/trips/stream — a WebSocket feed of status updates.
func (h *TripHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Success: false, Error: "streaming not enabled"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn)
	client.Register()

	go client.WritePump()
	go client.ReadPump()
}
