// README: Trip handlers (assignment, status flow, completion, rating).
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"courier/internal/modules/trip"
	"courier/internal/types"
)

type TripHandler struct {
	trips *trip.Service
}

func NewTripHandler(svc *trip.Service) *TripHandler {
	return &TripHandler{trips: svc}
}

type createTripReq struct {
	DriverID        string   `json:"driver_id"`
	OrderID         string   `json:"order_id"`
	PickupAddress   string   `json:"pickup_address"`
	PickupLat       float64  `json:"pickup_lat"`
	PickupLng       float64  `json:"pickup_lng"`
	DeliveryAddress string   `json:"delivery_address"`
	DeliveryLat     float64  `json:"delivery_lat"`
	DeliveryLng     float64  `json:"delivery_lng"`
	Fare            moneyReq `json:"fare"`
	CustomerNotes   string   `json:"customer_notes"`
}

type pointDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type tripDTO struct {
	ID              string     `json:"id"`
	DriverID        string     `json:"driver_id"`
	OrderID         string     `json:"order_id"`
	Status          string     `json:"status"`
	PickupAddress   string     `json:"pickup_address"`
	Pickup          pointDTO   `json:"pickup"`
	DeliveryAddress string     `json:"delivery_address"`
	Delivery        pointDTO   `json:"delivery"`
	DistanceKm      *float64   `json:"distance_km,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Fare            moneyDTO   `json:"fare"`
	CashCollected   *moneyDTO  `json:"cash_collected,omitempty"`
	AssignedAt      time.Time  `json:"assigned_at"`
	AcceptedAt      *time.Time `json:"accepted_at,omitempty"`
	PickedUpAt      *time.Time `json:"picked_up_at,omitempty"`
	DeliveredAt     *time.Time `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`

	CancellationReason string `json:"cancellation_reason,omitempty"`
	FailureReason      string `json:"failure_reason,omitempty"`
	CustomerNotes      string `json:"customer_notes,omitempty"`
	DriverNotes        string `json:"driver_notes,omitempty"`

	CustomerRating   *int   `json:"customer_rating,omitempty"`
	CustomerFeedback string `json:"customer_feedback,omitempty"`
}

func toTripDTO(t *trip.Trip) tripDTO {
	dto := tripDTO{
		ID:              string(t.ID),
		DriverID:        string(t.DriverID),
		OrderID:         string(t.OrderID),
		Status:          string(t.Status),
		PickupAddress:   t.PickupAddress,
		Pickup:          pointDTO{Lat: t.Pickup.Lat, Lng: t.Pickup.Lng},
		DeliveryAddress: t.DeliveryAddress,
		Delivery:        pointDTO{Lat: t.Delivery.Lat, Lng: t.Delivery.Lng},
		DistanceKm:      t.DistanceKm,
		DurationMinutes: t.DurationMinutes,
		Fare:            toMoneyDTO(t.Fare),
		AssignedAt:      t.AssignedAt,
		AcceptedAt:      t.AcceptedAt,
		PickedUpAt:      t.PickedUpAt,
		DeliveredAt:     t.DeliveredAt,
		CancelledAt:     t.CancelledAt,

		CancellationReason: t.CancellationReason,
		FailureReason:      t.FailureReason,
		CustomerNotes:      t.CustomerNotes,
		DriverNotes:        t.DriverNotes,

		CustomerRating:   t.CustomerRating,
		CustomerFeedback: t.CustomerFeedback,
	}
	if t.CashCollected != nil {
		d := toMoneyDTO(*t.CashCollected)
		dto.CashCollected = &d
	}
	return dto
}

func (h *TripHandler) Create(c *gin.Context) {
	var req createTripReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation", "invalid json")
		return
	}
	t, err := h.trips.Create(c.Request.Context(), trip.CreateCommand{
		DriverID:        types.ID(req.DriverID),
		OrderID:         types.ID(req.OrderID),
		PickupAddress:   req.PickupAddress,
		Pickup:          types.Point{Lat: req.PickupLat, Lng: req.PickupLng},
		DeliveryAddress: req.DeliveryAddress,
		Delivery:        types.Point{Lat: req.DeliveryLat, Lng: req.DeliveryLng},
		Fare:            req.Fare.money(),
		CustomerNotes:   req.CustomerNotes,
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toTripDTO(t))
}

func (h *TripHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := h.trips.Get(c.Request.Context(), id)
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toTripDTO(t))
}

// List serves GET /api/trips. With order_id it resolves the single trip for
// that order; with driver_id it pages through the driver's history.
func (h *TripHandler) List(c *gin.Context) {
	if orderID := c.Query("order_id"); orderID != "" {
		t, err := h.trips.GetByOrder(c.Request.Context(), types.ID(orderID))
		if err != nil {
			writeTripError(c, err)
			return
		}
		writeJSON(c, http.StatusOK, toTripDTO(t))
		return
	}
	driverID := c.Query("driver_id")
	if driverID == "" {
		writeError(c, http.StatusBadRequest, "validation", "driver_id or order_id is required")
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return
	}
	trips, err := h.trips.ListByDriver(c.Request.Context(), trip.ListCommand{
		DriverID: types.ID(driverID),
		Status:   trip.Status(c.Query("status")),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	out := make([]tripDTO, 0, len(trips))
	for _, t := range trips {
		out = append(out, toTripDTO(t))
	}
	writeJSON(c, http.StatusOK, map[string]any{"trips": out})
}

type tripStatusReq struct {
	Status string `json:"status"`
}

func (h *TripHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req tripStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation", "invalid json")
		return
	}
	t, err := h.trips.UpdateStatus(c.Request.Context(), trip.UpdateStatusCommand{
		TripID: id,
		Status: trip.Status(req.Status),
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toTripDTO(t))
}

type completeTripReq struct {
	CashCollected *moneyReq `json:"cash_collected"`
	DriverNotes   string    `json:"driver_notes"`
}

func (h *TripHandler) Complete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req completeTripReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation", "invalid json")
		return
	}
	cmd := trip.CompleteCommand{TripID: id, DriverNotes: req.DriverNotes}
	if req.CashCollected != nil {
		m := req.CashCollected.money()
		cmd.CashCollected = &m
	}
	t, err := h.trips.Complete(c.Request.Context(), cmd)
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toTripDTO(t))
}

type tripReasonReq struct {
	Reason string `json:"reason"`
}

func (h *TripHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req tripReasonReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation", "invalid json")
		return
	}
	t, err := h.trips.Cancel(c.Request.Context(), trip.CancelCommand{TripID: id, Reason: req.Reason})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toTripDTO(t))
}

func (h *TripHandler) Fail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req tripReasonReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation", "invalid json")
		return
	}
	t, err := h.trips.Fail(c.Request.Context(), trip.FailCommand{TripID: id, Reason: req.Reason})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toTripDTO(t))
}

type tripRatingReq struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

func (h *TripHandler) Rate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req tripRatingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation", "invalid json")
		return
	}
	t, err := h.trips.Rate(c.Request.Context(), trip.RateCommand{TripID: id, Rating: req.Rating, Feedback: req.Feedback})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toTripDTO(t))
}

func queryInt(c *gin.Context, name string) (int, bool) {
	v := c.Query(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		writeError(c, http.StatusBadRequest, "validation", "invalid "+name)
		return 0, false
	}
	return n, true
}
