// README: Location handlers (position reports, nearby query).
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"courier/internal/http/middleware"
	"courier/internal/modules/location"
)

type LocationHandler struct {
	locations *location.Service
}

func NewLocationHandler(svc *location.Service) *LocationHandler {
	return &LocationHandler{locations: svc}
}

type updateLocationReq struct {
	Lat        float64    `json:"lat"`
	Lng        float64    `json:"lng"`
	AccuracyM  float64    `json:"accuracy_m"`
	Heading    float64    `json:"heading"`
	SpeedKmh   float64    `json:"speed_kmh"`
	RecordedAt *time.Time `json:"recorded_at"`
}

type locationDTO struct {
	DriverID   string    `json:"driver_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	AccuracyM  float64   `json:"accuracy_m,omitempty"`
	Heading    float64   `json:"heading,omitempty"`
	SpeedKmh   float64   `json:"speed_kmh,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

func toLocationDTO(l *location.DriverLocation) locationDTO {
	return locationDTO{
		DriverID:   string(l.DriverID),
		Lat:        l.Position.Lat,
		Lng:        l.Position.Lng,
		AccuracyM:  l.AccuracyM,
		Heading:    l.Heading,
		SpeedKmh:   l.SpeedKmh,
		RecordedAt: l.RecordedAt,
	}
}

// Update accepts a position report. Only the authenticated driver may report
// their own position; admins may report for anyone (support tooling).
func (h *LocationHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if middleware.CallerRole(c) != middleware.RoleAdmin && middleware.CallerUID(c) != string(id) {
		writeError(c, http.StatusForbidden, "forbidden", "id does not match authenticated driver")
		return
	}
	var req updateLocationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation", "invalid json")
		return
	}
	cmd := location.UpdateCommand{
		DriverID:  id,
		Lat:       req.Lat,
		Lng:       req.Lng,
		AccuracyM: req.AccuracyM,
		Heading:   req.Heading,
		SpeedKmh:  req.SpeedKmh,
	}
	if req.RecordedAt != nil {
		cmd.RecordedAt = *req.RecordedAt
	}
	l, err := h.locations.Update(c.Request.Context(), cmd)
	if err != nil {
		writeLocationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toLocationDTO(l))
}

func (h *LocationHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	l, err := h.locations.Get(c.Request.Context(), id)
	if err != nil {
		writeLocationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toLocationDTO(l))
}

type nearbyDriverDTO struct {
	DriverID   string  `json:"driver_id"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	DistanceKm float64 `json:"distance_km"`
}

func (h *LocationHandler) Nearby(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "validation", "invalid lat")
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "validation", "invalid lng")
		return
	}
	cmd := location.NearbyCommand{Lat: lat, Lng: lng}
	if v := c.Query("radius_km"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r <= 0 {
			writeError(c, http.StatusBadRequest, "validation", "invalid radius_km")
			return
		}
		cmd.RadiusKm = r
	}
	if v := c.Query("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(c, http.StatusBadRequest, "validation", "invalid max")
			return
		}
		cmd.MaxResults = n
	}
	found, err := h.locations.FindNearby(c.Request.Context(), cmd)
	if err != nil {
		writeLocationError(c, err)
		return
	}
	out := make([]nearbyDriverDTO, 0, len(found))
	for _, d := range found {
		out = append(out, nearbyDriverDTO{
			DriverID:   string(d.DriverID),
			Lat:        d.Position.Lat,
			Lng:        d.Position.Lng,
			DistanceKm: d.DistanceKm,
		})
	}
	writeJSON(c, http.StatusOK, map[string]any{"drivers": out})
}
