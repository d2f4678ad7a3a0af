// README: Driver lifecycle handlers (register, profile, vehicle, verification, status).
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"courier/internal/modules/driver"
)

type DriverHandler struct {
	drivers *driver.Service
}

func NewDriverHandler(svc *driver.Service) *DriverHandler {
	return &DriverHandler{drivers: svc}
}

type registerDriverReq struct {
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	LicenseNumber string `json:"license_number"`
}

type vehicleReq struct {
	Type  string `json:"type"`
	Plate string `json:"plate"`
	Brand string `json:"brand"`
	Model string `json:"model"`
	Year  int    `json:"year"`
	Color string `json:"color"`
}

type vehicleDTO struct {
	Type  string `json:"type"`
	Plate string `json:"plate"`
	Brand string `json:"brand,omitempty"`
	Model string `json:"model,omitempty"`
	Year  int    `json:"year,omitempty"`
	Color string `json:"color,omitempty"`
}

type driverDTO struct {
	ID              string      `json:"id"`
	FullName        string      `json:"full_name"`
	Phone           string      `json:"phone"`
	Email           string      `json:"email"`
	Status          string      `json:"status"`
	Verification    string      `json:"verification"`
	Vehicle         *vehicleDTO `json:"vehicle,omitempty"`
	LicenseNumber   string      `json:"license_number,omitempty"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
	VerifiedAt      *time.Time  `json:"verified_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func toDriverDTO(d *driver.Driver) driverDTO {
	dto := driverDTO{
		ID:              string(d.ID),
		FullName:        d.FullName,
		Phone:           d.Phone,
		Email:           d.Email,
		Status:          string(d.Status),
		Verification:    string(d.Verification),
		LicenseNumber:   d.LicenseNumber,
		RejectionReason: d.RejectionReason,
		VerifiedAt:      d.VerifiedAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.Vehicle != nil {
		dto.Vehicle = &vehicleDTO{
			Type:  d.Vehicle.Type,
			Plate: d.Vehicle.Plate,
			Brand: d.Vehicle.Brand,
			Model: d.Vehicle.Model,
			Year:  d.Vehicle.Year,
			Color: d.Vehicle.Color,
		}
	}
	return dto
}

func (h *DriverHandler) Register(c *gin.Context) {
	var req registerDriverReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation", "invalid json")
		return
	}
	d, err := h.drivers.Register(c.Request.Context(), driver.RegisterCommand{
		FullName:      req.FullName,
		Phone:         req.Phone,
		Email:         req.Email,
		LicenseNumber: req.LicenseNumber,
	})
	if err != nil {
		writeDriverError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toDriverDTO(d))
}

func (h *DriverHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.drivers.Get(c.Request.Context(), id)
	if err != nil {
		writeDriverError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toDriverDTO(d))
}

type updateProfileReq struct {
	FullName                   *string `json:"full_name"`
	Email                      *string `json:"email"`
	Phone                      *string `json:"phone"`
	ProfileImageURL            *string `json:"profile_image_url"`
	CitizenIDImageURL          *string `json:"citizen_id_image_url"`
	DriverLicenseImageURL      *string `json:"driver_license_image_url"`
	DriverRegistrationImageURL *string `json:"driver_registration_image_url"`
}

func (h *DriverHandler) UpdateProfile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation", "invalid json")
		return
	}
	d, err := h.drivers.UpdateProfile(c.Request.Context(), driver.UpdateProfileCommand{
		DriverID: id,
		Update: driver.ProfileUpdate{
			FullName:                   req.FullName,
			Email:                      req.Email,
			Phone:                      req.Phone,
			ProfileImageURL:            req.ProfileImageURL,
			CitizenIDImageURL:          req.CitizenIDImageURL,
			DriverLicenseImageURL:      req.DriverLicenseImageURL,
			DriverRegistrationImageURL: req.DriverRegistrationImageURL,
		},
	})
	if err != nil {
		writeDriverError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toDriverDTO(d))
}

func (h *DriverHandler) UpdateVehicle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req vehicleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation", "invalid json")
		return
	}
	d, err := h.drivers.UpdateVehicle(c.Request.Context(), driver.UpdateVehicleCommand{
		DriverID: id,
		Type:     req.Type,
		Plate:    req.Plate,
		Brand:    req.Brand,
		Model:    req.Model,
		Year:     req.Year,
		Color:    req.Color,
	})
	if err != nil {
		writeDriverError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toDriverDTO(d))
}

func (h *DriverHandler) Verify(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.drivers.Verify(c.Request.Context(), id)
	if err != nil {
		writeDriverError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toDriverDTO(d))
}

type rejectDriverReq struct {
	Reason string `json:"reason"`
}

func (h *DriverHandler) Reject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req rejectDriverReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation", "invalid json")
		return
	}
	d, err := h.drivers.Reject(c.Request.Context(), driver.RejectCommand{DriverID: id, Reason: req.Reason})
	if err != nil {
		writeDriverError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toDriverDTO(d))
}

type setStatusReq struct {
	Status string `json:"status"`
}

func (h *DriverHandler) SetStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req setStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation", "invalid json")
		return
	}
	d, err := h.drivers.SetStatus(c.Request.Context(), driver.SetStatusCommand{
		DriverID: id,
		Status:   driver.Status(req.Status),
	})
	if err != nil {
		writeDriverError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toDriverDTO(d))
}

type fcmTokenReq struct {
	Token string `json:"token"`
}

func (h *DriverHandler) SetFCMToken(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req fcmTokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation", "invalid json")
		return
	}
	if err := h.drivers.SetFCMToken(c.Request.Context(), driver.SetFCMTokenCommand{DriverID: id, Token: req.Token}); err != nil {
		writeDriverError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DriverHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.drivers.Delete(c.Request.Context(), id); err != nil {
		writeDriverError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
