// README: Shared handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"courier/internal/modules/driver"
	"courier/internal/modules/location"
	"courier/internal/modules/trip"
	"courier/internal/modules/wallet"
	"courier/internal/orders"
	"courier/internal/types"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, code, msg string) {
	writeJSON(c, status, errorResponse{Error: errorBody{Code: code, Message: msg}})
}

func writeDriverError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, driver.ErrValidation), errors.Is(err, driver.ErrBadRequest):
		writeError(c, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, driver.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, driver.ErrDuplicate), errors.Is(err, driver.ErrConflict):
		writeError(c, http.StatusConflict, "conflict", err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal", "internal error")
	}
}

func writeWalletError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, wallet.ErrValidation):
		writeError(c, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, wallet.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, wallet.ErrInsufficientBalance), errors.Is(err, wallet.ErrInsufficientCash):
		writeError(c, http.StatusUnprocessableEntity, "insufficient_funds", err.Error())
	case errors.Is(err, wallet.ErrInactive):
		writeError(c, http.StatusConflict, "wallet_inactive", err.Error())
	case errors.Is(err, wallet.ErrConflict), errors.Is(err, wallet.ErrDuplicate):
		writeError(c, http.StatusConflict, "conflict", err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal", "internal error")
	}
}

func writeTripError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, trip.ErrValidation):
		writeError(c, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, trip.ErrNotFound), errors.Is(err, driver.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, trip.ErrInvalidState):
		writeError(c, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, trip.ErrConflict), errors.Is(err, trip.ErrDriverUnavailable):
		writeError(c, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, wallet.ErrInsufficientBalance):
		writeError(c, http.StatusUnprocessableEntity, "insufficient_funds", err.Error())
	case errors.Is(err, orders.ErrRejected):
		writeError(c, http.StatusBadGateway, "order_service_rejected", err.Error())
	case errors.Is(err, orders.ErrUnavailable):
		writeError(c, http.StatusServiceUnavailable, "order_service_unavailable", err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal", "internal error")
	}
}

func writeLocationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, location.ErrValidation):
		writeError(c, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, location.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal", "internal error")
	}
}

// moneyReq is how every handler accepts an amount. Currency defaults to USD.
type moneyReq struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

func (m moneyReq) money() types.Money {
	cur := m.Currency
	if cur == "" {
		cur = "USD"
	}
	return types.Money{Amount: m.AmountCents, Currency: cur}
}

type moneyDTO struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

func toMoneyDTO(m types.Money) moneyDTO {
	return moneyDTO{AmountCents: m.Amount, Currency: m.Currency}
}

func pathID(c *gin.Context, name string) (types.ID, bool) {
	v := c.Param(name)
	if v == "" {
		writeError(c, http.StatusBadRequest, "validation", "missing "+name)
		return "", false
	}
	return types.ID(v), true
}
