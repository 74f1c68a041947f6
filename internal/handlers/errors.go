package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"aquaponics_monitor/internal/broker"
	"aquaponics_monitor/internal/service"
)

const (
	errInvalidBodyPref = "invalid body: "
	errInternal        = "internal error"
)

// httpStatus maps service and broker errors to a response code.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrAutomaticMode),
		errors.Is(err, service.ErrNotAutomatic),
		errors.Is(err, service.ErrEmulatorDisabled):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidTimer),
		errors.Is(err, service.ErrInvalidTimerKind),
		errors.Is(err, service.ErrInvalidTargetTemp),
		errors.Is(err, service.ErrInvalidTimeRange),
		errors.Is(err, service.ErrInvalidSetpoints),
		errors.Is(err, service.ErrInvalidEmulator):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnknownScenario),
		errors.Is(err, service.ErrUnknownDevice):
		return http.StatusNotFound
	case errors.Is(err, broker.ErrUnavailable),
		errors.Is(err, broker.ErrRejected),
		errors.Is(err, broker.ErrNotConfigured),
		errors.Is(err, broker.ErrNoData):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		if httpCode >= http.StatusInternalServerError {
			h.log.Errorw(logKey, fields...)
		} else {
			h.log.Infow(logKey, fields...)
		}
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// respondError answers with the mapped status. Unexpected errors are not echoed back.
func (h *Handler) respondError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	code := httpStatus(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = errInternal
	}
	h.logAndJSONError(c, code, msg, logKey, err, kv...)
}

// respondCommandError is respondError for device commands: the body also carries the
// device status, so the dashboard keeps showing the optimistic state.
func (h *Handler) respondCommandError(c *gin.Context, logKey string, err error, body gin.H) {
	code := httpStatus(err)
	if h.log != nil {
		h.log.Infow(logKey, "err", err, "code", code)
	}
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = errInternal
	}
	body["error"] = msg
	c.JSON(code, body)
}
