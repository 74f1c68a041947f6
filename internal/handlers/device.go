package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aquaponics_monitor/internal/models"
	"aquaponics_monitor/internal/service"
)

const statusOK = "ok"

// StatusRequest switches an actuator.
type StatusRequest struct {
	Status *bool `json:"status" binding:"required" example:"true"`
}

// OperationModeRequest selects automatic (true) or manual (false) mode.
type OperationModeRequest struct {
	Automatic *bool `json:"automatic" binding:"required" example:"true"`
}

// TimerRequest sets one pump-cycle duration. Seconds is operator text; blank leaves the timer unchanged.
type TimerRequest struct {
	Kind    string `json:"kind" binding:"required" example:"on" enums:"on,off"`
	Seconds string `json:"seconds" example:"300"`
}

// TargetTempRequest sets the heater target in °C.
type TargetTempRequest struct {
	TargetTemp *float64 `json:"targetTemp" binding:"required" example:"26.5"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Device status
// @Description  Memory (optimistic) and database (confirmed) state with the pending-sync flag
// @Tags         device
// @Produce      json
// @Success      200  {object}  models.DeviceStatus
// @Router       /api/device/status [get]
func (h *Handler) getDeviceStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Devices.GetStatus())
}

// @Summary      Force sync
// @Description  Replace the memory state with a fresh broker read
// @Tags         device
// @Produce      json
// @Success      200  {object}  models.DeviceStatus
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/device/sync [post]
// @Security     BearerAuth
func (h *Handler) forceSync(c *gin.Context) {
	st, err := h.services.Devices.ForceSync(c.Request.Context())
	if err != nil {
		h.respondCommandError(c, "device_force_sync_failed", err, gin.H{"status": st})
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Switch pump
// @Description  Rejected with 409 "modo automático ativo" while automatic mode is on. Toggles within the cooldown are dropped (throttled=true).
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        body  body      StatusRequest  true  "Pump state"
// @Success      200   {object}  models.CommandResult
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]interface{}
// @Failure      502   {object}  map[string]interface{}
// @Router       /api/control/pump [post]
// @Security     BearerAuth
func (h *Handler) setPump(c *gin.Context) {
	var req StatusRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	res, err := h.services.Devices.SetPump(c.Request.Context(), *req.Status)
	h.respondCommand(c, "control_pump_failed", res, err)
}

// @Summary      Switch heater
// @Description  Accepted in any operation mode
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        body  body      StatusRequest  true  "Heater state"
// @Success      200   {object}  models.CommandResult
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]interface{}
// @Router       /api/control/heater [post]
// @Security     BearerAuth
func (h *Handler) setHeater(c *gin.Context) {
	var req StatusRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	res, err := h.services.Devices.SetHeater(c.Request.Context(), *req.Status)
	h.respondCommand(c, "control_heater_failed", res, err)
}

// @Summary      Set operation mode
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        body  body      OperationModeRequest  true  "Mode"
// @Success      200   {object}  models.CommandResult
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]interface{}
// @Router       /api/control/operation-mode [post]
// @Security     BearerAuth
func (h *Handler) setOperationMode(c *gin.Context) {
	var req OperationModeRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	res, err := h.services.Devices.SetOperationMode(c.Request.Context(), *req.Automatic)
	h.respondCommand(c, "control_operation_mode_failed", res, err)
}

// @Summary      Set pump timer
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        body  body      TimerRequest  true  "Timer"
// @Success      200   {object}  models.CommandResult
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]interface{}
// @Router       /api/control/timer [post]
// @Security     BearerAuth
func (h *Handler) setTimer(c *gin.Context) {
	var req TimerRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	res, err := h.services.Devices.SetTimer(c.Request.Context(), service.TimerKind(req.Kind), req.Seconds)
	h.respondCommand(c, "control_timer_failed", res, err)
}

// @Summary      Set target temperature
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        body  body      TargetTempRequest  true  "Target"
// @Success      200   {object}  models.CommandResult
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]interface{}
// @Router       /api/control/target-temp [post]
// @Security     BearerAuth
func (h *Handler) setTargetTemp(c *gin.Context) {
	var req TargetTempRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	res, err := h.services.Devices.SetTargetTemp(c.Request.Context(), *req.TargetTemp)
	h.respondCommand(c, "control_target_temp_failed", res, err)
}

// @Summary      Pump cycle state
// @Description  Progress of the automatic ON/OFF cycle
// @Tags         automation
// @Produce      json
// @Success      200  {object}  models.PumpCycleState
// @Router       /api/automation/pump-cycle [get]
// @Router       /api/automation/pump-cycle [post]
func (h *Handler) getPumpCycle(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.PumpCycle.State())
}

// @Summary      Force cycle start
// @Description  Restart the automatic cycle at the ON phase; requires automatic mode
// @Tags         automation
// @Produce      json
// @Success      200  {object}  models.PumpCycleState
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/automation/force-cycle [post]
// @Security     BearerAuth
func (h *Handler) forceCycle(c *gin.Context) {
	st, err := h.services.PumpCycle.ForceCycleStart(c.Request.Context())
	if err != nil {
		h.respondCommandError(c, "automation_force_cycle_failed", err, gin.H{"cycle": st})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) respondCommand(c *gin.Context, logKey string, res models.CommandResult, err error) {
	if err != nil {
		h.respondCommandError(c, logKey, err, gin.H{"applied": res.Applied, "status": res.Status})
		return
	}
	c.JSON(http.StatusOK, res)
}
