package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aquaponics_monitor/internal/models"
)

// @Summary      Emulator status
// @Tags         emulator
// @Produce      json
// @Success      200  {object}  models.EmulatorStatus
// @Router       /api/emulator/status [get]
func (h *Handler) getEmulatorStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Emulator.Status())
}

// @Summary      Start emulator
// @Description  Switch the data source to synthetic readings
// @Tags         emulator
// @Produce      json
// @Success      200  {object}  models.EmulatorStatus
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/emulator/start [post]
// @Security     BearerAuth
func (h *Handler) startEmulator(c *gin.Context) {
	st, err := h.services.Emulator.Start(c.Request.Context())
	if err != nil {
		h.respondError(c, "emulator_start_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Stop emulator
// @Description  Switch the data source back to ThingSpeak
// @Tags         emulator
// @Produce      json
// @Success      200  {object}  models.EmulatorStatus
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/emulator/stop [post]
// @Security     BearerAuth
func (h *Handler) stopEmulator(c *gin.Context) {
	st, err := h.services.Emulator.Stop(c.Request.Context())
	if err != nil {
		h.respondError(c, "emulator_stop_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Emulator config
// @Tags         emulator
// @Produce      json
// @Success      200  {object}  models.EmulatorConfig
// @Router       /api/emulator/config [get]
func (h *Handler) getEmulatorConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Emulator.Config())
}

// @Summary      Update emulator config
// @Description  Enabled is ignored; use start/stop
// @Tags         emulator
// @Accept       json
// @Produce      json
// @Param        body  body      models.EmulatorConfig  true  "Config"
// @Success      200   {object}  models.EmulatorConfig
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/emulator/config [post]
// @Security     BearerAuth
func (h *Handler) updateEmulatorConfig(c *gin.Context) {
	var in models.EmulatorConfig
	if !h.bindJSONOrBadRequest(c, &in) {
		return
	}
	cfg, err := h.services.Emulator.UpdateConfig(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, "emulator_config_failed", err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// @Summary      List scenarios
// @Tags         emulator
// @Produce      json
// @Success      200  {array}  models.Scenario
// @Router       /api/emulator/scenarios [get]
func (h *Handler) listScenarios(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Emulator.Scenarios())
}

// @Summary      Load scenario
// @Tags         emulator
// @Produce      json
// @Param        name  path      string  true  "Scenario name"
// @Success      200   {object}  models.Scenario
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/emulator/scenarios/{name} [post]
// @Security     BearerAuth
func (h *Handler) loadScenario(c *gin.Context) {
	name := c.Param("name")
	sc, err := h.services.Emulator.LoadScenario(c.Request.Context(), name)
	if err != nil {
		h.respondError(c, "emulator_scenario_failed", err, "name", name)
		return
	}
	c.JSON(http.StatusOK, sc)
}

// @Summary      Switch an emulated actuator
// @Tags         emulator
// @Accept       json
// @Produce      json
// @Param        device  path      string         true  "pump | heater"
// @Param        body    body      StatusRequest  true  "State"
// @Success      200     {object}  models.ControlStates
// @Failure      400     {object}  map[string]string
// @Failure      404     {object}  map[string]string
// @Failure      409     {object}  map[string]string
// @Router       /api/emulator/control/{device} [post]
// @Security     BearerAuth
func (h *Handler) controlEmulatedDevice(c *gin.Context) {
	var req StatusRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	device := c.Param("device")
	st, err := h.services.Emulator.Control(c.Request.Context(), device, *req.Status)
	if err != nil {
		h.respondError(c, "emulator_control_failed", err, "device", device)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Emulator data
// @Description  Latest synthetic reading; active=false while stopped
// @Tags         emulator
// @Produce      json
// @Success      200  {object}  models.EmulatorData
// @Router       /api/emulator/data [get]
func (h *Handler) getEmulatorData(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Emulator.Data())
}
