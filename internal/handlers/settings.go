package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aquaponics_monitor/internal/models"
)

// @Summary      Get settings
// @Description  Operator setpoints; defaults are returned when nothing was saved yet
// @Tags         settings
// @Produce      json
// @Success      200  {object}  models.Settings
// @Failure      500  {object}  map[string]string
// @Router       /api/settings [get]
func (h *Handler) getSettings(c *gin.Context) {
	st, err := h.services.Settings.Get(c.Request.Context())
	if err != nil {
		h.respondError(c, "settings_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Save settings
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        body  body      models.Settings  true  "Setpoints"
// @Success      200   {object}  models.Settings
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/settings [post]
// @Security     BearerAuth
func (h *Handler) saveSettings(c *gin.Context) {
	var in models.Settings
	if !h.bindJSONOrBadRequest(c, &in) {
		return
	}
	saved, err := h.services.Settings.Save(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, "settings_save_failed", err)
		return
	}
	c.JSON(http.StatusOK, saved)
}
