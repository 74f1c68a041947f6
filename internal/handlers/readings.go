package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"aquaponics_monitor/internal/broker"
	"aquaponics_monitor/internal/service"
)

const maxRemoteResults = 8000

// HistoryRequest is the JSON form of a history query. Times accept the same
// formats as the query string.
type HistoryRequest struct {
	From  string `json:"from" example:"2025-08-01"`
	To    string `json:"to" example:"2025-08-31"`
	Limit int    `json:"limit" example:"500"`
}

// @Summary      Latest reading
// @Description  Newest sensor reading with fault flag and setpoint alerts; reading is null when nothing was ever received
// @Tags         readings
// @Produce      json
// @Success      200  {object}  models.LatestReading
// @Failure      500  {object}  map[string]string
// @Router       /api/readings/latest [get]
func (h *Handler) getLatestReading(c *gin.Context) {
	out, err := h.services.Readings.Latest(c.Request.Context())
	if err != nil {
		h.respondError(c, "readings_latest_failed", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary      Reading history
// @Tags         readings
// @Produce      json
// @Param        from   query   string  false  "Start of range"  example(2025-08-01)
// @Param        to     query   string  false  "End of range; date-only covers the whole day"  example(2025-08-31)
// @Param        limit  query   int     false  "Newest N readings (default 500, max 8000)"
// @Success      200   {object}  map[string]interface{}  "count, readings"
// @Failure      400   {object}  map[string]string
// @Router       /api/historical-data [get]
func (h *Handler) getHistory(c *gin.Context) {
	h.history(c, HistoryRequest{From: c.Query("from"), To: c.Query("to")}, c.Query("limit"))
}

// @Summary      Reading history (JSON query)
// @Tags         readings
// @Accept       json
// @Produce      json
// @Param        body  body      HistoryRequest  true  "Range"
// @Success      200   {object}  map[string]interface{}  "count, readings"
// @Failure      400   {object}  map[string]string
// @Router       /api/historical-data [post]
func (h *Handler) queryHistory(c *gin.Context) {
	var req HistoryRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	if req.Limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errLimitInvalid})
		return
	}
	h.history(c, req, strconv.Itoa(req.Limit))
}

func (h *Handler) history(c *gin.Context, req HistoryRequest, limitStr string) {
	f, ok := h.historyFilter(c, req.From, req.To, limitStr)
	if !ok {
		return
	}
	readings, err := h.services.Readings.History(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, "history_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(readings), "readings": readings})
}

// @Summary      Reading statistics
// @Description  Min/max/avg per sensor; temperature -127 (sensor fault) is counted in faultCount and excluded from temperature aggregates
// @Tags         readings
// @Produce      json
// @Param        from  query   string  false  "Start of range"
// @Param        to    query   string  false  "End of range"
// @Success      200   {object}  models.ReadingStats
// @Failure      400   {object}  map[string]string
// @Router       /api/historical-data/stats [get]
func (h *Handler) getHistoryStats(c *gin.Context) {
	f, ok := h.historyFilter(c, c.Query("from"), c.Query("to"), "")
	if !ok {
		return
	}
	stats, err := h.services.Readings.Stats(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, "history_stats_failed", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary      Remote history
// @Description  Feed list read from the active broker (cached briefly)
// @Tags         readings
// @Produce      json
// @Param        results  query   int     false  "Number of entries (max 8000)"
// @Param        start    query   string  false  "Start of range"
// @Param        end      query   string  false  "End of range"
// @Success      200   {object}  map[string]interface{}  "count, readings"
// @Failure      400   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/historical-data/remote [get]
func (h *Handler) getRemoteHistory(c *gin.Context) {
	start, end, msg := parseTimeRange(c.Query("start"), c.Query("end"))
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	results, ok := parseLimit(c.Query("results"))
	if !ok || results > maxRemoteResults {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'results'; use 0-8000"})
		return
	}
	readings, err := h.services.Readings.RemoteHistory(c.Request.Context(), broker.FeedQuery{Results: results, Start: start, End: end})
	if err != nil {
		h.respondError(c, "history_remote_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(readings), "readings": readings})
}

func (h *Handler) historyFilter(c *gin.Context, fromStr, toStr, limitStr string) (service.HistoryFilter, bool) {
	from, to, msg := parseTimeRange(fromStr, toStr)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return service.HistoryFilter{}, false
	}
	limit, ok := parseLimit(limitStr)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": errLimitInvalid})
		return service.HistoryFilter{}, false
	}
	return service.HistoryFilter{From: from, To: to, Limit: limit}, true
}
