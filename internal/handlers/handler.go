package handlers

import (
	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"aquaponics_monitor/internal/logger"
	"aquaponics_monitor/internal/metrics"
	"aquaponics_monitor/internal/service"
)

// Options toggles the optional parts of the HTTP layer.
type Options struct {
	// AuthEnabled puts the write endpoints behind a bearer token.
	AuthEnabled bool
	// Metrics, when set, serves /metrics and counts requests.
	Metrics *metrics.Metrics
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	opts     Options
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts Options) *Handler {
	return &Handler{services: services, log: log, opts: opts}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if h.opts.Metrics != nil {
		router.Use(h.opts.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(h.opts.Metrics.Handler()))
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// status push over websocket, same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/readings/latest", h.getLatestReading)
		h.registerDeviceRoutes(api)
		h.registerControlRoutes(api)
		h.registerAutomationRoutes(api)
		h.registerEmulatorRoutes(api)
		h.registerSettingsRoutes(api)
		h.registerHistoryRoutes(api)
		api.GET("/logs", h.getLogs)
	}
}

func (h *Handler) registerDeviceRoutes(api *gin.RouterGroup) {
	device := api.Group("/device")
	{
		device.GET("/status", h.getDeviceStatus)
		device.POST("/sync", h.requireOperator(), h.forceSync)
		device.GET("/stream", h.streamStatus)
	}
}

func (h *Handler) registerControlRoutes(api *gin.RouterGroup) {
	control := api.Group("/control", h.requireOperator())
	{
		control.POST("/pump", h.setPump)
		control.POST("/heater", h.setHeater)
		// Body example: {"automatic":true}
		control.POST("/operation-mode", h.setOperationMode)
		// Body example: {"kind":"on","seconds":"300"}
		control.POST("/timer", h.setTimer)
		control.POST("/target-temp", h.setTargetTemp)
	}
}

func (h *Handler) registerAutomationRoutes(api *gin.RouterGroup) {
	automation := api.Group("/automation")
	{
		// POST kept for dashboards that poll with POST
		automation.GET("/pump-cycle", h.getPumpCycle)
		automation.POST("/pump-cycle", h.getPumpCycle)
		automation.POST("/force-cycle", h.requireOperator(), h.forceCycle)
	}
}

func (h *Handler) registerEmulatorRoutes(api *gin.RouterGroup) {
	emu := api.Group("/emulator")
	guard := h.requireOperator()
	{
		emu.GET("/status", h.getEmulatorStatus)
		emu.POST("/start", guard, h.startEmulator)
		emu.POST("/stop", guard, h.stopEmulator)
		emu.GET("/config", h.getEmulatorConfig)
		emu.POST("/config", guard, h.updateEmulatorConfig)
		emu.GET("/scenarios", h.listScenarios)
		emu.POST("/scenarios/:name", guard, h.loadScenario)
		emu.POST("/control/:device", guard, h.controlEmulatedDevice)
		emu.GET("/data", h.getEmulatorData)
	}
}

func (h *Handler) registerSettingsRoutes(api *gin.RouterGroup) {
	api.GET("/settings", h.getSettings)
	api.POST("/settings", h.requireOperator(), h.saveSettings)
}

func (h *Handler) registerHistoryRoutes(api *gin.RouterGroup) {
	history := api.Group("/historical-data")
	{
		history.GET("", h.getHistory)
		history.POST("", h.queryHistory)
		history.GET("/stats", h.getHistoryStats)
		history.GET("/remote", h.getRemoteHistory)
	}
}
