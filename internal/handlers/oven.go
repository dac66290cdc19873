package handlers

import (
	"errors"
	"net/http"

	"reflow_oven/internal/controller"

	"github.com/gin-gonic/gin"
)

const (
	statusOK      = "ok"
	statusStarted = "started"
	statusStopped = "stopped"

	errStartRun    = "failed to start run"
	errStopRun     = "failed to stop run"
	errGetState    = "failed to load state"
	errGetSamples  = "failed to load samples"
	errRunActive   = "a run is already in progress"
	errSensorFault = "temperature sensor fault"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Respond with a status and include current state if available (best-effort).
func (h *Handler) respondWithStatusAndState(c *gin.Context, status string, extra gin.H) {
	ctx := c.Request.Context()
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	st, err := h.services.Monitoring.GetState(ctx)
	if err == nil {
		resp["state"] = st
	}
	c.JSON(http.StatusOK, resp)
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

// @Summary      Start a reflow run
// @Description  Refused with 409 while a run is active and with 503 when the first temperature reading is faulty.
// @Tags         oven
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, run_id, state"
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/oven/start [post]
// @Security     BearerAuth
func (h *Handler) startRun(c *gin.Context) {
	ctx := c.Request.Context()
	runID, err := h.services.Oven.Start(ctx)
	switch {
	case err == nil:
	case errors.Is(err, controller.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": errRunActive})
		return
	case controller.IsSensorFault(err):
		h.logAndJSONError(c, http.StatusServiceUnavailable, errSensorFault, "oven_start_sensor_fault", err)
		return
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errStartRun, "oven_start_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusStarted, gin.H{"run_id": runID})
}

// @Summary      Stop the oven
// @Description  Halts any run and switches the heater off. Stopping an idle oven succeeds.
// @Tags         oven
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/oven/stop [post]
// @Security     BearerAuth
func (h *Handler) stopRun(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.Oven.Stop(ctx); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errStopRun, "oven_stop_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusStopped, gin.H{})
}

// @Summary      Get oven state
// @Tags         oven
// @Produce      json
// @Success      200  {object}  models.OvenState
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/oven/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "oven_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Get the loaded reflow profile
// @Tags         oven
// @Produce      json
// @Success      200  {object}  service.ProfileView
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/oven/profile [get]
// @Security     BearerAuth
func (h *Handler) getProfile(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Profile.GetProfile())
}

// @Summary      Get the recorded chart of a run
// @Tags         oven
// @Produce      json
// @Param        run_id  query  string  false  "Run ID; defaults to the most recent run"
// @Success      200  {object}  service.RunSamples
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/oven/samples [get]
// @Security     BearerAuth
func (h *Handler) getSamples(c *gin.Context) {
	ctx := c.Request.Context()
	runID := c.Query("run_id")
	out, err := h.services.Samples.ListByRun(ctx, runID)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetSamples, "oven_samples_failed", err, "run_id", runID)
		return
	}
	c.JSON(http.StatusOK, out)
}
