package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gozunis/app"
	"gozunis/domain/core"
	"gozunis/internal/errors"
)

// IntegrationHandler serves the integration and benchmark endpoints
type IntegrationHandler struct {
	integrations *app.IntegrationService
	benchmarks   *app.BenchmarkService
	hub          *ProgressHub
}

// NewIntegrationHandler creates a new integration handler. hub may be nil, in
// which case the events endpoint is not registered.
func NewIntegrationHandler(
	integrations *app.IntegrationService,
	benchmarks *app.BenchmarkService,
	hub *ProgressHub,
) *IntegrationHandler {
	if hub != nil {
		integrations.SetProgressPublisher(hub)
	}
	return &IntegrationHandler{
		integrations: integrations,
		benchmarks:   benchmarks,
		hub:          hub,
	}
}

// RegisterRoutes mounts the handlers under /api
func (h *IntegrationHandler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/integrations", h.CreateIntegration)
	api.GET("/integrations", h.ListIntegrations)
	if h.hub != nil {
		api.GET("/integrations/events", h.hub.HandleSSE)
	}
	api.GET("/integrations/:id", h.GetIntegration)
	api.POST("/benchmarks/camel", h.CreateCamelBenchmark)
	api.GET("/benchmarks", h.ListBenchmarks)
}

// NewRouter builds a gin engine with the API routes
func NewRouter(h *IntegrationHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.RegisterRoutes(r)
	return r
}

// CreateIntegration runs an integration synchronously. An interrupted run is
// answered with 504 and still carries the partial result.
func (h *IntegrationHandler) CreateIntegration(c *gin.Context) {
	var req app.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}

	resp, err := h.integrations.Run(c.Request.Context(), req)
	if err != nil {
		if resp != nil && app.IsInterrupted(err) {
			c.JSON(errors.HTTPStatus(err), gin.H{
				"error":  err.Error(),
				"code":   errors.GetCode(err),
				"result": newRunView(resp.Run, resp),
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newRunView(resp.Run, resp))
}

// ListIntegrations lists stored runs, newest first
func (h *IntegrationHandler) ListIntegrations(c *gin.Context) {
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		respondError(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		respondError(c, err)
		return
	}

	runs, err := h.integrations.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	summaries := make([]runSummary, 0, len(runs))
	for _, r := range runs {
		summaries = append(summaries, newRunSummary(r))
	}
	c.JSON(http.StatusOK, gin.H{"runs": summaries, "limit": limit, "offset": offset})
}

// GetIntegration returns one stored run with its history profile
func (h *IntegrationHandler) GetIntegration(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}

	stored, err := h.integrations.GetRun(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	view := newRunView(stored, nil)
	if profile, err := h.integrations.Profile(stored); err == nil {
		view.Profile = profile
	}
	c.JSON(http.StatusOK, view)
}

// CreateCamelBenchmark runs the camel benchmark grid
func (h *IntegrationHandler) CreateCamelBenchmark(c *gin.Context) {
	var req app.BenchmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}

	report, err := h.benchmarks.Camel(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"suite":   report.Suite,
		"rows":    newBenchmarkViews(report.Rows),
		"summary": report.Summary,
	})
}

// ListBenchmarks lists benchmark rows of one suite (all suites when empty)
func (h *IntegrationHandler) ListBenchmarks(c *gin.Context) {
	limit, err := queryInt(c, "limit", 100)
	if err != nil {
		respondError(c, err)
		return
	}
	rows, err := h.benchmarks.List(c.Request.Context(), c.Query("suite"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": newBenchmarkViews(rows)})
}

func respondError(c *gin.Context, err error) {
	c.JSON(errors.HTTPStatus(err), gin.H{"error": err.Error(), "code": errors.GetCode(err)})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.InvalidInput(key + " must be a non-negative integer")
	}
	return v, nil
}

// finite maps infinities and NaN to nil, which JSON cannot encode
func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

