package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"udm-tms-service/internal/seed"
	"udm-tms-service/internal/service"
	"udm-tms-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether a backing dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Seeder resets the store to the fixture set
type Seeder interface {
	Run(ctx context.Context) (*seed.Summary, error)
}

// Options tune the HTTP surface
type Options struct {
	Version   string
	PageLimit int
}

// Handler contains HTTP handlers
type Handler struct {
	udm    *service.UDMService
	tms    *service.TMSService
	seeder Seeder
	db     Pinger
	opts   Options
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(udm *service.UDMService, tms *service.TMSService, seeder Seeder, db Pinger, opts Options) *Handler {
	if opts.PageLimit == 0 {
		opts.PageLimit = 50
	}
	return &Handler{
		udm:    udm,
		tms:    tms,
		seeder: seeder,
		db:     db,
		opts:   opts,
		logger: util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(cors())
	router.Use(requestID())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/", h.index)
	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	udm := router.Group("/udm")
	{
		udm.GET("/component/:rid", h.getComponent)
		udm.POST("/receipt", h.processReceipt)
		udm.GET("/batch/:batchId", h.getBatch)
	}

	tms := router.Group("/tms")
	{
		tms.GET("/asset/:assetId", h.getAsset)
		tms.POST("/asset/:assetId/fit", h.recordFitment)
		tms.POST("/asset/:assetId/inspection", h.recordInspection)
		tms.GET("/inspections", h.getInspections)
	}

	router.POST("/seed/run", h.runSeed)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "error",
			"message": fmt.Sprintf("Route %s not found", c.Request.URL.RequestURI()),
		})
	})
}

// index lists the available endpoints
func (h *Handler) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "UDM-TMS Mock Server",
		"version": h.opts.Version,
		"endpoints": gin.H{
			"udm": []string{
				"GET /udm/component/:rid",
				"POST /udm/receipt",
				"GET /udm/batch/:batchId",
			},
			"tms": []string{
				"GET /tms/asset/:assetId",
				"POST /tms/asset/:assetId/fit",
				"POST /tms/asset/:assetId/inspection",
				"GET /tms/inspections",
			},
			"utility": []string{
				"POST /seed/run",
				"GET /health",
				"GET /ready",
				"GET /metrics",
			},
		},
	})
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   "UDM-TMS Mock Server is running",
		"timestamp": time.Now().UTC(),
		"version":   h.opts.Version,
	})
}

// readinessCheck reports ready only while the database answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) getComponent(c *gin.Context) {
	view, err := h.udm.GetComponent(c.Request.Context(), c.Param("rid"))
	if err != nil {
		h.respondError(c, err, "Failed to fetch component information")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) processReceipt(c *gin.Context) {
	var req service.ReceiptRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.udm.ProcessReceipt(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err, "Failed to process receipt")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getBatch(c *gin.Context) {
	view, err := h.udm.GetBatch(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		h.respondError(c, err, "Failed to fetch batch information")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) getAsset(c *gin.Context) {
	view, err := h.tms.GetAsset(c.Request.Context(), c.Param("assetId"))
	if err != nil {
		h.respondError(c, err, "Failed to fetch asset information")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) recordFitment(c *gin.Context) {
	var req service.FitmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.tms.RecordFitment(c.Request.Context(), c.Param("assetId"), &req)
	if err != nil {
		h.respondError(c, err, "Failed to record fitment")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) recordInspection(c *gin.Context) {
	var req service.InspectionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.tms.RecordInspection(c.Request.Context(), c.Param("assetId"), &req)
	if err != nil {
		h.respondError(c, err, "Failed to record inspection")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getInspections(c *gin.Context) {
	q := service.InspectionQuery{
		ComponentRID: c.Query("componentRid"),
		Limit:        queryInt(c, "limit", h.opts.PageLimit),
		Offset:       queryInt(c, "offset", 0),
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	list, err := h.tms.ListInspections(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err, "Failed to fetch inspections")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) runSeed(c *gin.Context) {
	summary, err := h.seeder.Run(c.Request.Context())
	if errors.Is(err, service.ErrSeedInProgress) {
		c.JSON(http.StatusConflict, gin.H{
			"status":  "error",
			"message": "Seed already in progress",
		})
		return
	}
	if err != nil {
		h.respondError(c, err, "Failed to seed database")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"message":   "Database seeded successfully",
		"timestamp": time.Now().UTC(),
		"counts":    summary,
	})
}

// bindJSON decodes the request body; an empty body decodes as an empty object
func (h *Handler) bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid request body",
			"error":   err.Error(),
		})
		return false
	}
	return true
}

// respondError maps service errors to HTTP responses
func (h *Handler) respondError(c *gin.Context, err error, message string) {
	var validationErr *service.ValidationError
	var notFoundErr *service.NotFoundError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": validationErr.Message,
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "error",
			"message": notFoundErr.Message,
		})
	default:
		h.logger.Error(message,
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": message,
			"error":   err.Error(),
		})
	}
}

// queryInt parses an integer query parameter, falling back to def when absent or malformed
func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}
