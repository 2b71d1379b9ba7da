package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"visme-go/internal/models"
)

type DetectionHandler struct {
	log      *zap.Logger
	service  DetectionService
	profiles *models.FilterProfiles // may be nil
}

func NewDetectionHandler(log *zap.Logger, service DetectionService, profiles *models.FilterProfiles) *DetectionHandler {
	return &DetectionHandler{log: log, service: service, profiles: profiles}
}

type detectFunc func(ctx context.Context, trialID string, override *models.FilterConfiguration) (*models.DetectionResult, error)

// DetectMicrosaccades runs microsaccade detection. The ?profile= query
// selects a named filter profile, and a JSON filter configuration in the
// body replaces the configured one. Keys the body leaves out come from the
// profile, or from the configured microsaccade filter.
func (h *DetectionHandler) DetectMicrosaccades(c *gin.Context) {
	h.detect(c, models.KindMicrosaccades, h.service.DetectMicrosaccades)
}

// DetectRegularSaccades runs regular saccade detection, with the same
// optional body as DetectMicrosaccades.
func (h *DetectionHandler) DetectRegularSaccades(c *gin.Context) {
	h.detect(c, models.KindSaccades, h.service.DetectRegularSaccades)
}

func (h *DetectionHandler) detect(c *gin.Context, kind models.DetectionKind, run detectFunc) {
	base := h.service.Filter(kind)
	var profile *models.FilterConfiguration
	if name := c.Query("profile"); name != "" {
		var found bool
		if h.profiles != nil {
			var cfg models.FilterConfiguration
			cfg, found = h.profiles.Get(name)
			profile = &cfg
		}
		if !found {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown filter profile " + name})
			return
		}
		base = *profile
	}

	override, ok := h.bindOverride(c, base)
	if !ok {
		return
	}
	if override == nil {
		override = profile
	}
	res, err := run(c.Request.Context(), c.Param("id"), override)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// bindOverride reads the optional configuration body. An empty body means
// no override.
func (h *DetectionHandler) bindOverride(c *gin.Context, base models.FilterConfiguration) (*models.FilterConfiguration, bool) {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil, true
	}
	cfg := base
	if err := c.ShouldBindJSON(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, true
		}
		h.log.Warn("Failed to bind filter configuration", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter configuration"})
		return nil, false
	}
	return &cfg, true
}

// LatestMicrosaccades returns the most recent stored microsaccade run.
func (h *DetectionHandler) LatestMicrosaccades(c *gin.Context) {
	h.latest(c, models.KindMicrosaccades)
}

// LatestSaccades returns the most recent stored regular saccade run.
func (h *DetectionHandler) LatestSaccades(c *gin.Context) {
	h.latest(c, models.KindSaccades)
}

func (h *DetectionHandler) latest(c *gin.Context, kind models.DetectionKind) {
	res, err := h.service.LatestRun(c.Request.Context(), c.Param("id"), kind)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
