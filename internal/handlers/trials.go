package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"visme-go/internal/metrics"
	"visme-go/internal/models"
	"visme-go/internal/repository"
)

// DetectionService is the part of services.DetectionService the handlers use.
type DetectionService interface {
	CreateTrial(ctx context.Context, payload models.TrialPayload) (*models.Trial, error)
	GetTrial(ctx context.Context, id string) (*models.Trial, error)
	LatestRun(ctx context.Context, trialID string, kind models.DetectionKind) (*models.DetectionResult, error)
	DetectMicrosaccades(ctx context.Context, trialID string, override *models.FilterConfiguration) (*models.DetectionResult, error)
	DetectRegularSaccades(ctx context.Context, trialID string, override *models.FilterConfiguration) (*models.DetectionResult, error)
	Statistics(ctx context.Context, trialID string) (*metrics.TrialStatistics, error)
	Filter(kind models.DetectionKind) models.FilterConfiguration
}

// respondError maps service errors to status codes.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, repository.ErrTrialNotFound), errors.Is(err, repository.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidTrial), errors.Is(err, models.ErrInvalidConfiguration):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

type TrialHandler struct {
	log     *zap.Logger
	service DetectionService
}

func NewTrialHandler(log *zap.Logger, service DetectionService) *TrialHandler {
	return &TrialHandler{log: log, service: service}
}

// trialSummary is the response for an uploaded or fetched trial.
type trialSummary struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Participant     string         `json:"participant"`
	FrequencyHz     float64        `json:"frequency"`
	PixelsPerDegree float64        `json:"pixelsPerDegree"`
	Samples         map[string]int `json:"samples"`
	Fixations       map[string]int `json:"fixations"`
}

func summarize(t *models.Trial) trialSummary {
	s := trialSummary{
		ID:              t.ID,
		Name:            t.Name,
		Participant:     t.Participant.Name,
		FrequencyHz:     t.FrequencyHz,
		PixelsPerDegree: t.Participant.PixelsPerDegree,
		Samples:         make(map[string]int, len(models.Channels)),
		Fixations:       make(map[string]int, len(models.Channels)),
	}
	for _, ch := range models.Channels {
		s.Samples[ch.String()] = t.Gaze[ch].Len()
		s.Fixations[ch.String()] = len(t.Fixations[ch])
	}
	return s
}

// Create stores an uploaded trial.
func (h *TrialHandler) Create(c *gin.Context) {
	var payload models.TrialPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.log.Warn("Failed to bind trial payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trial data"})
		return
	}

	trial, err := h.service.CreateTrial(c.Request.Context(), payload)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, summarize(trial))
}

func (h *TrialHandler) Get(c *gin.Context) {
	trial, err := h.service.GetTrial(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, summarize(trial))
}
