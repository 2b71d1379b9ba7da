package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StatisticsHandler struct {
	log     *zap.Logger
	service DetectionService
}

func NewStatisticsHandler(log *zap.Logger, service DetectionService) *StatisticsHandler {
	return &StatisticsHandler{log: log, service: service}
}

// Show returns the per-channel microsaccade statistics of a trial.
func (h *StatisticsHandler) Show(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
