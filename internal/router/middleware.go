package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TrialIDRequired rejects requests whose :id parameter is not a trial ID.
// Trial IDs are UUIDs, so anything else cannot exist in the store.
func TrialIDRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := uuid.Parse(c.Param("id")); err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "trial not found"})
			return
		}
		c.Next()
	}
}
