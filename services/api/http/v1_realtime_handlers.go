package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// handleV1RealtimeNow returns the most recent sample of every station
// GET /api/v1/realtime/now
func (s *Server) handleV1RealtimeNow(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	rows, err := s.store.Latest(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	samples, err := s.codec.DecodeAll(rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if len(samples) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no water data available"})
		return
	}

	latest := samples[0].TimeCollected
	for _, smp := range samples[1:] {
		if smp.TimeCollected.After(latest) {
			latest = smp.TimeCollected
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": samples,
		"meta": gin.H{
			"timestamp":      latest.Format(time.RFC3339),
			"stations_count": len(samples),
			"generated_at":   time.Now().UTC().Format(time.RFC3339),
		},
	})
}
