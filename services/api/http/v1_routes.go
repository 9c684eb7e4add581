package http

import "github.com/gin-gonic/gin"

// registerV1Routes sets up the v1 API structure
// Groups: /api/v1/core, /api/v1/water, /api/v1/ingest, /api/v1/realtime
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware())

	// Core endpoints - station metadata
	core := v1.Group("/core")
	{
		core.GET("/stations", s.handleV1ListStations)
	}

	// Water endpoints - paged reads per session, sample ingestion
	water := v1.Group("/water")
	{
		water.POST("/samples", s.handleV1AppendSamples)
		water.POST("/sessions", s.handleV1CreateSession)
		water.GET("/sessions/:id", s.handleV1GetSession)
		water.PUT("/sessions/:id", s.handleV1SetFilter)
		water.DELETE("/sessions/:id", s.handleV1DeleteSession)
		water.GET("/sessions/:id/pages/:page", s.handleV1GetPage)
	}

	ingest := v1.Group("/ingest")
	{
		ingest.GET("/stats", s.handleV1IngestStats)
	}

	// Realtime endpoints - latest data
	realtime := v1.Group("/realtime")
	{
		realtime.GET("/now", s.handleV1RealtimeNow)
	}
}

func apiVersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-API-Version", "v1")
		c.Next()
	}
}
