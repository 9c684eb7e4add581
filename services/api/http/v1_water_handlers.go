package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/govalues/decimal"
	"github.com/rickb777/period"

	"github.com/02loveslollipop/tswater/internal/models"
	"github.com/02loveslollipop/tswater/internal/writer"
)

// scopeRequest selects the rows a session pages through. Start may be
// replaced by Span, an ISO-8601 period counted back from End.
type scopeRequest struct {
	StationID string `json:"station_id"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Span      string `json:"span"`
	AlignHour bool   `json:"align_hour"`
}

func (r scopeRequest) scope(now time.Time) (models.FilterScope, error) {
	scope := models.FilterScope{StationID: strings.TrimSpace(r.StationID), AlignToHour: r.AlignHour}
	if scope.StationID == "" {
		return scope, errors.New("station_id is required")
	}

	scope.End = now.UTC()
	if r.End != "" {
		t, err := time.Parse(time.RFC3339, r.End)
		if err != nil {
			return scope, errors.New("invalid end time format, expected RFC3339")
		}
		scope.End = t.UTC()
	}

	switch {
	case r.Start != "" && r.Span != "":
		return scope, errors.New("start and span are mutually exclusive")
	case r.Start != "":
		t, err := time.Parse(time.RFC3339, r.Start)
		if err != nil {
			return scope, errors.New("invalid start time format, expected RFC3339")
		}
		scope.Start = t.UTC()
	case r.Span != "":
		p, err := period.Parse(r.Span)
		if err != nil || p.IsZero() || p.IsNegative() {
			return scope, errors.New("invalid span, expected a positive ISO-8601 period such as P7D")
		}
		start, ok := p.Negate().AddTo(scope.End)
		if !ok {
			return scope, errors.New("span is not exact")
		}
		scope.Start = start.UTC()
	default:
		return scope, errors.New("start or span is required")
	}

	if scope.Start.After(scope.End) {
		return scope, errors.New("start is after end")
	}
	return scope, nil
}

func scopeJSON(scope models.FilterScope) gin.H {
	return gin.H{
		"station_id": scope.StationID,
		"start":      scope.Start.Format(time.RFC3339),
		"end":        scope.End.Format(time.RFC3339),
		"align_hour": scope.AlignToHour,
	}
}

// handleV1CreateSession opens a paging session under the given scope
// POST /api/v1/water/sessions
func (s *Server) handleV1CreateSession(c *gin.Context) {
	var req scopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	scope, err := req.scope(time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, entry, err := s.sessions.create()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	entry.mu.Lock()
	entry.session.SetFilter(scope)
	entry.mu.Unlock()

	c.Header("X-Session-ID", id)
	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"session_id": id,
			"scope":      scopeJSON(scope),
		},
		"meta": gin.H{
			"page_size":   s.cfg.Paging.UIPage,
			"window_size": s.cfg.Paging.DBWindow,
		},
	})
}

// handleV1SetFilter replaces the scope of a session. An unchanged scope keeps
// the cached windows.
// PUT /api/v1/water/sessions/:id
func (s *Server) handleV1SetFilter(c *gin.Context) {
	entry, ok := s.sessions.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var req scopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	scope, err := req.scope(time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry.mu.Lock()
	entry.session.SetFilter(scope)
	cached := entry.session.CachedWindows()
	entry.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"session_id": c.Param("id"),
			"scope":      scopeJSON(scope),
		},
		"meta": gin.H{
			"cached_windows": cached,
		},
	})
}

// handleV1GetSession returns the scope and pagination counters of a session
// GET /api/v1/water/sessions/:id
func (s *Server) handleV1GetSession(c *gin.Context) {
	entry, ok := s.sessions.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	scope, _ := entry.session.Scope()
	rows, err := entry.session.RowCount(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	pages, _ := entry.session.PageCount(ctx)

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"session_id": c.Param("id"),
			"scope":      scopeJSON(scope),
		},
		"pagination": gin.H{
			"limit":       s.cfg.Paging.UIPage,
			"total_count": rows,
			"total_pages": pages,
		},
		"meta": gin.H{
			"cached_windows": entry.session.CachedWindows(),
		},
	})
}

// handleV1DeleteSession drops a session and its cached windows
// DELETE /api/v1/water/sessions/:id
func (s *Server) handleV1DeleteSession(c *gin.Context) {
	if !s.sessions.remove(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// handleV1GetPage returns one UI page of samples, oldest first
// GET /api/v1/water/sessions/:id/pages/:page
func (s *Server) handleV1GetPage(c *gin.Context) {
	entry, ok := s.sessions.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	// Non-numeric pages are treated like page 0: an empty result.
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		page = 0
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	samples, err := entry.session.GetPage(ctx, page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	pagination := gin.H{
		"page":  page,
		"limit": s.cfg.Paging.UIPage,
	}
	if rows, err := entry.session.RowCount(ctx); err == nil {
		pages, _ := entry.session.PageCount(ctx)
		pagination["total_count"] = rows
		pagination["total_pages"] = pages
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       samples,
		"pagination": pagination,
		"meta": gin.H{
			"session_id":     c.Param("id"),
			"count":          len(samples),
			"cached_windows": entry.session.CachedWindows(),
		},
	})
}

// sampleRequest is one sample in an ingest body. The water stage may be a
// JSON number or a numeric string; a missing one is stored as the
// missing-reading sentinel. A missing receive time is now.
type sampleRequest struct {
	StationID     string             `json:"station_id"`
	TimeCollected time.Time          `json:"time_collected"`
	TimeReceived  *time.Time         `json:"time_received"`
	WaterStage    *json.Number       `json:"water_stage"`
	ChannelType   models.ChannelType `json:"channel_type"`
	MessageType   models.MessageType `json:"message_type"`
}

type appendRequest struct {
	Samples []sampleRequest `json:"samples"`
}

func (r sampleRequest) sample(now time.Time) (models.Sample, error) {
	if strings.TrimSpace(r.StationID) == "" {
		return models.Sample{}, errors.New("station_id is required")
	}
	if r.TimeCollected.IsZero() {
		return models.Sample{}, errors.New("time_collected is required")
	}
	if !r.ChannelType.Known() && r.ChannelType.Code == "" {
		return models.Sample{}, errors.New("channel_type is required")
	}
	if !r.MessageType.Known() && r.MessageType.Code == "" {
		return models.Sample{}, errors.New("message_type is required")
	}

	s := models.Sample{
		StationID:     strings.TrimSpace(r.StationID),
		TimeCollected: r.TimeCollected.UTC(),
		TimeReceived:  now.UTC(),
		WaterStage:    models.MissingWaterStage,
		ChannelType:   r.ChannelType,
		MessageType:   r.MessageType,
	}
	if r.TimeReceived != nil {
		s.TimeReceived = r.TimeReceived.UTC()
	}
	if r.WaterStage != nil {
		d, err := decimal.Parse(r.WaterStage.String())
		if err != nil {
			return models.Sample{}, fmt.Errorf("water_stage: %w", err)
		}
		s.WaterStage = d
	}
	return s, nil
}

// handleV1AppendSamples appends a batch of samples through the writer
// POST /api/v1/water/samples
func (s *Server) handleV1AppendSamples(c *gin.Context) {
	var req appendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.Samples) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "samples must not be empty"})
		return
	}

	now := time.Now()
	samples := make([]models.Sample, 0, len(req.Samples))
	for i, r := range req.Samples {
		smp, err := r.sample(now)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sample " + strconv.Itoa(i) + ": " + err.Error()})
			return
		}
		samples = append(samples, smp)
	}

	// A flush that has started runs to completion even if the client goes
	// away; the writer bounds it with the bulk timeout.
	if err := s.writer.AppendBatch(c.Request.Context(), samples); err != nil {
		var bwe *writer.BulkWriteError
		if errors.As(err, &bwe) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "rows_lost": bwe.Rows})
			return
		}
		if errors.Is(err, writer.ErrMissingCode) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusCreated
	if s.writer.Policy().Mode == writer.ModeBatched {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{
		"data": gin.H{
			"accepted": len(samples),
		},
		"meta": gin.H{
			"flush_mode": s.writer.Policy().Mode,
		},
	})
}

// handleV1IngestStats reports writer counters
// GET /api/v1/ingest/stats
func (s *Server) handleV1IngestStats(c *gin.Context) {
	policy := s.writer.Policy()
	c.JSON(http.StatusOK, gin.H{
		"data": s.writer.Stats(),
		"meta": gin.H{
			"table":           s.store.Table(),
			"flush_mode":      policy.Mode,
			"flush_max_rows":  policy.MaxRows,
			"flush_interval":  policy.Interval.String(),
			"active_sessions": s.sessions.len(),
		},
	})
}
