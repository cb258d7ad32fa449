package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jakechorley/caregiver-planner/internal/config"
	"github.com/jakechorley/caregiver-planner/pkg/core/model"
	"github.com/jakechorley/caregiver-planner/pkg/core/services"
	"github.com/jakechorley/caregiver-planner/pkg/db"
	"github.com/jakechorley/caregiver-planner/pkg/lock"
	"github.com/jakechorley/caregiver-planner/pkg/metrics"
)

// UserHeader carries the ID stored as creator of new assignments
const UserHeader = "X-User-ID"

const defaultUserID = "api"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves the planner routes
type Handler struct {
	database db.Database
	locker   lock.Locker
	metrics  metrics.Recorder
	cfg      *config.Config
	logger   *zap.Logger
}

// NewHandler creates a Handler
func NewHandler(database db.Database, locker lock.Locker, recorder metrics.Recorder, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		database: database,
		locker:   locker,
		metrics:  recorder,
		cfg:      cfg,
		logger:   logger,
	}
}

// pinger is implemented by stores with a live connection
type pinger interface {
	Ping(ctx context.Context) error
}

// Health handles GET /healthz
func (h *Handler) Health(c *gin.Context) {
	if p, ok := h.database.(pinger); ok {
		if err := p.Ping(c.Request.Context()); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func userID(c *gin.Context) string {
	if id := c.GetHeader(UserHeader); id != "" {
		return id
	}
	return defaultUserID
}

// GenerateWeek handles POST /api/weeks/generate
func (h *Handler) GenerateWeek(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, CodeBadRequest, err.Error())
		return
	}

	recurrence := h.cfg.Recurrence
	if req.Recurrence != nil {
		recurrence = *req.Recurrence
	}

	result, err := services.GenerateWeekCalendar(c.Request.Context(), h.database, h.locker, h.metrics, h.cfg, h.logger, services.GenerateWeekRequest{
		Options: model.CalendarOptions{
			Date:       req.Date,
			Recurrence: recurrence,
		},
		Forbidden:  model.ForbiddenSectors(req.ForbiddenSectors),
		Regenerate: req.Regenerate,
		UserID:     userID(c),
		Seed:       req.Seed,
		DryRun:     req.DryRun,
	})
	if err != nil {
		_ = c.Error(err)

		var genErr *services.GenerationError
		switch {
		case errors.Is(err, services.ErrInvalidDate):
			badRequest(c, CodeInvalidDate, err.Error())
		case errors.Is(err, services.ErrWeekLocked):
			fail(c, http.StatusConflict, CodeWeekLocked, "week is being generated by another run")
		case errors.As(err, &genErr):
			failWithDetails(c, http.StatusInternalServerError, CodeGenerationFail, "week generation failed", gin.H{
				"persisted": genErr.Persisted,
			})
		default:
			internalError(c)
		}
		return
	}

	ok(c, toGenerateResponse(result))
}

// GetWeekAssignments handles GET /api/weeks/:date/assignments
func (h *Handler) GetWeekAssignments(c *gin.Context) {
	week, err := services.GetWeekAssignments(c.Request.Context(), h.database, h.logger, c.Param("date"))
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, services.ErrInvalidDate) {
			badRequest(c, CodeInvalidDate, err.Error())
			return
		}
		internalError(c)
		return
	}

	ok(c, WeekResponse{
		WeekStart:   week.Days[0].Format(model.DateLayout),
		Days:        formatDays(week.Days),
		Assignments: toAssignmentDTOs(week.Assignments),
	})
}

// ExportWeek handles GET /api/weeks/:date/export and streams the planning as xlsx
func (h *Handler) ExportWeek(c *gin.Context) {
	buf, filename, err := services.ExportWeek(c.Request.Context(), h.database, h.logger, c.Param("date"))
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, services.ErrInvalidDate) {
			badRequest(c, CodeInvalidDate, err.Error())
			return
		}
		internalError(c)
		return
	}

	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// SwapAssignment handles POST /api/assignments/swap
func (h *Handler) SwapAssignment(c *gin.Context) {
	var req services.SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, CodeBadRequest, err.Error())
		return
	}

	result, err := services.SwapAssignmentCaregiver(c.Request.Context(), h.database, h.logger, req, userID(c))
	if err != nil {
		_ = c.Error(err)
		switch {
		case errors.Is(err, services.ErrInvalidDate):
			badRequest(c, CodeInvalidDate, err.Error())
		case errors.Is(err, services.ErrNoCaregiverSelected):
			badRequest(c, CodeNoCaregiver, err.Error())
		case errors.Is(err, services.ErrAssignmentNotFound):
			fail(c, http.StatusNotFound, CodeNotFound, err.Error())
		default:
			internalError(c)
		}
		return
	}

	resp := SwapResponse{Deleted: result.Deleted}
	if result.Assignment != nil {
		resp.Assignment = &AssignmentDTO{
			Date:        result.Assignment.Date.Format(model.DateLayout),
			CaregiverID: result.Assignment.CaregiverID,
			MissionID:   result.Assignment.MissionID,
			Color:       result.Assignment.Color,
		}
	}
	ok(c, resp)
}
