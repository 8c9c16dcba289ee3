package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/skillpath-api/internal/dto"
	"github.com/noah-isme/skillpath-api/internal/models"
	appErrors "github.com/noah-isme/skillpath-api/pkg/errors"
	"github.com/noah-isme/skillpath-api/pkg/response"
)

type schedulingService interface {
	ScheduleSession(ctx context.Context, instructorID string, req dto.ScheduleSessionRequest) (*models.SessionSummary, error)
	ScheduleAndAdmit(ctx context.Context, instructorID string, req dto.AdmitRequest) (*dto.AdmissionResult, error)
	AddParticipants(ctx context.Context, sessionID, adminID string, req dto.AddParticipantsRequest) (*dto.AdmissionResult, error)
	Reschedule(ctx context.Context, sessionID string, req dto.RescheduleRequest) (*models.SessionSummary, error)
	Dismiss(ctx context.Context, sessionID string) (*dto.DismissalResult, error)
	MarkAttendance(ctx context.Context, sessionID, studentID string, req dto.MarkAttendanceRequest) error
	ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.SessionSummary, *models.Pagination, error)
	GetSession(ctx context.Context, sessionID string) (*dto.SessionDetail, error)
	ExportRoster(ctx context.Context, sessionID, format string) (*dto.RosterFile, error)
}

// SessionHandler exposes the admin scheduling surface.
type SessionHandler struct {
	sessions schedulingService
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions schedulingService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Schedule godoc
// @Summary Schedule a session without participants
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.ScheduleSessionRequest true "Session"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/sessions [post]
func (h *SessionHandler) Schedule(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.ScheduleSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid session payload"))
		return
	}
	session, err := h.sessions.ScheduleSession(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusCreated, "Session scheduled successfully", session)
}

// Admit godoc
// @Summary Schedule a session and admit one pending request
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.AdmitRequest true "Session and request"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/sessions/admit [post]
func (h *SessionHandler) Admit(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.AdmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid admission payload"))
		return
	}
	result, err := h.sessions.ScheduleAndAdmit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusCreated, "Session scheduled successfully", result)
}

// List godoc
// @Summary List sessions
// @Tags Admin
// @Produce json
// @Param skill_group query string false "Group"
// @Param skill_subgroup query string false "Subgroup"
// @Param skill_name query string false "Skill"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param active query bool false "Only active sessions"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	page, size := pageFromQuery(c)
	filter := models.SessionFilter{
		Course:     courseFromQuery(c),
		ActiveOnly: c.Query("active") == "true",
		Page:       page,
		PageSize:   size,
	}
	var err error
	if filter.From, err = dateQuery(c, "from"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.To, err = dateQuery(c, "to"); err != nil {
		response.Error(c, err)
		return
	}

	sessions, pagination, err := h.sessions.ListSessions(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// Get godoc
// @Summary Session detail with roster
// @Tags Admin
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	sessionID, ok := idParam(c, "id", "session")
	if !ok {
		return
	}
	detail, err := h.sessions.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// AddParticipants godoc
// @Summary Admit every pending request of the course into the session
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.AddParticipantsRequest true "Course"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/sessions/{id}/participants [post]
func (h *SessionHandler) AddParticipants(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	sessionID, ok := idParam(c, "id", "session")
	if !ok {
		return
	}
	var req dto.AddParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid participants payload"))
		return
	}
	result, err := h.sessions.AddParticipants(c.Request.Context(), sessionID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, fmt.Sprintf("Added %d participants", len(result.Admitted)), result)
}

// Reschedule godoc
// @Summary Move a session to another slot
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.RescheduleRequest true "New slot"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/sessions/{id}/reschedule [put]
func (h *SessionHandler) Reschedule(c *gin.Context) {
	sessionID, ok := idParam(c, "id", "session")
	if !ok {
		return
	}
	var req dto.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid reschedule payload"))
		return
	}
	session, err := h.sessions.Reschedule(c.Request.Context(), sessionID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Session rescheduled successfully", session)
}

// Dismiss godoc
// @Summary Dismiss a session and return attendees to the queue
// @Tags Admin
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/sessions/{id} [delete]
func (h *SessionHandler) Dismiss(c *gin.Context) {
	sessionID, ok := idParam(c, "id", "session")
	if !ok {
		return
	}
	result, err := h.sessions.Dismiss(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, fmt.Sprintf("Session dismissed, %d requests returned to pending", len(result.Attendees)), result)
}

// MarkAttendance godoc
// @Summary Mark a participant as attended or absent
// @Tags Admin
// @Accept json
// @Param id path string true "Session ID"
// @Param student_id path string true "Student ID"
// @Param payload body dto.MarkAttendanceRequest true "Attendance"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/sessions/{id}/attendance/{student_id} [put]
func (h *SessionHandler) MarkAttendance(c *gin.Context) {
	sessionID, ok := idParam(c, "id", "session")
	if !ok {
		return
	}
	studentID, ok := idParam(c, "student_id", "participant")
	if !ok {
		return
	}
	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid attendance payload"))
		return
	}
	if err := h.sessions.MarkAttendance(c.Request.Context(), sessionID, studentID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Roster godoc
// @Summary Download the session roster
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Session ID"
// @Param format query string false "csv (default), pdf or xlsx"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/sessions/{id}/roster [get]
func (h *SessionHandler) Roster(c *gin.Context) {
	sessionID, ok := idParam(c, "id", "session")
	if !ok {
		return
	}
	file, err := h.sessions.ExportRoster(c.Request.Context(), sessionID, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

func dateQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be formatted as YYYY-MM-DD", key))
	}
	return &parsed, nil
}
