package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/skillpath-api/internal/dto"
	"github.com/noah-isme/skillpath-api/internal/models"
	appErrors "github.com/noah-isme/skillpath-api/pkg/errors"
)

const (
	testSessionID = "3b0f6f2e-5c1d-4a8e-9f57-0d6c2a1e4b90"
	testStudentID = "8e2d4c61-7a3b-4f19-b0c5-6a9e1d2f3c47"
)

type schedulingServiceMock struct {
	calls      int
	err        error
	lastFilter models.SessionFilter
	lastFormat string
	lastAdmin  string
	attendance dto.MarkAttendanceRequest
}

func (m *schedulingServiceMock) ScheduleSession(ctx context.Context, instructorID string, req dto.ScheduleSessionRequest) (*models.SessionSummary, error) {
	m.lastAdmin = instructorID
	if m.err != nil {
		return nil, m.err
	}
	return &models.SessionSummary{ScheduledSession: models.ScheduledSession{ID: "ses-1", Course: req.Course()}}, nil
}

func (m *schedulingServiceMock) ScheduleAndAdmit(ctx context.Context, instructorID string, req dto.AdmitRequest) (*dto.AdmissionResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.AdmissionResult{Admitted: []string{"u1"}}, nil
}

func (m *schedulingServiceMock) AddParticipants(ctx context.Context, sessionID, adminID string, req dto.AddParticipantsRequest) (*dto.AdmissionResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &dto.AdmissionResult{Admitted: []string{"u1", "u2"}}, nil
}

func (m *schedulingServiceMock) Reschedule(ctx context.Context, sessionID string, req dto.RescheduleRequest) (*models.SessionSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.SessionSummary{ScheduledSession: models.ScheduledSession{ID: sessionID, ScheduledTime: req.Time}}, nil
}

func (m *schedulingServiceMock) Dismiss(ctx context.Context, sessionID string) (*dto.DismissalResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &dto.DismissalResult{SessionID: sessionID, Reverted: 2, Attendees: []string{"u1", "u2"}}, nil
}

func (m *schedulingServiceMock) MarkAttendance(ctx context.Context, sessionID, studentID string, req dto.MarkAttendanceRequest) error {
	m.calls++
	m.attendance = req
	return m.err
}

func (m *schedulingServiceMock) ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.SessionSummary, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.SessionSummary{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (m *schedulingServiceMock) GetSession(ctx context.Context, sessionID string) (*dto.SessionDetail, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &dto.SessionDetail{AvailableSpots: 3}, nil
}

func (m *schedulingServiceMock) ExportRoster(ctx context.Context, sessionID, format string) (*dto.RosterFile, error) {
	m.lastFormat = format
	if m.err != nil {
		return nil, m.err
	}
	return &dto.RosterFile{Filename: "roster-2024-06-01-" + sessionID + ".csv", ContentType: "text/csv", Content: []byte("Student\n")}, nil
}

func TestSessionHandlerScheduleSlotTaken(t *testing.T) {
	mock := &schedulingServiceMock{err: appErrors.Clone(appErrors.ErrSlotTaken, "")}
	h := NewSessionHandler(mock)

	body, _ := json.Marshal(dto.ScheduleSessionRequest{SkillGroup: "Math", SkillSubgroup: "Algebra", SkillName: "Fractions", Date: "2024-06-01", Time: "10:00"})
	c, w := newGinContext(http.MethodPost, "/admin/sessions", body)
	asAdmin(c)
	h.Schedule(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SLOT_TAKEN", decode(t, w).Error.Code)
	assert.Equal(t, "admin", mock.lastAdmin)
}

func TestSessionHandlerAdmit(t *testing.T) {
	h := NewSessionHandler(&schedulingServiceMock{})

	body, _ := json.Marshal(dto.AdmitRequest{
		ScheduleSessionRequest: dto.ScheduleSessionRequest{SkillGroup: "Math", SkillSubgroup: "Algebra", SkillName: "Fractions", Date: "2024-06-01", Time: "10:00"},
		RequestID:              "req-1",
	})
	c, w := newGinContext(http.MethodPost, "/admin/sessions/admit", body)
	asAdmin(c)
	h.Admit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"admitted_user_ids":["u1"]`)
}

func TestSessionHandlerAddParticipantsCapacityExceeded(t *testing.T) {
	mock := &schedulingServiceMock{err: appErrors.Clone(appErrors.ErrCapacityExceeded, "not enough capacity: 1 pending requests but only 0 spots available (1 more needed)")}
	h := NewSessionHandler(mock)

	body, _ := json.Marshal(dto.AddParticipantsRequest{SkillGroup: "Math", SkillSubgroup: "Algebra", SkillName: "Fractions"})
	c, w := newGinContext(http.MethodPost, "/admin/sessions/ses-1/participants", body)
	c.Params = gin.Params{{Key: "id", Value: testSessionID}}
	asAdmin(c)
	h.AddParticipants(c)

	require.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	assert.Contains(t, env.Error.Message, "only 0 spots available")
}

func TestSessionHandlerListParsesDates(t *testing.T) {
	mock := &schedulingServiceMock{}
	h := NewSessionHandler(mock)

	c, w := newGinContext(http.MethodGet, "/admin/sessions?skill_name=Fractions&from=2024-06-01&active=true", nil)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.lastFilter.From)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *mock.lastFilter.From)
	assert.Nil(t, mock.lastFilter.To)
	assert.True(t, mock.lastFilter.ActiveOnly)

	c, w = newGinContext(http.MethodGet, "/admin/sessions?to=June", nil)
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandlerDismiss(t *testing.T) {
	h := NewSessionHandler(&schedulingServiceMock{})

	c, w := newGinContext(http.MethodDelete, "/admin/sessions/ses-1", nil)
	c.Params = gin.Params{{Key: "id", Value: testSessionID}}
	h.Dismiss(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Session dismissed, 2 requests returned to pending", decode(t, w).Message)
}

func TestSessionHandlerMarkAttendance(t *testing.T) {
	mock := &schedulingServiceMock{}
	h := NewSessionHandler(mock)

	c, w := newGinContext(http.MethodPut, "/admin/sessions/ses-1/attendance/u1", []byte(`{"attended":false}`))
	c.Params = gin.Params{{Key: "id", Value: testSessionID}, {Key: "student_id", Value: testStudentID}}
	h.MarkAttendance(c)

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, mock.attendance.Attended)
	assert.False(t, *mock.attendance.Attended)
}

func TestSessionHandlerRosterDownload(t *testing.T) {
	mock := &schedulingServiceMock{}
	h := NewSessionHandler(mock)

	c, w := newGinContext(http.MethodGet, "/admin/sessions/ses-1/roster", nil)
	c.Params = gin.Params{{Key: "id", Value: testSessionID}}
	h.Roster(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", mock.lastFormat)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="roster-2024-06-01-`+testSessionID+`.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Student\n", w.Body.String())
}

func TestSessionHandlerGetNotFound(t *testing.T) {
	h := NewSessionHandler(&schedulingServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "session not found")})

	c, w := newGinContext(http.MethodGet, "/admin/sessions/"+testSessionID, nil)
	c.Params = gin.Params{{Key: "id", Value: testSessionID}}
	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandlerMalformedIDsAreNotFound(t *testing.T) {
	mock := &schedulingServiceMock{}
	h := NewSessionHandler(mock)

	c, w := newGinContext(http.MethodGet, "/admin/sessions/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "session not found", decode(t, w).Error.Message)

	c, w = newGinContext(http.MethodDelete, "/admin/sessions/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	h.Dismiss(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newGinContext(http.MethodPut, "/admin/sessions/x/attendance/u1", []byte(`{"attended":true}`))
	c.Params = gin.Params{{Key: "id", Value: testSessionID}, {Key: "student_id", Value: "u1"}}
	h.MarkAttendance(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	body, _ := json.Marshal(dto.AddParticipantsRequest{SkillGroup: "Math", SkillSubgroup: "Algebra", SkillName: "Fractions"})
	c, w = newGinContext(http.MethodPost, "/admin/sessions/abc/participants", body)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	asAdmin(c)
	h.AddParticipants(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Zero(t, mock.calls)
}
