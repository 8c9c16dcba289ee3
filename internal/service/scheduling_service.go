package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/skillpath-api/internal/dto"
	"github.com/noah-isme/skillpath-api/internal/models"
	appErrors "github.com/noah-isme/skillpath-api/pkg/errors"
	"github.com/noah-isme/skillpath-api/pkg/export"
)

type sessionRepository interface {
	LockCourse(ctx context.Context, exec sqlx.ExtContext, course models.Course) error
	Create(ctx context.Context, exec sqlx.ExtContext, session *models.ScheduledSession) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SessionSummary, error)
	ExistsAtSlot(ctx context.Context, exec sqlx.ExtContext, course models.Course, date time.Time, clock string, excludeID string) (bool, error)
	UpdateSlot(ctx context.Context, exec sqlx.ExtContext, id string, date time.Time, clock string) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	List(ctx context.Context, filter models.SessionFilter) ([]models.SessionSummary, int, error)
}

type attendanceRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, attendance *models.Attendance) error
	BulkCreate(ctx context.Context, exec sqlx.ExtContext, sessionID string, studentIDs []string) ([]models.Attendance, error)
	StudentIDsBySession(ctx context.Context, exec sqlx.ExtContext, sessionID string) ([]string, error)
	StudentIDsInCourse(ctx context.Context, exec sqlx.ExtContext, course models.Course) ([]string, error)
	ExistsInCourse(ctx context.Context, exec sqlx.ExtContext, studentID string, course models.Course) (bool, error)
	ListRoster(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error)
	SetAttended(ctx context.Context, exec sqlx.ExtContext, sessionID, studentID string, attended bool) (bool, error)
	DeleteBySession(ctx context.Context, exec sqlx.ExtContext, sessionID string) error
}

type rosterRenderer interface {
	Render(table export.Table) ([]byte, error)
	ContentType() string
	Extension() string
}

// SchedulingConfig carries session defaults and admission ceilings.
type SchedulingConfig struct {
	MaxParticipantsPerCourse int
	DefaultSessionCapacity   int
}

// SchedulingServiceDeps groups SchedulingService collaborators.
type SchedulingServiceDeps struct {
	Tx         txProvider
	Sessions   sessionRepository
	Attendance attendanceRepository
	Requests   enrollmentRequestRepository
	Approved   approvedEnrollmentRepository
	Catalog    courseResolver
	Cache      *CacheService
	Metrics    *MetricsService
	Notifier   Notifier
	Renderers  map[string]rosterRenderer
}

// SchedulingService owns sessions: scheduling, admission into sessions,
// rescheduling, dismissal and attendance.
type SchedulingService struct {
	tx         txProvider
	sessions   sessionRepository
	attendance attendanceRepository
	requests   enrollmentRequestRepository
	approved   approvedEnrollmentRepository
	catalog    courseResolver
	cache      *CacheService
	metrics    *MetricsService
	notifier   Notifier
	renderers  map[string]rosterRenderer
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        SchedulingConfig
	now        func() time.Time
}

// NewSchedulingService constructs SchedulingService.
func NewSchedulingService(deps SchedulingServiceDeps, cfg SchedulingConfig, validate *validator.Validate, logger *zap.Logger) *SchedulingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Renderers == nil {
		deps.Renderers = map[string]rosterRenderer{
			"csv":  export.NewCSVExporter(),
			"pdf":  export.NewPDFExporter(),
			"xlsx": export.NewXLSXExporter(),
		}
	}
	if cfg.MaxParticipantsPerCourse <= 0 {
		cfg.MaxParticipantsPerCourse = 16
	}
	if cfg.DefaultSessionCapacity <= 0 {
		cfg.DefaultSessionCapacity = 20
	}
	return &SchedulingService{
		tx:         deps.Tx,
		sessions:   deps.Sessions,
		attendance: deps.Attendance,
		requests:   deps.Requests,
		approved:   deps.Approved,
		catalog:    deps.Catalog,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		notifier:   deps.Notifier,
		renderers:  deps.Renderers,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ScheduleSession creates a session with no participants.
func (s *SchedulingService) ScheduleSession(ctx context.Context, instructorID string, req dto.ScheduleSessionRequest) (*models.SessionSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	course, date, clock, err := s.sessionTarget(req)
	if err != nil {
		return nil, err
	}

	session := s.newSession(course, date, clock, instructorID, req.MaxStudents)
	err = withCourseTx(ctx, s.tx, s.sessions, course, func(tx *sqlx.Tx) error {
		return s.createSession(ctx, tx, session)
	})
	if err != nil {
		s.metrics.RecordRejection("schedule", appErrors.FromError(err).Code)
		return nil, err
	}

	s.metrics.RecordTransition("scheduled", 1)
	invalidateCourse(ctx, s.cache, course)
	s.logger.Info("session scheduled",
		zap.String("session_id", session.ID),
		zap.String("course", course.String()),
		zap.String("slot", slotLabel(date, clock)),
	)
	return &models.SessionSummary{ScheduledSession: *session}, nil
}

// ScheduleAndAdmit creates a session and admits one pending request into it atomically.
func (s *SchedulingService) ScheduleAndAdmit(ctx context.Context, instructorID string, req dto.AdmitRequest) (*dto.AdmissionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admission payload")
	}
	course, date, clock, err := s.sessionTarget(req.ScheduleSessionRequest)
	if err != nil {
		return nil, err
	}

	session := s.newSession(course, date, clock, instructorID, req.MaxStudents)
	var request *models.EnrollmentRequest
	err = withCourseTx(ctx, s.tx, s.sessions, course, func(tx *sqlx.Tx) error {
		if _, err := uuid.Parse(req.RequestID); err != nil {
			return appErrors.Clone(appErrors.ErrNotFound, "pending request for this course not found")
		}
		pending, err := s.requests.FindByID(ctx, tx, req.RequestID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return internalErr(err, "failed to load enrollment request")
		}
		if pending == nil || !pending.IsPending() || pending.Course != course {
			return appErrors.Clone(appErrors.ErrNotFound, "pending request for this course not found")
		}
		enrolled, err := s.attendance.ExistsInCourse(ctx, tx, pending.UserID, course)
		if err != nil {
			return internalErr(err, "failed to check existing attendance")
		}
		if enrolled {
			return appErrors.Clone(appErrors.ErrAlreadyEnrolled, "user already attends a session of this course")
		}
		if err := ensureCourseCapacity(ctx, tx, s.approved, course, 1, s.cfg.MaxParticipantsPerCourse); err != nil {
			return err
		}
		if err := s.createSession(ctx, tx, session); err != nil {
			return err
		}
		now := s.now()
		if err := admit(ctx, tx, s.requests, s.approved, pending, instructorID, now, nil); err != nil {
			return err
		}
		if err := s.attendance.Create(ctx, tx, &models.Attendance{StudentID: pending.UserID, SessionID: session.ID, EnrolledAt: now}); err != nil {
			if isUniqueViolation(err) {
				return appErrors.Clone(appErrors.ErrAlreadyEnrolled, "user already attends this session")
			}
			return internalErr(err, "failed to create attendance")
		}
		request = pending
		return nil
	})
	if err != nil {
		s.metrics.RecordRejection("admit", appErrors.FromError(err).Code)
		return nil, err
	}

	s.metrics.RecordTransition("scheduled", 1)
	s.metrics.RecordTransition("approved", 1)
	invalidateCourse(ctx, s.cache, course)
	s.notifier.Notify(ctx, Notification{
		UserID:    request.UserID,
		Event:     NotificationScheduled,
		Course:    course,
		SessionID: session.ID,
		Message:   fmt.Sprintf("You are scheduled for %s on %s", course.FullName(), slotLabel(date, clock)),
	})
	s.logger.Info("session scheduled with admission",
		zap.String("session_id", session.ID),
		zap.String("request_id", request.ID),
		zap.String("course", course.String()),
	)
	return &dto.AdmissionResult{
		Session:  models.SessionSummary{ScheduledSession: *session, EnrolledCount: 1},
		Admitted: []string{request.UserID},
	}, nil
}

// AddParticipants admits every eligible pending request of the course into an
// existing session, or none of them when capacity is short.
func (s *SchedulingService) AddParticipants(ctx context.Context, sessionID, adminID string, req dto.AddParticipantsRequest) (*dto.AdmissionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid participants payload")
	}
	course, err := s.resolve(req.Course())
	if err != nil {
		return nil, err
	}

	var (
		session  *models.SessionSummary
		admitted []string
	)
	err = withCourseTx(ctx, s.tx, s.sessions, course, func(tx *sqlx.Tx) error {
		current, err := s.findSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if current.Course != course {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("session %s belongs to %s", sessionID, current.Course.FullName()))
		}

		pending, err := s.requests.ListPendingByCourse(ctx, tx, course)
		if err != nil {
			return internalErr(err, "failed to list pending requests")
		}
		enrolledIDs, err := s.attendance.StudentIDsInCourse(ctx, tx, course)
		if err != nil {
			return internalErr(err, "failed to list course participants")
		}
		candidates := eligibleRequests(pending, enrolledIDs)
		if len(candidates) == 0 {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "no eligible pending requests for this course")
		}

		available := current.AvailableSpots()
		if len(candidates) > available {
			return appErrors.Clone(appErrors.ErrCapacityExceeded, fmt.Sprintf(
				"not enough capacity: %d pending requests but only %d spots available (%d more needed)",
				len(candidates), available, len(candidates)-available))
		}
		if err := ensureCourseCapacity(ctx, tx, s.approved, course, len(candidates), s.cfg.MaxParticipantsPerCourse); err != nil {
			return err
		}

		now := s.now()
		userIDs := make([]string, 0, len(candidates))
		for i := range candidates {
			if err := admit(ctx, tx, s.requests, s.approved, &candidates[i], adminID, now, nil); err != nil {
				return err
			}
			userIDs = append(userIDs, candidates[i].UserID)
		}
		if _, err := s.attendance.BulkCreate(ctx, tx, sessionID, userIDs); err != nil {
			if isUniqueViolation(err) {
				return appErrors.Clone(appErrors.ErrAlreadyEnrolled, "a candidate already attends this session")
			}
			return internalErr(err, "failed to create attendance")
		}
		current.EnrolledCount += len(userIDs)
		session = current
		admitted = userIDs
		return nil
	})
	if err != nil {
		s.metrics.RecordRejection("add_participants", appErrors.FromError(err).Code)
		return nil, err
	}

	s.metrics.RecordTransition("approved", len(admitted))
	invalidateCourse(ctx, s.cache, course)
	s.notifier.Notify(ctx, s.sessionNotifications(admitted, NotificationScheduled, session.ScheduledSession,
		fmt.Sprintf("You are scheduled for %s on %s", course.FullName(), slotLabel(session.ScheduledDate, session.ScheduledTime)))...)
	s.logger.Info("participants added to session",
		zap.String("session_id", sessionID),
		zap.String("course", course.String()),
		zap.Int("admitted", len(admitted)),
	)
	return &dto.AdmissionResult{Session: *session, Admitted: admitted}, nil
}

// Reschedule moves a session to a new slot. Participants are untouched.
func (s *SchedulingService) Reschedule(ctx context.Context, sessionID string, req dto.RescheduleRequest) (*models.SessionSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule payload")
	}
	date, clock, err := parseSlot(req.Date, req.Time)
	if err != nil {
		return nil, err
	}
	existing, err := s.findSession(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	course := existing.Course

	var (
		session   *models.SessionSummary
		attendees []string
	)
	err = withCourseTx(ctx, s.tx, s.sessions, course, func(tx *sqlx.Tx) error {
		current, err := s.findSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		taken, err := s.sessions.ExistsAtSlot(ctx, tx, course, date, clock, sessionID)
		if err != nil {
			return internalErr(err, "failed to check session slot")
		}
		if taken {
			return appErrors.Clone(appErrors.ErrSlotTaken, fmt.Sprintf("%s already has a session on %s", course.FullName(), slotLabel(date, clock)))
		}
		if err := s.sessions.UpdateSlot(ctx, tx, sessionID, date, clock); err != nil {
			if isUniqueViolation(err) {
				return appErrors.Clone(appErrors.ErrSlotTaken, "")
			}
			return internalErr(err, "failed to reschedule session")
		}
		attendees, err = s.attendance.StudentIDsBySession(ctx, tx, sessionID)
		if err != nil {
			return internalErr(err, "failed to list session participants")
		}
		current.ScheduledDate = date
		current.ScheduledTime = clock
		session = current
		return nil
	})
	if err != nil {
		s.metrics.RecordRejection("reschedule", appErrors.FromError(err).Code)
		return nil, err
	}

	s.metrics.RecordTransition("rescheduled", 1)
	invalidateCourse(ctx, s.cache, course)
	s.notifier.Notify(ctx, s.sessionNotifications(attendees, NotificationRescheduled, session.ScheduledSession,
		fmt.Sprintf("%s moved to %s", course.FullName(), slotLabel(date, clock)))...)
	s.logger.Info("session rescheduled", zap.String("session_id", sessionID), zap.String("slot", slotLabel(date, clock)))
	return session, nil
}

// Dismiss deletes a session and returns every attendee to the admission queue
// as a pending request, releasing their course approvals.
func (s *SchedulingService) Dismiss(ctx context.Context, sessionID string) (*dto.DismissalResult, error) {
	existing, err := s.findSession(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	course := existing.Course
	result := &dto.DismissalResult{SessionID: sessionID, Course: course}

	err = withCourseTx(ctx, s.tx, s.sessions, course, func(tx *sqlx.Tx) error {
		if _, err := s.findSession(ctx, tx, sessionID); err != nil {
			return err
		}
		attendees, err := s.attendance.StudentIDsBySession(ctx, tx, sessionID)
		if err != nil {
			return internalErr(err, "failed to list session participants")
		}
		now := s.now()
		notes := fmt.Sprintf("Session dismissed on %s", now.Format("2006-01-02 15:04"))
		for _, studentID := range attendees {
			reverted, err := s.revertAttendee(ctx, tx, studentID, course, now, notes)
			if err != nil {
				return err
			}
			if reverted {
				result.Reverted++
			} else {
				result.Recreated++
			}
		}
		if err := s.attendance.DeleteBySession(ctx, tx, sessionID); err != nil {
			return internalErr(err, "failed to delete session attendance")
		}
		if err := s.sessions.Delete(ctx, tx, sessionID); err != nil {
			return internalErr(err, "failed to delete session")
		}
		result.Attendees = attendees
		return nil
	})
	if err != nil {
		s.metrics.RecordRejection("dismiss", appErrors.FromError(err).Code)
		return nil, err
	}
	if result.Attendees == nil {
		result.Attendees = []string{}
	}

	s.metrics.RecordTransition("dismissed", 1)
	s.metrics.RecordTransition("reverted", len(result.Attendees))
	invalidateCourse(ctx, s.cache, course)
	s.notifier.Notify(ctx, s.sessionNotifications(result.Attendees, NotificationDismissed, existing.ScheduledSession,
		fmt.Sprintf("Your %s session on %s was dismissed; your request is pending again",
			course.FullName(), slotLabel(existing.ScheduledDate, existing.ScheduledTime)))...)
	s.logger.Info("session dismissed",
		zap.String("session_id", sessionID),
		zap.String("course", course.String()),
		zap.Int("reverted", result.Reverted),
		zap.Int("recreated", result.Recreated),
	)
	return result, nil
}

// revertAttendee puts the student's request for course back to pending. It
// reports false when no approved request existed and one had to be synthesized.
func (s *SchedulingService) revertAttendee(ctx context.Context, tx sqlx.ExtContext, studentID string, course models.Course, now time.Time, notes string) (bool, error) {
	req, err := s.requests.FindByUserCourse(ctx, tx, studentID, course)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, internalErr(err, "failed to load enrollment request")
	}
	if _, err := s.approved.DeleteByUserCourse(ctx, tx, studentID, course); err != nil {
		return false, internalErr(err, "failed to delete approved enrollment")
	}

	if req == nil {
		note := notes
		created := &models.EnrollmentRequest{
			UserID:      studentID,
			Course:      course,
			Status:      models.RequestStatusPending,
			RequestedAt: now,
			AdminNotes:  &note,
		}
		if err := s.requests.Create(ctx, tx, created); err != nil {
			return false, internalErr(err, "failed to recreate enrollment request")
		}
		s.logger.Warn("attendee had no enrollment request; recreated as pending",
			zap.String("user_id", studentID),
			zap.String("course", course.String()),
		)
		return false, nil
	}

	wasApproved := req.Status == models.RequestStatusApproved
	note := notes
	req.ResetToPending(now, &note)
	if err := s.requests.Update(ctx, tx, req); err != nil {
		return false, internalErr(err, "failed to revert enrollment request")
	}
	return wasApproved, nil
}

// MarkAttendance records whether a participant attended the session.
func (s *SchedulingService) MarkAttendance(ctx context.Context, sessionID, studentID string, req dto.MarkAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	ok, err := s.attendance.SetAttended(ctx, nil, sessionID, studentID, *req.Attended)
	if err != nil {
		return internalErr(err, "failed to update attendance")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "student is not a participant of this session")
	}
	s.logger.Info("attendance marked", zap.String("session_id", sessionID), zap.String("student_id", studentID), zap.Bool("attended", *req.Attended))
	return nil
}

// ListSessions returns sessions with attendance counts.
func (s *SchedulingService) ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.SessionSummary, *models.Pagination, error) {
	sessions, total, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, nil, internalErr(err, "failed to list sessions")
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return sessions, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetSession returns a session with its roster.
func (s *SchedulingService) GetSession(ctx context.Context, sessionID string) (*dto.SessionDetail, error) {
	session, err := s.findSession(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	roster, err := s.attendance.ListRoster(ctx, sessionID)
	if err != nil {
		return nil, internalErr(err, "failed to load roster")
	}
	if roster == nil {
		roster = []models.AttendanceRecord{}
	}
	return &dto.SessionDetail{SessionSummary: *session, AvailableSpots: session.AvailableSpots(), Participants: roster}, nil
}

// ExportRoster renders the session roster in the requested format (csv, pdf or xlsx).
func (s *SchedulingService) ExportRoster(ctx context.Context, sessionID, format string) (*dto.RosterFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv, pdf or xlsx")
	}
	detail, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	table := export.Table{
		Title:    fmt.Sprintf("Roster: %s", detail.Course.FullName()),
		Subtitle: fmt.Sprintf("%s | %d/%d enrolled", slotLabel(detail.ScheduledDate, detail.ScheduledTime), detail.EnrolledCount, detail.MaxStudents),
		Headers:  []string{"Student", "Email", "Enrolled At", "Attended"},
	}
	for _, record := range detail.Participants {
		table.Rows = append(table.Rows, []string{
			record.StudentName,
			record.StudentEmail,
			record.EnrolledAt.UTC().Format(time.RFC3339),
			strconv.FormatBool(record.Attended),
		})
	}
	content, err := renderer.Render(table)
	if err != nil {
		return nil, internalErr(err, "failed to render roster")
	}
	return &dto.RosterFile{
		Filename:    fmt.Sprintf("roster-%s-%s.%s", detail.ScheduledDate.Format(models.DateLayout), sessionID, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}

func (s *SchedulingService) sessionTarget(req dto.ScheduleSessionRequest) (models.Course, time.Time, string, error) {
	course, err := s.resolve(req.Course())
	if err != nil {
		return models.Course{}, time.Time{}, "", err
	}
	date, clock, err := parseSlot(req.Date, req.Time)
	if err != nil {
		return models.Course{}, time.Time{}, "", err
	}
	return course, date, clock, nil
}

func (s *SchedulingService) newSession(course models.Course, date time.Time, clock, instructorID string, maxStudents *int) *models.ScheduledSession {
	capacity := s.cfg.DefaultSessionCapacity
	if maxStudents != nil {
		capacity = *maxStudents
	}
	return &models.ScheduledSession{
		Course:        course,
		ScheduledDate: date,
		ScheduledTime: clock,
		InstructorID:  instructorID,
		MaxStudents:   capacity,
		IsActive:      true,
		CreatedAt:     s.now(),
	}
}

func (s *SchedulingService) createSession(ctx context.Context, tx sqlx.ExtContext, session *models.ScheduledSession) error {
	taken, err := s.sessions.ExistsAtSlot(ctx, tx, session.Course, session.ScheduledDate, session.ScheduledTime, "")
	if err != nil {
		return internalErr(err, "failed to check session slot")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrSlotTaken, fmt.Sprintf("%s already has a session on %s",
			session.Course.FullName(), slotLabel(session.ScheduledDate, session.ScheduledTime)))
	}
	if err := s.sessions.Create(ctx, tx, session); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrSlotTaken, "")
		}
		return internalErr(err, "failed to create session")
	}
	return nil
}

func (s *SchedulingService) findSession(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SessionSummary, error) {
	session, err := s.sessions.FindByID(ctx, exec, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, internalErr(err, "failed to load session")
	}
	return session, nil
}

func (s *SchedulingService) resolve(course models.Course) (models.Course, error) {
	if course.IsZero() {
		return models.Course{}, appErrors.Clone(appErrors.ErrValidation, "skill_group, skill_subgroup and skill_name are required")
	}
	if s.catalog == nil {
		return course, nil
	}
	resolved, err := s.catalog.Resolve(course)
	if err != nil {
		return models.Course{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown course %s", course.FullName()))
	}
	return resolved, nil
}

func (s *SchedulingService) sessionNotifications(userIDs []string, event NotificationEvent, session models.ScheduledSession, message string) []Notification {
	notifications := make([]Notification, 0, len(userIDs))
	for _, id := range userIDs {
		notifications = append(notifications, Notification{
			UserID:    id,
			Event:     event,
			Course:    session.Course,
			SessionID: session.ID,
			Message:   message,
		})
	}
	return notifications
}

// eligibleRequests drops requests of users already attending any session of
// the course and keeps the first request per user.
func eligibleRequests(pending []models.EnrollmentRequest, enrolledIDs []string) []models.EnrollmentRequest {
	skip := make(map[string]struct{}, len(enrolledIDs)+len(pending))
	for _, id := range enrolledIDs {
		skip[id] = struct{}{}
	}
	eligible := make([]models.EnrollmentRequest, 0, len(pending))
	for _, req := range pending {
		if _, ok := skip[req.UserID]; ok {
			continue
		}
		skip[req.UserID] = struct{}{}
		eligible = append(eligible, req)
	}
	return eligible
}

// parseSlot validates a YYYY-MM-DD date and an HH:MM or HH:MM:SS time.
func parseSlot(rawDate, rawTime string) (time.Time, string, error) {
	date, err := time.Parse(models.DateLayout, strings.TrimSpace(rawDate))
	if err != nil {
		return time.Time{}, "", appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}
	rawTime = strings.TrimSpace(rawTime)
	for _, layout := range []string{models.TimeLayout, "15:04"} {
		if clock, err := time.Parse(layout, rawTime); err == nil {
			return date, clock.Format(models.TimeLayout), nil
		}
	}
	return time.Time{}, "", appErrors.Clone(appErrors.ErrValidation, "time must be formatted as HH:MM or HH:MM:SS")
}

func slotLabel(date time.Time, clock string) string {
	if len(clock) >= 5 {
		clock = clock[:5]
	}
	return date.Format(models.DateLayout) + " " + clock
}
