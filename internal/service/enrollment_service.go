package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/skillpath-api/internal/catalog"
	"github.com/noah-isme/skillpath-api/internal/dto"
	"github.com/noah-isme/skillpath-api/internal/models"
	appErrors "github.com/noah-isme/skillpath-api/pkg/errors"
)

type enrollmentRequestRepository interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.EnrollmentRequest, error)
	FindByUserCourse(ctx context.Context, exec sqlx.ExtContext, userID string, course models.Course) (*models.EnrollmentRequest, error)
	Create(ctx context.Context, exec sqlx.ExtContext, req *models.EnrollmentRequest) error
	Update(ctx context.Context, exec sqlx.ExtContext, req *models.EnrollmentRequest) error
	ListPendingByCourse(ctx context.Context, exec sqlx.ExtContext, course models.Course) ([]models.EnrollmentRequest, error)
	CountByCourseStatus(ctx context.Context, exec sqlx.ExtContext, course models.Course, status models.RequestStatus) (int, error)
	List(ctx context.Context, filter models.EnrollmentRequestFilter) ([]models.EnrollmentRequestDetail, int, error)
}

type approvedEnrollmentRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.ApprovedEnrollment) error
	FindByUserCourse(ctx context.Context, exec sqlx.ExtContext, userID string, course models.Course) (*models.ApprovedEnrollment, error)
	CountByCourse(ctx context.Context, exec sqlx.ExtContext, course models.Course) (int, error)
	DeleteByUserCourse(ctx context.Context, exec sqlx.ExtContext, userID string, course models.Course) (int64, error)
}

type overviewSessionLister interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.SessionSummary, int, error)
}

type courseResolver interface {
	Resolve(course models.Course) (models.Course, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// EnrollmentConfig carries admission ceilings.
type EnrollmentConfig struct {
	MaxParticipantsPerCourse int
	CourseCacheTTL           time.Duration
}

// EnrollmentService owns the request side of the enrollment workflow:
// submission, admin review and status queries.
type EnrollmentService struct {
	tx        txProvider
	locker    courseLocker
	requests  enrollmentRequestRepository
	approved  approvedEnrollmentRepository
	sessions  overviewSessionLister
	catalog   courseResolver
	audit     auditRecorder
	cache     *CacheService
	metrics   *MetricsService
	notifier  Notifier
	validator *validator.Validate
	logger    *zap.Logger
	cfg       EnrollmentConfig
	now       func() time.Time
}

// EnrollmentServiceDeps groups EnrollmentService collaborators.
type EnrollmentServiceDeps struct {
	Tx       txProvider
	Locker   courseLocker
	Requests enrollmentRequestRepository
	Approved approvedEnrollmentRepository
	Sessions overviewSessionLister
	Catalog  courseResolver
	Audit    auditRecorder
	Cache    *CacheService
	Metrics  *MetricsService
	Notifier Notifier
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(deps EnrollmentServiceDeps, cfg EnrollmentConfig, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if cfg.MaxParticipantsPerCourse <= 0 {
		cfg.MaxParticipantsPerCourse = 16
	}
	return &EnrollmentService{
		tx:        deps.Tx,
		locker:    deps.Locker,
		requests:  deps.Requests,
		approved:  deps.Approved,
		sessions:  deps.Sessions,
		catalog:   deps.Catalog,
		audit:     deps.Audit,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		notifier:  deps.Notifier,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SubmitRequest records a learner's interest in a course. A rejected request
// is reset to pending in place; pending and approved requests are conflicts.
func (s *EnrollmentService) SubmitRequest(ctx context.Context, userID string, role models.UserRole, req dto.SubmitEnrollmentRequest) (*models.EnrollmentRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment request payload")
	}
	if role.IsStaff() {
		s.metrics.RecordRejection("submit", appErrors.ErrForbidden.Code)
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrators cannot request enrollment")
	}
	course, err := s.resolve(req.Course())
	if err != nil {
		return nil, err
	}

	var (
		result   *models.EnrollmentRequest
		previous *models.EnrollmentRequest
	)
	err = withCourseTx(ctx, s.tx, s.locker, course, func(tx *sqlx.Tx) error {
		existing, err := s.requests.FindByUserCourse(ctx, tx, userID, course)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return internalErr(err, "failed to load enrollment request")
		}
		if existing == nil {
			created := &models.EnrollmentRequest{
				UserID:      userID,
				Course:      course,
				Status:      models.RequestStatusPending,
				RequestedAt: s.now(),
			}
			if err := s.requests.Create(ctx, tx, created); err != nil {
				if isUniqueViolation(err) {
					return appErrors.Clone(appErrors.ErrDuplicatePending, "")
				}
				return internalErr(err, "failed to create enrollment request")
			}
			result = created
			return nil
		}

		switch existing.Status {
		case models.RequestStatusPending:
			return appErrors.Clone(appErrors.ErrDuplicatePending, "You already have a pending request for this course")
		case models.RequestStatusApproved:
			return appErrors.Clone(appErrors.ErrAlreadyEnrolled, "You are already enrolled in this course")
		}

		snapshot := *existing
		previous = &snapshot
		existing.ResetToPending(s.now(), nil)
		if err := s.requests.Update(ctx, tx, existing); err != nil {
			return internalErr(err, "failed to resubmit enrollment request")
		}
		result = existing
		return nil
	})
	if err != nil {
		s.recordRejection("submit", err)
		return nil, err
	}

	if previous != nil {
		s.recordAudit(ctx, userID, models.AuditActionRequestResubmit, result.ID, previous, result)
	}
	s.afterCommit(ctx, course, "submitted", 1, Notification{
		UserID:  userID,
		Event:   NotificationSubmitted,
		Course:  course,
		Message: fmt.Sprintf("Your request for %s is pending review", course.FullName()),
	})
	s.logger.Info("enrollment request submitted",
		zap.String("request_id", result.ID),
		zap.String("user_id", userID),
		zap.String("course", course.String()),
		zap.Bool("resubmitted", previous != nil),
	)
	return result, nil
}

// RejectRequest rejects a pending request. Requests in any other status are reported as not found.
func (s *EnrollmentService) RejectRequest(ctx context.Context, requestID, reviewerID string, review dto.ReviewRequest) (*models.EnrollmentRequest, error) {
	if err := s.validator.Struct(review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	course, err := s.pendingCourse(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var result *models.EnrollmentRequest
	err = withCourseTx(ctx, s.tx, s.locker, course, func(tx *sqlx.Tx) error {
		req, err := s.lockedPending(ctx, tx, requestID)
		if err != nil {
			return err
		}
		req.MarkReviewed(models.RequestStatusRejected, reviewerID, s.now(), review.AdminNotes)
		if err := s.requests.Update(ctx, tx, req); err != nil {
			return internalErr(err, "failed to reject enrollment request")
		}
		result = req
		return nil
	})
	if err != nil {
		s.recordRejection("reject", err)
		return nil, err
	}

	message := fmt.Sprintf("Your request for %s was rejected", course.FullName())
	if review.AdminNotes != nil && *review.AdminNotes != "" {
		message += ": " + *review.AdminNotes
	}
	s.recordAudit(ctx, reviewerID, models.AuditActionRequestReject, result.ID, nil, result)
	s.afterCommit(ctx, course, "rejected", 1, Notification{UserID: result.UserID, Event: NotificationRejected, Course: course, Message: message})
	s.logger.Info("enrollment request rejected", zap.String("request_id", result.ID), zap.String("reviewer_id", reviewerID))
	return result, nil
}

// ApproveRequest admits a pending request into the course without scheduling a session.
func (s *EnrollmentService) ApproveRequest(ctx context.Context, requestID, reviewerID string, review dto.ReviewRequest) (*models.EnrollmentRequest, error) {
	if err := s.validator.Struct(review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	course, err := s.pendingCourse(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var result *models.EnrollmentRequest
	err = withCourseTx(ctx, s.tx, s.locker, course, func(tx *sqlx.Tx) error {
		req, err := s.lockedPending(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if err := ensureCourseCapacity(ctx, tx, s.approved, course, 1, s.cfg.MaxParticipantsPerCourse); err != nil {
			return err
		}
		if err := admit(ctx, tx, s.requests, s.approved, req, reviewerID, s.now(), review.AdminNotes); err != nil {
			return err
		}
		result = req
		return nil
	})
	if err != nil {
		s.recordRejection("approve", err)
		return nil, err
	}

	s.recordAudit(ctx, reviewerID, models.AuditActionRequestApprove, result.ID, nil, result)
	s.afterCommit(ctx, course, "approved", 1, Notification{
		UserID:  result.UserID,
		Event:   NotificationApproved,
		Course:  course,
		Message: fmt.Sprintf("You have been admitted to %s", course.FullName()),
	})
	s.logger.Info("enrollment request approved", zap.String("request_id", result.ID), zap.String("reviewer_id", reviewerID))
	return result, nil
}

// Status answers approved, pending, rejected (with reason) or not_requested, in that priority.
func (s *EnrollmentService) Status(ctx context.Context, userID string, course models.Course) (*models.CourseStatus, error) {
	if err := s.validator.Struct(course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "skill_group, skill_subgroup and skill_name are required")
	}
	course, err := s.resolve(course)
	if err != nil {
		return nil, err
	}
	status := &models.CourseStatus{Course: course, Status: models.CourseStateNotRequested}

	if _, err := s.approved.FindByUserCourse(ctx, nil, userID, course); err == nil {
		status.Status = models.CourseStateApproved
		return status, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalErr(err, "failed to load enrollment")
	}

	req, err := s.requests.FindByUserCourse(ctx, nil, userID, course)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status, nil
		}
		return nil, internalErr(err, "failed to load enrollment request")
	}
	switch req.Status {
	case models.RequestStatusApproved:
		status.Status = models.CourseStateApproved
	case models.RequestStatusPending:
		status.Status = models.CourseStatePending
	case models.RequestStatusRejected:
		status.Status = models.CourseStateRejected
		status.Reason = req.AdminNotes
	}
	return status, nil
}

// ListRequests returns the admin queue with pagination metadata. Status defaults to pending.
func (s *EnrollmentService) ListRequests(ctx context.Context, filter models.EnrollmentRequestFilter) ([]models.EnrollmentRequestDetail, *models.Pagination, error) {
	if filter.Status == "" {
		filter.Status = models.RequestStatusPending
	}
	if !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be pending, approved or rejected")
	}
	return s.list(ctx, filter)
}

// ListMine returns every request the user has made regardless of status.
func (s *EnrollmentService) ListMine(ctx context.Context, userID string, page, size int) ([]models.EnrollmentRequestDetail, *models.Pagination, error) {
	return s.list(ctx, models.EnrollmentRequestFilter{UserID: userID, Page: page, PageSize: size})
}

func (s *EnrollmentService) list(ctx context.Context, filter models.EnrollmentRequestFilter) ([]models.EnrollmentRequestDetail, *models.Pagination, error) {
	requests, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, nil, internalErr(err, "failed to list enrollment requests")
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return requests, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// CourseOverview summarises approvals, queue depth and sessions for a course.
func (s *EnrollmentService) CourseOverview(ctx context.Context, course models.Course) (*dto.CourseOverview, error) {
	if err := s.validator.Struct(course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "skill_group, skill_subgroup and skill_name are required")
	}
	course, err := s.resolve(course)
	if err != nil {
		return nil, err
	}

	key := courseCacheKey(course)
	var cached dto.CourseOverview
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		cached.Cached = true
		return &cached, nil
	}

	start := time.Now()
	approved, err := s.approved.CountByCourse(ctx, nil, course)
	if err != nil {
		return nil, internalErr(err, "failed to count approved enrollments")
	}
	pending, err := s.requests.CountByCourseStatus(ctx, nil, course, models.RequestStatusPending)
	if err != nil {
		return nil, internalErr(err, "failed to count pending requests")
	}
	sessions, _, err := s.sessions.List(ctx, models.SessionFilter{Course: course, PageSize: 100})
	if err != nil {
		return nil, internalErr(err, "failed to list course sessions")
	}
	s.metrics.ObserveDBQuery("course_overview", time.Since(start))

	available := s.cfg.MaxParticipantsPerCourse - approved
	if available < 0 {
		available = 0
	}
	if sessions == nil {
		sessions = []models.SessionSummary{}
	}
	overview := &dto.CourseOverview{
		Course:          course,
		ApprovedCount:   approved,
		PendingCount:    pending,
		MaxParticipants: s.cfg.MaxParticipantsPerCourse,
		AvailableSpots:  available,
		Sessions:        sessions,
	}
	_ = s.cache.Set(ctx, key, overview, s.cfg.CourseCacheTTL)
	return overview, nil
}

func (s *EnrollmentService) resolve(course models.Course) (models.Course, error) {
	if course.IsZero() {
		return models.Course{}, appErrors.Clone(appErrors.ErrValidation, "skill_group, skill_subgroup and skill_name are required")
	}
	if s.catalog == nil {
		return course, nil
	}
	resolved, err := s.catalog.Resolve(course)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownCourse) {
			return models.Course{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown course %s", course.FullName()))
		}
		return models.Course{}, internalErr(err, "failed to resolve course")
	}
	return resolved, nil
}

// pendingCourse reads the request outside the transaction to learn which course to lock.
func (s *EnrollmentService) pendingCourse(ctx context.Context, requestID string) (models.Course, error) {
	req, err := s.requests.FindByID(ctx, nil, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Course{}, appErrors.Clone(appErrors.ErrNotFound, "pending request not found")
		}
		return models.Course{}, internalErr(err, "failed to load enrollment request")
	}
	if !req.IsPending() {
		return models.Course{}, appErrors.Clone(appErrors.ErrNotFound, "pending request not found")
	}
	return req.Course, nil
}

func (s *EnrollmentService) lockedPending(ctx context.Context, tx sqlx.ExtContext, requestID string) (*models.EnrollmentRequest, error) {
	req, err := s.requests.FindByID(ctx, tx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pending request not found")
		}
		return nil, internalErr(err, "failed to load enrollment request")
	}
	if !req.IsPending() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "pending request not found")
	}
	return req, nil
}

func (s *EnrollmentService) afterCommit(ctx context.Context, course models.Course, transition string, count int, notifications ...Notification) {
	s.metrics.RecordTransition(transition, count)
	invalidateCourse(ctx, s.cache, course)
	s.notifier.Notify(ctx, notifications...)
}

func (s *EnrollmentService) recordRejection(operation string, err error) {
	s.metrics.RecordRejection(operation, appErrors.FromError(err).Code)
}

func (s *EnrollmentService) recordAudit(ctx context.Context, actorID, action, requestID string, before, after *models.EnrollmentRequest) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "enrollment_request",
		ResourceID: &requestID,
	}
	if before != nil {
		entry.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		entry.NewValues, _ = json.Marshal(after)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record enrollment audit log", zap.String("action", action), zap.Error(err))
	}
}

// ensureCourseCapacity fails when admitting incoming more learners would push
// the course past the global participant ceiling.
func ensureCourseCapacity(ctx context.Context, exec sqlx.ExtContext, approved approvedEnrollmentRepository, course models.Course, incoming, limit int) error {
	count, err := approved.CountByCourse(ctx, exec, course)
	if err != nil {
		return internalErr(err, "failed to count approved enrollments")
	}
	if count+incoming > limit {
		return appErrors.Clone(appErrors.ErrCourseFull, fmt.Sprintf(
			"course %s has %d of %d participants; cannot admit %d more", course.FullName(), count, limit, incoming))
	}
	return nil
}

// admit approves req and creates its ApprovedEnrollment inside exec.
func admit(ctx context.Context, exec sqlx.ExtContext, requests enrollmentRequestRepository, approved approvedEnrollmentRepository, req *models.EnrollmentRequest, reviewerID string, now time.Time, notes *string) error {
	req.MarkReviewed(models.RequestStatusApproved, reviewerID, now, notes)
	if err := requests.Update(ctx, exec, req); err != nil {
		return internalErr(err, "failed to approve enrollment request")
	}
	enrollment := &models.ApprovedEnrollment{
		UserID:              req.UserID,
		Course:              req.Course,
		EnrollmentRequestID: req.ID,
		EnrolledAt:          now,
	}
	if err := approved.Create(ctx, exec, enrollment); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrAlreadyEnrolled, fmt.Sprintf("user %s is already enrolled in %s", req.UserID, req.Course.FullName()))
		}
		return internalErr(err, "failed to create approved enrollment")
	}
	return nil
}

const overviewCachePrefix = "course_overview:"

// overviewCachePattern matches every cached course overview.
const overviewCachePattern = overviewCachePrefix + "*"

func courseCacheKey(course models.Course) string {
	return overviewCachePrefix + course.Key()
}

func invalidateCourse(ctx context.Context, cache *CacheService, course models.Course) {
	_ = cache.Delete(ctx, courseCacheKey(course))
}
