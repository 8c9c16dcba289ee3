package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/skillpath-api/internal/catalog"
	"github.com/noah-isme/skillpath-api/internal/dto"
	"github.com/noah-isme/skillpath-api/internal/models"
	appErrors "github.com/noah-isme/skillpath-api/pkg/errors"
)

var fractions = models.NewCourse("Math", "Algebra", "Fractions")

func submitPayload(course models.Course) dto.SubmitEnrollmentRequest {
	return dto.SubmitEnrollmentRequest{SkillGroup: course.Group, SkillSubgroup: course.Subgroup, SkillName: course.Name}
}

func errorCode(err error) string {
	return appErrors.FromError(err).Code
}

func TestSubmitRequestCreatesPending(t *testing.T) {
	provider, mock := newTxProviderMock(t)
	store := newWorkflowStore()
	notifier := &notifierStub{}
	svc := NewEnrollmentService(EnrollmentServiceDeps{
		Tx: provider, Locker: store.sessionRepo(), Requests: store.requestRepo(), Approved: store.approvedRepo(), Notifier: notifier,
	}, EnrollmentConfig{}, nil, nil)

	expectCommit(mock)
	req, err := svc.SubmitRequest(context.Background(), "u1", models.RoleLearner, submitPayload(models.NewCourse(" Math ", "Algebra", "Fractions ")))
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.Equal(t, fractions, req.Course)
	assert.Equal(t, []string{fractions.Key()}, store.locks)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, NotificationSubmitted, notifier.sent[0].Event)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitRequestRejectsBlankLabels(t *testing.T) {
	provider, mock := newTxProviderMock(t)
	store := newWorkflowStore()
	svc := NewEnrollmentService(EnrollmentServiceDeps{
		Tx: provider, Locker: store.sessionRepo(), Requests: store.requestRepo(), Approved: store.approvedRepo(),
	}, EnrollmentConfig{}, nil, nil)

	_, err := svc.SubmitRequest(context.Background(), "u1", models.RoleLearner, submitPayload(models.Course{Group: "Math", Subgroup: "   ", Name: "Fractions"}))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
	assert.Empty(t, store.requests)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitRequestTwiceWhilePendingFails(t *testing.T) {
	provider, mock := newTxProviderMock(t)
	store := newWorkflowStore()
	svc := NewEnrollmentService(EnrollmentServiceDeps{
		Tx: provider, Locker: store.sessionRepo(), Requests: store.requestRepo(), Approved: store.approvedRepo(),
	}, EnrollmentConfig{}, nil, nil)

	expectCommit(mock)
	_, err := svc.SubmitRequest(context.Background(), "u1", models.RoleLearner, submitPayload(fractions))
	require.NoError(t, err)

	expectRollback(mock)
	_, err = svc.SubmitRequest(context.Background(), "u1", models.RoleLearner, submitPayload(fractions))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicatePending.Code, errorCode(err))
	assert.Contains(t, err.Error(), "pending")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitRequestRejectsStaff(t *testing.T) {
	provider, mock := newTxProviderMock(t)
	store := newWorkflowStore()
	svc := NewEnrollmentService(EnrollmentServiceDeps{
		Tx: provider, Locker: store.sessionRepo(), Requests: store.requestRepo(), Approved: store.approvedRepo(),
	}, EnrollmentConfig{}, nil, nil)

	_, err := svc.SubmitRequest(context.Background(), "admin", models.RoleAdmin, submitPayload(fractions))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(err))
	assert.Empty(t, store.requests)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitRequestAlreadyApproved(t *testing.T) {
	provider, mock := newTxProviderMock(t)
	store := newWorkflowStore()
	store.addRequest("u1", fractions, models.RequestStatusApproved, time.Now())
	svc := NewEnrollmentService(EnrollmentServiceDeps{
		Tx: provider, Locker: store.sessionRepo(), Requests: store.requestRepo(), Approved: store.approvedRepo(),
	}, EnrollmentConfig{}, nil, nil)

	expectRollback(mock)
	_, err := svc.SubmitRequest(context.Background(), "u1", models.RoleLearner, submitPayload(fractions))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, errorCode(err))
}

func TestResubmitRejectedRequestResetsInPlace(t *testing.T) {
	provider, mock := newTxProviderMock(t)
	store := newWorkflowStore()
	audit := &auditStub{}
	svc := NewEnrollmentService(EnrollmentServiceDeps{
		Tx: provider, Locker: store.sessionRepo(), Requests: store.requestRepo(), Approved: store.approvedRepo(), Audit: audit,
	}, EnrollmentConfig{}, nil, nil)

	old := store.addRequest("u1", fractions, models.RequestStatusRejected, time.Now().Add(-48*time.Hour))
	reviewer := "admin"
	notes := "course full"
	reviewedAt := time.Now().Add(-24 * time.Hour)
	old.ReviewedBy, old.AdminNotes, old.ReviewedAt = &reviewer, &notes, &reviewedAt
	store.requests[old.ID] = old

	expectCommit(mock)
	req, err := svc.SubmitRequest(context.Background(), "u1", models.RoleLearner, submitPayload(fractions))
	require.NoError(t, err)
	assert.Equal(t, old.ID, req.ID)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.Nil(t, req.ReviewedAt)
	assert.Nil(t, req.ReviewedBy)
	assert.Nil(t, req.AdminNotes)
	assert.True(t, req.RequestedAt.After(old.RequestedAt))
	assert.Len(t, store.requests, 1)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRequestResubmit, audit.logs[0].Action)
	assert.Contains(t, string(audit.logs[0].OldValues), "course full")
}

func TestSubmitRequestUnknownCourse(t *testing.T) {
	provider, mock := newTxProviderMock(t)
	store := newWorkflowStore()
	cat := catalog.New([]catalog.Group{{Name: "Math", Subgroups: []catalog.Subgroup{{Name: "Algebra", Skills: []catalog.Entry{{Skill: "Fractions"}}}}}})
	svc := NewEnrollmentService(EnrollmentServiceDeps{
		Tx: provider, Locker: store.sessionRepo(), Requests: store.requestRepo(), Approved: store.approvedRepo(), Catalog: cat,
	}, EnrollmentConfig{}, nil, nil)

	_, err := svc.SubmitRequest(context.Background(), "u1", models.RoleLearner, submitPayload(models.NewCourse("Math", "Algebra", "Calculus")))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	expectCommit(mock)
	req, err := svc.SubmitRequest(context.Background(), "u1", models.RoleLearner, submitPayload(models.NewCourse("math", "ALGEBRA", "fractions")))
	require.NoError(t, err)
	assert.Equal(t, fractions, req.Course)
}

func TestRejectRequest(t *testing.T) {
	provider, mock := newTxProviderMock(t)
	store := newWorkflowStore()
	notifier := &notifierStub{}
	svc := NewEnrollmentService(EnrollmentServiceDeps{
		Tx: provider, Locker: store.sessionRepo(), Requests: store.requestRepo(), Approved: store.approvedRepo(), Notifier: notifier,
	}, EnrollmentConfig{}, nil, nil)
	pending := store.addRequest("u1", fractions, models.RequestStatusPending, time.Now())

	notes := "prerequisites missing"
	expectCommit(mock)
	req, err := svc.RejectRequest(context.Background(), pending.ID, "admin", dto.ReviewRequest{AdminNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, req.Status)
	require.NotNil(t, req.ReviewedBy)
	assert.Equal(t, "admin", *req.ReviewedBy)
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].Message, notes)

	// Re-rejecting is not reachable: the request is no longer pending.
	_, err = svc.RejectRequest(context.Background(), pending.ID, "admin", dto.ReviewRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))

	_, err = svc.RejectRequest(context.Background(), "missing", "admin", dto.ReviewRequest{})
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveRequestCreatesEnrollment(t *testing.T) {
	provider, mock := newTxProviderMock(t)
	store := newWorkflowStore()
	svc := NewEnrollmentService(EnrollmentServiceDeps{
		Tx: provider, Locker: store.sessionRepo(), Requests: store.requestRepo(), Approved: store.approvedRepo(),
	}, EnrollmentConfig{}, nil, nil)
	pending := store.addRequest("u1", fractions, models.RequestStatusPending, time.Now())

	expectCommit(mock)
	req, err := svc.ApproveRequest(context.Background(), pending.ID, "admin", dto.ReviewRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, req.Status)
	enrollment, ok := store.approved[approvedKey("u1", fractions)]
	require.True(t, ok)
	assert.Equal(t, pending.ID, enrollment.EnrollmentRequestID)
}

func TestApproveRequestRespectsCourseCeiling(t *testing.T) {
	provider, mock := newTxProviderMock(t)
	store := newWorkflowStore()
	svc := NewEnrollmentService(EnrollmentServiceDeps{
		Tx: provider, Locker: store.sessionRepo(), Requests: store.requestRepo(), Approved: store.approvedRepo(),
	}, EnrollmentConfig{MaxParticipantsPerCourse: 1}, nil, nil)
	first := store.addRequest("u1", fractions, models.RequestStatusPending, time.Now())
	second := store.addRequest("u2", fractions, models.RequestStatusPending, time.Now())

	expectCommit(mock)
	_, err := svc.ApproveRequest(context.Background(), first.ID, "admin", dto.ReviewRequest{})
	require.NoError(t, err)

	expectRollback(mock)
	_, err = svc.ApproveRequest(context.Background(), second.ID, "admin", dto.ReviewRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCourseFull.Code, errorCode(err))
	assert.Equal(t, 1, store.countApproved(fractions))
	req, _ := store.requestFor("u2", fractions)
	assert.Equal(t, models.RequestStatusPending, req.Status)
}

func TestStatusPriority(t *testing.T) {
	store := newWorkflowStore()
	svc := NewEnrollmentService(EnrollmentServiceDeps{Requests: store.requestRepo(), Approved: store.approvedRepo()}, EnrollmentConfig{}, nil, nil)
	ctx := context.Background()

	status, err := svc.Status(ctx, "u1", fractions)
	require.NoError(t, err)
	assert.Equal(t, models.CourseStateNotRequested, status.Status)

	req := store.addRequest("u1", fractions, models.RequestStatusRejected, time.Now())
	reason := "full"
	req.AdminNotes = &reason
	store.requests[req.ID] = req
	status, err = svc.Status(ctx, "u1", fractions)
	require.NoError(t, err)
	assert.Equal(t, models.CourseStateRejected, status.Status)
	require.NotNil(t, status.Reason)
	assert.Equal(t, "full", *status.Reason)

	req.Status = models.RequestStatusPending
	store.requests[req.ID] = req
	status, _ = svc.Status(ctx, "u1", fractions)
	assert.Equal(t, models.CourseStatePending, status.Status)

	store.approved[approvedKey("u1", fractions)] = models.ApprovedEnrollment{UserID: "u1", Course: fractions}
	status, _ = svc.Status(ctx, "u1", fractions)
	assert.Equal(t, models.CourseStateApproved, status.Status)

	_, err = svc.Status(ctx, "u1", models.Course{Group: "Math"})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
}

func TestListRequestsDefaultsToPending(t *testing.T) {
	store := newWorkflowStore()
	svc := NewEnrollmentService(EnrollmentServiceDeps{Requests: store.requestRepo(), Approved: store.approvedRepo()}, EnrollmentConfig{}, nil, nil)
	store.addRequest("u1", fractions, models.RequestStatusPending, time.Now())
	store.addRequest("u2", fractions, models.RequestStatusRejected, time.Now())

	requests, pagination, err := svc.ListRequests(context.Background(), models.EnrollmentRequestFilter{})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "u1", requests[0].UserID)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 20, pagination.PageSize)

	_, _, err = svc.ListRequests(context.Background(), models.EnrollmentRequestFilter{Status: "archived"})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
}

func TestCourseOverviewCounts(t *testing.T) {
	store := newWorkflowStore()
	svc := NewEnrollmentService(EnrollmentServiceDeps{
		Requests: store.requestRepo(), Approved: store.approvedRepo(), Sessions: store.sessionRepo(),
	}, EnrollmentConfig{MaxParticipantsPerCourse: 16}, nil, nil)
	store.addRequest("u1", fractions, models.RequestStatusPending, time.Now())
	store.addRequest("u2", fractions, models.RequestStatusPending, time.Now())
	store.approved[approvedKey("u3", fractions)] = models.ApprovedEnrollment{UserID: "u3", Course: fractions}
	store.sessions["ses-x"] = models.ScheduledSession{ID: "ses-x", Course: fractions, MaxStudents: 20}

	overview, err := svc.CourseOverview(context.Background(), fractions)
	require.NoError(t, err)
	assert.Equal(t, 1, overview.ApprovedCount)
	assert.Equal(t, 2, overview.PendingCount)
	assert.Equal(t, 15, overview.AvailableSpots)
	assert.Len(t, overview.Sessions, 1)
}
