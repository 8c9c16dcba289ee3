package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/skillpath-api/internal/models"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func expectCommit(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectCommit()
}

func expectRollback(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}

var uniqueViolation = &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}

// workflowStore is an in-memory stand-in for the enrollment tables. The
// repository views below share it so services observe each other's writes.
type workflowStore struct {
	mu         sync.Mutex
	locks      []string
	users      map[string]models.User
	requests   map[string]models.EnrollmentRequest
	approved   map[string]models.ApprovedEnrollment
	sessions   map[string]models.ScheduledSession
	attendance map[string]models.Attendance
}

func newWorkflowStore() *workflowStore {
	return &workflowStore{
		users:      make(map[string]models.User),
		requests:   make(map[string]models.EnrollmentRequest),
		approved:   make(map[string]models.ApprovedEnrollment),
		sessions:   make(map[string]models.ScheduledSession),
		attendance: make(map[string]models.Attendance),
	}
}

func (s *workflowStore) nextID() string {
	return uuid.NewString()
}

func (s *workflowStore) requestRepo() *requestFake       { return &requestFake{s} }
func (s *workflowStore) approvedRepo() *approvedFake     { return &approvedFake{s} }
func (s *workflowStore) sessionRepo() *sessionFake       { return &sessionFake{s} }
func (s *workflowStore) attendanceRepo() *attendanceFake { return &attendanceFake{s} }

func (s *workflowStore) addRequest(userID string, course models.Course, status models.RequestStatus, requestedAt time.Time) models.EnrollmentRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	req := models.EnrollmentRequest{ID: s.nextID(), UserID: userID, Course: course, Status: status, RequestedAt: requestedAt}
	s.requests[req.ID] = req
	return req
}

func (s *workflowStore) requestFor(userID string, course models.Course) (models.EnrollmentRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.requests {
		if req.UserID == userID && req.Course == course {
			return req, true
		}
	}
	return models.EnrollmentRequest{}, false
}

func (s *workflowStore) countApproved(course models.Course) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, a := range s.approved {
		if a.Course == course {
			total++
		}
	}
	return total
}

func (s *workflowStore) countAttendance(sessionID string) int {
	total := 0
	for _, a := range s.attendance {
		if a.SessionID == sessionID {
			total++
		}
	}
	return total
}

type requestFake struct{ *workflowStore }

func (r *requestFake) FindByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.EnrollmentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &req, nil
}

func (r *requestFake) FindByUserCourse(_ context.Context, _ sqlx.ExtContext, userID string, course models.Course) (*models.EnrollmentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.UserID == userID && req.Course == course {
			found := req
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *requestFake) Create(_ context.Context, _ sqlx.ExtContext, req *models.EnrollmentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.requests {
		if existing.UserID == req.UserID && existing.Course == req.Course {
			return uniqueViolation
		}
	}
	if req.ID == "" {
		req.ID = r.nextID()
	}
	r.requests[req.ID] = *req
	return nil
}

func (r *requestFake) Update(_ context.Context, _ sqlx.ExtContext, req *models.EnrollmentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; !ok {
		return sql.ErrNoRows
	}
	r.requests[req.ID] = *req
	return nil
}

func (r *requestFake) ListPendingByCourse(_ context.Context, _ sqlx.ExtContext, course models.Course) ([]models.EnrollmentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []models.EnrollmentRequest
	for _, req := range r.requests {
		if req.Course == course && req.Status == models.RequestStatusPending {
			pending = append(pending, req)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].RequestedAt.Before(pending[j].RequestedAt) })
	return pending, nil
}

func (r *requestFake) CountByCourseStatus(_ context.Context, _ sqlx.ExtContext, course models.Course, status models.RequestStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, req := range r.requests {
		if req.Course == course && req.Status == status {
			total++
		}
	}
	return total, nil
}

func (r *requestFake) List(_ context.Context, filter models.EnrollmentRequestFilter) ([]models.EnrollmentRequestDetail, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.EnrollmentRequestDetail
	for _, req := range r.requests {
		if filter.UserID != "" && req.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		user := r.users[req.UserID]
		out = append(out, models.EnrollmentRequestDetail{EnrollmentRequest: req, UserEmail: user.Email, UserFullName: user.FullName})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

type approvedFake struct{ *workflowStore }

func approvedKey(userID string, course models.Course) string {
	return userID + "#" + course.Key()
}

func (a *approvedFake) Create(_ context.Context, _ sqlx.ExtContext, enrollment *models.ApprovedEnrollment) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := approvedKey(enrollment.UserID, enrollment.Course)
	if _, exists := a.approved[key]; exists {
		return uniqueViolation
	}
	if enrollment.ID == "" {
		enrollment.ID = a.nextID()
	}
	a.approved[key] = *enrollment
	return nil
}

func (a *approvedFake) FindByUserCourse(_ context.Context, _ sqlx.ExtContext, userID string, course models.Course) (*models.ApprovedEnrollment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	enrollment, ok := a.approved[approvedKey(userID, course)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &enrollment, nil
}

func (a *approvedFake) CountByCourse(_ context.Context, _ sqlx.ExtContext, course models.Course) (int, error) {
	return a.countApproved(course), nil
}

func (a *approvedFake) DeleteByUserCourse(_ context.Context, _ sqlx.ExtContext, userID string, course models.Course) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := approvedKey(userID, course)
	if _, ok := a.approved[key]; !ok {
		return 0, nil
	}
	delete(a.approved, key)
	return 1, nil
}

type sessionFake struct{ *workflowStore }

func (f *sessionFake) LockCourse(_ context.Context, _ sqlx.ExtContext, course models.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locks = append(f.locks, course.Key())
	return nil
}

func (f *sessionFake) Create(_ context.Context, _ sqlx.ExtContext, session *models.ScheduledSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.sessions {
		if existing.Course == session.Course && existing.ScheduledDate.Equal(session.ScheduledDate) && existing.ScheduledTime == session.ScheduledTime {
			return uniqueViolation
		}
	}
	if session.ID == "" {
		session.ID = f.nextID()
	}
	f.sessions[session.ID] = *session
	return nil
}

func (f *sessionFake) FindByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.SessionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.SessionSummary{ScheduledSession: session, EnrolledCount: f.countAttendance(id)}, nil
}

func (f *sessionFake) ExistsAtSlot(_ context.Context, _ sqlx.ExtContext, course models.Course, date time.Time, clock string, excludeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, session := range f.sessions {
		if id == excludeID {
			continue
		}
		if session.Course == course && session.ScheduledDate.Equal(date) && session.ScheduledTime == clock {
			return true, nil
		}
	}
	return false, nil
}

func (f *sessionFake) UpdateSlot(_ context.Context, _ sqlx.ExtContext, id string, date time.Time, clock string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return sql.ErrNoRows
	}
	session.ScheduledDate = date
	session.ScheduledTime = clock
	f.sessions[id] = session
	return nil
}

func (f *sessionFake) Delete(_ context.Context, _ sqlx.ExtContext, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.sessions, id)
	return nil
}

func (f *sessionFake) List(_ context.Context, filter models.SessionFilter) ([]models.SessionSummary, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SessionSummary
	for id, session := range f.sessions {
		if filter.Course.Name != "" && session.Course != filter.Course {
			continue
		}
		out = append(out, models.SessionSummary{ScheduledSession: session, EnrolledCount: f.countAttendance(id)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

type attendanceFake struct{ *workflowStore }

func (f *attendanceFake) Create(_ context.Context, _ sqlx.ExtContext, attendance *models.Attendance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.attendance {
		if existing.StudentID == attendance.StudentID && existing.SessionID == attendance.SessionID {
			return uniqueViolation
		}
	}
	if attendance.ID == "" {
		attendance.ID = f.nextID()
	}
	f.attendance[attendance.ID] = *attendance
	return nil
}

func (f *attendanceFake) BulkCreate(ctx context.Context, exec sqlx.ExtContext, sessionID string, studentIDs []string) ([]models.Attendance, error) {
	rows := make([]models.Attendance, 0, len(studentIDs))
	for _, id := range studentIDs {
		row := models.Attendance{StudentID: id, SessionID: sessionID, EnrolledAt: time.Now().UTC()}
		if err := f.Create(ctx, exec, &row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (f *attendanceFake) StudentIDsBySession(_ context.Context, _ sqlx.ExtContext, sessionID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, a := range f.attendance {
		if a.SessionID == sessionID {
			ids = append(ids, a.StudentID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *attendanceFake) StudentIDsInCourse(_ context.Context, _ sqlx.ExtContext, course models.Course) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, a := range f.attendance {
		if f.sessions[a.SessionID].Course == course {
			ids = append(ids, a.StudentID)
		}
	}
	return ids, nil
}

func (f *attendanceFake) ExistsInCourse(ctx context.Context, exec sqlx.ExtContext, studentID string, course models.Course) (bool, error) {
	ids, _ := f.StudentIDsInCourse(ctx, exec, course)
	for _, id := range ids {
		if id == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *attendanceFake) ListRoster(_ context.Context, sessionID string) ([]models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var records []models.AttendanceRecord
	for _, a := range f.attendance {
		if a.SessionID != sessionID {
			continue
		}
		user := f.users[a.StudentID]
		records = append(records, models.AttendanceRecord{Attendance: a, StudentEmail: user.Email, StudentName: user.FullName})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].StudentName < records[j].StudentName })
	return records, nil
}

func (f *attendanceFake) SetAttended(_ context.Context, _ sqlx.ExtContext, sessionID, studentID string, attended bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, a := range f.attendance {
		if a.SessionID == sessionID && a.StudentID == studentID {
			a.Attended = attended
			f.attendance[id] = a
			return true, nil
		}
	}
	return false, nil
}

func (f *attendanceFake) DeleteBySession(_ context.Context, _ sqlx.ExtContext, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, a := range f.attendance {
		if a.SessionID == sessionID {
			delete(f.attendance, id)
		}
	}
	return nil
}

type auditStub struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (a *auditStub) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, *log)
	return nil
}

type notifierStub struct {
	mu   sync.Mutex
	sent []Notification
}

func (n *notifierStub) Notify(_ context.Context, notifications ...Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notifications...)
}
