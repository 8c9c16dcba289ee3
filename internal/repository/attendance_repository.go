package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/skillpath-api/internal/models"
)

// AttendanceRepository persists session participants.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

func (r *AttendanceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts an attendance row.
func (r *AttendanceRepository) Create(ctx context.Context, exec sqlx.ExtContext, attendance *models.Attendance) error {
	if attendance.ID == "" {
		attendance.ID = uuid.NewString()
	}
	if attendance.EnrolledAt.IsZero() {
		attendance.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendances (id, student_id, session_id, enrolled_at, attended)
VALUES (:id, :student_id, :session_id, :enrolled_at, :attended)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, attendance); err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// BulkCreate inserts attendance rows for a session in a single statement.
func (r *AttendanceRepository) BulkCreate(ctx context.Context, exec sqlx.ExtContext, sessionID string, studentIDs []string) ([]models.Attendance, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	rows := make([]models.Attendance, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		rows = append(rows, models.Attendance{
			ID:         uuid.NewString(),
			StudentID:  studentID,
			SessionID:  sessionID,
			EnrolledAt: now,
		})
	}
	const query = `INSERT INTO attendances (id, student_id, session_id, enrolled_at, attended)
VALUES (:id, :student_id, :session_id, :enrolled_at, :attended)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, rows); err != nil {
		return nil, fmt.Errorf("bulk create attendance: %w", err)
	}
	return rows, nil
}

// StudentIDsBySession lists participants of a session.
func (r *AttendanceRepository) StudentIDsBySession(ctx context.Context, exec sqlx.ExtContext, sessionID string) ([]string, error) {
	var ids []string
	if err := sqlx.SelectContext(ctx, r.exec(exec), &ids, `SELECT student_id FROM attendances WHERE session_id = $1 ORDER BY enrolled_at ASC`, sessionID); err != nil {
		return nil, fmt.Errorf("list session students: %w", err)
	}
	return ids, nil
}

// StudentIDsInCourse lists every student attending any session of the course.
func (r *AttendanceRepository) StudentIDsInCourse(ctx context.Context, exec sqlx.ExtContext, course models.Course) ([]string, error) {
	const query = `SELECT DISTINCT a.student_id FROM attendances a JOIN scheduled_sessions s ON s.id = a.session_id
WHERE s.skill_group = $1 AND s.skill_subgroup = $2 AND s.skill_name = $3`
	var ids []string
	if err := sqlx.SelectContext(ctx, r.exec(exec), &ids, query, course.Group, course.Subgroup, course.Name); err != nil {
		return nil, fmt.Errorf("list course students: %w", err)
	}
	return ids, nil
}

// ExistsInCourse reports whether the student attends any session of the course.
func (r *AttendanceRepository) ExistsInCourse(ctx context.Context, exec sqlx.ExtContext, studentID string, course models.Course) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM attendances a JOIN scheduled_sessions s ON s.id = a.session_id
WHERE a.student_id = $1 AND s.skill_group = $2 AND s.skill_subgroup = $3 AND s.skill_name = $4)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, studentID, course.Group, course.Subgroup, course.Name); err != nil {
		return false, fmt.Errorf("check course attendance: %w", err)
	}
	return exists, nil
}

// ListRoster returns the participants of a session with their account details.
func (r *AttendanceRepository) ListRoster(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error) {
	const query = `SELECT a.id, a.student_id, a.session_id, a.enrolled_at, a.attended, u.email AS student_email, u.full_name AS student_name
FROM attendances a JOIN users u ON u.id = a.student_id WHERE a.session_id = $1 ORDER BY u.full_name ASC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, sessionID); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return records, nil
}

// SetAttended flags whether the student actually attended. It returns false
// when the student is not a participant of the session.
func (r *AttendanceRepository) SetAttended(ctx context.Context, exec sqlx.ExtContext, sessionID, studentID string, attended bool) (bool, error) {
	result, err := r.exec(exec).ExecContext(ctx, `UPDATE attendances SET attended = $3 WHERE session_id = $1 AND student_id = $2`, sessionID, studentID, attended)
	if err != nil {
		return false, fmt.Errorf("set attended: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("attendance rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteBySession removes every participant from a session.
func (r *AttendanceRepository) DeleteBySession(ctx context.Context, exec sqlx.ExtContext, sessionID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM attendances WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete session attendance: %w", err)
	}
	return nil
}
