package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/skillpath-api/internal/models"
)

const sessionColumns = `s.id, s.skill_group, s.skill_subgroup, s.skill_name, s.scheduled_date, s.scheduled_time, s.instructor_id, s.max_students, s.is_active, s.created_at`

// SessionRepository persists scheduled course sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// LockCourse takes a transaction-scoped advisory lock keyed on the course so
// capacity checks and the writes that follow them are serialized per course.
func (r *SessionRepository) LockCourse(ctx context.Context, exec sqlx.ExtContext, course models.Course) error {
	if _, err := r.exec(exec).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, course.Key()); err != nil {
		return fmt.Errorf("lock course: %w", err)
	}
	return nil
}

// Create inserts a scheduled session.
func (r *SessionRepository) Create(ctx context.Context, exec sqlx.ExtContext, session *models.ScheduledSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO scheduled_sessions (id, skill_group, skill_subgroup, skill_name, scheduled_date, scheduled_time, instructor_id, max_students, is_active, created_at)
VALUES (:id, :skill_group, :skill_subgroup, :skill_name, :scheduled_date, :scheduled_time, :instructor_id, :max_students, :is_active, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindByID returns a session together with its attendance count.
func (r *SessionRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SessionSummary, error) {
	query := `SELECT ` + sessionColumns + `, (SELECT COUNT(*) FROM attendances a WHERE a.session_id = s.id) AS enrolled_count
FROM scheduled_sessions s WHERE s.id = $1`
	var session models.SessionSummary
	if err := sqlx.GetContext(ctx, r.exec(exec), &session, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// ExistsAtSlot reports whether the course already has a session at date and
// time. excludeID skips one session, used when rescheduling it.
func (r *SessionRepository) ExistsAtSlot(ctx context.Context, exec sqlx.ExtContext, course models.Course, date time.Time, clock string, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM scheduled_sessions
WHERE skill_group = $1 AND skill_subgroup = $2 AND skill_name = $3 AND scheduled_date = $4 AND scheduled_time = $5`
	args := []interface{}{course.Group, course.Subgroup, course.Name, date, clock}
	if excludeID != "" {
		query += " AND id <> $6"
		args = append(args, excludeID)
	}
	var exists bool
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query+")", args...); err != nil {
		return false, fmt.Errorf("check session slot: %w", err)
	}
	return exists, nil
}

// UpdateSlot moves a session to a new date and time. A moved session is active again.
func (r *SessionRepository) UpdateSlot(ctx context.Context, exec sqlx.ExtContext, id string, date time.Time, clock string) error {
	const query = `UPDATE scheduled_sessions SET scheduled_date = $2, scheduled_time = $3, is_active = TRUE WHERE id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, id, date, clock)
	if err != nil {
		return fmt.Errorf("update session slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("session rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeactivateBefore flags every active session dated before the given day as inactive.
func (r *SessionRepository) DeactivateBefore(ctx context.Context, day time.Time) (int64, error) {
	const query = `UPDATE scheduled_sessions SET is_active = FALSE WHERE is_active = TRUE AND scheduled_date < $1`
	result, err := r.db.ExecContext(ctx, query, day)
	if err != nil {
		return 0, fmt.Errorf("deactivate past sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("session rows affected: %w", err)
	}
	return affected, nil
}

// Delete removes a session.
func (r *SessionRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	result, err := r.exec(exec).ExecContext(ctx, `DELETE FROM scheduled_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("session rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns sessions with attendance counts filtered by the provided criteria.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionSummary, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Course.Group != "" {
		conditions = append(conditions, fmt.Sprintf("s.skill_group = $%d", len(args)+1))
		args = append(args, filter.Course.Group)
	}
	if filter.Course.Subgroup != "" {
		conditions = append(conditions, fmt.Sprintf("s.skill_subgroup = $%d", len(args)+1))
		args = append(args, filter.Course.Subgroup)
	}
	if filter.Course.Name != "" {
		conditions = append(conditions, fmt.Sprintf("s.skill_name = $%d", len(args)+1))
		args = append(args, filter.Course.Name)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("s.scheduled_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("s.scheduled_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "s.is_active = TRUE")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, COUNT(a.id) AS enrolled_count
FROM scheduled_sessions s LEFT JOIN attendances a ON a.session_id = s.id%s
GROUP BY s.id ORDER BY s.scheduled_date ASC, s.scheduled_time ASC LIMIT %d OFFSET %d`, sessionColumns, clause, size, offset)

	var sessions []models.SessionSummary
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM scheduled_sessions s%s", clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}
