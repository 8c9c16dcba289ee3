package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/skillpath-api/internal/models"
)

const approvedColumns = `id, user_id, skill_group, skill_subgroup, skill_name, enrollment_request_id, enrolled_at`

// ApprovedEnrollmentRepository persists admitted learners per course.
type ApprovedEnrollmentRepository struct {
	db *sqlx.DB
}

// NewApprovedEnrollmentRepository constructs the repository.
func NewApprovedEnrollmentRepository(db *sqlx.DB) *ApprovedEnrollmentRepository {
	return &ApprovedEnrollmentRepository{db: db}
}

func (r *ApprovedEnrollmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts an approved enrollment.
func (r *ApprovedEnrollmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.ApprovedEnrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO approved_enrollments (id, user_id, skill_group, skill_subgroup, skill_name, enrollment_request_id, enrolled_at)
VALUES (:id, :user_id, :skill_group, :skill_subgroup, :skill_name, :enrollment_request_id, :enrolled_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, enrollment); err != nil {
		return fmt.Errorf("create approved enrollment: %w", err)
	}
	return nil
}

// FindByUserCourse returns the approved enrollment for a user and course.
func (r *ApprovedEnrollmentRepository) FindByUserCourse(ctx context.Context, exec sqlx.ExtContext, userID string, course models.Course) (*models.ApprovedEnrollment, error) {
	query := `SELECT ` + approvedColumns + ` FROM approved_enrollments
WHERE user_id = $1 AND skill_group = $2 AND skill_subgroup = $3 AND skill_name = $4`
	var enrollment models.ApprovedEnrollment
	if err := sqlx.GetContext(ctx, r.exec(exec), &enrollment, query, userID, course.Group, course.Subgroup, course.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find approved enrollment: %w", err)
	}
	return &enrollment, nil
}

// CountByCourse returns the number of approved enrollments for a course.
func (r *ApprovedEnrollmentRepository) CountByCourse(ctx context.Context, exec sqlx.ExtContext, course models.Course) (int, error) {
	const query = `SELECT COUNT(*) FROM approved_enrollments WHERE skill_group = $1 AND skill_subgroup = $2 AND skill_name = $3`
	var total int
	if err := sqlx.GetContext(ctx, r.exec(exec), &total, query, course.Group, course.Subgroup, course.Name); err != nil {
		return 0, fmt.Errorf("count approved enrollments: %w", err)
	}
	return total, nil
}

// DeleteByUserCourse removes the approved enrollment for a user and course,
// returning the number of rows removed.
func (r *ApprovedEnrollmentRepository) DeleteByUserCourse(ctx context.Context, exec sqlx.ExtContext, userID string, course models.Course) (int64, error) {
	const query = `DELETE FROM approved_enrollments WHERE user_id = $1 AND skill_group = $2 AND skill_subgroup = $3 AND skill_name = $4`
	result, err := r.exec(exec).ExecContext(ctx, query, userID, course.Group, course.Subgroup, course.Name)
	if err != nil {
		return 0, fmt.Errorf("delete approved enrollment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("approved enrollment rows affected: %w", err)
	}
	return affected, nil
}
