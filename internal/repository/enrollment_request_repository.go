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

const requestColumns = `id, user_id, skill_group, skill_subgroup, skill_name, status, requested_at, reviewed_at, reviewed_by, admin_notes`

// EnrollmentRequestRepository persists course enrollment requests.
type EnrollmentRequestRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRequestRepository constructs the repository.
func NewEnrollmentRequestRepository(db *sqlx.DB) *EnrollmentRequestRepository {
	return &EnrollmentRequestRepository{db: db}
}

func (r *EnrollmentRequestRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID returns a request by its ID.
func (r *EnrollmentRequestRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.EnrollmentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM enrollment_requests WHERE id = $1`
	var req models.EnrollmentRequest
	if err := sqlx.GetContext(ctx, r.exec(exec), &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment request: %w", err)
	}
	return &req, nil
}

// FindByUserCourse returns the single request a user holds for a course.
func (r *EnrollmentRequestRepository) FindByUserCourse(ctx context.Context, exec sqlx.ExtContext, userID string, course models.Course) (*models.EnrollmentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM enrollment_requests
WHERE user_id = $1 AND skill_group = $2 AND skill_subgroup = $3 AND skill_name = $4`
	var req models.EnrollmentRequest
	if err := sqlx.GetContext(ctx, r.exec(exec), &req, query, userID, course.Group, course.Subgroup, course.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment request by course: %w", err)
	}
	return &req, nil
}

// Create persists a new request.
func (r *EnrollmentRequestRepository) Create(ctx context.Context, exec sqlx.ExtContext, req *models.EnrollmentRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	if req.Status == "" {
		req.Status = models.RequestStatusPending
	}
	const query = `INSERT INTO enrollment_requests (id, user_id, skill_group, skill_subgroup, skill_name, status, requested_at, reviewed_at, reviewed_by, admin_notes)
VALUES (:id, :user_id, :skill_group, :skill_subgroup, :skill_name, :status, :requested_at, :reviewed_at, :reviewed_by, :admin_notes)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, req); err != nil {
		return fmt.Errorf("create enrollment request: %w", err)
	}
	return nil
}

// Update writes the status and review fields of an existing request.
func (r *EnrollmentRequestRepository) Update(ctx context.Context, exec sqlx.ExtContext, req *models.EnrollmentRequest) error {
	const query = `UPDATE enrollment_requests SET status = :status, requested_at = :requested_at, reviewed_at = :reviewed_at,
reviewed_by = :reviewed_by, admin_notes = :admin_notes WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, req)
	if err != nil {
		return fmt.Errorf("update enrollment request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("enrollment request rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListPendingByCourse returns pending requests for a course, oldest first.
func (r *EnrollmentRequestRepository) ListPendingByCourse(ctx context.Context, exec sqlx.ExtContext, course models.Course) ([]models.EnrollmentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM enrollment_requests
WHERE skill_group = $1 AND skill_subgroup = $2 AND skill_name = $3 AND status = $4 ORDER BY requested_at ASC`
	var requests []models.EnrollmentRequest
	if err := sqlx.SelectContext(ctx, r.exec(exec), &requests, query, course.Group, course.Subgroup, course.Name, models.RequestStatusPending); err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	return requests, nil
}

// CountByCourseStatus counts requests for a course in the given status.
func (r *EnrollmentRequestRepository) CountByCourseStatus(ctx context.Context, exec sqlx.ExtContext, course models.Course, status models.RequestStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollment_requests WHERE skill_group = $1 AND skill_subgroup = $2 AND skill_name = $3 AND status = $4`
	var total int
	if err := sqlx.GetContext(ctx, r.exec(exec), &total, query, course.Group, course.Subgroup, course.Name, status); err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return total, nil
}

// List returns requests with requester details filtered by the provided criteria.
func (r *EnrollmentRequestRepository) List(ctx context.Context, filter models.EnrollmentRequestFilter) ([]models.EnrollmentRequestDetail, int, error) {
	base := `FROM enrollment_requests r JOIN users u ON u.id = r.user_id`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("r.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Course.Group != "" {
		conditions = append(conditions, fmt.Sprintf("r.skill_group = $%d", len(args)+1))
		args = append(args, filter.Course.Group)
	}
	if filter.Course.Subgroup != "" {
		conditions = append(conditions, fmt.Sprintf("r.skill_subgroup = $%d", len(args)+1))
		args = append(args, filter.Course.Subgroup)
	}
	if filter.Course.Name != "" {
		conditions = append(conditions, fmt.Sprintf("r.skill_name = $%d", len(args)+1))
		args = append(args, filter.Course.Name)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT r.id, r.user_id, r.skill_group, r.skill_subgroup, r.skill_name, r.status, r.requested_at,
r.reviewed_at, r.reviewed_by, r.admin_notes, u.email AS user_email, u.full_name AS user_full_name
%s ORDER BY r.requested_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var requests []models.EnrollmentRequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollment requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollment requests: %w", err)
	}
	return requests, total, nil
}
