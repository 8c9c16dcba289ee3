package models

import "time"

// RequestStatus represents the lifecycle of an enrollment request.
type RequestStatus string

// Possible request statuses.
const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// Valid returns true when the status is a supported value.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	default:
		return false
	}
}

// EnrollmentRequest is a learner's request to join a course. At most one row
// exists per (user, course); it is reused in place across resubmissions.
type EnrollmentRequest struct {
	ID     string `db:"id" json:"id"`
	UserID string `db:"user_id" json:"user_id"`
	Course
	Status      RequestStatus `db:"status" json:"status"`
	RequestedAt time.Time     `db:"requested_at" json:"requested_at"`
	ReviewedAt  *time.Time    `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewedBy  *string       `db:"reviewed_by" json:"reviewed_by,omitempty"`
	AdminNotes  *string       `db:"admin_notes" json:"admin_notes,omitempty"`
}

// IsPending checks if request is pending.
func (r *EnrollmentRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}

// ResetToPending clears review fields and refreshes the request timestamp.
func (r *EnrollmentRequest) ResetToPending(now time.Time, notes *string) {
	r.Status = RequestStatusPending
	r.RequestedAt = now
	r.ReviewedAt = nil
	r.ReviewedBy = nil
	r.AdminNotes = notes
}

// MarkReviewed stamps the reviewer and moves the request to status.
func (r *EnrollmentRequest) MarkReviewed(status RequestStatus, reviewerID string, now time.Time, notes *string) {
	r.Status = status
	r.ReviewedAt = &now
	r.ReviewedBy = &reviewerID
	r.AdminNotes = notes
}

// EnrollmentRequestDetail enriches the request with user info for admin queues.
type EnrollmentRequestDetail struct {
	EnrollmentRequest
	UserEmail    string `db:"user_email" json:"user_email"`
	UserFullName string `db:"user_full_name" json:"user_full_name"`
}

// EnrollmentRequestFilter provides filters for listing requests.
type EnrollmentRequestFilter struct {
	UserID   string
	Status   RequestStatus
	Course   Course
	Page     int
	PageSize int
}

// ApprovedEnrollment records that a learner is admitted to a course. It exists
// if and only if the linked request is approved.
type ApprovedEnrollment struct {
	ID     string `db:"id" json:"id"`
	UserID string `db:"user_id" json:"user_id"`
	Course
	EnrollmentRequestID string    `db:"enrollment_request_id" json:"enrollment_request_id"`
	EnrolledAt          time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// CourseState is the learner-facing status for a course.
type CourseState string

const (
	CourseStateApproved     CourseState = "approved"
	CourseStatePending      CourseState = "pending"
	CourseStateRejected     CourseState = "rejected"
	CourseStateNotRequested CourseState = "not_requested"
)

// CourseStatus answers "where am I with this course".
type CourseStatus struct {
	Course
	Status CourseState `json:"status"`
	Reason *string     `json:"reason,omitempty"`
}
