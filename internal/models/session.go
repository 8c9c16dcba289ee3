package models

import "time"

// Slot formats used across the scheduling surface.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// ScheduledSession is a concrete date/time instance of a course. The
// (course, date, time) tuple is unique.
type ScheduledSession struct {
	ID string `db:"id" json:"id"`
	Course
	ScheduledDate time.Time `db:"scheduled_date" json:"scheduled_date"`
	ScheduledTime string    `db:"scheduled_time" json:"scheduled_time"`
	InstructorID  string    `db:"instructor_id" json:"instructor_id"`
	MaxStudents   int       `db:"max_students" json:"max_students"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// SessionSummary adds the current attendance count.
type SessionSummary struct {
	ScheduledSession
	EnrolledCount int `db:"enrolled_count" json:"enrolled_count"`
}

// AvailableSpots returns how many more students fit into the session.
func (s SessionSummary) AvailableSpots() int {
	spots := s.MaxStudents - s.EnrolledCount
	if spots < 0 {
		return 0
	}
	return spots
}

// SessionFilter scopes session listings.
type SessionFilter struct {
	Course     Course
	From       *time.Time
	To         *time.Time
	ActiveOnly bool
	Page       int
	PageSize   int
}

// Attendance links a student to a session. Unique per (student, session).
type Attendance struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	SessionID  string    `db:"session_id" json:"session_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
	Attended   bool      `db:"attended" json:"attended"`
}

// AttendanceRecord extends attendance with student metadata for rosters.
type AttendanceRecord struct {
	Attendance
	StudentEmail string `db:"student_email" json:"student_email"`
	StudentName  string `db:"student_name" json:"student_name"`
}
