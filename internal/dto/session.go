package dto

import "github.com/noah-isme/skillpath-api/internal/models"

// ScheduleSessionRequest captures POST /admin/sessions payload.
type ScheduleSessionRequest struct {
	SkillGroup    string `json:"skill_group" validate:"required,max=200"`
	SkillSubgroup string `json:"skill_subgroup" validate:"required,max=200"`
	SkillName     string `json:"skill_name" validate:"required,max=200"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	Time          string `json:"time" validate:"required"`
	MaxStudents   *int   `json:"max_students" validate:"omitempty,min=1,max=500"`
}

// Course converts the payload labels into a trimmed course value.
func (r ScheduleSessionRequest) Course() models.Course {
	return models.NewCourse(r.SkillGroup, r.SkillSubgroup, r.SkillName)
}

// AdmitRequest schedules a session and admits one pending request into it.
type AdmitRequest struct {
	ScheduleSessionRequest
	RequestID string `json:"request_id" validate:"required"`
}

// AddParticipantsRequest names the course the session is expected to belong to.
type AddParticipantsRequest struct {
	SkillGroup    string `json:"skill_group" validate:"required,max=200"`
	SkillSubgroup string `json:"skill_subgroup" validate:"required,max=200"`
	SkillName     string `json:"skill_name" validate:"required,max=200"`
}

// Course converts the payload labels into a trimmed course value.
func (r AddParticipantsRequest) Course() models.Course {
	return models.NewCourse(r.SkillGroup, r.SkillSubgroup, r.SkillName)
}

// RescheduleRequest moves a session to a new slot.
type RescheduleRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Time string `json:"time" validate:"required"`
}

// MarkAttendanceRequest toggles the attended flag.
type MarkAttendanceRequest struct {
	Attended *bool `json:"attended" validate:"required"`
}

// SessionDetail is a session with its participants.
type SessionDetail struct {
	models.SessionSummary
	AvailableSpots int                       `json:"available_spots"`
	Participants   []models.AttendanceRecord `json:"participants"`
}

// AdmissionResult reports who was admitted into which session.
type AdmissionResult struct {
	Session  models.SessionSummary `json:"session"`
	Admitted []string              `json:"admitted_user_ids"`
}

// DismissalResult reports how attendees were returned to the queue.
type DismissalResult struct {
	SessionID string        `json:"session_id"`
	Course    models.Course `json:"course"`
	Reverted  int           `json:"reverted"`
	Recreated int           `json:"recreated"`
	Attendees []string      `json:"attendee_ids"`
}

// RosterFile is an exported roster document.
type RosterFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
