package dto

import "github.com/noah-isme/skillpath-api/internal/models"

// SubmitEnrollmentRequest captures POST /enrollments/requests payload.
type SubmitEnrollmentRequest struct {
	SkillGroup    string `json:"skill_group" validate:"required,max=200"`
	SkillSubgroup string `json:"skill_subgroup" validate:"required,max=200"`
	SkillName     string `json:"skill_name" validate:"required,max=200"`
}

// Course converts the payload labels into a trimmed course value.
func (r SubmitEnrollmentRequest) Course() models.Course {
	return models.NewCourse(r.SkillGroup, r.SkillSubgroup, r.SkillName)
}

// ReviewRequest carries optional admin notes for approve/reject actions.
type ReviewRequest struct {
	AdminNotes *string `json:"admin_notes" validate:"omitempty,max=2000"`
}

// CourseOverview summarises admission state for one course.
type CourseOverview struct {
	Course          models.Course           `json:"course"`
	ApprovedCount   int                     `json:"approved_count"`
	PendingCount    int                     `json:"pending_count"`
	MaxParticipants int                     `json:"max_participants"`
	AvailableSpots  int                     `json:"available_spots"`
	Sessions        []models.SessionSummary `json:"sessions"`
	Cached          bool                    `json:"-"`
}
