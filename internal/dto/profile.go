package dto

import "github.com/noah-isme/skillpath-api/internal/models"

// UpdateProfileRequest captures PUT /me/profile payload.
type UpdateProfileRequest struct {
	Name       string  `json:"name" validate:"max=50"`
	SurName    string  `json:"sur_name" validate:"max=50"`
	LastName   string  `json:"last_name" validate:"max=50"`
	Age        string  `json:"age" validate:"omitempty,numeric,max=3"`
	Country    string  `json:"country" validate:"max=50"`
	City       string  `json:"city" validate:"max=50"`
	PictureURL *string `json:"picture_url" validate:"omitempty,url,max=500"`
}

// ProfileResponse combines account and profile fields.
type ProfileResponse struct {
	User    models.UserInfo `json:"user"`
	Profile models.Profile  `json:"profile"`
}

// UpsertSkillRequest captures PUT /me/skills payload. Levels outside 0..100 are clamped.
type UpsertSkillRequest struct {
	SkillName string `json:"skill_name" validate:"required,max=200"`
	Level     int    `json:"level"`
}
