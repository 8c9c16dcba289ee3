package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleStaff   UserRole = "STAFF"
	RoleLearner UserRole = "LEARNER"
)

// IsStaff reports whether the role carries administrative privileges.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleStaff
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Profile is the extended 1:1 record attached to a user.
type Profile struct {
	UserID     string    `db:"user_id" json:"user_id"`
	Name       string    `db:"name" json:"name"`
	SurName    string    `db:"sur_name" json:"sur_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	Age        string    `db:"age" json:"age"`
	Country    string    `db:"country" json:"country"`
	City       string    `db:"city" json:"city"`
	PictureURL *string   `db:"picture_url" json:"picture_url,omitempty"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NormalizePage applies default paging bounds.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
