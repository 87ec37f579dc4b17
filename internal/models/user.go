package models

import "time"

// Role is the account type stored on a user row.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// User represents a row in the PostgreSQL users table.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	RealName     string
	Role         Role
	LastLogin    *time.Time
	LastLoginIP  *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the client-facing view of a User. It never carries the
// password hash.
type Profile struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Role        Role       `json:"role"`
	RealName    string     `json:"realName"`
	LastLogin   *time.Time `json:"lastLogin"`
	LastLoginIP *string    `json:"lastLoginIp"`
}

// Profile returns the redacted view of u.
func (u *User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		Username:    u.Username,
		Role:        u.Role,
		RealName:    u.RealName,
		LastLogin:   u.LastLogin,
		LastLoginIP: u.LastLoginIP,
	}
}

// RegisterRequest is the JSON body for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=2"`
	Password string `json:"password" validate:"required,min=8"`
	RealName string `json:"realName" validate:"required,min=2"`
	Role     Role   `json:"role"     validate:"required,oneof=student teacher admin"`
}

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
