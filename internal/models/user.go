package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser   UserRole = "user"
	RoleMember UserRole = "member"
	RoleAdmin  UserRole = "admin"
)

// ValidRole reports whether s is one of the known roles.
func ValidRole(s string) bool {
	switch UserRole(s) {
	case RoleUser, RoleMember, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uint     `json:"id" gorm:"primaryKey"`
	StudentID    string   `json:"student_id" gorm:"uniqueIndex;not null;size:32"`
	Username     string   `json:"username" gorm:"uniqueIndex;not null;size:64"`
	Email        string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	PasswordHash string   `json:"-" gorm:"not null;size:255"`
	FullName     string   `json:"full_name" gorm:"not null;size:100"`
	Role         UserRole `json:"role" gorm:"not null;size:16;default:user"`
	FeePaid      bool     `json:"fee_paid" gorm:"not null;default:false"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsPaid reports whether the user may access paid-member content.
// Admins are implicitly treated as paid.
func (u *User) IsPaid() bool {
	return u.FeePaid || u.Role == RoleAdmin
}
