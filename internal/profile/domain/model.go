// Package domain contains the application-side user profile types.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the lifecycle state of a profile.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusPending   Status = "PENDING"
)

// Role marks the access level a profile grants.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Profile extends an identity with application-owned fields. ID equals
// the owning identity's ID (one-to-one).
type Profile struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	Username      string            `gorm:"type:text;not null;uniqueIndex" json:"username"`
	Email         string            `gorm:"column:email;not null;uniqueIndex" json:"email"`
	FirstName     string            `gorm:"column:first_name;type:text" json:"first_name"`
	LastName      string            `gorm:"column:last_name;type:text" json:"last_name"`
	FullName      string            `gorm:"column:full_name;type:text" json:"full_name"`
	Status        Status            `gorm:"type:text;not null;default:'PENDING'" json:"status"`
	Role          Role              `gorm:"type:text;not null;default:'USER'" json:"role"`
	EmailVerified bool              `gorm:"column:email_verified;not null;default:false" json:"email_verified"`
	Bio           string            `gorm:"type:text" json:"bio"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	LastLoginAt   *time.Time        `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
}

// TableName sets the database table name.
func (Profile) TableName() string { return "profiles" }
