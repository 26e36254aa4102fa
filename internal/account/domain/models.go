package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propoza/internal/actorcontext"
)

// User is a staff member or a customer of record.
type User struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	Username     string            `gorm:"not null;uniqueIndex" json:"username"`
	Email        string            `gorm:"type:text" json:"email,omitempty"`
	Phone        string            `gorm:"type:text" json:"phone,omitempty"`
	FullName     string            `gorm:"type:text" json:"full_name,omitempty"`
	Role         actorcontext.Role `gorm:"type:text;not null;default:'CUSTOMER'" json:"role"`
	PasswordHash string            `gorm:"not null" json:"-"`
	IsActive     bool              `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

func (u User) Actor() actorcontext.Actor {
	return actorcontext.Actor{ID: u.ID, Role: u.Role, Username: u.Username}
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
