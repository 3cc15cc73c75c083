// internal/model/user.go
package model

import "time"

// User types
const (
	UserHoreca = "horeca"
	UserRetail = "retail"
)

// User is a bot subscriber. The ID is the Telegram user id (64-bit).
type User struct {
	ID            int64      `db:"id" json:"id"`
	Username      string     `db:"username" json:"username"`
	FirstName     string     `db:"first_name" json:"first_name"`
	LastName      string     `db:"last_name" json:"last_name"`
	PhoneNumber   string     `db:"phone_number" json:"phone_number"`
	FullName      string     `db:"full_name" json:"full_name"`
	UserType      string     `db:"user_type" json:"user_type"`
	Establishment string     `db:"establishment" json:"establishment"`
	RegisteredAt  time.Time  `db:"registered_at" json:"registered_at"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	LastActivity  *time.Time `db:"last_activity" json:"last_activity,omitempty"`
	DeletedAt     *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}
