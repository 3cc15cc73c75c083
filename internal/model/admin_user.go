// internal/model/admin_user.go
package model

import "time"

// Admin roles
const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleManager    = "manager"
)

type AdminUser struct {
	ID           int        `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email,omitempty"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	IsActive     bool       `db:"is_active" json:"is_active"`
}

type ActivityLog struct {
	ID        int       `db:"id" json:"id"`
	AdminID   *int      `db:"admin_id" json:"admin_id,omitempty"`
	Action    string    `db:"action" json:"action"`
	Details   string    `db:"details" json:"details,omitempty"`
	IPAddress string    `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type SystemSetting struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
