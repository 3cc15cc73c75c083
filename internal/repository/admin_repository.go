package repository

import (
	"database/sql"
	"strings"
	"time"

	"github.com/distroline/botcrm-backend/internal/model"
)

type AdminRepositoryInterface interface {
	GetByIdentifier(identifier string) (*model.AdminUser, error)
	GetByUsername(username string) (*model.AdminUser, error)
	Create(a *model.AdminUser) error
	TouchLastLogin(id int, at time.Time) error
}

type AdminRepository struct {
	DB *sql.DB
}

const adminColumns = `id, username, email, password_hash, role, created_at, last_login, is_active`

func scanAdmin(row interface{ Scan(...any) error }) (*model.AdminUser, error) {
	var a model.AdminUser
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Role, &a.CreatedAt, &a.LastLogin, &a.IsActive)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByIdentifier looks up an admin by username or email (case-insensitive).
// Returns nil, nil when not found so the caller can answer 401 uniformly.
func (r *AdminRepository) GetByIdentifier(identifier string) (*model.AdminUser, error) {
	query := `SELECT ` + adminColumns + ` FROM admin_users WHERE username=$1 OR LOWER(email)=$2`
	a, err := scanAdmin(r.DB.QueryRow(query, identifier, strings.ToLower(identifier)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *AdminRepository) GetByUsername(username string) (*model.AdminUser, error) {
	query := `SELECT ` + adminColumns + ` FROM admin_users WHERE username=$1`
	a, err := scanAdmin(r.DB.QueryRow(query, username))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *AdminRepository) Create(a *model.AdminUser) error {
	a.CreatedAt = time.Now().UTC()
	query := `
        INSERT INTO admin_users (username, email, password_hash, role, created_at, is_active)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	return r.DB.QueryRow(query, a.Username, a.Email, a.PasswordHash, a.Role, a.CreatedAt, a.IsActive).Scan(&a.ID)
}

func (r *AdminRepository) TouchLastLogin(id int, at time.Time) error {
	_, err := r.DB.Exec(`UPDATE admin_users SET last_login=$1 WHERE id=$2`, at, id)
	return err
}

var _ AdminRepositoryInterface = (*AdminRepository)(nil)
