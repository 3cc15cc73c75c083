package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/distroline/botcrm-backend/internal/errors"
	"github.com/distroline/botcrm-backend/internal/model"
)

// UserFilter narrows the admin user listing.
type UserFilter struct {
	UserType       string
	Search         string
	IncludeDeleted bool
	ActivityState  string // active | stale | inactive
}

// UserRepositoryInterface defines methods used by services
type UserRepositoryInterface interface {
	GetByID(id int64) (*model.User, error)
	Create(u *model.User) error
	Update(u *model.User) error
	SoftDelete(id int64, at time.Time) error
	ListActive() ([]model.User, error)
	List(f UserFilter) ([]model.User, error)
	Count() (int, error)
	CountByType(userType string) (int, error)
	CountRegisteredBetween(start, end time.Time) (int, error)
}

// UserRepository is the concrete implementation
type UserRepository struct {
	DB *sql.DB
}

const userColumns = `id, username, first_name, last_name, phone_number, full_name,
       user_type, establishment, registered_at, is_active, last_activity, deleted_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.PhoneNumber, &u.FullName,
		&u.UserType, &u.Establishment, &u.RegisteredAt, &u.IsActive, &u.LastActivity, &u.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByID(id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	u, err := scanUser(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewUserNotFound(id)
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Create(u *model.User) error {
	if u.RegisteredAt.IsZero() {
		u.RegisteredAt = time.Now().UTC()
	}
	query := `
        INSERT INTO users (id, username, first_name, last_name, phone_number, full_name, user_type, establishment, registered_at, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err := r.DB.Exec(query,
		u.ID, u.Username, u.FirstName, u.LastName, u.PhoneNumber, u.FullName,
		u.UserType, u.Establishment, u.RegisteredAt, u.IsActive,
	)
	return err
}

func (r *UserRepository) Update(u *model.User) error {
	query := `
        UPDATE users
        SET username=$1, first_name=$2, last_name=$3, phone_number=$4, full_name=$5,
            user_type=$6, establishment=$7, is_active=$8
        WHERE id=$9
    `
	res, err := r.DB.Exec(query,
		u.Username, u.FirstName, u.LastName, u.PhoneNumber, u.FullName,
		u.UserType, u.Establishment, u.IsActive, u.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return appErrors.NewUserNotFound(u.ID)
	}
	return nil
}

// SoftDelete marks the user deleted and inactive. Deleted users never
// appear in a mailing audience again.
func (r *UserRepository) SoftDelete(id int64, at time.Time) error {
	res, err := r.DB.Exec(`UPDATE users SET deleted_at=$1, is_active=FALSE WHERE id=$2`, at, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return appErrors.NewUserNotFound(id)
	}
	return nil
}

// ListActive returns every recipient eligible for mailings: active and not
// soft-deleted. The resolver filters this set by target.
func (r *UserRepository) ListActive() ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_active = TRUE AND deleted_at IS NULL`
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *UserRepository) List(f UserFilter) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if !f.IncludeDeleted {
		query += " AND deleted_at IS NULL"
	}
	if f.UserType != "" {
		query += fmt.Sprintf(" AND user_type=$%d", argPos)
		args = append(args, f.UserType)
		argPos++
	}
	if f.Search != "" {
		query += fmt.Sprintf(" AND (username ILIKE $%d OR establishment ILIKE $%d OR full_name ILIKE $%d OR phone_number ILIKE $%d)", argPos, argPos, argPos, argPos)
		args = append(args, "%"+f.Search+"%")
		argPos++
	}

	now := time.Now().UTC()
	switch f.ActivityState {
	case "active":
		query += fmt.Sprintf(" AND is_active = TRUE AND last_activity >= $%d", argPos)
		args = append(args, now.AddDate(0, 0, -7))
		argPos++
	case "stale":
		query += fmt.Sprintf(" AND is_active = TRUE AND last_activity IS NOT NULL AND last_activity < $%d AND last_activity >= $%d", argPos, argPos+1)
		args = append(args, now.AddDate(0, 0, -7), now.AddDate(0, 0, -30))
		argPos += 2
	case "inactive":
		query += fmt.Sprintf(" AND (is_active = FALSE OR last_activity < $%d)", argPos)
		args = append(args, now.AddDate(0, 0, -30))
		argPos++
	}

	query += " ORDER BY registered_at DESC"

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Count() (int, error) {
	var total int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`).Scan(&total)
	return total, err
}

func (r *UserRepository) CountByType(userType string) (int, error) {
	var total int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM users WHERE user_type=$1 AND deleted_at IS NULL`, userType).Scan(&total)
	return total, err
}

func (r *UserRepository) CountRegisteredBetween(start, end time.Time) (int, error) {
	var total int
	err := r.DB.QueryRow(
		`SELECT COUNT(*) FROM users WHERE registered_at >= $1 AND registered_at < $2 AND deleted_at IS NULL`,
		start, end,
	).Scan(&total)
	return total, err
}

var _ UserRepositoryInterface = (*UserRepository)(nil)
