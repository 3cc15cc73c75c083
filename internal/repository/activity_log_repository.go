package repository

import (
	"database/sql"
	"time"

	"github.com/distroline/botcrm-backend/internal/model"
)

type ActivityLogRepositoryInterface interface {
	Record(adminID *int, action, details, ip string) error
	Recent(limit int) ([]model.ActivityLog, error)
}

type ActivityLogRepository struct {
	DB *sql.DB
}

func (r *ActivityLogRepository) Record(adminID *int, action, details, ip string) error {
	query := `
        INSERT INTO activity_log (admin_id, action, details, ip_address, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err := r.DB.Exec(query, adminID, action, details, ip, time.Now().UTC())
	return err
}

func (r *ActivityLogRepository) Recent(limit int) ([]model.ActivityLog, error) {
	query := `
        SELECT id, admin_id, action, details, ip_address, created_at
        FROM activity_log
        ORDER BY created_at DESC
        LIMIT $1
    `
	rows, err := r.DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.ActivityLog{}
	for rows.Next() {
		var l model.ActivityLog
		if err := rows.Scan(&l.ID, &l.AdminID, &l.Action, &l.Details, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

var _ ActivityLogRepositoryInterface = (*ActivityLogRepository)(nil)
