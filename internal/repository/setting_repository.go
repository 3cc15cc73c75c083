package repository

import (
	"database/sql"
	"time"

	"github.com/distroline/botcrm-backend/internal/model"
)

type SettingRepositoryInterface interface {
	All() (map[string]string, error)
	Put(items []model.SystemSetting) error
}

type SettingRepository struct {
	DB *sql.DB
}

func (r *SettingRepository) All() (map[string]string, error) {
	rows, err := r.DB.Query(`SELECT key, value FROM system_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

func (r *SettingRepository) Put(items []model.SystemSetting) error {
	query := `
        INSERT INTO system_settings (key, value, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=EXCLUDED.updated_at
    `
	now := time.Now().UTC()
	for _, item := range items {
		if _, err := r.DB.Exec(query, item.Key, item.Value, now); err != nil {
			return err
		}
	}
	return nil
}

var _ SettingRepositoryInterface = (*SettingRepository)(nil)
