package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	appErrors "github.com/distroline/botcrm-backend/internal/errors"
	"github.com/distroline/botcrm-backend/internal/model"
)

type MailingRepositoryInterface interface {
	// Mailing CRUD
	Create(m *model.Mailing) error
	GetByID(id int) (*model.Mailing, error)
	List() ([]model.Mailing, error)
	Update(m *model.Mailing) error
	Delete(id int) error
	Cancel(id int, at time.Time) error

	// Dispatch and scheduling
	ListDue(now time.Time) ([]model.Mailing, error)
	LastSentAt(targetType string, excludeID int) (*time.Time, error)
	SaveDispatch(mailingID int, recipientIDs []int64, now time.Time) error
	RecordSendFailure(mailingID int, lastError string) error

	// Stats
	GetStats(mailingID int) (sent, opened, clicked int, err error)
	Count() (int, error)
	CountCreatedSince(since time.Time) (int, error)
}

type MailingRepository struct {
	DB *sql.DB
}

const mailingColumns = `id, text, media_url, media_type, target_type, custom_targets,
       scheduled_at, sent_at, status, created_at, send_attempts, last_error, cancelled_at`

func scanMailing(row interface{ Scan(...any) error }) (*model.Mailing, error) {
	var m model.Mailing
	var targets []byte
	err := row.Scan(
		&m.ID, &m.Text, &m.MediaURL, &m.MediaType, &m.TargetType, &targets,
		&m.ScheduledAt, &m.SentAt, &m.Status, &m.CreatedAt, &m.SendAttempts,
		&m.LastError, &m.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	if len(targets) > 0 {
		if err := json.Unmarshal(targets, &m.CustomTargets); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func encodeTargets(ids []int64) (any, error) {
	if ids == nil {
		return nil, nil
	}
	return json.Marshal(ids)
}

func (r *MailingRepository) Create(m *model.Mailing) error {
	m.CreatedAt = time.Now().UTC()
	if m.Status == "" {
		m.Status = model.MailingDraft
	}
	targets, err := encodeTargets(m.CustomTargets)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO mailings (text, media_url, media_type, target_type, custom_targets, scheduled_at, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `
	return r.DB.QueryRow(query, m.Text, m.MediaURL, m.MediaType, m.TargetType, targets, m.ScheduledAt, m.Status, m.CreatedAt).Scan(&m.ID)
}

func (r *MailingRepository) GetByID(id int) (*model.Mailing, error) {
	query := `SELECT ` + mailingColumns + ` FROM mailings WHERE id=$1`
	m, err := scanMailing(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewMailingNotFound(id)
		}
		return nil, err
	}
	return m, nil
}

func (r *MailingRepository) List() ([]model.Mailing, error) {
	query := `SELECT ` + mailingColumns + ` FROM mailings ORDER BY created_at DESC`
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mailings := []model.Mailing{}
	for rows.Next() {
		m, err := scanMailing(rows)
		if err != nil {
			return nil, err
		}
		mailings = append(mailings, *m)
	}
	return mailings, rows.Err()
}

func (r *MailingRepository) Update(m *model.Mailing) error {
	targets, err := encodeTargets(m.CustomTargets)
	if err != nil {
		return err
	}
	query := `
        UPDATE mailings
        SET text=$1, media_url=$2, media_type=$3, target_type=$4, custom_targets=$5, scheduled_at=$6, status=$7
        WHERE id=$8
    `
	res, err := r.DB.Exec(query, m.Text, m.MediaURL, m.MediaType, m.TargetType, targets, m.ScheduledAt, m.Status, m.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return appErrors.NewMailingNotFound(m.ID)
	}
	return nil
}

func (r *MailingRepository) Delete(id int) error {
	res, err := r.DB.Exec(`DELETE FROM mailings WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return appErrors.NewMailingNotFound(id)
	}
	return nil
}

func (r *MailingRepository) Cancel(id int, at time.Time) error {
	query := `UPDATE mailings SET status=$1, cancelled_at=$2 WHERE id=$3`
	res, err := r.DB.Exec(query, model.MailingCancelled, at, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return appErrors.NewMailingNotFound(id)
	}
	return nil
}

// ListDue returns scheduled mailings whose time has arrived.
func (r *MailingRepository) ListDue(now time.Time) ([]model.Mailing, error) {
	query := `SELECT ` + mailingColumns + `
              FROM mailings
              WHERE status=$1 AND scheduled_at IS NOT NULL AND scheduled_at <= $2
              ORDER BY scheduled_at`
	rows, err := r.DB.Query(query, model.MailingScheduled, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	due := []model.Mailing{}
	for rows.Next() {
		m, err := scanMailing(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, *m)
	}
	return due, rows.Err()
}

// LastSentAt returns the most recent sent_at among mailings with the same
// target type, excluding the mailing under check so it never blocks itself.
func (r *MailingRepository) LastSentAt(targetType string, excludeID int) (*time.Time, error) {
	query := `SELECT MAX(sent_at) FROM mailings WHERE target_type=$1 AND id<>$2 AND sent_at IS NOT NULL`
	var last *time.Time
	if err := r.DB.QueryRow(query, targetType, excludeID).Scan(&last); err != nil {
		return nil, err
	}
	return last, nil
}

// SaveDispatch writes one stat row per recipient and flips the mailing to
// sent in a single transaction. Either everything lands or nothing does.
func (r *MailingRepository) SaveDispatch(mailingID int, recipientIDs []int64, now time.Time) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO mailing_stats (mailing_id, user_id, sent_at) VALUES ($1, $2, $3)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, uid := range recipientIDs {
		if _, err := stmt.Exec(mailingID, uid, now); err != nil {
			return err
		}
	}

	query := `
        UPDATE mailings
        SET status=$1, sent_at=$2, last_error='', send_attempts=send_attempts+1
        WHERE id=$3
    `
	res, err := tx.Exec(query, model.MailingSent, now, mailingID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return appErrors.NewMailingNotFound(mailingID)
	}

	return tx.Commit()
}

// RecordSendFailure persists the failed attempt without touching status,
// so the mailing stays eligible for retry.
func (r *MailingRepository) RecordSendFailure(mailingID int, lastError string) error {
	query := `UPDATE mailings SET send_attempts=send_attempts+1, last_error=$1 WHERE id=$2`
	_, err := r.DB.Exec(query, lastError, mailingID)
	return err
}

func (r *MailingRepository) GetStats(mailingID int) (sent, opened, clicked int, err error) {
	query := `
        SELECT COUNT(*),
               COUNT(opened_at),
               COUNT(clicked_at)
        FROM mailing_stats
        WHERE mailing_id=$1
    `
	err = r.DB.QueryRow(query, mailingID).Scan(&sent, &opened, &clicked)
	return
}

func (r *MailingRepository) Count() (int, error) {
	var total int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM mailings`).Scan(&total)
	return total, err
}

func (r *MailingRepository) CountCreatedSince(since time.Time) (int, error) {
	var total int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM mailings WHERE created_at >= $1`, since).Scan(&total)
	return total, err
}

var _ MailingRepositoryInterface = (*MailingRepository)(nil)
