// internal/model/mailing_stat.go
package model

import "time"

// MailingStat is one delivery record per (mailing, recipient) pair.
// Rows are append-only: a retry writes new rows instead of touching old ones.
type MailingStat struct {
	ID        int        `db:"id" json:"id"`
	MailingID int        `db:"mailing_id" json:"mailing_id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	SentAt    *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	OpenedAt  *time.Time `db:"opened_at" json:"opened_at,omitempty"`
	ClickedAt *time.Time `db:"clicked_at" json:"clicked_at,omitempty"`
}

// MailingStats are the aggregates served by the stats endpoint.
type MailingStats struct {
	Sent     int     `json:"sent"`
	Opened   int     `json:"opened"`
	Clicked  int     `json:"clicked"`
	OpenRate float64 `json:"open_rate"`
	CTR      float64 `json:"ctr"`
}
