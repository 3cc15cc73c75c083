// internal/model/mailing.go
package model

import "time"

// Mailing statuses
const (
	MailingDraft     = "draft"
	MailingScheduled = "scheduled"
	MailingSent      = "sent"
	MailingCancelled = "cancelled"
)

// Target types
const (
	TargetAll    = "all"
	TargetHoreca = "horeca"
	TargetRetail = "retail"
	TargetCustom = "custom"
)

// Media types
const (
	MediaPhoto = "photo"
	MediaVideo = "video"
	MediaNone  = "none"
)

type Mailing struct {
	ID            int        `db:"id" json:"id"`
	Text          string     `db:"text" json:"text"`
	MediaURL      *string    `db:"media_url" json:"media_url,omitempty"`
	MediaType     string     `db:"media_type" json:"media_type"`
	TargetType    string     `db:"target_type" json:"target_type"`
	CustomTargets []int64    `db:"custom_targets" json:"custom_targets,omitempty"`
	ScheduledAt   *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	SentAt        *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	Status        string     `db:"status" json:"status"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	SendAttempts  int        `db:"send_attempts" json:"send_attempts"`
	LastError     string     `db:"last_error" json:"last_error,omitempty"`
	CancelledAt   *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
}
