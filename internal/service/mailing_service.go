// internal/service/mailing_service.go
package service

import (
	"log"
	"math"
	"time"

	"github.com/distroline/botcrm-backend/internal/config"
	appErrors "github.com/distroline/botcrm-backend/internal/errors"
	"github.com/distroline/botcrm-backend/internal/model"
	"github.com/distroline/botcrm-backend/internal/queue"
	"github.com/distroline/botcrm-backend/internal/repository"
)

type MailingService struct {
	MailingRepo repository.MailingRepositoryInterface
	UserRepo    repository.UserRepositoryInterface
	Queue       queue.Queue // optional, nil disables delivery publishing
	Cfg         *config.Config

	// Now is overridable in tests. Defaults to time.Now.
	Now func() time.Time
}

func (s *MailingService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// MailingInput carries the create payload.
type MailingInput struct {
	Text          string     `json:"text"`
	MediaURL      *string    `json:"media_url"`
	MediaType     string     `json:"media_type"`
	TargetType    string     `json:"target_type"`
	CustomTargets []int64    `json:"custom_targets"`
	ScheduledAt   *time.Time `json:"scheduled_at"`
}

// MailingUpdate carries the update payload; nil fields are left untouched.
type MailingUpdate struct {
	Text          *string    `json:"text"`
	MediaURL      *string    `json:"media_url"`
	MediaType     *string    `json:"media_type"`
	TargetType    *string    `json:"target_type"`
	CustomTargets []int64    `json:"custom_targets"`
	ScheduledAt   *time.Time `json:"scheduled_at"`
	Status        *string    `json:"status"`
}

// ====================== Recipient resolver ======================

// MatchesTarget reports whether a user belongs to the mailing's audience.
func MatchesTarget(u model.User, m *model.Mailing) bool {
	switch m.TargetType {
	case model.TargetAll:
		return true
	case model.TargetHoreca:
		return u.UserType == model.UserHoreca
	case model.TargetRetail:
		return u.UserType == model.UserRetail
	case model.TargetCustom:
		for _, id := range m.CustomTargets {
			if id == u.ID {
				return true
			}
		}
	}
	return false
}

// ResolveRecipients computes the current audience of a mailing: active,
// non-deleted users matching the target specification. An empty custom
// target list yields an empty audience, not an error.
func (s *MailingService) ResolveRecipients(m *model.Mailing) ([]model.User, error) {
	users, err := s.UserRepo.ListActive()
	if err != nil {
		return nil, err
	}
	recipients := []model.User{}
	for _, u := range users {
		if MatchesTarget(u, m) {
			recipients = append(recipients, u)
		}
	}
	return recipients, nil
}

// ====================== Business rule guard ======================

// Validate enforces the three send policies, cheapest first: send window,
// minimum audience, inter-mailing cooldown per target type. The mailing's
// own id is excluded from the cooldown check so a retry never blocks itself.
func (s *MailingService) Validate(m *model.Mailing) error {
	now := s.now()

	effective := now
	if m.ScheduledAt != nil {
		effective = m.ScheduledAt.UTC()
	}
	start, end := s.Cfg.SendWindowStartHour, s.Cfg.SendWindowEndHour
	if hour := effective.Hour(); hour < start || hour >= end {
		return appErrors.NewValidation(
			"send time %02d:00 is outside the allowed window %02d:00-%02d:00 UTC", hour, start, end)
	}

	recipients, err := s.ResolveRecipients(m)
	if err != nil {
		return err
	}
	if len(recipients) < s.Cfg.MinAudience {
		return appErrors.NewValidation(
			"audience of %d is below the required minimum of %d", len(recipients), s.Cfg.MinAudience)
	}

	last, err := s.MailingRepo.LastSentAt(m.TargetType, m.ID)
	if err != nil {
		return err
	}
	cooldown := time.Duration(s.Cfg.MailingIntervalMinutes) * time.Minute
	if last != nil && now.Sub(last.UTC()) < cooldown {
		return appErrors.NewValidation(
			"another %s mailing was sent less than %d minutes ago (frequency limit)",
			m.TargetType, s.Cfg.MailingIntervalMinutes)
	}

	return nil
}

// ====================== Mailing lifecycle ======================

func (s *MailingService) CreateMailing(in MailingInput) (*model.Mailing, error) {
	status := model.MailingDraft
	if in.ScheduledAt != nil {
		status = model.MailingScheduled
	}
	if in.MediaType == "" {
		in.MediaType = model.MediaNone
	}
	m := &model.Mailing{
		Text:          in.Text,
		MediaURL:      in.MediaURL,
		MediaType:     in.MediaType,
		TargetType:    in.TargetType,
		CustomTargets: in.CustomTargets,
		ScheduledAt:   in.ScheduledAt,
		Status:        status,
	}

	if err := s.Validate(m); err != nil {
		return nil, err
	}
	if err := s.MailingRepo.Create(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MailingService) UpdateMailing(id int, in MailingUpdate) (*model.Mailing, error) {
	m, err := s.MailingRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if m.Status == model.MailingCancelled {
		return nil, appErrors.NewMailingCancelled(id, "updated")
	}
	if m.Status == model.MailingSent {
		return nil, appErrors.NewValidation("mailing %d has already been sent", id)
	}

	if in.Text != nil {
		m.Text = *in.Text
	}
	if in.MediaURL != nil {
		m.MediaURL = in.MediaURL
	}
	if in.MediaType != nil {
		m.MediaType = *in.MediaType
	}
	if in.TargetType != nil {
		m.TargetType = *in.TargetType
	}
	if in.CustomTargets != nil {
		m.CustomTargets = in.CustomTargets
	}
	if in.ScheduledAt != nil {
		m.ScheduledAt = in.ScheduledAt
		m.Status = model.MailingScheduled
	}
	if in.Status != nil {
		m.Status = *in.Status
	}

	// Re-validated against the post-update target and schedule.
	if err := s.Validate(m); err != nil {
		return nil, err
	}
	if err := s.MailingRepo.Update(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MailingService) CancelMailing(id int) (*model.Mailing, error) {
	m, err := s.MailingRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.MailingRepo.Cancel(id, now); err != nil {
		return nil, err
	}
	m.Status = model.MailingCancelled
	m.CancelledAt = &now
	return m, nil
}

// SendMailing is the interactive send path. Cancelled mailings are rejected
// before the guard runs.
func (s *MailingService) SendMailing(id int) (int, error) {
	m, err := s.MailingRepo.GetByID(id)
	if err != nil {
		return 0, err
	}
	if m.Status == model.MailingCancelled {
		return 0, appErrors.NewMailingCancelled(id, "sent")
	}
	if err := s.Validate(m); err != nil {
		return 0, err
	}
	return s.Dispatch(m)
}

// RetryMailing re-dispatches a previously failed or already sent mailing.
// Stats accumulate across attempts.
func (s *MailingService) RetryMailing(id int) (int, error) {
	m, err := s.MailingRepo.GetByID(id)
	if err != nil {
		return 0, err
	}
	if m.Status == model.MailingCancelled {
		return 0, appErrors.NewMailingCancelled(id, "retried")
	}
	if err := s.Validate(m); err != nil {
		return 0, err
	}
	return s.Dispatch(m)
}

// ====================== Dispatch engine ======================

// Dispatch resolves the audience, writes one stat row per recipient and
// flips the mailing to sent, all in one transaction. On failure the attempt
// is recorded (send_attempts, last_error) without advancing the status, so
// the mailing stays retryable.
func (s *MailingService) Dispatch(m *model.Mailing) (int, error) {
	recipients, err := s.ResolveRecipients(m)
	if err != nil {
		s.recordFailure(m, err)
		return 0, err
	}

	now := s.now()
	ids := make([]int64, len(recipients))
	for i, u := range recipients {
		ids[i] = u.ID
	}

	if err := s.MailingRepo.SaveDispatch(m.ID, ids, now); err != nil {
		s.recordFailure(m, err)
		return 0, err
	}

	m.Status = model.MailingSent
	m.SentAt = &now
	m.LastError = ""
	m.SendAttempts++

	s.publishDeliveries(m, recipients)

	return len(recipients), nil
}

func (s *MailingService) recordFailure(m *model.Mailing, cause error) {
	m.SendAttempts++
	m.LastError = cause.Error()
	if err := s.MailingRepo.RecordSendFailure(m.ID, cause.Error()); err != nil {
		log.Println("⚠️ failed to record send failure for mailing", m.ID, ":", err)
	}
}

// publishDeliveries hands the per-recipient Telegram sends to the worker.
// Best effort: the dispatch is already durable, a publish failure only
// delays delivery until a manual retry.
func (s *MailingService) publishDeliveries(m *model.Mailing, recipients []model.User) {
	if s.Queue == nil {
		return
	}
	mediaURL := ""
	if m.MediaURL != nil {
		mediaURL = *m.MediaURL
	}
	for _, u := range recipients {
		job := queue.DeliveryJob{
			MailingID: m.ID,
			UserID:    u.ID,
			Text:      m.Text,
			MediaURL:  mediaURL,
			MediaType: m.MediaType,
		}
		if err := s.Queue.Publish(queue.DeliveryQueue, job); err != nil {
			log.Println("⚠️ failed to enqueue delivery for user", u.ID, ":", err)
		}
	}
}

// ====================== Stats ======================

func (s *MailingService) GetStats(id int) (*model.MailingStats, error) {
	if _, err := s.MailingRepo.GetByID(id); err != nil {
		return nil, err
	}
	sent, opened, clicked, err := s.MailingRepo.GetStats(id)
	if err != nil {
		return nil, err
	}
	stats := &model.MailingStats{Sent: sent, Opened: opened, Clicked: clicked}
	if sent > 0 {
		stats.OpenRate = round2(float64(opened) / float64(sent) * 100)
		stats.CTR = round2(float64(clicked) / float64(sent) * 100)
	}
	return stats, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
