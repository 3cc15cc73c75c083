// internal/service/poller.go
package service

import (
	"context"
	"log"
	"time"

	"github.com/distroline/botcrm-backend/internal/model"
)

// Poller promotes due scheduled mailings to sent on a fixed interval.
type Poller struct {
	Service  *MailingService
	Interval time.Duration
}

func NewPoller(svc *MailingService, interval time.Duration) *Poller {
	return &Poller{Service: svc, Interval: interval}
}

// Start runs the scan loop until the context is cancelled. Cancellation
// lands between cycles, never mid-dispatch.
func (p *Poller) Start(ctx context.Context) {
	log.Println("🕐 Mailing poller running, interval:", p.Interval)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Mailing poller stopping")
			return
		case <-ticker.C:
			if _, err := p.Service.ProcessDueMailings(); err != nil {
				log.Println("⚠️ poller scan failed:", err)
			}
		}
	}
}

// ProcessDueMailings dispatches every scheduled mailing whose time has
// arrived. Failures are isolated per mailing: a guard rejection or a
// dispatch error is logged and the loop moves on, leaving the mailing
// scheduled for a later cycle. The returned count is attempts, not
// successes.
func (s *MailingService) ProcessDueMailings() (int, error) {
	due, err := s.MailingRepo.ListDue(s.now())
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range due {
		m := &due[i]
		// Re-checked per item in case of a concurrent cancel.
		if m.Status == model.MailingCancelled {
			continue
		}
		if err := s.Validate(m); err != nil {
			log.Println("⚠️ scheduled mailing", m.ID, "not sendable yet:", err)
			processed++
			continue
		}
		if _, err := s.Dispatch(m); err != nil {
			log.Println("⚠️ scheduled mailing", m.ID, "dispatch failed:", err)
		}
		processed++
	}
	return processed, nil
}
