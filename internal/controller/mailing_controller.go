// internal/controller/mailing_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/distroline/botcrm-backend/internal/auth"
	appErrors "github.com/distroline/botcrm-backend/internal/errors"
	"github.com/distroline/botcrm-backend/internal/repository"
	"github.com/distroline/botcrm-backend/internal/service"
)

type MailingController struct {
	MailingService *service.MailingService
	ActivityRepo   repository.ActivityLogRepositoryInterface // optional
}

func (c *MailingController) logAction(r *http.Request, action, details string) {
	if c.ActivityRepo == nil {
		return
	}
	var adminID *int
	if claims := auth.FromContext(r.Context()); claims != nil && claims.AdminID != 0 {
		adminID = &claims.AdminID
	}
	if err := c.ActivityRepo.Record(adminID, action, details, r.RemoteAddr); err != nil {
		log.Println("⚠️ failed to write activity log:", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeServiceError maps service errors onto HTTP statuses: guard
// rejections and terminal-state errors are 400, missing mailings 404.
func writeServiceError(w http.ResponseWriter, err error) {
	var notFound *appErrors.ErrMailingNotFound
	var userNotFound *appErrors.ErrUserNotFound
	var validation *appErrors.ValidationError
	var cancelled *appErrors.ErrMailingCancelled

	switch {
	case errors.As(err, &notFound), errors.As(err, &userNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &validation), errors.As(err, &cancelled):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func mailingID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

func (c *MailingController) ListMailings(w http.ResponseWriter, r *http.Request) {
	mailings, err := c.MailingService.MailingRepo.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, mailings)
}

func (c *MailingController) GetMailing(w http.ResponseWriter, r *http.Request) {
	id, err := mailingID(r)
	if err != nil {
		http.Error(w, "invalid mailing id", http.StatusBadRequest)
		return
	}
	m, err := c.MailingService.MailingRepo.GetByID(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, m)
}

func (c *MailingController) CreateMailing(w http.ResponseWriter, r *http.Request) {
	var body service.MailingInput
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	m, err := c.MailingService.CreateMailing(body)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	c.logAction(r, "create_mailing", fmt.Sprintf("mailing=%d", m.ID))
	writeJSON(w, m)
}

func (c *MailingController) UpdateMailing(w http.ResponseWriter, r *http.Request) {
	id, err := mailingID(r)
	if err != nil {
		http.Error(w, "invalid mailing id", http.StatusBadRequest)
		return
	}
	var body service.MailingUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	m, err := c.MailingService.UpdateMailing(id, body)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	c.logAction(r, "update_mailing", fmt.Sprintf("mailing=%d", id))
	writeJSON(w, m)
}

func (c *MailingController) DeleteMailing(w http.ResponseWriter, r *http.Request) {
	id, err := mailingID(r)
	if err != nil {
		http.Error(w, "invalid mailing id", http.StatusBadRequest)
		return
	}
	if err := c.MailingService.MailingRepo.Delete(id); err != nil {
		writeServiceError(w, err)
		return
	}
	c.logAction(r, "delete_mailing", fmt.Sprintf("mailing=%d", id))
	writeJSON(w, map[string]string{"message": "deleted"})
}

func (c *MailingController) SendMailing(w http.ResponseWriter, r *http.Request) {
	id, err := mailingID(r)
	if err != nil {
		http.Error(w, "invalid mailing id", http.StatusBadRequest)
		return
	}

	recipients, err := c.MailingService.SendMailing(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	c.logAction(r, "send_mailing", fmt.Sprintf("mailing=%d, count=%d", id, recipients))
	writeJSON(w, map[string]any{
		"message":    "sent",
		"recipients": recipients,
	})
}

func (c *MailingController) RetryMailing(w http.ResponseWriter, r *http.Request) {
	id, err := mailingID(r)
	if err != nil {
		http.Error(w, "invalid mailing id", http.StatusBadRequest)
		return
	}

	recipients, err := c.MailingService.RetryMailing(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	c.logAction(r, "retry_mailing", fmt.Sprintf("mailing=%d, count=%d", id, recipients))
	writeJSON(w, map[string]any{
		"message":    "retried",
		"recipients": recipients,
	})
}

func (c *MailingController) CancelMailing(w http.ResponseWriter, r *http.Request) {
	id, err := mailingID(r)
	if err != nil {
		http.Error(w, "invalid mailing id", http.StatusBadRequest)
		return
	}

	if _, err := c.MailingService.CancelMailing(id); err != nil {
		writeServiceError(w, err)
		return
	}

	c.logAction(r, "cancel_mailing", fmt.Sprintf("mailing=%d", id))
	writeJSON(w, map[string]string{"message": "cancelled"})
}

func (c *MailingController) PreviewMailing(w http.ResponseWriter, r *http.Request) {
	id, err := mailingID(r)
	if err != nil {
		http.Error(w, "invalid mailing id", http.StatusBadRequest)
		return
	}
	m, err := c.MailingService.MailingRepo.GetByID(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"message": "preview",
		"data": map[string]any{
			"text":  m.Text,
			"media": m.MediaURL,
		},
	})
}

// TestSendMailing only records the intent; actual test delivery goes
// through the operator's own Telegram chat, outside this API.
func (c *MailingController) TestSendMailing(w http.ResponseWriter, r *http.Request) {
	id, err := mailingID(r)
	if err != nil {
		http.Error(w, "invalid mailing id", http.StatusBadRequest)
		return
	}
	if _, err := c.MailingService.MailingRepo.GetByID(id); err != nil {
		writeServiceError(w, err)
		return
	}
	c.logAction(r, "test_send_mailing", fmt.Sprintf("mailing=%d", id))
	writeJSON(w, map[string]any{
		"message": "test_sent",
		"data":    map[string]int{"mailing_id": id},
	})
}

func (c *MailingController) MailingStats(w http.ResponseWriter, r *http.Request) {
	id, err := mailingID(r)
	if err != nil {
		http.Error(w, "invalid mailing id", http.StatusBadRequest)
		return
	}

	stats, err := c.MailingService.GetStats(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"message": "ok",
		"data":    stats,
	})
}
