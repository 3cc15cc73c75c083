// internal/handler/dashboard_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/distroline/botcrm-backend/internal/model"
	"github.com/distroline/botcrm-backend/internal/repository"
)

type DashboardHandler struct {
	UserRepo     repository.UserRepositoryInterface
	MailingRepo  repository.MailingRepositoryInterface
	ActivityRepo repository.ActivityLogRepositoryInterface
}

// Stats returns the headline numbers for the admin dashboard.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	now := timeNowUTC()

	total, err := h.UserRepo.Count()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	horeca, _ := h.UserRepo.CountByType(model.UserHoreca)
	retail, _ := h.UserRepo.CountByType(model.UserRetail)
	newToday, _ := h.UserRepo.CountRegisteredBetween(now.AddDate(0, 0, -1), now.AddDate(0, 0, 1))
	newWeek, _ := h.UserRepo.CountRegisteredBetween(now.AddDate(0, 0, -7), now.AddDate(0, 0, 1))
	newMonth, _ := h.UserRepo.CountRegisteredBetween(now.AddDate(0, 0, -30), now.AddDate(0, 0, 1))

	totalMailings, _ := h.MailingRepo.Count()
	mailingsMonth, _ := h.MailingRepo.CountCreatedSince(now.AddDate(0, 0, -30))

	writeJSON(w, map[string]int{
		"total":          total,
		"horeca":         horeca,
		"retail":         retail,
		"total_mailings": totalMailings,
		"mailings_month": mailingsMonth,
		"new_today":      newToday,
		"new_week":       newWeek,
		"new_month":      newMonth,
	})
}

// UsersChart returns daily registration counts for the last 14 days.
func (h *DashboardHandler) UsersChart(w http.ResponseWriter, r *http.Request) {
	today := timeNowUTC().Truncate(24 * time.Hour)

	points := []map[string]any{}
	for offset := 13; offset >= 0; offset-- {
		dayStart := today.AddDate(0, 0, -offset)
		dayEnd := dayStart.AddDate(0, 0, 1)
		count, err := h.UserRepo.CountRegisteredBetween(dayStart, dayEnd)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		points = append(points, map[string]any{
			"date":  dayStart.Format("2006-01-02"),
			"count": count,
		})
	}

	horeca, _ := h.UserRepo.CountByType(model.UserHoreca)
	retail, _ := h.UserRepo.CountByType(model.UserRetail)

	writeJSON(w, map[string]any{
		"message": "ok",
		"data": map[string]any{
			"horeca":       horeca,
			"retail":       retail,
			"daily_growth": points,
		},
	})
}

// Activity returns the most recent admin actions.
func (h *DashboardHandler) Activity(w http.ResponseWriter, r *http.Request) {
	rows, err := h.ActivityRepo.Recent(20)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"message": "ok",
		"data":    map[string]any{"items": rows},
	})
}
