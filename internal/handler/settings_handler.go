// internal/handler/settings_handler.go
package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/distroline/botcrm-backend/internal/auth"
	"github.com/distroline/botcrm-backend/internal/model"
	"github.com/distroline/botcrm-backend/internal/repository"
)

type SettingsHandler struct {
	SettingRepo  repository.SettingRepositoryInterface
	ActivityRepo repository.ActivityLogRepositoryInterface
}

func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.SettingRepo.All()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"message": "ok",
		"data":    settings,
	})
}

func (h *SettingsHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Items []model.SystemSetting `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := h.SettingRepo.Put(body.Items); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if h.ActivityRepo != nil {
		var adminID *int
		if claims := auth.FromContext(r.Context()); claims != nil && claims.AdminID != 0 {
			adminID = &claims.AdminID
		}
		if err := h.ActivityRepo.Record(adminID, "update_settings", fmt.Sprintf("count=%d", len(body.Items)), r.RemoteAddr); err != nil {
			log.Println("⚠️ failed to write activity log:", err)
		}
	}

	writeJSON(w, map[string]string{"message": "saved"})
}
