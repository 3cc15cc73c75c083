// internal/handler/user_handler.go
package handler

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/distroline/botcrm-backend/internal/auth"
	appErrors "github.com/distroline/botcrm-backend/internal/errors"
	"github.com/distroline/botcrm-backend/internal/model"
	"github.com/distroline/botcrm-backend/internal/repository"
)

type UserHandler struct {
	UserRepo     repository.UserRepositoryInterface
	ActivityRepo repository.ActivityLogRepositoryInterface
}

func (h *UserHandler) logAction(r *http.Request, action, details string) {
	if h.ActivityRepo == nil {
		return
	}
	var adminID *int
	if claims := auth.FromContext(r.Context()); claims != nil && claims.AdminID != 0 {
		adminID = &claims.AdminID
	}
	if err := h.ActivityRepo.Record(adminID, action, details, r.RemoteAddr); err != nil {
		log.Println("⚠️ failed to write activity log:", err)
	}
}

func writeUserError(w http.ResponseWriter, err error) {
	var notFound *appErrors.ErrUserNotFound
	if errors.As(err, &notFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func userID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var u model.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if u.ID == 0 {
		http.Error(w, "id (telegram user id) is required", http.StatusBadRequest)
		return
	}
	if u.UserType != model.UserHoreca && u.UserType != model.UserRetail {
		http.Error(w, "user_type must be horeca or retail", http.StatusBadRequest)
		return
	}

	if err := h.UserRepo.Create(&u); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.logAction(r, "create_user", fmt.Sprintf("user=%d", u.ID))
	writeJSON(w, u)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	filter := repository.UserFilter{
		UserType:       r.URL.Query().Get("user_type"),
		Search:         r.URL.Query().Get("search"),
		IncludeDeleted: r.URL.Query().Get("include_deleted") == "true",
		ActivityState:  r.URL.Query().Get("activity_state"),
	}
	switch filter.ActivityState {
	case "", "active", "stale", "inactive":
	default:
		http.Error(w, "activity_state must be active, stale or inactive", http.StatusBadRequest)
		return
	}

	users, err := h.UserRepo.List(filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	u, err := h.UserRepo.GetByID(id)
	if err != nil {
		writeUserError(w, err)
		return
	}
	writeJSON(w, u)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	u, err := h.UserRepo.GetByID(id)
	if err != nil {
		writeUserError(w, err)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(u); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	u.ID = id // the path wins over the body

	if err := h.UserRepo.Update(u); err != nil {
		writeUserError(w, err)
		return
	}
	h.logAction(r, "update_user", fmt.Sprintf("user=%d", id))
	writeJSON(w, u)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	if err := h.UserRepo.SoftDelete(id, timeNowUTC()); err != nil {
		writeUserError(w, err)
		return
	}
	h.logAction(r, "delete_user", fmt.Sprintf("user=%d", id))
	writeJSON(w, map[string]string{"message": "deleted"})
}

// ExportUsers streams the filtered user list as CSV.
func (h *UserHandler) ExportUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserRepo.List(repository.UserFilter{})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="users.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"id", "username", "user_type", "establishment", "phone_number", "full_name", "registered_at"})
	for _, u := range users {
		cw.Write([]string{
			strconv.FormatInt(u.ID, 10),
			u.Username,
			u.UserType,
			u.Establishment,
			u.PhoneNumber,
			u.FullName,
			u.RegisteredAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	cw.Flush()
}
