// internal/handler/auth_handler.go
package handler

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/distroline/botcrm-backend/internal/auth"
	"github.com/distroline/botcrm-backend/internal/repository"
)

type AuthHandler struct {
	AdminRepo    repository.AdminRepositoryInterface
	ActivityRepo repository.ActivityLogRepositoryInterface
	Tokens       *auth.TokenManager
	Limiter      *auth.LoginLimiter // optional
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *AuthHandler) record(adminID *int, action, details, ip string) {
	if h.ActivityRepo == nil {
		return
	}
	if err := h.ActivityRepo.Record(adminID, action, details, ip); err != nil {
		log.Println("⚠️ failed to write activity log:", err)
	}
}

// Login checks credentials and returns a bearer token. Attempts are rate
// limited per client IP.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Identifier string `json:"identifier"`
		Username   string `json:"username"`
		Email      string `json:"email"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	ip := clientIP(r)
	if h.Limiter != nil {
		ok, err := h.Limiter.Allow(r.Context(), ip)
		if err != nil {
			log.Println("⚠️ login limiter unavailable:", err)
		}
		if !ok {
			h.record(nil, "login_blocked", "ip="+ip, ip)
			http.Error(w, "too many login attempts", http.StatusTooManyRequests)
			return
		}
	}

	identifier := strings.TrimSpace(body.Identifier)
	if identifier == "" {
		identifier = strings.TrimSpace(body.Username)
	}
	if identifier == "" {
		identifier = strings.TrimSpace(body.Email)
	}
	if identifier == "" {
		http.Error(w, "identifier is required", http.StatusUnprocessableEntity)
		return
	}

	admin, err := h.AdminRepo.GetByIdentifier(identifier)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if admin == nil || !admin.IsActive ||
		bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(body.Password)) != nil {
		h.record(nil, "login_failed", "identifier="+identifier, ip)
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.Tokens.Issue(admin.ID, admin.Username, admin.Role)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	now := timeNowUTC()
	if err := h.AdminRepo.TouchLastLogin(admin.ID, now); err != nil {
		log.Println("⚠️ failed to update last_login:", err)
	}
	h.record(&admin.ID, "login", "Admin login", ip)

	writeJSON(w, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.FromContext(r.Context())
	if claims == nil {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]any{
		"message": "ok",
		"data": map[string]string{
			"username": claims.Username,
			"role":     claims.Role,
		},
	})
}
