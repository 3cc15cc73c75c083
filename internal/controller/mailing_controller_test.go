package controller_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/distroline/botcrm-backend/internal/config"
	"github.com/distroline/botcrm-backend/internal/controller"
	appErrors "github.com/distroline/botcrm-backend/internal/errors"
	"github.com/distroline/botcrm-backend/internal/model"
	"github.com/distroline/botcrm-backend/internal/repository"
	"github.com/distroline/botcrm-backend/internal/service"
)

// --- Mock Repositories ---

type MockUserRepo struct {
	users []model.User
}

func (m *MockUserRepo) ListActive() ([]model.User, error) { return m.users, nil }
func (m *MockUserRepo) GetByID(id int64) (*model.User, error) {
	for i := range m.users {
		if m.users[i].ID == id {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, appErrors.NewUserNotFound(id)
}
func (m *MockUserRepo) Create(u *model.User) error                       { return nil }
func (m *MockUserRepo) Update(u *model.User) error                       { return nil }
func (m *MockUserRepo) SoftDelete(id int64, at time.Time) error          { return nil }
func (m *MockUserRepo) List(repository.UserFilter) ([]model.User, error) { return m.users, nil }
func (m *MockUserRepo) Count() (int, error)                              { return len(m.users), nil }
func (m *MockUserRepo) CountByType(string) (int, error)                  { return 0, nil }
func (m *MockUserRepo) CountRegisteredBetween(s, e time.Time) (int, error) {
	return 0, nil
}

type mockStat struct {
	mailingID int
	userID    int64
}

type MockMailingRepo struct {
	mailings map[int]*model.Mailing
	stats    []mockStat
	nextID   int
}

func newMockMailingRepo() *MockMailingRepo {
	return &MockMailingRepo{mailings: map[int]*model.Mailing{}, nextID: 1}
}

func (m *MockMailingRepo) Create(mm *model.Mailing) error {
	mm.ID = m.nextID
	m.nextID++
	mm.CreatedAt = time.Now().UTC()
	stored := *mm
	m.mailings[mm.ID] = &stored
	return nil
}

func (m *MockMailingRepo) GetByID(id int) (*model.Mailing, error) {
	mm, ok := m.mailings[id]
	if !ok {
		return nil, appErrors.NewMailingNotFound(id)
	}
	cp := *mm
	return &cp, nil
}

func (m *MockMailingRepo) List() ([]model.Mailing, error) {
	out := []model.Mailing{}
	for _, mm := range m.mailings {
		out = append(out, *mm)
	}
	return out, nil
}

func (m *MockMailingRepo) Update(mm *model.Mailing) error {
	if _, ok := m.mailings[mm.ID]; !ok {
		return appErrors.NewMailingNotFound(mm.ID)
	}
	stored := *mm
	m.mailings[mm.ID] = &stored
	return nil
}

func (m *MockMailingRepo) Delete(id int) error {
	if _, ok := m.mailings[id]; !ok {
		return appErrors.NewMailingNotFound(id)
	}
	delete(m.mailings, id)
	return nil
}

func (m *MockMailingRepo) Cancel(id int, at time.Time) error {
	mm, ok := m.mailings[id]
	if !ok {
		return appErrors.NewMailingNotFound(id)
	}
	mm.Status = model.MailingCancelled
	mm.CancelledAt = &at
	return nil
}

func (m *MockMailingRepo) ListDue(now time.Time) ([]model.Mailing, error) {
	return []model.Mailing{}, nil
}

func (m *MockMailingRepo) LastSentAt(targetType string, excludeID int) (*time.Time, error) {
	var last *time.Time
	for _, mm := range m.mailings {
		if mm.ID == excludeID || mm.TargetType != targetType || mm.SentAt == nil {
			continue
		}
		if last == nil || mm.SentAt.After(*last) {
			t := *mm.SentAt
			last = &t
		}
	}
	return last, nil
}

func (m *MockMailingRepo) SaveDispatch(mailingID int, recipientIDs []int64, now time.Time) error {
	mm, ok := m.mailings[mailingID]
	if !ok {
		return appErrors.NewMailingNotFound(mailingID)
	}
	for _, uid := range recipientIDs {
		m.stats = append(m.stats, mockStat{mailingID: mailingID, userID: uid})
	}
	mm.Status = model.MailingSent
	mm.SentAt = &now
	mm.LastError = ""
	mm.SendAttempts++
	return nil
}

func (m *MockMailingRepo) RecordSendFailure(mailingID int, lastError string) error {
	mm, ok := m.mailings[mailingID]
	if !ok {
		return appErrors.NewMailingNotFound(mailingID)
	}
	mm.SendAttempts++
	mm.LastError = lastError
	return nil
}

func (m *MockMailingRepo) GetStats(mailingID int) (sent, opened, clicked int, err error) {
	for _, s := range m.stats {
		if s.mailingID == mailingID {
			sent++
		}
	}
	return sent, 0, 0, nil
}

func (m *MockMailingRepo) Count() (int, error)                          { return len(m.mailings), nil }
func (m *MockMailingRepo) CountCreatedSince(t time.Time) (int, error)   { return len(m.mailings), nil }

var _ repository.MailingRepositoryInterface = (*MockMailingRepo)(nil)
var _ repository.UserRepositoryInterface = (*MockUserRepo)(nil)

// --- Fixtures ---

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestRouter(repo *MockMailingRepo) *chi.Mux {
	svc := &service.MailingService{
		MailingRepo: repo,
		UserRepo: &MockUserRepo{users: []model.User{
			{ID: 101, UserType: model.UserRetail, IsActive: true},
			{ID: 102, UserType: model.UserRetail, IsActive: true},
			{ID: 103, UserType: model.UserRetail, IsActive: true},
		}},
		Cfg: &config.Config{
			SendWindowStartHour:    9,
			SendWindowEndHour:      21,
			MinAudience:            3,
			MailingIntervalMinutes: 60,
		},
		Now: func() time.Time { return testNow },
	}
	ctrl := &controller.MailingController{MailingService: svc}

	r := chi.NewRouter()
	r.Get("/api/mailings", ctrl.ListMailings)
	r.Post("/api/mailings", ctrl.CreateMailing)
	r.Get("/api/mailings/{id}", ctrl.GetMailing)
	r.Put("/api/mailings/{id}", ctrl.UpdateMailing)
	r.Delete("/api/mailings/{id}", ctrl.DeleteMailing)
	r.Post("/api/mailings/{id}/send", ctrl.SendMailing)
	r.Post("/api/mailings/{id}/retry", ctrl.RetryMailing)
	r.Post("/api/mailings/{id}/cancel", ctrl.CancelMailing)
	r.Get("/api/mailings/{id}/stats", ctrl.MailingStats)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// --- Tests ---

func TestCreateMailingHandler(t *testing.T) {
	repo := newMockMailingRepo()
	r := newTestRouter(repo)

	w := doJSON(t, r, "POST", "/api/mailings", map[string]any{
		"text":        "Hello partners",
		"target_type": "all",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var m model.Mailing
	if err := json.NewDecoder(w.Body).Decode(&m); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if m.ID == 0 {
		t.Error("created mailing has no id")
	}
	if m.Status != model.MailingDraft {
		t.Errorf("status = %q, want draft", m.Status)
	}
}

func TestCreateMailingOutsideWindowRejected(t *testing.T) {
	r := newTestRouter(newMockMailingRepo())

	w := doJSON(t, r, "POST", "/api/mailings", map[string]any{
		"text":         "Night owl",
		"target_type":  "all",
		"scheduled_at": "2026-03-11T02:00:00Z",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "outside the allowed window") {
		t.Errorf("error should explain the window, got %q", w.Body.String())
	}
}

func TestGetMailingNotFound(t *testing.T) {
	r := newTestRouter(newMockMailingRepo())

	w := doJSON(t, r, "GET", "/api/mailings/42", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestSendCancelledMailingRejected(t *testing.T) {
	repo := newMockMailingRepo()
	r := newTestRouter(repo)

	m := &model.Mailing{Text: "stale", TargetType: model.TargetAll}
	repo.Create(m)
	repo.Cancel(m.ID, testNow)

	w := doJSON(t, r, "POST", fmt.Sprintf("/api/mailings/%d/send", m.ID), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "cancelled") {
		t.Errorf("got %q", w.Body.String())
	}
}

// Full flow: create a custom mailing for three retail users, send it, check
// the stats endpoint.
func TestSendAndStatsFlow(t *testing.T) {
	repo := newMockMailingRepo()
	r := newTestRouter(repo)

	w := doJSON(t, r, "POST", "/api/mailings", map[string]any{
		"text":           "Promo for the chosen few",
		"target_type":    "custom",
		"custom_targets": []int64{101, 102, 103},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var created model.Mailing
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	w = doJSON(t, r, "POST", fmt.Sprintf("/api/mailings/%d/send", created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("send: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var sendResp struct {
		Message    string `json:"message"`
		Recipients int    `json:"recipients"`
	}
	if err := json.NewDecoder(w.Body).Decode(&sendResp); err != nil {
		t.Fatalf("decode send response: %v", err)
	}
	if sendResp.Message != "sent" || sendResp.Recipients != 3 {
		t.Errorf("send response = %+v, want sent/3", sendResp)
	}

	w = doJSON(t, r, "GET", fmt.Sprintf("/api/mailings/%d/stats", created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var statsResp struct {
		Message string             `json:"message"`
		Data    model.MailingStats `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&statsResp); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if statsResp.Data.Sent != 3 {
		t.Errorf("sent = %d, want 3", statsResp.Data.Sent)
	}
	if statsResp.Data.Opened != 0 || statsResp.Data.Clicked != 0 {
		t.Errorf("fresh mailing should have no opens or clicks, got %+v", statsResp.Data)
	}
	if statsResp.Data.OpenRate != 0 || statsResp.Data.CTR != 0 {
		t.Errorf("rates should be 0, got %+v", statsResp.Data)
	}
}

func TestCancelThenRetryRejected(t *testing.T) {
	repo := newMockMailingRepo()
	r := newTestRouter(repo)

	m := &model.Mailing{Text: "x", TargetType: model.TargetAll}
	repo.Create(m)

	w := doJSON(t, r, "POST", fmt.Sprintf("/api/mailings/%d/cancel", m.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", w.Code)
	}

	w = doJSON(t, r, "POST", fmt.Sprintf("/api/mailings/%d/retry", m.ID), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("retry after cancel: expected 400, got %d: %s", w.Code, w.Body.String())
	}
}
