package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"attendmark/internal/attendance"
	"attendmark/internal/session"
	"attendmark/internal/user"
)

type memUserStore struct {
	users []user.User
}

func (s *memUserStore) Create(_ context.Context, u user.User) error {
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return user.ErrDuplicateUser
		}
	}
	s.users = append(s.users, u)
	return nil
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for i := range s.users {
		if s.users[i].Email == email {
			return &s.users[i], nil
		}
	}
	return nil, nil
}

func (s *memUserStore) GetByID(_ context.Context, id string) (*user.User, error) {
	for i := range s.users {
		if s.users[i].ID == id {
			return &s.users[i], nil
		}
	}
	return nil, nil
}

func (s *memUserStore) Email(ctx context.Context, id string) (string, bool, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil || u == nil {
		return "", false, err
	}
	return u.Email, true, nil
}

type memRecordStore struct {
	records []attendance.Record
}

func (s *memRecordStore) Insert(_ context.Context, rec attendance.Record) (attendance.Record, bool, error) {
	for _, existing := range s.records {
		if existing.UserID == rec.UserID && existing.Date == rec.Date {
			return existing, false, nil
		}
	}
	s.records = append(s.records, rec)
	return rec, true, nil
}

func (s *memRecordStore) GetByUserAndDate(_ context.Context, userID, date string) (*attendance.Record, error) {
	for i := range s.records {
		if s.records[i].UserID == userID && s.records[i].Date == date {
			return &s.records[i], nil
		}
	}
	return nil, nil
}

func (s *memRecordStore) ListByDate(_ context.Context, date string) ([]attendance.Record, error) {
	var res []attendance.Record
	for _, rec := range s.records {
		if rec.Date == date {
			res = append(res, rec)
		}
	}
	return res, nil
}

var testNow = time.Date(2026, 3, 9, 10, 30, 0, 0, time.UTC)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	userStore := &memUserStore{}
	recStore := &memRecordStore{}
	sessions := session.NewMemory()

	n := 0
	newID := func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}

	userSvc := user.NewService(userStore, 4, newID)
	attSvc := attendance.NewService(recStore, sessions, userStore, newID, func() time.Time { return testNow }, time.UTC)

	h := New(userSvc, attSvc, sessions, "attendmark", "test-secret", time.Minute)
	r := gin.New()
	h.Register(r)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return m
}

func TestHealthRoot(t *testing.T) {
	r := newTestServer(t)
	w := do(t, r, http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Running Successfully") {
		t.Fatalf("unexpected health body: %q", w.Body.String())
	}
}

func TestStartSession(t *testing.T) {
	r := newTestServer(t)

	w := do(t, r, http.MethodPost, "/api/attendance/start", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing qrCode: expected 400, got %d", w.Code)
	}
	if decode(t, w)["message"] != "QR code is required" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/api/attendance/start", `{"qrCode":"abc123"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["qrCode"] != "abc123" || resp["message"] != "Attendance session started" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestMarkAttendanceFlow(t *testing.T) {
	r := newTestServer(t)

	w := do(t, r, http.MethodPost, "/api/attendance/mark", `{"userId":"u1","scannedCode":"abc"}`)
	if w.Code != http.StatusBadRequest || decode(t, w)["message"] != "No active attendance session" {
		t.Fatalf("no session: got %d %s", w.Code, w.Body.String())
	}

	do(t, r, http.MethodPost, "/api/attendance/start", `{"qrCode":"abc"}`)

	w = do(t, r, http.MethodPost, "/api/attendance/mark", `{"userId":"u1","scannedCode":"wrong"}`)
	if w.Code != http.StatusBadRequest || decode(t, w)["message"] != "Invalid or expired QR code" {
		t.Fatalf("wrong code: got %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/api/attendance/mark", `{"userId":"u1","scannedCode":"abc"}`)
	if w.Code != http.StatusOK || decode(t, w)["message"] != "Attendance marked successfully!" {
		t.Fatalf("mark: got %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/api/attendance/mark", `{"userId":"u1","scannedCode":"abc"}`)
	if w.Code != http.StatusOK || decode(t, w)["message"] != "Already marked present for today" {
		t.Fatalf("repeat mark: got %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/api/attendance/stop", "")
	if w.Code != http.StatusOK || decode(t, w)["message"] != "Attendance session stopped" {
		t.Fatalf("stop: got %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/api/attendance/mark", `{"userId":"u2","scannedCode":"abc"}`)
	if w.Code != http.StatusBadRequest || decode(t, w)["message"] != "No active attendance session" {
		t.Fatalf("mark after stop: got %d %s", w.Code, w.Body.String())
	}
}

func TestGetAttendanceByUserAndDate(t *testing.T) {
	r := newTestServer(t)
	do(t, r, http.MethodPost, "/api/attendance/start", `{"qrCode":"abc"}`)
	do(t, r, http.MethodPost, "/api/attendance/mark", `{"userId":"u1","scannedCode":"abc"}`)

	w := do(t, r, http.MethodGet, "/api/attendance/u1/2026-03-09", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	data, ok := resp["data"].(map[string]any)
	if !ok || data["userId"] != "u1" || data["status"] != "Present" {
		t.Fatalf("unexpected record payload: %s", w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/attendance/u1/2026-03-10", "")
	if w.Code != http.StatusNotFound || decode(t, w)["message"] != "No record found for this date" {
		t.Fatalf("missing record: got %d %s", w.Code, w.Body.String())
	}
}

func TestGetAllByDate_LiteralAllTakesPrecedence(t *testing.T) {
	r := newTestServer(t)

	reg := do(t, r, http.MethodPost, "/api/auth/register", `{"email":"a@x.com","password":"p","role":"student"}`)
	userID := decode(t, reg)["user"].(map[string]any)["id"].(string)

	do(t, r, http.MethodPost, "/api/attendance/start", `{"qrCode":"abc"}`)
	do(t, r, http.MethodPost, "/api/attendance/mark", fmt.Sprintf(`{"userId":%q,"scannedCode":"abc"}`, userID))
	do(t, r, http.MethodPost, "/api/attendance/mark", `{"userId":"ghost","scannedCode":"abc"}`)

	w := do(t, r, http.MethodGet, "/api/attendance/all/2026-03-09", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	entries, ok := resp["data"].([]any)
	if !ok || len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %s", w.Body.String())
	}
	first := entries[0].(map[string]any)
	second := entries[1].(map[string]any)
	if first["email"] != "a@x.com" {
		t.Fatalf("expected resolved email, got %v", first["email"])
	}
	if second["email"] != "Unknown" {
		t.Fatalf("expected Unknown fallback, got %v", second["email"])
	}
}

func TestGetAllByDate_EmptyDayIs404(t *testing.T) {
	r := newTestServer(t)
	w := do(t, r, http.MethodGet, "/api/attendance/all/2026-03-09", "")
	if w.Code != http.StatusNotFound || decode(t, w)["message"] != "No records found for this date" {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestRegister(t *testing.T) {
	r := newTestServer(t)

	w := do(t, r, http.MethodPost, "/api/auth/register", `{"email":"a@x.com","password":"p"}`)
	if w.Code != http.StatusBadRequest || decode(t, w)["message"] != "All fields are required" {
		t.Fatalf("missing role: got %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/api/auth/register", `{"email":"a@x.com","password":"p","role":"student"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	u := decode(t, w)["user"].(map[string]any)
	if u["email"] != "a@x.com" || u["role"] != "student" || u["id"] == "" {
		t.Fatalf("unexpected user payload: %s", w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/api/auth/register", `{"email":"a@x.com","password":"p2","role":"teacher"}`)
	if w.Code != http.StatusBadRequest || decode(t, w)["message"] != "User already exists" {
		t.Fatalf("duplicate: got %d %s", w.Code, w.Body.String())
	}
}

func TestLoginAndMe(t *testing.T) {
	r := newTestServer(t)
	do(t, r, http.MethodPost, "/api/auth/register", `{"email":"a@x.com","password":"p","role":"teacher"}`)

	w := do(t, r, http.MethodPost, "/api/auth/login", `{"email":"nobody@x.com","password":"p"}`)
	if w.Code != http.StatusBadRequest || decode(t, w)["message"] != "User not found" {
		t.Fatalf("unknown user: got %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized || decode(t, w)["message"] != "Invalid password" {
		t.Fatalf("bad password: got %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"p"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login: got %d %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatalf("expected a token in login response: %s", w.Body.String())
	}
	if resp["user"].(map[string]any)["role"] != "teacher" {
		t.Fatalf("expected stored role back: %s", w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/auth/me", "", "Authorization", "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("me: got %d %s", w.Code, w.Body.String())
	}
	if decode(t, w)["user"].(map[string]any)["email"] != "a@x.com" {
		t.Fatalf("unexpected me payload: %s", w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/auth/me", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("me without token: expected 401, got %d", w.Code)
	}
}
