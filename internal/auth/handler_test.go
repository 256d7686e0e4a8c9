package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/snowfall-guild/guilddesk/internal/auth"
	"github.com/snowfall-guild/guilddesk/internal/shared"
	"github.com/snowfall-guild/guilddesk/internal/users"
	_ "github.com/snowfall-guild/guilddesk/testing"
)

// commitWriter flushes the session to the store and sets the cookie before
// the first header write, mirroring the production middleware.
type commitWriter struct {
	http.ResponseWriter
	sess          *shared.Session
	manager       *shared.SessionManager
	ctx           context.Context
	req           *http.Request
	headerWritten bool
}

func (w *commitWriter) WriteHeader(statusCode int) {
	if !w.headerWritten {
		w.headerWritten = true
		_ = w.manager.Commit(w.ctx, w.ResponseWriter, w.req, w.sess)
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *commitWriter) Write(data []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

func newAuthRouter(t *testing.T) (chi.Router, *shared.SessionManager, *users.Directory) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	directory := users.NewDirectory()
	service := auth.NewService(directory, auth.NewLockout())
	handler := auth.NewHandler(nil, service, directory, sessionManager, csrfManager, nil)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessionManager.Load(req.Context(), req)
			if err != nil {
				t.Fatalf("load session: %v", err)
			}
			ctx := shared.ContextWithSession(req.Context(), sess)
			wrapped := &commitWriter{
				ResponseWriter: w,
				sess:           sess,
				manager:        sessionManager,
				ctx:            ctx,
				req:            req.WithContext(ctx),
			}
			next.ServeHTTP(wrapped, req.WithContext(ctx))
		})
	})
	r.Route("/auth", handler.MountRoutes)
	return r, sessionManager, directory
}

func TestShowSessionHandsOutCSRFToken(t *testing.T) {
	router, _, _ := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	var payload struct {
		Authenticated bool   `json:"authenticated"`
		CSRFToken     string `json:"csrfToken"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload.Authenticated {
		t.Fatalf("expected anonymous session")
	}
	if payload.CSRFToken == "" {
		t.Fatalf("expected csrf token in payload")
	}
}

func TestLoginSuperAdmin(t *testing.T) {
	router, _, _ := newAuthRouter(t)

	body := `{"username":"admin","password":"admin123","twoFactorCode":"oscar4471"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", res.Code, res.Body.String())
	}
	var payload struct {
		Success               bool `json:"success"`
		RequirePasswordChange bool `json:"requirePasswordChange"`
		User                  struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !payload.Success {
		t.Fatalf("expected success response")
	}
	if payload.User.Role != "super_admin" {
		t.Fatalf("expected super_admin role, got %q", payload.User.Role)
	}
	if !payload.RequirePasswordChange {
		t.Fatalf("expected forced password change on bootstrap credentials")
	}
	if len(res.Result().Cookies()) == 0 {
		t.Fatalf("expected session cookie")
	}
}

func TestLoginWrongCodeReportsAttempts(t *testing.T) {
	router, _, _ := newAuthRouter(t)

	body := `{"username":"admin","password":"admin123","twoFactorCode":"nope"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", res.Code)
	}
	var payload struct {
		AttemptsRemaining int `json:"attemptsRemaining"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload.AttemptsRemaining != 4 {
		t.Fatalf("expected 4 attempts remaining, got %d", payload.AttemptsRemaining)
	}
}

func TestLoginSuperAdminWithoutCode(t *testing.T) {
	router, _, _ := newAuthRouter(t)

	body := `{"username":"admin","password":"admin123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", res.Code)
	}
}

func TestLoginValidation(t *testing.T) {
	router, _, _ := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"admin"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", res.Code)
	}
}

func TestPasswordStrengthEndpoint(t *testing.T) {
	router, _, _ := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/password/strength", strings.NewReader(`{"password":"Passw0rd!"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	var payload struct {
		Score   int  `json:"score"`
		IsValid bool `json:"isValid"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !payload.IsValid || payload.Score != 4 {
		t.Fatalf("expected a valid strong password, got %+v", payload)
	}
}

func TestChangePasswordRequiresLogin(t *testing.T) {
	router, _, _ := newAuthRouter(t)

	body := `{"currentPassword":"admin123","newPassword":"Str0ng!pass","confirmPassword":"Str0ng!pass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/password", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", res.Code)
	}
}

func TestChangePasswordFlow(t *testing.T) {
	router, _, directory := newAuthRouter(t)
	ctx := context.Background()

	created, err := directory.Create(ctx, users.CreateParams{Username: "karin", Role: "user"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	// Sign in with the default credential to obtain a session cookie.
	loginReq := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"karin","password":"admin123"}`))
	loginReq.Header.Set("Content-Type", "application/json")
	loginRes := httptest.NewRecorder()
	router.ServeHTTP(loginRes, loginReq)
	if loginRes.Code != http.StatusOK {
		t.Fatalf("login: expected status 200, got %d: %s", loginRes.Code, loginRes.Body.String())
	}
	cookies := loginRes.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected session cookie from login")
	}

	body := `{"currentPassword":"admin123","newPassword":"Str0ng!pass","confirmPassword":"Str0ng!pass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/password", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("change password: expected status 200, got %d: %s", res.Code, res.Body.String())
	}

	updated, ok := directory.FindByID(ctx, created.ID)
	if !ok {
		t.Fatalf("user disappeared")
	}
	if updated.DefaultPassword || updated.RequirePasswordChange {
		t.Fatalf("expected default-credential flags cleared, got %+v", updated)
	}
}
