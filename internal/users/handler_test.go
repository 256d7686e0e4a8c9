package users_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/snowfall-guild/guilddesk/internal/rbac"
	"github.com/snowfall-guild/guilddesk/internal/shared"
	"github.com/snowfall-guild/guilddesk/internal/users"
	_ "github.com/snowfall-guild/guilddesk/testing"
)

// withSessionUser fakes the session layer with a signed-in user ID.
func withSessionUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := &shared.Session{ID: "test"}
			sess.SetUser(userID)
			next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
		})
	}
}

// fixedPrincipal resolves every request to the same principal, standing in
// for the session layer.
type fixedPrincipal struct {
	role  rbac.Role
	perms []rbac.Permission
}

func (f fixedPrincipal) PrincipalRole() rbac.Role             { return f.role }
func (f fixedPrincipal) DirectPermissions() []rbac.Permission { return f.perms }
func (f fixedPrincipal) PermissionGroups() []rbac.Group       { return nil }

func newUsersRouter(t *testing.T, actor rbac.Principal) (chi.Router, *users.Directory) {
	t.Helper()
	directory := users.NewDirectory()
	mw := rbac.Middleware{
		Resolve: func(ctx context.Context, userID string) (rbac.Principal, bool) {
			if actor == nil {
				return nil, false
			}
			return actor, true
		},
	}
	handler := users.NewHandler(nil, directory, mw)
	r := chi.NewRouter()
	r.Use(withSessionUser("actor-id"))
	r.Route("/users", handler.MountRoutes)
	return r, directory
}

func TestListUsers(t *testing.T) {
	router, directory := newUsersRouter(t, fixedPrincipal{role: rbac.RoleSuperAdmin})
	if _, err := directory.Create(context.Background(), users.CreateParams{Username: "karin", Role: rbac.RoleUser}); err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/users/", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	var payload struct {
		Users []users.User `json:"users"`
		Total int          `json:"total"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload.Total != 2 || len(payload.Users) != 2 {
		t.Fatalf("expected seeded admin plus created user, got %d", payload.Total)
	}
	if strings.Contains(res.Body.String(), "PasswordHash") || strings.Contains(res.Body.String(), "passwordHash") {
		t.Fatalf("password hash leaked into the listing")
	}
}

func TestCreateUser(t *testing.T) {
	router, directory := newUsersRouter(t, fixedPrincipal{role: rbac.RoleAdmin, perms: rbac.PermissionsForRole(rbac.RoleAdmin)})

	body := `{"username":"karin","email":"karin@example.com","role":"moderator"}`
	req := httptest.NewRequest(http.MethodPost, "/users/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", res.Code, res.Body.String())
	}
	var created users.User
	if err := json.Unmarshal(res.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if created.Role != rbac.RoleModerator {
		t.Fatalf("expected moderator role, got %q", created.Role)
	}
	if !created.DefaultPassword {
		t.Fatalf("new accounts start on the default credential")
	}
	if _, ok := directory.FindByUsername(context.Background(), "karin"); !ok {
		t.Fatalf("user missing from directory")
	}
}

func TestCreateUserValidation(t *testing.T) {
	router, _ := newUsersRouter(t, fixedPrincipal{role: rbac.RoleSuperAdmin})

	body := `{"username":"k","role":"overlord"}`
	req := httptest.NewRequest(http.MethodPost, "/users/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", res.Code)
	}
	var payload struct {
		Errors map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if _, ok := payload.Errors["Username"]; !ok {
		t.Fatalf("expected username error, got %v", payload.Errors)
	}
	if _, ok := payload.Errors["Role"]; !ok {
		t.Fatalf("expected role error, got %v", payload.Errors)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	router, directory := newUsersRouter(t, fixedPrincipal{role: rbac.RoleSuperAdmin})
	if _, err := directory.Create(context.Background(), users.CreateParams{Username: "karin", Role: rbac.RoleUser}); err != nil {
		t.Fatalf("create: %v", err)
	}

	body := `{"username":"karin","role":"user"}`
	req := httptest.NewRequest(http.MethodPost, "/users/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", res.Code)
	}
}

func TestUsersForbiddenWithoutPermission(t *testing.T) {
	router, _ := newUsersRouter(t, fixedPrincipal{role: rbac.RoleUser, perms: rbac.PermissionsForRole(rbac.RoleUser)})

	req := httptest.NewRequest(http.MethodGet, "/users/", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", res.Code)
	}

	del := httptest.NewRequest(http.MethodDelete, "/users/some-id", nil)
	delRes := httptest.NewRecorder()
	router.ServeHTTP(delRes, del)
	if delRes.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", delRes.Code)
	}
}

func TestResetPassword(t *testing.T) {
	router, directory := newUsersRouter(t, fixedPrincipal{role: rbac.RoleSuperAdmin})
	ctx := context.Background()

	created, err := directory.Create(ctx, users.CreateParams{Username: "karin", Role: rbac.RoleUser})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	directory.SetPassword(ctx, created.ID, "hash")

	req := httptest.NewRequest(http.MethodPost, "/users/"+created.ID+"/reset-password", strings.NewReader(`{"newPassword":"whatever"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	user, ok := directory.FindByID(ctx, created.ID)
	if !ok {
		t.Fatalf("user missing")
	}
	if !user.DefaultPassword || !user.RequirePasswordChange || user.PasswordHash != "" {
		t.Fatalf("expected account back on the default credential, got %+v", user)
	}
}

func TestDeleteUser(t *testing.T) {
	router, directory := newUsersRouter(t, fixedPrincipal{role: rbac.RoleSuperAdmin})
	ctx := context.Background()

	created, err := directory.Create(ctx, users.CreateParams{Username: "karin", Role: rbac.RoleUser})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/users/"+created.ID, nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}

	missing := httptest.NewRequest(http.MethodDelete, "/users/"+created.ID, nil)
	missingRes := httptest.NewRecorder()
	router.ServeHTTP(missingRes, missing)
	if missingRes.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", missingRes.Code)
	}
}
