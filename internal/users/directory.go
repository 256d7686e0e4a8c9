package users

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/snowfall-guild/guilddesk/internal/rbac"
)

// Bootstrap super-admin identity seeded into every directory.
const (
	BootstrapUsername = "admin"
	BootstrapEmail    = "admin@snowfall-guild.com"
)

// ErrUsernameTaken indicates a create with an already registered username.
var ErrUsernameTaken = errors.New("users: username already taken")

// Directory is the process-wide account store. All mutation goes through
// the mutex so the directory stays safe under concurrent request handlers.
type Directory struct {
	mu    sync.Mutex
	users []*User
	now   func() time.Time
}

// NewDirectory constructs a directory seeded with the bootstrap super admin.
func NewDirectory() *Directory {
	d := &Directory{now: time.Now}
	created := d.now().UTC()
	d.users = append(d.users, &User{
		ID:                    uuid.NewString(),
		Username:              BootstrapUsername,
		Email:                 BootstrapEmail,
		Role:                  rbac.RoleSuperAdmin,
		Groups:                []rbac.Group{},
		Permissions:           rbac.AllPermissions(),
		DefaultPassword:       true,
		RequirePasswordChange: true,
		CreatedAt:             created,
		UpdatedAt:             created,
	})
	return d
}

// SetClock overrides the directory clock. Intended for tests.
func (d *Directory) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

// CreateParams carries the fields for a new account.
type CreateParams struct {
	Username    string
	Email       string
	Role        rbac.Role
	Groups      []rbac.Group
	Permissions []rbac.Permission
	CreatedBy   string
}

// Create registers a new account. The role's default permission set is
// applied when no direct permissions are given.
func (d *Directory) Create(ctx context.Context, params CreateParams) (*User, error) {
	username := strings.TrimSpace(params.Username)
	if username == "" {
		return nil, errors.New("users: username required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Username == username {
			return nil, ErrUsernameTaken
		}
	}
	perms := params.Permissions
	if perms == nil {
		perms = rbac.PermissionsForRole(params.Role)
	}
	groups := params.Groups
	if groups == nil {
		groups = []rbac.Group{}
	}
	now := d.now().UTC()
	user := &User{
		ID:                    uuid.NewString(),
		Username:              username,
		Email:                 strings.TrimSpace(params.Email),
		Role:                  params.Role,
		Groups:                groups,
		Permissions:           perms,
		DefaultPassword:       true,
		RequirePasswordChange: true,
		CreatedAt:             now,
		UpdatedAt:             now,
		CreatedBy:             params.CreatedBy,
	}
	d.users = append(d.users, user)
	return cloneUser(user), nil
}

// List returns a snapshot copy of every account.
func (d *Directory) List(ctx context.Context) []User {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, *cloneUser(u))
	}
	return out
}

// FindByID returns a copy of the account with the given ID.
func (d *Directory) FindByID(ctx context.Context, id string) (*User, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.ID == id {
			return cloneUser(u), true
		}
	}
	return nil, false
}

// FindByUsername returns a copy of the account with the given username.
func (d *Directory) FindByUsername(ctx context.Context, username string) (*User, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Username == username {
			return cloneUser(u), true
		}
	}
	return nil, false
}

// FindSuperAdmin returns the first super-admin account.
func (d *Directory) FindSuperAdmin(ctx context.Context) (*User, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Role == rbac.RoleSuperAdmin {
			return cloneUser(u), true
		}
	}
	return nil, false
}

// Delete removes an account by ID and reports whether one was removed.
// Messages reference accounts by username, so history survives deletion.
func (d *Directory) Delete(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, u := range d.users {
		if u.ID == id {
			d.users = append(d.users[:i], d.users[i+1:]...)
			return true
		}
	}
	return false
}

// ResetPassword pushes the account back onto the shared default credential.
// The supplied password is intentionally discarded: until the user sets a
// password of their own, the account authenticates with the default one and
// is forced through the change-password flow on next login.
func (d *Directory) ResetPassword(ctx context.Context, id, newPassword string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.ID == id {
			u.DefaultPassword = true
			u.RequirePasswordChange = true
			u.PasswordHash = ""
			u.UpdatedAt = d.now().UTC()
			return true
		}
	}
	return false
}

// SetPassword stores a password hash and clears the default-credential flags.
func (d *Directory) SetPassword(ctx context.Context, id, hash string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.ID == id {
			u.PasswordHash = hash
			u.DefaultPassword = false
			u.RequirePasswordChange = false
			u.UpdatedAt = d.now().UTC()
			return true
		}
	}
	return false
}

// RecordLogin stamps the account's last login time.
func (d *Directory) RecordLogin(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.ID == id {
			now := d.now().UTC()
			u.LastLoginAt = &now
			return
		}
	}
}

// UpdateParams carries a partial account update. Nil fields are left as is.
type UpdateParams struct {
	Email       *string
	Role        *rbac.Role
	Groups      []rbac.Group
	Permissions []rbac.Permission
}

// Update merges the given fields into the account and bumps UpdatedAt.
// Returns nil when no account matches the ID.
func (d *Directory) Update(ctx context.Context, id string, params UpdateParams) *User {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.ID != id {
			continue
		}
		if params.Email != nil {
			u.Email = strings.TrimSpace(*params.Email)
		}
		if params.Role != nil {
			u.Role = *params.Role
		}
		if params.Groups != nil {
			u.Groups = params.Groups
		}
		if params.Permissions != nil {
			u.Permissions = params.Permissions
		}
		u.UpdatedAt = d.now().UTC()
		return cloneUser(u)
	}
	return nil
}

func cloneUser(u *User) *User {
	clone := *u
	clone.Groups = make([]rbac.Group, len(u.Groups))
	copy(clone.Groups, u.Groups)
	clone.Permissions = make([]rbac.Permission, len(u.Permissions))
	copy(clone.Permissions, u.Permissions)
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		clone.LastLoginAt = &t
	}
	return &clone
}
