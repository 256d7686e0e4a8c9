// Package auth implements the login flow: default-credential checks,
// super-admin secondary verification, and the brute-force lockout tracker.
package auth

import "time"

// Build-time credentials for the bootstrap super admin. The secondary code
// elevates a login to super-admin privilege and is shared, not per-user.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
	SuperAdminCode       = "oscar4471"
)

// Lockout policy for failed secondary verification attempts.
const (
	MaxCodeFailures = 5
	LockoutDuration = 24 * time.Hour
)
