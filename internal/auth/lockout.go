package auth

import (
	"net/http"
	"time"

	"github.com/garnizeh/built/internal/apperror"
	"github.com/garnizeh/built/pkg/models"
)

// Lockout blocks a credential after max consecutive failed logins until the
// cooldown elapses. A max of 0 disables it.
type Lockout struct {
	max      int
	cooldown time.Duration
}

func NewLockout(maxAttempts int, cooldown time.Duration) Lockout {
	return Lockout{max: maxAttempts, cooldown: cooldown}
}

// Check returns an error while cred is locked.
func (l Lockout) Check(cred *models.Credential, now time.Time) error {
	if l.max == 0 || cred.LockedUntil == nil {
		return nil
	}
	if now.Before(cred.LockedUntil.Time) {
		secs := int(cred.LockedUntil.Sub(now).Seconds()) + 1
		return apperror.Unauthorized("Account locked, try again in %d seconds", secs).WithStatus(http.StatusTooManyRequests)
	}
	return nil
}

// RecordFailure counts a failed attempt and locks cred once the limit is hit.
// An expired lock starts a new window.
func (l Lockout) RecordFailure(cred *models.Credential, now time.Time) {
	if l.max == 0 {
		return
	}
	if cred.LockedUntil != nil && !now.Before(cred.LockedUntil.Time) {
		cred.FailedAttempts = 0
		cred.LockedUntil = nil
	}
	cred.FailedAttempts++
	if cred.FailedAttempts >= l.max {
		until := models.NewTimestamp(now.Add(l.cooldown))
		cred.LockedUntil = &until
	}
}

// Reset clears the failure state after a successful login.
func (l Lockout) Reset(cred *models.Credential) {
	cred.FailedAttempts = 0
	cred.LockedUntil = nil
}
