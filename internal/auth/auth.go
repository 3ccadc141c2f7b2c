// Package auth drives the login ritual on the reservation site through a
// Driver. The concrete markup varies slightly between deployments, so every
// field is resolved from an ordered candidate selector list; first visible
// match wins.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/darren-wangg/court-booker-sub000/internal/driver"
	"github.com/darren-wangg/court-booker-sub000/internal/models"
)

// Error is a rejected or failed login. Surfaced as-is; only session loss
// underneath it is worth retrying.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("login failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("login failed: %s", e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var usernameSelectors = []string{
	"input#email",
	"input[name='email']",
	"input[type='email']",
	"input[name='username']",
}

var passwordSelectors = []string{
	"input#password",
	"input[name='password']",
	"input[type='password']",
}

var submitSelectors = []string{
	"button[type='submit']",
	"input[type='submit']",
	"button.login-button",
	"button:has-text('Log In')",
}

const (
	navigateTimeout = 30 * time.Second
	fieldTimeout    = 10 * time.Second

	// How long the site gets to run its client-side redirect after submit
	// before we re-read the URL. Login success cannot be inferred from the
	// navigation promise alone.
	settleDelay = 3 * time.Second
)

// Authenticator logs a configured account into the reservation site.
type Authenticator struct {
	loginURL string
	// loginPathMarker identifies the login page in a URL. Still being on it
	// after submit means the login was rejected.
	loginPathMarker string
	log             *slog.Logger

	sleep func(time.Duration)
}

func New(loginURL, loginPathMarker string, log *slog.Logger) *Authenticator {
	if loginPathMarker == "" {
		loginPathMarker = "/login"
	}
	return &Authenticator{
		loginURL:        loginURL,
		loginPathMarker: loginPathMarker,
		log:             log,
		sleep:           time.Sleep,
	}
}

// Login performs the full ritual: navigate, fill username and password,
// submit, then verify by re-reading the URL after a settle delay.
func (a *Authenticator) Login(ctx context.Context, drv driver.Driver, creds models.Credentials) error {
	a.log.Info("logging in", "account", creds.ID, "url", a.loginURL)

	if err := drv.Navigate(ctx, a.loginURL, driver.WaitNetworkIdle, navigateTimeout); err != nil {
		return &Error{Reason: "login page unreachable", Err: err}
	}

	userSel, err := drv.WaitForAny(ctx, usernameSelectors, fieldTimeout)
	if err != nil {
		return &Error{Reason: "username field not found", Err: err}
	}
	if err := drv.Type(ctx, userSel, creds.Email); err != nil {
		return &Error{Reason: "entering email", Err: err}
	}

	passSel, err := drv.WaitForAny(ctx, passwordSelectors, fieldTimeout)
	if err != nil {
		return &Error{Reason: "password field not found", Err: err}
	}
	if err := drv.Type(ctx, passSel, creds.Password); err != nil {
		return &Error{Reason: "entering password", Err: err}
	}

	submitSel, err := drv.WaitForAny(ctx, submitSelectors, fieldTimeout)
	if err != nil {
		return &Error{Reason: "submit control not found", Err: err}
	}
	if err := drv.Click(ctx, submitSel); err != nil {
		return &Error{Reason: "clicking submit", Err: err}
	}

	// Some deployments redirect client-side outside the navigation promise
	// window; give them the settle delay, then judge by URL.
	a.sleep(settleDelay)

	current := drv.URL()
	if strings.Contains(current, a.loginPathMarker) {
		reason := "still on login page after submit"
		if msg := a.validationMessage(ctx, drv); msg != "" {
			reason = fmt.Sprintf("%s: %q", reason, msg)
		}
		a.log.Warn("login rejected", "account", creds.ID, "url", current)
		return &Error{Reason: reason}
	}

	a.log.Info("login ok", "account", creds.ID, "url", current)
	return nil
}

// validationMessage pulls any visible form error text for diagnostics.
// Best effort: a failed extraction never masks the login failure itself.
func (a *Authenticator) validationMessage(ctx context.Context, drv driver.Driver) string {
	result, err := drv.Evaluate(ctx, `(() => {
		const el = document.querySelector('.error, .alert, .validation-message, [role="alert"]');
		return el ? el.textContent.trim() : '';
	})()`)
	if err != nil {
		return ""
	}
	msg, _ := result.(string)
	return strings.TrimSpace(msg)
}
