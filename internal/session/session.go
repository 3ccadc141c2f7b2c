// Package session acquires and releases browser automation sessions through
// a tiered strategy: a remote managed-browser endpoint when one is
// configured, then a locally launched constrained Chromium, then a fallback
// signal. Callers degrade to partial service on fallback instead of crashing
// the pipeline, which keeps the notification cadence alive even when no
// browser tier is available.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os/exec"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/darren-wangg/court-booker-sub000/internal/driver"
)

// ErrFallback is returned when every tier failed. It is a value, not a
// panic: callers must still be able to report "unknown availability".
var ErrFallback = errors.New("no automation engine available")

// RuntimeProfile states explicitly which environment the manager runs in.
// It is passed to the constructor instead of being sniffed from the
// environment at call sites.
type RuntimeProfile struct {
	// Constrained marks container-grade runtimes: single-process Chromium,
	// GPU off, small shared memory, best-effort process cleanup between
	// launch attempts.
	Constrained bool

	// Headless controls the local launch tier.
	Headless bool

	// RemoteWS is the CDP websocket endpoint of a managed browser service.
	// Empty disables the remote tier.
	RemoteWS string
}

const (
	remoteConnectTimeout = 45 * time.Second
	remoteAttempts       = 2
	localAttempts        = 5
	localBackoffStep     = 2 * time.Second

	operationTimeout = 45 * time.Second

	viewportWidth  = 1280
	viewportHeight = 720
	userAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Manager hands out one Session per invocation. Sessions are never shared
// between concurrent operations.
type Manager struct {
	profile RuntimeProfile
	log     *slog.Logger

	// Tier implementations, swappable in tests.
	connectRemote func(ctx context.Context) (*Session, error)
	launchLocal   func(ctx context.Context) (*Session, error)
	sleep         func(d time.Duration)
}

func NewManager(profile RuntimeProfile, log *slog.Logger) *Manager {
	m := &Manager{
		profile: profile,
		log:     log,
		sleep:   time.Sleep,
	}
	m.connectRemote = m.dialRemote
	m.launchLocal = m.launch
	return m
}

// Acquire walks the tiers in order and returns the first session obtained.
// When every tier fails it returns ErrFallback rather than the last tier
// error; the tier errors are logged, not surfaced, because the caller's
// decision is the same regardless of why the engines were unavailable.
func (m *Manager) Acquire(ctx context.Context, purpose string) (*Session, error) {
	if m.profile.RemoteWS != "" {
		for attempt := 1; attempt <= remoteAttempts; attempt++ {
			s, err := m.connectRemote(ctx)
			if err == nil {
				m.log.Info("session acquired via remote browser", "purpose", purpose, "attempt", attempt)
				return s, nil
			}
			m.log.Warn("remote browser connect failed", "purpose", purpose, "attempt", attempt, "error", err)
			if attempt < remoteAttempts {
				m.sleep(jitter(time.Second))
			}
		}
		// Fall through to the local tier on any remote failure.
	}

	for attempt := 1; attempt <= localAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := m.launchLocal(ctx)
		if err == nil {
			m.log.Info("session acquired via local browser", "purpose", purpose, "attempt", attempt)
			return s, nil
		}
		m.log.Warn("local browser launch failed", "purpose", purpose, "attempt", attempt, "error", err)
		if m.profile.Constrained {
			killStrayBrowsers()
		}
		if attempt < localAttempts {
			// Linear backoff with jitter so stacked retries across
			// invocations do not thunder in step.
			m.sleep(time.Duration(attempt)*localBackoffStep + jitter(500*time.Millisecond))
		}
	}

	m.log.Error("all session tiers exhausted, entering fallback mode", "purpose", purpose)
	return nil, ErrFallback
}

func (m *Manager) dialRemote(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.ConnectOverCDP(m.profile.RemoteWS, playwright.BrowserTypeConnectOverCDPOptions{
		Timeout: playwright.Float(float64(remoteConnectTimeout.Milliseconds())),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("connect remote browser: %w", err)
	}
	s, err := m.newSession(pw, browser)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, err
	}
	return s, nil
}

func (m *Manager) launch(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	args := []string{
		"--disable-blink-features=AutomationControlled",
		"--disable-dev-shm-usage",
		"--no-sandbox",
		"--disable-setuid-sandbox",
	}
	if m.profile.Constrained {
		args = append(args,
			"--single-process",
			"--no-zygote",
			"--disable-gpu",
			"--disable-extensions",
			"--disable-background-networking",
			"--js-flags=--max-old-space-size=256",
		)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.profile.Headless),
		Args:     args,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	s, err := m.newSession(pw, browser)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, err
	}
	return s, nil
}

// newSession applies the common page setup: realistic identity headers, a
// fixed viewport, and generous default timeouts so no driver operation can
// wait forever.
func (m *Manager) newSession(pw *playwright.Playwright, browser playwright.Browser) (*Session, error) {
	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(userAgent),
		Viewport: &playwright.Size{
			Width:  viewportWidth,
			Height: viewportHeight,
		},
		ExtraHttpHeaders: map[string]string{
			"Accept-Language": "en-US,en;q=0.9",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create browser context: %w", err)
	}
	page, err := browserCtx.NewPage()
	if err != nil {
		_ = browserCtx.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	page.SetDefaultTimeout(float64(operationTimeout.Milliseconds()))
	page.SetDefaultNavigationTimeout(float64(operationTimeout.Milliseconds()))

	return &Session{
		pw:          pw,
		browser:     browser,
		browserCtx:  browserCtx,
		page:        page,
		drv:         driver.NewPlaywright(page),
		constrained: m.profile.Constrained,
	}, nil
}

func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

// killStrayBrowsers reaps leftover Chromium processes on constrained
// runtimes where a failed launch can leave a zombie holding /dev/shm.
func killStrayBrowsers() {
	_ = exec.Command("pkill", "-f", "chromium").Run()
	_ = exec.Command("pkill", "-f", "chrome").Run()
}

// Session owns one browser page end to end for a single logical operation.
type Session struct {
	pw          *playwright.Playwright
	browser     playwright.Browser
	browserCtx  playwright.BrowserContext
	page        playwright.Page
	drv         driver.Driver
	constrained bool
}

// Driver returns the capability interface for this session.
func (s *Session) Driver() driver.Driver {
	return s.drv
}

// Release closes page, context, browser and the playwright runner in order,
// swallowing close-time errors: a session being torn down has nothing useful
// left to report.
func (s *Session) Release() {
	if s == nil {
		return
	}
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.browserCtx != nil {
		_ = s.browserCtx.Close()
	}
	if s.browser != nil {
		_ = s.browser.Close()
	}
	if s.pw != nil {
		_ = s.pw.Stop()
	}
	if s.constrained {
		killStrayBrowsers()
	}
}
