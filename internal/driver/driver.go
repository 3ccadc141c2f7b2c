// Package driver abstracts a concrete browser-automation engine behind the
// capability surface the booking core needs. Business logic depends only on
// the Driver interface; the playwright adapter is the one place that knows
// which engine is underneath.
package driver

import (
	"context"
	"time"
)

// WaitUntil controls what a navigation waits for before returning.
type WaitUntil string

const (
	WaitLoad             WaitUntil = "load"
	WaitDOMContentLoaded WaitUntil = "domcontentloaded"
	WaitNetworkIdle      WaitUntil = "networkidle"
)

// Driver is the uniform capability interface over a browser page. Selector
// arguments that accept a list are ordered candidate lists: the first visible
// match wins, so markup drift on the target site only requires updating one
// list, never the calling logic.
//
// Every method that can suspend takes a context and is additionally bounded
// by the engine's default operation timeout, set when the session is
// established. An unbounded wait is a defect.
type Driver interface {
	// Navigate loads a URL and waits for the given lifecycle state.
	Navigate(ctx context.Context, url string, wait WaitUntil, timeout time.Duration) error

	// WaitForAny waits until one of the candidate selectors becomes visible
	// and returns the selector that matched. When none match within the
	// timeout it returns a *SelectorNotFoundError carrying the full list.
	WaitForAny(ctx context.Context, candidates []string, timeout time.Duration) (string, error)

	// Type enters text into the element with a small per-key delay, which
	// some login forms require to enable their submit button.
	Type(ctx context.Context, selector, text string) error

	// Fill sets an input's value in one shot.
	Fill(ctx context.Context, selector, text string) error

	Click(ctx context.Context, selector string) error

	// SelectOption picks a dropdown option by its visible label.
	SelectOption(ctx context.Context, selector, label string) error

	// Evaluate runs a script in the page and returns its result.
	Evaluate(ctx context.Context, script string) (any, error)

	// URL returns the page's current URL without suspending.
	URL() string

	// Content returns the full serialized HTML of the page.
	Content(ctx context.Context) (string, error)

	IsVisible(ctx context.Context, selector string) (bool, error)

	// Screenshot writes a full-page PNG for diagnostics.
	Screenshot(ctx context.Context, path string) error

	Close() error
}
