// Package drivertest provides a scripted in-memory Driver for package tests.
// Behavior is driven by plain fields plus optional hooks, so each test wires
// exactly the surface it exercises and records every interaction.
package drivertest

import (
	"context"
	"sync"
	"time"

	"github.com/darren-wangg/court-booker-sub000/internal/driver"
)

// Fake implements driver.Driver against canned data.
type Fake struct {
	mu sync.Mutex

	// URLValue is what URL() reports; hooks may rewrite it to simulate
	// redirects.
	URLValue string

	// ContentPages are successive Content() results; ContentIndex selects the
	// current one. AdvancePage moves forward, as a "load more" click would.
	ContentPages []string
	ContentIndex int

	// VisibleSelectors backs WaitForAny and IsVisible. VisibleFunc, when set,
	// wins and may consult the fake's own state (e.g. ContentIndex).
	VisibleSelectors map[string]bool
	VisibleFunc      func(f *Fake, selector string) bool

	// Optional hooks.
	OnNavigate func(f *Fake, url string) error
	OnClick    func(f *Fake, selector string) error
	EvalFunc   func(f *Fake, script string) (any, error)

	// Errs injects an error for a specific selector across Type/Fill/Click/
	// SelectOption/IsVisible, keyed by selector.
	Errs map[string]error

	// Recorded interactions.
	Navigations []string
	Waited      [][]string
	Typed       map[string]string
	Filled      map[string]string
	Selected    map[string]string
	Clicked     []string
	Evaluated   []string
	Screenshots []string
	Closed      bool
}

// New returns an empty fake with recording maps initialized.
func New() *Fake {
	return &Fake{
		VisibleSelectors: make(map[string]bool),
		Errs:             make(map[string]error),
		Typed:            make(map[string]string),
		Filled:           make(map[string]string),
		Selected:         make(map[string]string),
	}
}

var _ driver.Driver = (*Fake)(nil)

func (f *Fake) Navigate(ctx context.Context, url string, _ driver.WaitUntil, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.Navigations = append(f.Navigations, url)
	f.URLValue = url
	f.mu.Unlock()
	if f.OnNavigate != nil {
		return f.OnNavigate(f, url)
	}
	return nil
}

func (f *Fake) WaitForAny(ctx context.Context, candidates []string, _ time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.Waited = append(f.Waited, candidates)
	f.mu.Unlock()
	for _, sel := range candidates {
		if f.visible(sel) {
			return sel, nil
		}
	}
	return "", &driver.SelectorNotFoundError{Candidates: candidates}
}

func (f *Fake) visible(selector string) bool {
	if f.VisibleFunc != nil {
		return f.VisibleFunc(f, selector)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.VisibleSelectors[selector]
}

func (f *Fake) Type(ctx context.Context, selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.Errs[selector]; err != nil {
		return err
	}
	f.mu.Lock()
	f.Typed[selector] = text
	f.mu.Unlock()
	return nil
}

func (f *Fake) Fill(ctx context.Context, selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.Errs[selector]; err != nil {
		return err
	}
	f.mu.Lock()
	f.Filled[selector] = text
	f.mu.Unlock()
	return nil
}

func (f *Fake) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.Errs[selector]; err != nil {
		return err
	}
	f.mu.Lock()
	f.Clicked = append(f.Clicked, selector)
	f.mu.Unlock()
	if f.OnClick != nil {
		return f.OnClick(f, selector)
	}
	return nil
}

func (f *Fake) SelectOption(ctx context.Context, selector, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.Errs[selector]; err != nil {
		return err
	}
	f.mu.Lock()
	f.Selected[selector] = label
	f.mu.Unlock()
	return nil
}

func (f *Fake) Evaluate(ctx context.Context, script string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.Evaluated = append(f.Evaluated, script)
	f.mu.Unlock()
	if f.EvalFunc != nil {
		return f.EvalFunc(f, script)
	}
	return nil, nil
}

func (f *Fake) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.URLValue
}

func (f *Fake) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ContentPages) == 0 {
		return "", nil
	}
	i := f.ContentIndex
	if i >= len(f.ContentPages) {
		i = len(f.ContentPages) - 1
	}
	return f.ContentPages[i], nil
}

// AdvancePage moves Content() to the next scripted page, clamped at the last.
func (f *Fake) AdvancePage() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ContentIndex < len(f.ContentPages)-1 {
		f.ContentIndex++
	}
}

func (f *Fake) IsVisible(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := f.Errs[selector]; err != nil {
		return false, err
	}
	return f.visible(selector), nil
}

func (f *Fake) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.Screenshots = append(f.Screenshots, path)
	f.mu.Unlock()
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
