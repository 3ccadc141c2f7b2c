package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Keystroke delay for Type. The site's login form enables its submit button
// from input events, so instant fills are sometimes ignored.
const typeDelayMillis = 50

// Playwright adapts a playwright-go page to the Driver interface.
type Playwright struct {
	page playwright.Page
}

// NewPlaywright wraps an already-configured page. Session setup (viewport,
// user agent, default timeouts) belongs to the session manager.
func NewPlaywright(page playwright.Page) *Playwright {
	return &Playwright{page: page}
}

func (d *Playwright) Navigate(ctx context.Context, url string, wait WaitUntil, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	state := playwright.WaitUntilStateLoad
	switch wait {
	case WaitDOMContentLoaded:
		state = playwright.WaitUntilStateDomcontentloaded
	case WaitNetworkIdle:
		state = playwright.WaitUntilStateNetworkidle
	}
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: state,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return classify(fmt.Errorf("navigate %s: %w", url, err))
	}
	return nil
}

func (d *Playwright) WaitForAny(ctx context.Context, candidates []string, timeout time.Duration) (string, error) {
	if len(candidates) == 0 {
		return "", &SelectorNotFoundError{Candidates: candidates}
	}
	// Split the budget across candidates so the whole list stays inside the
	// caller's timeout.
	per := timeout / time.Duration(len(candidates))
	if per < time.Second {
		per = time.Second
	}
	var lastErr error
	for _, sel := range candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		err := d.page.Locator(sel).First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(float64(per.Milliseconds())),
		})
		if err == nil {
			return sel, nil
		}
		if IsSessionLoss(err) {
			return "", classify(err)
		}
		lastErr = err
	}
	return "", &SelectorNotFoundError{Candidates: candidates, Err: lastErr}
}

func (d *Playwright) Type(ctx context.Context, selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := d.page.Locator(selector).First()
	err := loc.Type(text, playwright.LocatorTypeOptions{
		Delay: playwright.Float(typeDelayMillis),
	})
	if err != nil {
		// Some fields reject synthetic key events; Fill is the fallback.
		if fillErr := loc.Fill(text); fillErr != nil {
			return classify(fmt.Errorf("type %s: %w", selector, err))
		}
	}
	return nil
}

func (d *Playwright) Fill(ctx context.Context, selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.page.Locator(selector).First().Fill(text); err != nil {
		return classify(fmt.Errorf("fill %s: %w", selector, err))
	}
	return nil
}

func (d *Playwright) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.page.Locator(selector).First().Click(); err != nil {
		return classify(fmt.Errorf("click %s: %w", selector, err))
	}
	return nil
}

func (d *Playwright) SelectOption(ctx context.Context, selector, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	labels := []string{label}
	_, err := d.page.Locator(selector).First().SelectOption(playwright.SelectOptionValues{
		Labels: &labels,
	})
	if err != nil {
		return classify(fmt.Errorf("select %q on %s: %w", label, selector, err))
	}
	return nil
}

func (d *Playwright) Evaluate(ctx context.Context, script string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := d.page.Evaluate(script)
	if err != nil {
		return nil, classify(fmt.Errorf("evaluate: %w", err))
	}
	return result, nil
}

func (d *Playwright) URL() string {
	return d.page.URL()
}

func (d *Playwright) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content, err := d.page.Content()
	if err != nil {
		return "", classify(fmt.Errorf("page content: %w", err))
	}
	return content, nil
}

func (d *Playwright) IsVisible(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	visible, err := d.page.Locator(selector).First().IsVisible()
	if err != nil {
		return false, classify(err)
	}
	return visible, nil
}

func (d *Playwright) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return classify(fmt.Errorf("screenshot: %w", err))
	}
	return nil
}

func (d *Playwright) Close() error {
	return d.page.Close()
}
