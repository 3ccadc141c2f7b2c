package scraper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darren-wangg/court-booker-sub000/internal/driver"
	"github.com/darren-wangg/court-booker-sub000/internal/driver/drivertest"
)

const reservationsURL = "https://courts.example.com/reservations"

func testScraper(m *Metrics) *Scraper {
	s := New(reservationsURL, m, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.settleDelay = 0
	s.sleep = func(time.Duration) {}
	return s
}

func page(withLoadMore bool, rows ...string) string {
	html := `<html><body><table><tbody>`
	for _, r := range rows {
		html += r
	}
	html += `</tbody></table>`
	if withLoadMore {
		html += `<button class="load-more">Load More</button>`
	}
	return html + `</body></html>`
}

func dateRow(label string) string {
	return `<tr><th>` + label + `</th></tr>`
}

func timeRow(label string) string {
	return `<tr><td>` + label + `</td><td>Court 2</td></tr>`
}

func TestLoadAllPaginatesAndAccumulates(t *testing.T) {
	fake := drivertest.New()
	fake.ContentPages = []string{
		page(true,
			dateRow("Saturday, September 06"),
			timeRow("5:00 PM - 6:00 PM"),
			timeRow("6:00 PM - 7:00 PM"),
		),
		page(true,
			dateRow("Sunday, September 07"),
			timeRow("10:00 AM - 11:00 AM"),
		),
		page(false,
			dateRow("Monday, September 08"),
			timeRow("8:00 PM - 9:00 PM"),
		),
	}
	fake.VisibleFunc = func(f *drivertest.Fake, sel string) bool {
		return sel == "button.load-more" && f.ContentIndex < 2
	}
	fake.OnClick = func(f *drivertest.Fake, _ string) error {
		f.AdvancePage()
		return nil
	}

	metrics := NewMetrics()
	index, err := testScraper(metrics).LoadAll(context.Background(), fake)
	require.NoError(t, err)

	// Union of all three pages, exactly two load-more clicks.
	assert.Equal(t, []string{"button.load-more", "button.load-more"}, fake.Clicked)
	assert.Equal(t, 4, index.Size())
	assert.Equal(t, []string{"5:00 PM - 6:00 PM", "6:00 PM - 7:00 PM"}, index.Times("Saturday, September 06"))
	assert.Equal(t, []string{"10:00 AM - 11:00 AM"}, index.Times("Sunday, September 07"))
	assert.Equal(t, []string{"8:00 PM - 9:00 PM"}, index.Times("Monday, September 08"))

	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.PagesScraped))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.LoadMoreClicks))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.StalledPages))
}

func TestLoadAllDedupesOverlappingPages(t *testing.T) {
	shared := []string{
		dateRow("Saturday, September 06"),
		timeRow("5:00 PM - 6:00 PM"),
	}
	fake := drivertest.New()
	fake.ContentPages = []string{
		page(true, shared...),
		// Second page re-renders the first page's rows plus one new slot.
		page(false, append(shared, timeRow("7:00 PM - 8:00 PM"))...),
	}
	fake.VisibleFunc = func(f *drivertest.Fake, sel string) bool {
		return sel == "button.load-more" && f.ContentIndex < 1
	}
	fake.OnClick = func(f *drivertest.Fake, _ string) error {
		f.AdvancePage()
		return nil
	}

	index, err := testScraper(NewMetrics()).LoadAll(context.Background(), fake)
	require.NoError(t, err)
	assert.Equal(t, 2, index.Size())
}

func TestLoadAllCarriesDateForwardAcrossRows(t *testing.T) {
	fake := drivertest.New()
	fake.ContentPages = []string{
		page(false,
			dateRow("Saturday, September 06"),
			timeRow("10:00 AM - 11:00 AM"),
			timeRow("11:00 AM - 12:00 PM"),
			dateRow("Sunday, September 07"),
			timeRow("10:00 AM - 11:00 AM"),
		),
	}

	index, err := testScraper(NewMetrics()).LoadAll(context.Background(), fake)
	require.NoError(t, err)
	assert.Len(t, index.Times("Saturday, September 06"), 2)
	assert.Equal(t, []string{"10:00 AM - 11:00 AM"}, index.Times("Sunday, September 07"))
}

func TestLoadAllCountsStalledPagination(t *testing.T) {
	same := page(true,
		dateRow("Saturday, September 06"),
		timeRow("5:00 PM - 6:00 PM"),
	)
	fake := drivertest.New()
	// The click "succeeds" but the table never changes; the control then
	// disappears on the third read.
	fake.ContentPages = []string{same, same, page(false)}
	clicks := 0
	fake.VisibleFunc = func(f *drivertest.Fake, sel string) bool {
		return sel == "button.load-more" && f.ContentIndex < 2
	}
	fake.OnClick = func(f *drivertest.Fake, _ string) error {
		clicks++
		f.AdvancePage()
		return nil
	}

	metrics := NewMetrics()
	index, err := testScraper(metrics).LoadAll(context.Background(), fake)
	require.NoError(t, err)
	assert.Equal(t, 1, index.Size())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.StalledPages))
}

func TestLoadAllStopsAtClickCap(t *testing.T) {
	endless := page(true,
		dateRow("Saturday, September 06"),
		timeRow("5:00 PM - 6:00 PM"),
	)
	fake := drivertest.New()
	fake.ContentPages = []string{endless}
	fake.VisibleSelectors["button.load-more"] = true

	index, err := testScraper(NewMetrics()).LoadAll(context.Background(), fake)
	require.NoError(t, err)
	assert.Len(t, fake.Clicked, maxLoadMoreClicks)
	assert.Equal(t, 1, index.Size())
}

func TestLoadAllSurfacesSessionLossWhileProbingLoadMore(t *testing.T) {
	fake := drivertest.New()
	fake.ContentPages = []string{page(true,
		dateRow("Saturday, September 06"),
		timeRow("5:00 PM - 6:00 PM"),
	)}
	// The session dies between reading the page and probing the control.
	fake.Errs["button.load-more"] = &driver.SessionLossError{Err: errors.New("target closed")}

	metrics := NewMetrics()
	index, err := testScraper(metrics).LoadAll(context.Background(), fake)

	require.Error(t, err, "a dead session must not read as the last page")
	assert.True(t, driver.IsSessionLoss(err))
	assert.Nil(t, index)
	assert.Empty(t, fake.Clicked)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ScrapeErrors.WithLabelValues("load_more")))
}

func TestLoadAllSkipsNonFatalVisibilityErrors(t *testing.T) {
	fake := drivertest.New()
	fake.ContentPages = []string{page(false,
		dateRow("Saturday, September 06"),
		timeRow("5:00 PM - 6:00 PM"),
	)}
	// A selector-engine complaint about one candidate is not session loss;
	// the remaining candidates still decide whether the control is present.
	fake.Errs["button.load-more"] = errors.New("unsupported selector")

	index, err := testScraper(NewMetrics()).LoadAll(context.Background(), fake)
	require.NoError(t, err)
	assert.Equal(t, 1, index.Size())
}

func TestParsePatternsRejectNoise(t *testing.T) {
	assert.True(t, dateLabelPattern.MatchString("Saturday, September 06"))
	assert.True(t, dateLabelPattern.MatchString("Monday, October 1"))
	assert.False(t, dateLabelPattern.MatchString("Court 2"))
	assert.False(t, dateLabelPattern.MatchString("Saturday, September 06, 2025"))

	assert.True(t, timeLabelPattern.MatchString("5:00 PM - 6:00 PM"))
	assert.True(t, timeLabelPattern.MatchString("11:00 AM - 12:00 PM"))
	assert.False(t, timeLabelPattern.MatchString("Load More"))
	assert.False(t, timeLabelPattern.MatchString("5:00 PM"))
}
