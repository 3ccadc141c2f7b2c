// Package scraper walks the paginated reservation table and accumulates the
// booked (date, time) pairs into a BookedIndex. The listing page renders a
// bounded first page plus a "load more" control; the scraper clicks through
// until the control disappears or a safety cap is hit.
package scraper

import (
	"context"
	"hash/fnv"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/darren-wangg/court-booker-sub000/internal/driver"
	"github.com/darren-wangg/court-booker-sub000/internal/models"
)

var loadMoreSelectors = []string{
	"button.load-more",
	"button#load-more",
	"a.load-more",
	"button:has-text('Load More')",
}

const (
	navigateTimeout = 30 * time.Second

	// Per-run ceiling on load-more clicks so a malfunctioning control can
	// never loop a scrape forever.
	maxLoadMoreClicks = 30

	// Delay after each click for the next table chunk to render.
	defaultSettleDelay = 2 * time.Second

	// Length of the serialized-table prefix hashed for the pagination-stall
	// diagnostic.
	hashPrefixLen = 2048
)

// Scraper loads every reservation page for one check run.
type Scraper struct {
	reservationsURL string
	settleDelay     time.Duration
	metrics         *Metrics
	log             *slog.Logger

	sleep func(time.Duration)
}

func New(reservationsURL string, metrics *Metrics, log *slog.Logger) *Scraper {
	return &Scraper{
		reservationsURL: reservationsURL,
		settleDelay:     defaultSettleDelay,
		metrics:         metrics,
		log:             log,
		sleep:           time.Sleep,
	}
}

// LoadAll paginates the reservation listing and returns the accumulated
// index. The index is additive and never reset mid-run, so rows repeated on
// overlapping pages dedupe by set semantics.
func (s *Scraper) LoadAll(ctx context.Context, drv driver.Driver) (models.BookedIndex, error) {
	if err := drv.Navigate(ctx, s.reservationsURL, driver.WaitNetworkIdle, navigateTimeout); err != nil {
		s.metrics.incError("navigate")
		return nil, err
	}

	index := models.BookedIndex{}
	var lastHash uint64
	clicked := false
	clicks := 0

	for {
		content, err := drv.Content(ctx)
		if err != nil {
			s.metrics.incError("content")
			return nil, err
		}

		rows := s.parseInto(index, content)
		s.metrics.incPages()
		s.metrics.addRows(rows)

		// Diagnostic only: an unchanged table hash after a click means
		// pagination did not actually advance. Control flow is unaffected;
		// the loop still terminates via the control or the cap.
		h := tableHash(content)
		if clicked && h == lastHash {
			s.metrics.incStalled()
			s.log.Warn("load more did not advance the table", "clicks", clicks)
		}
		lastHash = h

		control, err := s.visibleLoadMore(ctx, drv)
		if err != nil {
			s.metrics.incError("load_more")
			return nil, err
		}
		if control == "" {
			break
		}
		if clicks >= maxLoadMoreClicks {
			s.log.Warn("load more cap reached, stopping pagination", "cap", maxLoadMoreClicks)
			break
		}
		if err := drv.Click(ctx, control); err != nil {
			s.metrics.incError("click")
			return nil, err
		}
		clicks++
		clicked = true
		s.metrics.incClicks()
		s.sleep(s.settleDelay)
	}

	s.log.Info("reservation scrape complete",
		"pages", clicks+1, "dates", len(index), "entries", index.Size())
	return index, nil
}

// visibleLoadMore returns the first visible load-more candidate, or "" when
// the control is absent or hidden (i.e. the last page is rendered). A dead
// session must surface as an error: treating it as "control gone" would end
// the loop early and pass off a truncated index as a complete scrape.
func (s *Scraper) visibleLoadMore(ctx context.Context, drv driver.Driver) (string, error) {
	for _, sel := range loadMoreSelectors {
		visible, err := drv.IsVisible(ctx, sel)
		if err != nil {
			if driver.IsSessionLoss(err) {
				return "", err
			}
			continue
		}
		if visible {
			return sel, nil
		}
	}
	return "", nil
}

// parseInto reads the current table rows into the index. The table groups
// time rows under a preceding date-header row, so the current date label is
// carried forward across rows that lack their own date cell.
func (s *Scraper) parseInto(index models.BookedIndex, content string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		s.metrics.incError("parse")
		s.log.Warn("reservation table parse failed", "error", err)
		return 0
	}

	rows := 0
	currentDate := ""
	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		rows++
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			text := normalizeSpace(cell.Text())
			switch {
			case dateLabelPattern.MatchString(text):
				currentDate = text
			case timeLabelPattern.MatchString(text) && currentDate != "":
				index.Add(currentDate, text)
			}
		})
	})
	return rows
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// tableHash hashes a fixed-length prefix of the serialized table content.
func tableHash(content string) uint64 {
	start := strings.Index(content, "<table")
	if start < 0 {
		start = 0
	}
	end := start + hashPrefixLen
	if end > len(content) {
		end = len(content)
	}
	h := fnv.New64a()
	h.Write([]byte(content[start:end]))
	return h.Sum64()
}
