package scraper

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the availability scraper on a
// dedicated registry.
type Metrics struct {
	Registry       *prometheus.Registry
	PagesScraped   prometheus.Counter
	LoadMoreClicks prometheus.Counter
	StalledPages   prometheus.Counter
	RowsParsed     prometheus.Counter
	ScrapeErrors   *prometheus.CounterVec
}

// NewMetrics constructs and registers all scraper metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courtbooker_scraper_pages_total",
		Help: "Reservation table pages read across all scrapes.",
	})
	clicks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courtbooker_scraper_load_more_clicks_total",
		Help: "Load-more control clicks performed.",
	})
	stalled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courtbooker_scraper_stalled_pages_total",
		Help: "Iterations where the table content hash did not change after a load-more click.",
	})
	rows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courtbooker_scraper_rows_parsed_total",
		Help: "Reservation table rows parsed.",
	})
	scrapeErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "courtbooker_scraper_errors_total",
		Help: "Scraper errors by type.",
	}, []string{"error_type"})

	registry.MustRegister(pages, clicks, stalled, rows, scrapeErrors)

	return &Metrics{
		Registry:       registry,
		PagesScraped:   pages,
		LoadMoreClicks: clicks,
		StalledPages:   stalled,
		RowsParsed:     rows,
		ScrapeErrors:   scrapeErrors,
	}
}

func (m *Metrics) incPages() {
	if m != nil {
		m.PagesScraped.Inc()
	}
}

func (m *Metrics) incClicks() {
	if m != nil {
		m.LoadMoreClicks.Inc()
	}
}

func (m *Metrics) incStalled() {
	if m != nil {
		m.StalledPages.Inc()
	}
}

func (m *Metrics) addRows(n int) {
	if m != nil {
		m.RowsParsed.Add(float64(n))
	}
}

func (m *Metrics) incError(errorType string) {
	if m != nil {
		m.ScrapeErrors.WithLabelValues(errorType).Inc()
	}
}
