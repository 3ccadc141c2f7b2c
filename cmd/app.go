package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/darren-wangg/court-booker-sub000/internal/auth"
	"github.com/darren-wangg/court-booker-sub000/internal/booker"
	"github.com/darren-wangg/court-booker-sub000/internal/booking"
	"github.com/darren-wangg/court-booker-sub000/internal/config"
	"github.com/darren-wangg/court-booker-sub000/internal/notifier"
	"github.com/darren-wangg/court-booker-sub000/internal/resilience"
	"github.com/darren-wangg/court-booker-sub000/internal/scraper"
	"github.com/darren-wangg/court-booker-sub000/internal/session"
	"github.com/darren-wangg/court-booker-sub000/internal/store"
)

// app bundles everything a subcommand needs. buildApp assembles the full
// stack once; subcommands use only the parts they care about.
type app struct {
	cfg      *config.Config
	runtime  config.Runtime
	log      *slog.Logger
	metrics  *scraper.Metrics
	booker   *booker.Booker
	store    *store.Store // nil when persistence is disabled
	notifier *notifier.EmailNotifier
}

func buildApp(ctx context.Context, source string) (*app, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	rt, err := config.LoadRuntime()
	if err != nil {
		return nil, err
	}

	log := newLogger(source == "api")
	metrics := scraper.NewMetrics()

	var st *store.Store
	var sink booker.ResultSink
	if cfg.Database.URL != "" {
		st, err = store.Open(ctx, cfg.Database.URL)
		if err != nil {
			// Persistence is best-effort: a dead database should not stop
			// a check or a booking.
			log.Warn("results store unavailable, continuing without persistence", "error", err)
		} else {
			sink = st
		}
	}

	b := booker.New(booker.Deps{
		Sessions:   session.NewManager(rt.Profile(), log),
		Auth:       auth.New(cfg.Site.LoginURL(), cfg.Site.LoginPath, log),
		Scraper:    scraper.New(cfg.Site.ReservationsURL(), metrics, log),
		Executor:   booking.NewExecutor(cfg.Site.BookingURL(), log),
		Runner:     resilience.NewRunner(log),
		Accounts:   cfg.Accounts,
		WindowDays: rt.WindowDays,
		Sink:       sink,
		Source:     source,
		Log:        log,
	})

	return &app{
		cfg:      cfg,
		runtime:  rt,
		log:      log,
		metrics:  metrics,
		booker:   b,
		store:    st,
		notifier: notifier.NewEmailNotifier(cfg.Email),
	}, nil
}

func (a *app) close() {
	a.store.Close()
}

// newLogger returns JSON output for the long-running server and plain text
// for interactive runs.
func newLogger(asJSON bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if asJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
