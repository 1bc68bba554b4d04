package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/site-report/internal/action"
	"github.com/sells-group/site-report/internal/cost"
	"github.com/sells-group/site-report/internal/llm"
	"github.com/sells-group/site-report/internal/report"
	"github.com/sells-group/site-report/internal/scrape"
	"github.com/sells-group/site-report/internal/store"
)

// reportEnv holds the collaborators built once per process for the
// analyze/serve/batch commands.
type reportEnv struct {
	Store    store.Store // may be nil
	Reporter *report.Reporter
	Handler  *action.Handler
}

// Close releases resources held by the environment.
func (re *reportEnv) Close() {
	if re.Store != nil {
		_ = re.Store.Close()
	}
}

// newScraper builds the fetcher from the fetch section.
func newScraper() *scrape.Scraper {
	return scrape.New(
		scrape.WithTimeout(time.Duration(cfg.Fetch.TimeoutSecs)*time.Second),
		scrape.WithMaxChars(cfg.Fetch.MaxChars),
		scrape.WithMaxBodyBytes(cfg.Fetch.MaxBodyBytes),
		scrape.WithUserAgent(cfg.Fetch.UserAgent),
	)
}

// initStore opens the configured run history. Driver "none" yields nil.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

// initEnv validates config for mode and wires scraper, provider, reporter,
// store and handler. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*reportEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	provider, err := llm.New(cfg)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	scraper := newScraper()
	reporter := report.New(scraper, provider, cfg.Model(),
		report.WithMaxChars(cfg.Fetch.MaxChars),
		report.WithTimeout(time.Duration(cfg.Analysis.TimeoutSecs)*time.Second),
	)

	handler := action.NewHandler(reporter,
		action.WithStore(st),
		action.WithCalculator(cost.NewCalculator(cost.RatesFromConfig(cfg.Pricing))),
	)

	return &reportEnv{
		Store:    st,
		Reporter: reporter,
		Handler:  handler,
	}, nil
}
