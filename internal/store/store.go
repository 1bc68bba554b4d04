// Package store persists the run history of analysis triggers.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/site-report/internal/config"
	"github.com/sells-group/site-report/internal/model"
)

// DefaultSQLitePath is used when store.database_url is empty for sqlite.
const DefaultSQLitePath = "site-report.db"

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	URL          string          `json:"url,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// Store records one row per analysis trigger. It is an audit log and is
// never read to answer an analysis.
type Store interface {
	CreateRun(ctx context.Context, req model.AnalysisRequest) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, outcome *model.RunOutcome) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open builds the store selected by cfg.Driver and migrates it. Driver
// "none" (or empty) returns a nil Store and no error.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case config.StoreNone, "":
		return nil, nil
	case config.StoreSQLite:
		path := cfg.DatabaseURL
		if path == "" {
			path = DefaultSQLitePath
		}
		s, err = NewSQLite(path)
	case config.StorePostgres:
		s, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: driver %q is not supported", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func listLimit(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}
