package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/caregiver-planner/internal/config"
	"github.com/jakechorley/caregiver-planner/pkg/clients/sheetsclient"
	"github.com/jakechorley/caregiver-planner/pkg/db"
	"github.com/jakechorley/caregiver-planner/pkg/lock"
	"github.com/jakechorley/caregiver-planner/pkg/metrics"
	"github.com/jakechorley/caregiver-planner/pkg/postgres"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Env      string
	Cfg      *config.Config
	Postgres *postgres.DB
	Database db.Database
	Locker   lock.Locker
	Metrics  metrics.Recorder
	Logger   *zap.Logger
	Ctx      context.Context

	// NewSheetsClient runs the OAuth flow on first use, so only publishWeek pays for it
	NewSheetsClient func(ctx context.Context) (*sheetsclient.Client, error)

	closers []func()
}

// OnClose registers cleanup to run when the command finishes, last registered first
func (a *AppContext) OnClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close runs the registered cleanup
func (a *AppContext) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
