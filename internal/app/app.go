// Package app wires the scanner's components together and owns the
// process's top-level start/stop lifecycle.
package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mselser95/arb-scanner/internal/execution"
	"github.com/mselser95/arb-scanner/internal/guard"
	"github.com/mselser95/arb-scanner/internal/scanner"
	"github.com/mselser95/arb-scanner/internal/storage"
	"github.com/mselser95/arb-scanner/pkg/config"
	"github.com/mselser95/arb-scanner/pkg/healthprobe"
	"github.com/mselser95/arb-scanner/pkg/httpserver"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	scanner       *scanner.Scanner
	guard         *guard.Guard
	executor      *execution.Executor
	store         storage.Storage
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options reserved for future CLI flags.
type Options struct{}
