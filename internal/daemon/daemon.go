package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DaemonFunc is the work a daemon does. It returns nil once ctx is done.
type DaemonFunc func(ctx context.Context, name string) error

// DaemonManager supervises daemons and restarts those that fail.
type DaemonManager struct {
	logger       *slog.Logger
	daemons      map[string]DaemonFunc
	restartDelay time.Duration
	wg           sync.WaitGroup
}

func NewDaemonManager(logger *slog.Logger) *DaemonManager {
	return &DaemonManager{
		logger:       logger,
		daemons:      make(map[string]DaemonFunc),
		restartDelay: 2 * time.Second,
	}
}

func (m *DaemonManager) Add(name string, fn DaemonFunc) {
	m.daemons[name] = fn
}

func (m *DaemonManager) Start(ctx context.Context) {
	for name, fn := range m.daemons {
		m.wg.Add(1)
		go m.runDaemon(ctx, name, fn)
	}
}

// Wait blocks until all daemons have stopped.
func (m *DaemonManager) Wait() {
	m.wg.Wait()
}

func (m *DaemonManager) runDaemon(ctx context.Context, name string, fn DaemonFunc) {
	defer m.wg.Done()

	for {
		if ctx.Err() != nil {
			m.logger.Info("Daemon received shutdown signal", "daemon", name)
			return
		}

		err := m.runOnce(ctx, name, fn)
		if err == nil {
			m.logger.Info("Daemon exited cleanly", "daemon", name)
			return
		}

		m.logger.Error("Daemon crashed, restarting", "daemon", name, "error", err, "delay", m.restartDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.restartDelay):
		}
	}
}

func (m *DaemonManager) runOnce(ctx context.Context, name string, fn DaemonFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, name)
}

// Every runs task on each tick of interval until ctx is done. Task errors are
// logged and do not stop the loop.
func Every(logger *slog.Logger, interval time.Duration, task func(ctx context.Context) error) DaemonFunc {
	return func(ctx context.Context, name string) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("Daemon shutting down", "daemon", name)
				return nil
			case <-ticker.C:
				if err := task(ctx); err != nil {
					logger.Error("Daemon task failed", "daemon", name, "error", err)
				}
			}
		}
	}
}
