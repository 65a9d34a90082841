// Package lifecycle stops the process's components in reverse start order.
package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// StopFunc releases one component.
type StopFunc func(ctx context.Context) error

type component struct {
	name string
	stop StopFunc
}

// Manager runs registered stop functions last-in first-out, so a component
// is always stopped before the things it depends on.
type Manager struct {
	timeout time.Duration
	log     *zap.Logger

	mu         sync.Mutex
	components []component
	stopped    bool
}

func New(timeout time.Duration, log *zap.Logger) *Manager {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{timeout: timeout, log: log}
}

// Register adds a component. Nil stop functions are ignored.
func (m *Manager) Register(name string, stop StopFunc) {
	if stop == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component{name: name, stop: stop})
}

// Shutdown stops every component within the manager's timeout. Every stop
// function runs even if an earlier one fails; the errors are joined. Calling
// Shutdown again is a no-op.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return nil
	}
	m.stopped = true

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var errs []error
	for i := len(m.components) - 1; i >= 0; i-- {
		c := m.components[i]
		if err := c.stop(ctx); err != nil {
			m.log.Error("component stop failed", zap.String("component", c.name), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		m.log.Info("component stopped", zap.String("component", c.name))
	}
	return errors.Join(errs...)
}

// WithSignals returns a context cancelled on SIGINT or SIGTERM.
func (m *Manager) WithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			m.log.Info("shutdown signal received", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
