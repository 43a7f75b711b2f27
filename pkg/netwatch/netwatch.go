// Package netwatch monitors network connectivity.
//
// The assistant depends on cloud services, so it needs to know when
// the network drops and when it comes back. A Watcher probes a
// no-content HTTP endpoint on an interval and reports transitions
// through a callback; the orchestrator maps those to its connected and
// failed events.
package netwatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mkarlsen/hearth/internal/httpc"
)

// Config holds watcher parameters.
type Config struct {
	// ProbeURL is the endpoint probed for reachability. It should
	// return quickly with a small or empty body.
	ProbeURL string

	// Interval between probes. Default: 15s.
	Interval time.Duration

	// Timeout per probe. Default: 5s.
	Timeout time.Duration
}

// DefaultConfig returns watcher defaults.
func DefaultConfig() Config {
	return Config{
		ProbeURL: "https://connectivitycheck.gstatic.com/generate_204",
		Interval: 15 * time.Second,
		Timeout:  5 * time.Second,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.ProbeURL == "" {
		return fmt.Errorf("netwatch: probe URL required")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("netwatch: interval must be positive, got %v", c.Interval)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("netwatch: timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// Watcher probes connectivity in the background. The callback fires on
// every transition, from the watcher's goroutine.
type Watcher struct {
	cfg      Config
	client   *http.Client
	logger   *slog.Logger
	onChange func(online bool)

	online atomic.Bool
	probed atomic.Bool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWatcher creates a connectivity watcher. onChange may be nil.
func NewWatcher(cfg Config, onChange func(online bool), logger *slog.Logger) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		cfg:      cfg,
		client:   httpc.NewClient(cfg.Timeout),
		logger:   logger.With("component", "netwatch"),
		onChange: onChange,
	}, nil
}

// Start probes once immediately, then on the configured interval.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.probeLoop(ctx, w.done)

	w.logger.Info("connectivity watcher started",
		"probe_url", w.cfg.ProbeURL,
		"interval", w.cfg.Interval,
	)
	return nil
}

// Stop halts probing and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	<-done
}

func (w *Watcher) probeLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	w.probe(ctx)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.probe(ctx)
		}
	}
}

func (w *Watcher) probe(ctx context.Context) {
	online := w.probeOnce(ctx)

	first := !w.probed.Swap(true)
	changed := w.online.Swap(online) != online

	if first || changed {
		if online {
			w.logger.Info("network reachable")
		} else {
			w.logger.Warn("network unreachable")
		}
		if w.onChange != nil {
			w.onChange(online)
		}
	}
}

func (w *Watcher) probeOnce(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cfg.ProbeURL, nil)
	if err != nil {
		return false
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	return resp.StatusCode < 500
}

// IsOnline returns the result of the most recent probe. Before the
// first probe completes it returns false.
func (w *Watcher) IsOnline() bool {
	return w.online.Load()
}
