package wake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mkarlsen/hearth/pkg/audioio"
	"github.com/mkarlsen/hearth/pkg/dsp"
)

// Errors returned by the listener.
var (
	// ErrDisabled indicates wake detection is administratively off.
	ErrDisabled = errors.New("wake: detection disabled")
)

// Config holds listener tuning parameters.
type Config struct {
	// EnergyThreshold is the base onset threshold before sensitivity
	// scaling. Default: DefaultEnergyThreshold.
	EnergyThreshold float64

	// Sensitivity in [0, 1]; higher triggers more easily.
	Sensitivity float64

	// HistorySize is the rolling-baseline window in frames.
	HistorySize int

	// Cooldown suppresses further detections for this long after one
	// fires, so a single utterance cannot trigger twice.
	Cooldown time.Duration

	// StopWait bounds how long Stop waits for the sampling loop to
	// exit before releasing the source anyway.
	StopWait time.Duration
}

// DefaultConfig returns listener defaults.
func DefaultConfig() Config {
	return Config{
		EnergyThreshold: DefaultEnergyThreshold,
		Sensitivity:     DefaultSensitivity,
		HistorySize:     dsp.DefaultHistorySize,
		Cooldown:        2 * time.Second,
		StopWait:        500 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Sensitivity < 0 || c.Sensitivity > 1 {
		return fmt.Errorf("wake: sensitivity must be in [0,1], got %v", c.Sensitivity)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("wake: cooldown must not be negative, got %v", c.Cooldown)
	}
	return nil
}

// Listener owns the background sampling loop. While running it pulls
// frames from the capture source, maintains the rolling feature
// baseline, and drives the pattern detector. On detection it invokes
// the registered callback, subject to the cooldown window.
//
// The callback runs on the sampling goroutine and must not block; it
// should do no more than set a flag for the orchestrator's main loop
// to observe. The orchestrator is never re-entered from here.
type Listener struct {
	cfg    Config
	source audioio.Source
	logger *slog.Logger

	detector *Detector
	history  *dsp.History
	onDetect func()

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	enabled atomic.Bool
	// pendingSensitivity carries live sensitivity updates into the
	// sampling loop; math.NaN bits mean "no change pending".
	pendingSensitivity atomic.Uint64
	sensitivity        atomic.Uint64

	lastDetection time.Time
	detections    atomic.Int64
	now           func() time.Time
}

// NewListener creates a listener over the given capture source.
// onDetect is invoked from the sampling goroutine, at most once per
// cooldown window, and must not block.
func NewListener(cfg Config, source audioio.Source, onDetect func(), logger *slog.Logger) (*Listener, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &Listener{
		cfg:      cfg,
		source:   source,
		logger:   logger.With("component", "wake.listener"),
		detector: NewDetector(cfg.EnergyThreshold),
		history:  dsp.NewHistory(cfg.HistorySize),
		onDetect: onDetect,
		now:      time.Now,
	}
	l.detector.SetSensitivity(cfg.Sensitivity)
	l.enabled.Store(true)
	l.pendingSensitivity.Store(math.Float64bits(math.NaN()))
	l.sensitivity.Store(math.Float64bits(l.detector.Sensitivity()))
	return l, nil
}

// Start acquires the capture source and launches the sampling loop.
// It fails if the listener is disabled or the source cannot be
// acquired. Calling Start while already running is a no-op.
func (l *Listener) Start(ctx context.Context) error {
	if !l.enabled.Load() {
		return ErrDisabled
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return nil
	}

	if err := l.source.Start(ctx); err != nil {
		return fmt.Errorf("wake: acquire source: %w", err)
	}

	l.detector.Reset()
	l.history.Reset()

	loopCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	l.running = true

	go l.sampleLoop(loopCtx, l.done)

	l.logger.Info("listening for wake pattern",
		"threshold", l.detector.Threshold(),
		"sensitivity", l.detector.Sensitivity(),
	)
	return nil
}

// Stop signals the sampling loop to exit, waits (bounded) for it to
// observe the signal, and releases the capture source. After Stop
// returns the source is free for the next consumer.
func (l *Listener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return nil
	}

	l.cancel()
	select {
	case <-l.done:
	case <-time.After(l.cfg.StopWait):
		l.logger.Warn("sampling loop slow to exit, releasing source anyway")
	}

	err := l.source.Stop()
	l.running = false
	l.logger.Info("stopped listening", "detections", l.detections.Load())
	return err
}

// IsRunning reports whether the sampling loop is active.
func (l *Listener) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// SetEnabled turns wake detection on or off. Disabling does not stop a
// running loop; it only prevents the next Start.
func (l *Listener) SetEnabled(enabled bool) {
	l.enabled.Store(enabled)
}

// Enabled reports whether wake detection is administratively on.
func (l *Listener) Enabled() bool {
	return l.enabled.Load()
}

// SetSensitivity updates detection sensitivity live. The new threshold
// is observed by the next processed frame; the current pattern state is
// not interrupted.
func (l *Listener) SetSensitivity(sensitivity float64) {
	if sensitivity < 0 {
		sensitivity = 0
	} else if sensitivity > 1 {
		sensitivity = 1
	}
	l.pendingSensitivity.Store(math.Float64bits(sensitivity))
	l.sensitivity.Store(math.Float64bits(sensitivity))
}

// Sensitivity returns the most recently requested sensitivity.
func (l *Listener) Sensitivity() float64 {
	return math.Float64frombits(l.sensitivity.Load())
}

// Detections returns the number of accepted detections since creation.
func (l *Listener) Detections() int64 {
	return l.detections.Load()
}

func (l *Listener) sampleLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}

		frame, err := l.source.ReadFrame(ctx)
		switch {
		case err == nil:
		case errors.Is(err, audioio.ErrNoData):
			// No data this tick.
			continue
		case errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
			return
		default:
			// Transient read failure: drop the frame, keep running.
			l.logger.Debug("frame read failed", "error", err)
			continue
		}

		if len(frame.Samples) == 0 {
			continue
		}

		l.processFrame(frame.Samples)
	}
}

func (l *Listener) processFrame(samples []int16) {
	if bits := l.pendingSensitivity.Swap(math.Float64bits(math.NaN())); !math.IsNaN(math.Float64frombits(bits)) {
		l.detector.SetSensitivity(math.Float64frombits(bits))
		l.logger.Debug("sensitivity updated",
			"sensitivity", l.detector.Sensitivity(),
			"threshold", l.detector.Threshold(),
		)
	}

	f := dsp.Extract(samples)
	l.history.Push(f)

	if !l.detector.Step(f, l.history.AverageEnergy()) {
		return
	}

	now := l.now()
	if now.Sub(l.lastDetection) < l.cfg.Cooldown {
		l.logger.Debug("detection suppressed by cooldown")
		return
	}
	l.lastDetection = now
	l.detections.Add(1)
	l.logger.Info("wake pattern detected", "count", l.detections.Load())

	if l.onDetect != nil {
		l.onDetect()
	}
}
