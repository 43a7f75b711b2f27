package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mkarlsen/hearth/pkg/audioio"
	"github.com/mkarlsen/hearth/pkg/llm"
	"github.com/mkarlsen/hearth/pkg/record"
	"github.com/mkarlsen/hearth/pkg/stt"
	"github.com/mkarlsen/hearth/pkg/tts"
	"github.com/mkarlsen/hearth/pkg/wake"
)

// Config holds orchestrator parameters.
type Config struct {
	// Wake configures the wake listener.
	Wake wake.Config

	// Record configures the recording session.
	Record record.Config

	// WakeEnabled gates wake detection. When false the assistant is
	// button-only.
	WakeEnabled bool

	// ErrorRecovery is how long the assistant stays in the error state
	// before attempting recovery. Default: 5s.
	ErrorRecovery time.Duration

	// Tick is the main loop poll interval. Default: 20ms.
	Tick time.Duration
}

// DefaultConfig returns orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		Wake:          wake.DefaultConfig(),
		Record:        record.DefaultConfig(),
		WakeEnabled:   true,
		ErrorRecovery: 5 * time.Second,
		Tick:          20 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.Wake.Validate(); err != nil {
		return err
	}
	if err := c.Record.Validate(); err != nil {
		return err
	}
	if c.ErrorRecovery <= 0 {
		return fmt.Errorf("assistant: error recovery must be positive, got %v", c.ErrorRecovery)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("assistant: tick must be positive, got %v", c.Tick)
	}
	return nil
}

// Turn is one completed exchange.
type Turn struct {
	ID    string    `json:"id"`
	User  string    `json:"user"`
	Reply string    `json:"reply"`
	At    time.Time `json:"at"`
}

// Snapshot is a point-in-time view of the assistant for the control
// panel.
type Snapshot struct {
	State       string  `json:"state"`
	WakeEnabled bool    `json:"wake_enabled"`
	Sensitivity float64 `json:"sensitivity"`
	Online      bool    `json:"online"`
	Detections  int64   `json:"detections"`
	Turns       int     `json:"turns"`
	LastError   string  `json:"last_error,omitempty"`
}

// Assistant is the top-level controller. It owns the wake listener and
// the recording session and guarantees at most one of them holds the
// capture device. All state transitions happen on the Run goroutine;
// everything else communicates through events or the wake mailbox.
type Assistant struct {
	cfg    Config
	logger *slog.Logger

	machine  *Machine
	state    atomic.Int32
	listener *wake.Listener
	session  *record.Session
	sink     audioio.Sink

	recognizer stt.Recognizer
	brain      llm.Client
	speaker    tts.Provider
	online     func() bool

	wakeSignal  Mailbox
	wakeEnabled atomic.Bool
	events      chan Event

	mu           sync.Mutex
	lastError    string
	errorSince   time.Time
	pending      *tts.Result
	turns        []Turn
	onTransition func(from, to State, ev Event)

	now func() time.Time
}

// NewAssistant creates the orchestrator. It builds the wake listener
// and recording session over the given capture source; online reports
// current connectivity and may be nil (always online).
func NewAssistant(
	cfg Config,
	source audioio.Source,
	sink audioio.Sink,
	recognizer stt.Recognizer,
	brain llm.Client,
	speaker tts.Provider,
	online func() bool,
	logger *slog.Logger,
) (*Assistant, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if online == nil {
		online = func() bool { return true }
	}

	a := &Assistant{
		cfg:        cfg,
		logger:     logger.With("component", "assistant"),
		machine:    NewMachine(),
		sink:       sink,
		recognizer: recognizer,
		brain:      brain,
		speaker:    speaker,
		online:     online,
		events:     make(chan Event, 16),
		now:        time.Now,
	}
	a.wakeEnabled.Store(cfg.WakeEnabled)

	listener, err := wake.NewListener(cfg.Wake, source, a.wakeSignal.Post, logger)
	if err != nil {
		return nil, err
	}
	listener.SetEnabled(cfg.WakeEnabled)
	a.listener = listener

	session, err := record.NewSession(cfg.Record, source, logger)
	if err != nil {
		return nil, err
	}
	a.session = session

	return a, nil
}

// Post delivers an external event to the main loop. It never blocks;
// if the queue is full the event is dropped with a warning.
func (a *Assistant) Post(ev Event) {
	select {
	case a.events <- ev:
	default:
		a.logger.Warn("event queue full, dropping event", "event", ev.String())
	}
}

// PressButton delivers the manual trigger.
func (a *Assistant) PressButton() {
	a.Post(EventButtonPressed)
}

// ReportConnectivity translates a connectivity change into the
// corresponding event. Wire it to the network watcher's callback.
func (a *Assistant) ReportConnectivity(onlineNow bool) {
	if onlineNow {
		a.Post(EventWifiConnected)
	} else {
		a.Post(EventWifiFailed)
	}
}

// Run drives the main loop until ctx is done. Each iteration drains
// pending events, polls the wake mailbox, advances the recording
// session, and checks error recovery. No iteration blocks beyond the
// bounded frame-read wait.
func (a *Assistant) Run(ctx context.Context) error {
	a.apply(ctx, EventStartup)

	ticker := time.NewTicker(a.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.shutdown()
			return ctx.Err()
		case ev := <-a.events:
			a.apply(ctx, ev)
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

func (a *Assistant) tick(ctx context.Context) {
	if a.wakeSignal.Take() {
		a.apply(ctx, EventWakeDetected)
	}

	switch a.machine.State() {
	case StateIdle:
		a.reconcileListener(ctx)

	case StateListening:
		if err := a.session.Process(ctx); err != nil {
			a.setError(err.Error())
			a.apply(ctx, EventErrorOccurred)
			return
		}
		if !a.session.DetectVoice() {
			a.apply(ctx, EventSilenceDetected)
		}

	case StateError:
		a.mu.Lock()
		since := a.errorSince
		a.mu.Unlock()
		if a.now().Sub(since) > a.cfg.ErrorRecovery && a.online() {
			a.apply(ctx, EventErrorTimeout)
		}
	}
}

// reconcileListener brings the listener's running state in line with
// the wake-enabled flag while idle. Toggles from the control panel
// land here on the next tick instead of mutating attachment from a
// foreign goroutine.
func (a *Assistant) reconcileListener(ctx context.Context) {
	enabled := a.wakeEnabled.Load()
	switch {
	case enabled && !a.listener.IsRunning():
		if err := a.listener.Start(ctx); err != nil {
			a.logger.Warn("wake listener start failed, button-only mode", "error", err)
		}
	case !enabled && a.listener.IsRunning():
		a.listener.Stop()
	}
}

// apply runs one event through the machine and executes the side
// effects of the resulting transition.
func (a *Assistant) apply(ctx context.Context, ev Event) {
	from := a.machine.State()
	to, changed := a.machine.Apply(ev, a.wakeEnabled.Load())
	if !changed {
		a.logger.Debug("event ignored", "state", from.String(), "event", ev.String())
		return
	}
	a.state.Store(int32(to))

	a.logger.Info("state transition",
		"from", from.String(),
		"to", to.String(),
		"event", ev.String(),
	)

	switch to {
	case StateIdle:
		a.enterIdle(ctx, from, ev)
	case StateListening:
		a.enterListening(ctx)
	case StateProcessing:
		a.enterProcessing(ctx)
	case StateResponding:
		a.enterResponding(ctx)
	case StateError:
		a.enterError()
	}

	a.mu.Lock()
	hook := a.onTransition
	a.mu.Unlock()
	if hook != nil {
		hook(from, to, ev)
	}
}

func (a *Assistant) enterIdle(ctx context.Context, from State, ev Event) {
	// Barge-in: cut playback before anything else.
	if from == StateResponding && ev == EventButtonPressed && a.sink != nil {
		a.sink.Clear()
	}

	// The session must have released the device before the listener
	// may take it.
	if err := a.session.Release(); err != nil {
		a.logger.Warn("session release failed", "error", err)
	}
	a.reconcileListener(ctx)
}

func (a *Assistant) enterListening(ctx context.Context) {
	// Detach strictly before attach: Stop blocks until the sampling
	// loop has exited.
	if err := a.listener.Stop(); err != nil {
		a.logger.Warn("listener stop failed", "error", err)
	}

	if err := a.session.Start(ctx); err != nil {
		a.setError(err.Error())
		a.apply(ctx, EventErrorOccurred)
	}
}

func (a *Assistant) enterProcessing(ctx context.Context) {
	a.session.StopRecording()

	// The session buffer is reused by the next recording, so the
	// cloud turn works on a copy.
	samples := make([]int16, a.session.Len())
	copy(samples, a.session.Samples())
	rate := a.session.SampleRate()

	go a.processTurn(ctx, samples, rate)
}

func (a *Assistant) processTurn(ctx context.Context, samples []int16, rate int) {
	transcript, err := a.recognizer.Recognize(ctx, samples, rate)
	if err != nil {
		a.setError(fmt.Sprintf("transcription failed: %v", err))
		a.Post(EventErrorOccurred)
		return
	}

	reply, err := a.brain.Respond(ctx, transcript.Text)
	if err != nil {
		a.setError(fmt.Sprintf("reply generation failed: %v", err))
		a.Post(EventErrorOccurred)
		return
	}

	result, err := a.speaker.Synthesize(ctx, reply)
	if err != nil {
		a.setError(fmt.Sprintf("synthesis failed: %v", err))
		a.Post(EventErrorOccurred)
		return
	}

	a.mu.Lock()
	a.pending = result
	a.turns = append(a.turns, Turn{
		ID:    uuid.NewString(),
		User:  transcript.Text,
		Reply: reply,
		At:    a.now(),
	})
	a.mu.Unlock()

	a.Post(EventProcessingComplete)
}

func (a *Assistant) enterResponding(ctx context.Context) {
	a.mu.Lock()
	result := a.pending
	a.pending = nil
	a.mu.Unlock()

	if result == nil || a.sink == nil {
		a.Post(EventPlaybackComplete)
		return
	}

	go func() {
		if err := a.sink.Start(ctx); err != nil {
			a.setError(fmt.Sprintf("playback start failed: %v", err))
			a.Post(EventErrorOccurred)
			return
		}
		if err := a.sink.Write(ctx, result.Samples); err != nil {
			a.setError(fmt.Sprintf("playback write failed: %v", err))
			a.Post(EventErrorOccurred)
			return
		}
		if err := a.sink.Flush(ctx); err != nil {
			a.setError(fmt.Sprintf("playback flush failed: %v", err))
			a.Post(EventErrorOccurred)
			return
		}
		a.Post(EventPlaybackComplete)
	}()
}

func (a *Assistant) enterError() {
	a.mu.Lock()
	a.errorSince = a.now()
	a.mu.Unlock()

	// Park both consumers; recovery re-attaches the listener.
	if err := a.session.Release(); err != nil {
		a.logger.Warn("session release failed", "error", err)
	}
	a.listener.Stop()
	if a.sink != nil {
		a.sink.Clear()
	}
}

func (a *Assistant) shutdown() {
	a.listener.Stop()
	a.session.Release()
	if a.sink != nil {
		a.sink.Stop()
	}
	a.logger.Info("assistant stopped")
}

func (a *Assistant) setError(msg string) {
	a.mu.Lock()
	a.lastError = msg
	a.mu.Unlock()
	a.logger.Error("assistant error", "error", msg)
}

// State returns the current state. Safe from any goroutine.
func (a *Assistant) State() State {
	return State(a.state.Load())
}

// SetWakeEnabled toggles wake detection at runtime. The listener's
// attachment follows on the next idle tick.
func (a *Assistant) SetWakeEnabled(enabled bool) {
	a.wakeEnabled.Store(enabled)
	a.listener.SetEnabled(enabled)
}

// WakeEnabled reports whether wake detection is on.
func (a *Assistant) WakeEnabled() bool {
	return a.wakeEnabled.Load()
}

// SetSensitivity adjusts wake sensitivity live.
func (a *Assistant) SetSensitivity(sensitivity float64) {
	a.listener.SetSensitivity(sensitivity)
}

// VoiceThreshold returns the VAD level threshold.
func (a *Assistant) VoiceThreshold() float64 {
	return a.session.VoiceThreshold()
}

// SilenceTimeout returns the VAD silence timeout.
func (a *Assistant) SilenceTimeout() time.Duration {
	return a.session.SilenceTimeout()
}

// Sensitivity returns the wake sensitivity.
func (a *Assistant) Sensitivity() float64 {
	return a.listener.Sensitivity()
}

// SetVoiceThreshold adjusts the VAD level threshold live.
func (a *Assistant) SetVoiceThreshold(threshold float64) {
	a.session.SetVoiceThreshold(threshold)
}

// SetSilenceTimeout adjusts the VAD silence timeout live.
func (a *Assistant) SetSilenceTimeout(timeout time.Duration) {
	a.session.SetSilenceTimeout(timeout)
}

// Chat runs a text-only turn, bypassing audio. Used by the control
// panel.
func (a *Assistant) Chat(ctx context.Context, text string) (string, error) {
	reply, err := a.brain.Respond(ctx, text)
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	a.turns = append(a.turns, Turn{
		ID:    uuid.NewString(),
		User:  text,
		Reply: reply,
		At:    a.now(),
	})
	a.mu.Unlock()

	return reply, nil
}

// Conversation returns the completed turns, oldest first.
func (a *Assistant) Conversation() []Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Turn, len(a.turns))
	copy(out, a.turns)
	return out
}

// Status returns a snapshot for the control panel.
func (a *Assistant) Status() Snapshot {
	a.mu.Lock()
	lastError := a.lastError
	turns := len(a.turns)
	a.mu.Unlock()

	return Snapshot{
		State:       a.State().String(),
		WakeEnabled: a.wakeEnabled.Load(),
		Sensitivity: a.listener.Sensitivity(),
		Online:      a.online(),
		Detections:  a.listener.Detections(),
		Turns:       turns,
		LastError:   lastError,
	}
}

// SetTransitionHook registers a callback invoked after every state
// transition, from the main loop goroutine. Set it before Run.
func (a *Assistant) SetTransitionHook(hook func(from, to State, ev Event)) {
	a.mu.Lock()
	a.onTransition = hook
	a.mu.Unlock()
}
