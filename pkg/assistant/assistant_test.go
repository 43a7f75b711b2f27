package assistant

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/mkarlsen/hearth/pkg/audioio"
	"github.com/mkarlsen/hearth/pkg/llm"
	"github.com/mkarlsen/hearth/pkg/stt"
	"github.com/mkarlsen/hearth/pkg/tts"
)

type testRig struct {
	assistant  *Assistant
	source     *audioio.MockSource
	sink       *audioio.MockSink
	recognizer *stt.Mock
	brain      *llm.Mock
	speaker    *tts.Mock
}

func newTestRig(t *testing.T, mutate func(*Config)) *testRig {
	t.Helper()

	sourceCfg := audioio.Config{
		Backend:      "mock",
		SampleRate:   16000,
		FrameSamples: 160,
		ReadTimeout:  100 * time.Millisecond,
	}
	source := audioio.NewMockSource(sourceCfg, slog.Default(),
		audioio.WithTick(2*time.Millisecond),
	)
	sink := audioio.NewMockSink(sourceCfg, slog.Default())
	t.Cleanup(func() {
		source.Close()
		sink.Close()
	})

	cfg := DefaultConfig()
	cfg.Tick = 5 * time.Millisecond
	cfg.ErrorRecovery = 100 * time.Millisecond
	cfg.Record.SilenceTimeout = 150 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}

	recognizer := stt.NewMock("what time is it")
	brain := llm.NewMock("it is noon")
	speaker := tts.NewMock()

	a, err := NewAssistant(cfg, source, sink, recognizer, brain, speaker, nil, slog.Default())
	if err != nil {
		t.Fatalf("NewAssistant: %v", err)
	}

	return &testRig{
		assistant:  a,
		source:     source,
		sink:       sink,
		recognizer: recognizer,
		brain:      brain,
		speaker:    speaker,
	}
}

func (r *testRig) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.assistant.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("assistant did not stop")
		}
	})
}

func waitForState(t *testing.T, a *Assistant, want State) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if a.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", a.State(), want)
}

func loudFrames(n int) [][]int16 {
	frames := make([][]int16, n)
	for i := range frames {
		frame := make([]int16, 160)
		for j := range frame {
			frame[j] = 8000
		}
		frames[i] = frame
	}
	return frames
}

func TestAssistant_ButtonTurn(t *testing.T) {
	rig := newTestRig(t, func(cfg *Config) {
		cfg.WakeEnabled = false
	})
	rig.run(t)

	rig.assistant.Post(EventWifiConnected)
	waitForState(t, rig.assistant, StateIdle)

	// Queue speech before the trigger so the first recorded frames are
	// loud; the synthetic silence after the script trips the VAD
	// timeout.
	for _, frame := range loudFrames(20) {
		rig.source.Enqueue(frame)
	}
	rig.assistant.PressButton()
	waitForState(t, rig.assistant, StateListening)

	waitForState(t, rig.assistant, StateIdle)

	turns := rig.assistant.Conversation()
	if len(turns) != 1 {
		t.Fatalf("conversation has %d turns, want 1", len(turns))
	}
	if turns[0].User != "what time is it" {
		t.Errorf("turn user = %q, want the transcript", turns[0].User)
	}
	if turns[0].Reply != "it is noon" {
		t.Errorf("turn reply = %q, want the model reply", turns[0].Reply)
	}
	if turns[0].ID == "" {
		t.Error("turn has no ID")
	}

	if rig.recognizer.Calls() != 1 {
		t.Errorf("recognizer calls = %d, want 1", rig.recognizer.Calls())
	}
	if rig.speaker.Calls() != 1 {
		t.Errorf("tts calls = %d, want 1", rig.speaker.Calls())
	}
	if rig.sink.Stats().SamplesWritten == 0 {
		t.Error("no audio reached the playback sink")
	}
}

func TestAssistant_ExclusiveCaptureHandoff(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.run(t)

	rig.assistant.Post(EventWifiConnected)
	waitForState(t, rig.assistant, StateIdle)

	// Idle with wake enabled: the listener holds the device.
	deadline := time.Now().Add(2 * time.Second)
	for !rig.assistant.listener.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !rig.assistant.listener.IsRunning() {
		t.Fatal("listener not running while idle")
	}
	if err := rig.source.Start(context.Background()); !errors.Is(err, audioio.ErrBusy) {
		t.Fatalf("source.Start while listener attached = %v, want ErrBusy", err)
	}

	rig.assistant.PressButton()
	waitForState(t, rig.assistant, StateListening)

	// Listening: the listener has released the device to the session.
	if rig.assistant.listener.IsRunning() {
		t.Error("listener still running while the session records")
	}
	for !rig.assistant.session.Recording() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !rig.assistant.session.Recording() {
		t.Error("session not recording in the listening state")
	}
	if err := rig.source.Start(context.Background()); !errors.Is(err, audioio.ErrBusy) {
		t.Errorf("source.Start while session attached = %v, want ErrBusy", err)
	}
}

func TestAssistant_ErrorRecovery(t *testing.T) {
	rig := newTestRig(t, func(cfg *Config) {
		cfg.WakeEnabled = false
	})
	rig.recognizer.Fail(errors.New("backend down"))
	rig.run(t)

	rig.assistant.Post(EventWifiConnected)
	waitForState(t, rig.assistant, StateIdle)

	rig.assistant.PressButton()
	waitForState(t, rig.assistant, StateListening)
	for _, frame := range loudFrames(5) {
		rig.source.Enqueue(frame)
	}

	waitForState(t, rig.assistant, StateError)
	if got := rig.assistant.Status().LastError; got == "" {
		t.Error("Status().LastError empty in the error state")
	}

	// Connectivity is confirmed (nil online func), so recovery kicks
	// in after the timeout.
	waitForState(t, rig.assistant, StateIdle)
}

func TestAssistant_ButtonForcesProcessing(t *testing.T) {
	rig := newTestRig(t, func(cfg *Config) {
		cfg.WakeEnabled = false
		// Long enough that only the button can end the recording.
		cfg.Record.SilenceTimeout = 10 * time.Second
	})
	rig.run(t)

	rig.assistant.Post(EventWifiConnected)
	waitForState(t, rig.assistant, StateIdle)

	rig.assistant.PressButton()
	waitForState(t, rig.assistant, StateListening)

	for _, frame := range loudFrames(3) {
		rig.source.Enqueue(frame)
	}
	time.Sleep(50 * time.Millisecond)
	rig.assistant.PressButton()

	waitForState(t, rig.assistant, StateIdle)
	if len(rig.assistant.Conversation()) != 1 {
		t.Error("button-terminated recording did not complete a turn")
	}
}

func TestAssistant_ChatBypassesAudio(t *testing.T) {
	rig := newTestRig(t, nil)

	reply, err := rig.assistant.Chat(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "it is noon" {
		t.Errorf("Chat reply = %q, want the model reply", reply)
	}

	turns := rig.assistant.Conversation()
	if len(turns) != 1 || turns[0].User != "hello" {
		t.Errorf("conversation = %+v, want one turn for the chat", turns)
	}
}

func TestAssistant_StatusSnapshot(t *testing.T) {
	rig := newTestRig(t, nil)

	status := rig.assistant.Status()
	if status.State != "init" {
		t.Errorf("State = %q, want init before Run", status.State)
	}
	if !status.WakeEnabled {
		t.Error("WakeEnabled = false, want true from config")
	}
	if !status.Online {
		t.Error("Online = false with nil online func, want true")
	}

	rig.assistant.SetWakeEnabled(false)
	if rig.assistant.Status().WakeEnabled {
		t.Error("WakeEnabled = true after SetWakeEnabled(false)")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}

	cfg.ErrorRecovery = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted zero error recovery")
	}

	cfg = DefaultConfig()
	cfg.Wake.Sensitivity = 2
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted invalid wake config")
	}
}
