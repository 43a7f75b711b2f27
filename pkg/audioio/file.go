package audioio

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// FileSource replays raw PCM16LE audio from a file, one frame per read.
// It is used by offline tools to run captured audio through the
// detection pipeline.
type FileSource struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	file    *os.File
	running bool
	closed  bool
	buf     []byte
}

// NewFileSource creates a source that reads frames from cfg.Device.
func NewFileSource(cfg Config, logger *slog.Logger) (*FileSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		cfg:    cfg,
		logger: logger,
		buf:    make([]byte, cfg.FrameBytes()),
	}, nil
}

// Start opens the file.
func (f *FileSource) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return io.ErrClosedPipe
	}
	if f.running {
		return ErrBusy
	}

	file, err := os.Open(f.cfg.Device)
	if err != nil {
		return err
	}
	f.file = file
	f.running = true
	return nil
}

// Stop closes the file.
func (f *FileSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.running {
		return nil
	}
	f.running = false
	err := f.file.Close()
	f.file = nil
	return err
}

// ReadFrame reads the next frame from the file. A short final read is
// returned as a short frame; subsequent reads return io.EOF.
func (f *FileSource) ReadFrame(ctx context.Context) (Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.running {
		return Frame{}, io.EOF
	}

	n, err := io.ReadFull(f.file, f.buf)
	if n == 0 {
		return Frame{}, io.EOF
	}
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		return Frame{}, err
	}

	var frame Frame
	frame.FromBytes(f.buf[:n-n%2], f.cfg.SampleRate)
	return frame, nil
}

// Config returns the capture configuration.
func (f *FileSource) Config() Config {
	return f.cfg
}

// Name returns "file".
func (f *FileSource) Name() string {
	return "file"
}

// Close releases resources.
func (f *FileSource) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()
	return f.Stop()
}

var _ Source = (*FileSource)(nil)
