// wake-tune replays a raw PCM16 recording through the wake detector
// and reports what it would have triggered on. Use it to tune the
// energy threshold and sensitivity against captured samples before
// changing the daemon's settings.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mkarlsen/hearth/internal/log"
	"github.com/mkarlsen/hearth/pkg/audioio"
	"github.com/mkarlsen/hearth/pkg/dsp"
	"github.com/mkarlsen/hearth/pkg/wake"
)

func main() {
	var (
		logLevel    = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
		threshold   = flag.Float64("threshold", wake.DefaultEnergyThreshold, "Base energy threshold")
		sensitivity = flag.Float64("sensitivity", wake.DefaultSensitivity, "Sensitivity in [0,1]")
		sampleRate  = flag.Int("rate", 16000, "Sample rate of the recording in Hz")
		verbose     = flag.Bool("v", false, "Print per-frame features")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: wake-tune [flags] <recording.pcm>")
		os.Exit(2)
	}

	log.Init(*logLevel)

	if err := run(flag.Arg(0), *threshold, *sensitivity, *sampleRate, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "wake-tune: %v\n", err)
		os.Exit(1)
	}
}

func run(path string, threshold, sensitivity float64, sampleRate int, verbose bool) error {
	cfg := audioio.DefaultConfig()
	cfg.Backend = audioio.BackendFile
	cfg.Device = path
	cfg.SampleRate = sampleRate

	source, err := audioio.NewFileSource(cfg, log.L())
	if err != nil {
		return err
	}
	defer source.Close()

	ctx := context.Background()
	if err := source.Start(ctx); err != nil {
		return err
	}
	defer source.Stop()

	detector := wake.NewDetector(threshold)
	detector.SetSensitivity(sensitivity)
	history := dsp.NewHistory(dsp.DefaultHistorySize)

	// The file replays far faster than real time, which would collapse
	// the detector's envelope timing to microseconds. Pace its clock by
	// one frame duration per frame instead of wall time.
	frameDur := cfg.FrameDuration()
	clock := time.Unix(0, 0)
	detector.SetClock(func() time.Time { return clock })

	var frameIdx, detections int

	for {
		frame, err := source.ReadFrame(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		clock = clock.Add(frameDur)

		features := dsp.Extract(frame.Samples)
		history.Push(features)
		avgEnergy := history.AverageEnergy()

		if verbose {
			fmt.Printf("%8s  energy=%8.1f  zcr=%.3f  avg=%8.1f  state=%s\n",
				frameDur*time.Duration(frameIdx), features.Energy, features.ZCR,
				avgEnergy, detector.State())
		}

		if detector.Step(features, avgEnergy) {
			detections++
			fmt.Printf("detection #%d at %s\n",
				detections, frameDur*time.Duration(frameIdx))
		}
		frameIdx++
	}

	fmt.Printf("%d frames (%s), %d detections, effective threshold %.1f\n",
		frameIdx, frameDur*time.Duration(frameIdx), detections, detector.Threshold())
	return nil
}
