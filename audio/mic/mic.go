// Package mic captures the default input device for audio modulation.
package mic

import (
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"

	"github.com/pthm-cable/fitsfall/audio"
)

// Mic captures the default input device into an analyser.
type Mic struct {
	*audio.Analyser
	stream *portaudio.Stream
}

// Open initializes PortAudio and starts a mono capture stream.
// Close must be called to release the device.
func Open(cfg audio.AnalyserConfig, sampleRate int) (*Mic, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}

	m := &Mic{Analyser: audio.NewAnalyser(cfg)}
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), m.FFTSize(), m.process)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("opening input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("starting input stream: %w", err)
	}
	m.stream = stream

	slog.Info("microphone started", "sample_rate", sampleRate, "fft_size", m.FFTSize())
	return m, nil
}

func (m *Mic) process(in []float32) {
	m.Write(in)
}

// Close stops capture and terminates PortAudio.
func (m *Mic) Close() error {
	var err error
	if m.stream != nil {
		if e := m.stream.Stop(); e != nil {
			err = fmt.Errorf("stopping input stream: %w", e)
		}
		if e := m.stream.Close(); e != nil && err == nil {
			err = fmt.Errorf("closing input stream: %w", e)
		}
		m.stream = nil
	}
	if e := portaudio.Terminate(); e != nil && err == nil {
		err = fmt.Errorf("terminating portaudio: %w", e)
	}
	return err
}
