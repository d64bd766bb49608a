package audio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned for files the WAV decoder rejects.
var ErrInvalidWAV = errors.New("audio: invalid WAV file")

// Clip is decoded mono audio.
type Clip struct {
	Samples    []float32 // In [-1, 1]
	SampleRate int
}

// LoadWAV decodes a PCM WAV file and mixes it down to mono.
func LoadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWAV, path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading wav pcm: %w", err)
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	samples, err := toMono(buf.Data, buf.Format.NumChannels, depth)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidWAV, path, err)
	}

	return &Clip{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

// toMono scales interleaved PCM of the given bit depth to [-1, 1) and averages
// the channels. 8-bit PCM is unsigned and centred on 128.
func toMono(data []int, channels, depth int) ([]float32, error) {
	if depth < 8 || depth > 32 {
		return nil, fmt.Errorf("unsupported bit depth %d", depth)
	}
	if channels < 1 {
		channels = 1
	}
	full := float32(int64(1) << (depth - 1))
	offset := 0
	if depth == 8 {
		offset = 128
	}

	frames := len(data) / channels
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(data[i*channels+c]-offset) / full
		}
		samples[i] = sum / float32(channels)
	}
	return samples, nil
}

// Playback feeds a clip into an Analyser at render rate. Each Sample call
// advances the clip by one tick worth of audio and loops at the end.
type Playback struct {
	*Analyser
	clip *Clip
	hop  int
	pos  int
}

// NewPlayback plays clip through a new analyser at fps ticks per second.
func NewPlayback(clip *Clip, cfg AnalyserConfig, fps int) *Playback {
	if fps <= 0 {
		fps = 60
	}
	hop := clip.SampleRate / fps
	if hop < 1 {
		hop = 1
	}
	return &Playback{Analyser: NewAnalyser(cfg), clip: clip, hop: hop}
}

// Sample advances playback by one tick and returns the analysed volume.
func (p *Playback) Sample() float64 {
	n := len(p.clip.Samples)
	if n == 0 {
		return 0
	}
	remaining := p.hop
	for remaining > 0 {
		end := min(p.pos+remaining, n)
		p.Write(p.clip.Samples[p.pos:end])
		remaining -= end - p.pos
		p.pos = end % n
	}
	return p.Analyser.Sample()
}

// Position returns the current sample offset in the clip.
func (p *Playback) Position() int {
	return p.pos
}
