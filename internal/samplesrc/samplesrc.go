// Package samplesrc decodes click sounds from audio files into mono tables.
package samplesrc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/viterin/vek/vek32"
)

// DefaultMaxFrames is how much of a file is kept for a click.
const DefaultMaxFrames = 1 << 11

var (
	ErrUnsupportedFormat = errors.New("samplesrc: unsupported audio format")
	ErrEmpty             = errors.New("samplesrc: no audio frames decoded")
	ErrSilent            = errors.New("samplesrc: audio is silent")
)

// Format names a container the decoder understands.
type Format string

const (
	FormatWAV    Format = "wav"
	FormatVorbis Format = "ogg"
)

// FormatFromPath picks a Format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FormatWAV, nil
	case ".ogg", ".oga":
		return FormatVorbis, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Sample is a decoded mono click, peak-normalised to 1.
type Sample struct {
	Data       []float32
	SampleRate float64
}

// Load decodes at most maxFrames frames of the file at path.
func Load(path string, maxFrames int) (*Sample, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("samplesrc: open %s: %w", path, err)
	}
	s, err := Decode(f, format, maxFrames)
	if err != nil {
		return nil, fmt.Errorf("samplesrc: %s: %w", filepath.Base(path), err)
	}
	return s, nil
}

// Decode reads at most maxFrames frames from rc and closes it. Stereo input is
// mixed down to mono.
func Decode(rc io.ReadCloser, format Format, maxFrames int) (*Sample, error) {
	if maxFrames <= 0 {
		maxFrames = DefaultMaxFrames
	}
	var (
		stream beep.StreamSeekCloser
		bf     beep.Format
		err    error
	)
	switch format {
	case FormatWAV:
		stream, bf, err = wav.Decode(rc)
	case FormatVorbis:
		stream, bf, err = vorbis.Decode(rc)
	default:
		rc.Close()
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		rc.Close()
		return nil, err
	}
	defer stream.Close()

	data, err := readMono(stream, maxFrames)
	if err != nil {
		return nil, err
	}
	if err := Normalize(data); err != nil {
		return nil, err
	}
	return &Sample{Data: data, SampleRate: float64(bf.SampleRate)}, nil
}

func readMono(s beep.Streamer, maxFrames int) ([]float32, error) {
	out := make([]float32, 0, maxFrames)
	buf := make([][2]float64, 512)
	for len(out) < maxFrames {
		want := maxFrames - len(out)
		if want > len(buf) {
			want = len(buf)
		}
		n, ok := s.Stream(buf[:want])
		for _, frame := range buf[:n] {
			out = append(out, float32((frame[0]+frame[1])*0.5))
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

// Normalize scales data in place so its peak magnitude is 1.
func Normalize(data []float32) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	peak := vek32.Max(vek32.Abs(data))
	if peak <= 0 {
		return ErrSilent
	}
	vek32.MulNumber_Inplace(data, 1/peak)
	return nil
}
