package chronometro

import (
	"bytes"
	"encoding/binary"
	"io"
)

// RenderSamples starts a player without a sound device and renders seconds
// of interleaved stereo output.
func RenderSamples(sampleRate int, seconds float64, opts ...PlayerOption) ([]float32, error) {
	p, err := NewPlayer(sampleRate, append(opts, WithoutAudioOutput())...)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	if err := p.Start(); err != nil {
		return nil, err
	}
	frames := int(float64(sampleRate) * seconds)
	out := make([]float32, frames*2)
	p.Render(out)
	return out, nil
}

// wavHeader is the 44-byte header of a WAVE_FORMAT_IEEE_FLOAT file.
type wavHeader struct {
	RIFF       [4]byte
	ChunkSize  uint32
	WAVE       [4]byte
	Fmt        [4]byte
	FmtSize    uint32
	Format     uint16
	Channels   uint16
	SampleRate uint32
	ByteRate   uint32
	BlockAlign uint16
	Bits       uint16
	Data       [4]byte
	DataSize   uint32
}

const wavFormatFloat = 3

// WriteWAVFloat32LE writes interleaved samples as a 32-bit float WAV file.
func WriteWAVFloat32LE(w io.Writer, samples []float32, sampleRate int, channels int) error {
	dataSize := uint32(len(samples) * 4)
	h := wavHeader{
		RIFF:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:  36 + dataSize,
		WAVE:       [4]byte{'W', 'A', 'V', 'E'},
		Fmt:        [4]byte{'f', 'm', 't', ' '},
		FmtSize:    16,
		Format:     wavFormatFloat,
		Channels:   uint16(channels),
		SampleRate: uint32(sampleRate),
		ByteRate:   uint32(sampleRate * channels * 4),
		BlockAlign: uint16(channels * 4),
		Bits:       32,
		Data:       [4]byte{'d', 'a', 't', 'a'},
		DataSize:   dataSize,
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, samples)
}

// EncodeWAVFloat32LE returns samples as an in-memory float WAV file.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	var buf bytes.Buffer
	buf.Grow(44 + len(samples)*4)
	// bytes.Buffer writes cannot fail.
	_ = WriteWAVFloat32LE(&buf, samples, sampleRate, channels)
	return buf.Bytes()
}
