package audio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// DefaultSilenceDBFS is the RMS level at or below which a clip counts as silent.
const DefaultSilenceDBFS = -65.0

// peakHeadroomDB is how far a single peak may rise above the threshold
// before a quiet clip stops counting as silent.
const peakHeadroomDB = 6.0

// Level is the loudness of a clip's samples across all channels.
type Level struct {
	RMSdBFS  float64
	PeakdBFS float64
	Samples  int64
}

// Silent reports whether the level sits at or below thresholdDBFS. A clip
// with no samples is silent.
func (l Level) Silent(thresholdDBFS float64) bool {
	if l.Samples == 0 || math.IsInf(l.PeakdBFS, -1) {
		return true
	}
	return l.RMSdBFS <= thresholdDBFS && l.PeakdBFS <= thresholdDBFS+peakHeadroomDB
}

// IsSilentWAV measures the WAV file at path and checks it against
// thresholdDBFS.
func IsSilentWAV(path string, thresholdDBFS float64) (bool, Level, error) {
	level, err := MeasureWAV(path)
	if err != nil {
		return false, Level{}, err
	}
	return level.Silent(thresholdDBFS), level, nil
}

// MeasureWAV streams the data chunk of a WAV file and returns its level.
func MeasureWAV(path string) (Level, error) {
	f, err := os.Open(path)
	if err != nil {
		return Level{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	info, err := readWAVInfo(f)
	if err != nil {
		return Level{}, err
	}
	if _, err := f.Seek(info.DataOffset, io.SeekStart); err != nil {
		return Level{}, fmt.Errorf("seek wav data: %w", err)
	}

	decode, width := sampleDecoder(info)
	if decode == nil {
		return Level{}, ErrUnsupportedWAV
	}

	var m meter
	r := bufio.NewReader(io.LimitReader(f, int64(info.DataSize)))
	buf := make([]byte, width*4096)
	for {
		n, err := io.ReadFull(r, buf)
		for i := 0; i+width <= n; i += width {
			m.add(decode(buf[i : i+width]))
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return Level{}, fmt.Errorf("read wav data: %w", err)
		}
	}
	return m.level(), nil
}

type meter struct {
	peak       float64
	sumSquares float64
	samples    int64
}

func (m *meter) add(v float64) {
	m.peak = math.Max(m.peak, math.Abs(v))
	m.sumSquares += v * v
	m.samples++
}

func (m *meter) level() Level {
	if m.samples == 0 {
		return Level{RMSdBFS: math.Inf(-1), PeakdBFS: math.Inf(-1)}
	}
	return Level{
		RMSdBFS:  amplitudeToDBFS(math.Sqrt(m.sumSquares / float64(m.samples))),
		PeakdBFS: amplitudeToDBFS(m.peak),
		Samples:  m.samples,
	}
}

// sampleDecoder returns a func that maps one little-endian sample onto
// [-1, 1], plus the sample width in bytes. It is nil for layouts
// validateFormat rejects.
func sampleDecoder(info WAVInfo) (func([]byte) float64, int) {
	if info.AudioFormat == formatFloat {
		switch info.BitsPerSample {
		case 32:
			return func(b []byte) float64 { return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))) }, 4
		case 64:
			return func(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) }, 8
		}
		return nil, 0
	}

	switch info.BitsPerSample {
	case 8:
		return func(b []byte) float64 { return (float64(b[0]) - 128) / 128 }, 1
	case 16:
		return func(b []byte) float64 { return float64(int16(binary.LittleEndian.Uint16(b))) / (1 << 15) }, 2
	case 24:
		return func(b []byte) float64 {
			v := int32(b[0]) | int32(b[1])<<8 | int32(int8(b[2]))<<16
			return float64(v) / (1 << 23)
		}, 3
	case 32:
		return func(b []byte) float64 { return float64(int32(binary.LittleEndian.Uint32(b))) / (1 << 31) }, 4
	}
	return nil, 0
}

func amplitudeToDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(amplitude)
}
