// Package audiotest builds WAV fixtures for tests.
package audiotest

import (
	"encoding/binary"
	"math"
)

// PCM16WAV encodes samples as a canonical 16-bit PCM WAV file.
func PCM16WAV(samples []int16, sampleRate int, channels int) []byte {
	bytesPerSample := 2
	dataSize := len(samples) * bytesPerSample
	fmtChunkSize := 16
	riffSize := 4 + (8 + fmtChunkSize) + (8 + dataSize)

	out := make([]byte, 12+8+fmtChunkSize+8+dataSize)
	off := 0

	put := func(s string) {
		copy(out[off:], s)
		off += len(s)
	}
	put16 := func(v uint16) {
		binary.LittleEndian.PutUint16(out[off:], v)
		off += 2
	}
	put32 := func(v uint32) {
		binary.LittleEndian.PutUint32(out[off:], v)
		off += 4
	}

	put("RIFF")
	put32(uint32(riffSize))
	put("WAVE")

	put("fmt ")
	put32(uint32(fmtChunkSize))
	put16(1)
	put16(uint16(channels))
	put32(uint32(sampleRate))
	put32(uint32(sampleRate * channels * bytesPerSample))
	put16(uint16(channels * bytesPerSample))
	put16(16)

	put("data")
	put32(uint32(dataSize))
	for _, s := range samples {
		put16(uint16(s))
	}

	return out
}

// SilentWAV returns seconds of digital silence at 16 kHz mono.
func SilentWAV(seconds float64) []byte {
	return PCM16WAV(make([]int16, int(seconds*16000)), 16000, 1)
}

// ToneWAV returns seconds of a 440 Hz sine at a quarter of full scale, 16 kHz mono.
func ToneWAV(seconds float64) []byte {
	samples := make([]int16, int(seconds*16000))
	for i := range samples {
		samples[i] = int16(0.25 * 32767 * math.Sin(2*math.Pi*440*float64(i)/16000.0))
	}
	return PCM16WAV(samples, 16000, 1)
}
