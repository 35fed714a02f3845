package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedWAV = errors.New("unsupported wav format")
	ErrInvalidWAV     = errors.New("invalid wav file")
)

const (
	formatPCM   = 1
	formatFloat = 3
)

// WAVInfo describes the fmt and data chunks of a RIFF/WAVE file.
type WAVInfo struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
	DataOffset    int64
	DataSize      uint32
}

// IsWhisperReady reports whether the file is already the 16 kHz mono 16-bit
// PCM layout whisper.cpp reads natively.
func (w WAVInfo) IsWhisperReady() bool {
	return w.AudioFormat == formatPCM && w.Channels == 1 && w.SampleRate == 16000 && w.BitsPerSample == 16
}

// HasWAVExtension reports whether path names a .wav file.
func HasWAVExtension(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav")
}

// ProbeWAV reads the chunk layout of a WAV file without loading samples.
func ProbeWAV(path string) (WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return WAVInfo{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	return readWAVInfo(f)
}

func readWAVInfo(f io.ReadSeeker) (WAVInfo, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(f, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return WAVInfo{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		return WAVInfo{}, fmt.Errorf("read wav header: %w", err)
	}

	if string(header[:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return WAVInfo{}, ErrInvalidWAV
	}

	var (
		info    WAVInfo
		hasFmt  bool
		hasData bool
	)

	for {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(f, chunkHeader); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return WAVInfo{}, fmt.Errorf("read wav chunk header: %w", err)
		}

		chunkID := string(chunkHeader[:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		chunkStart, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			return WAVInfo{}, fmt.Errorf("seek wav chunk start: %w", err)
		}

		skip := int64(chunkSize)
		if chunkSize%2 != 0 {
			skip++
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return WAVInfo{}, ErrInvalidWAV
			}

			buf := make([]byte, chunkSize)
			if _, err := io.ReadFull(f, buf); err != nil {
				return WAVInfo{}, fmt.Errorf("read wav fmt chunk: %w", err)
			}

			info.AudioFormat = binary.LittleEndian.Uint16(buf[0:2])
			info.Channels = binary.LittleEndian.Uint16(buf[2:4])
			info.SampleRate = binary.LittleEndian.Uint32(buf[4:8])
			info.BitsPerSample = binary.LittleEndian.Uint16(buf[14:16])
			hasFmt = true

			if chunkSize%2 != 0 {
				if _, err := f.Seek(1, io.SeekCurrent); err != nil {
					return WAVInfo{}, fmt.Errorf("seek wav fmt padding: %w", err)
				}
			}
		case "data":
			info.DataOffset = chunkStart
			info.DataSize = chunkSize
			hasData = true
			if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
				return WAVInfo{}, fmt.Errorf("seek wav data chunk: %w", err)
			}
		default:
			if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
				return WAVInfo{}, fmt.Errorf("seek wav chunk %s: %w", chunkID, err)
			}
		}
	}

	if !hasFmt || !hasData {
		return WAVInfo{}, ErrInvalidWAV
	}

	if err := validateFormat(info.AudioFormat, info.BitsPerSample); err != nil {
		return WAVInfo{}, err
	}

	return info, nil
}

func validateFormat(audioFormat, bitsPerSample uint16) error {
	switch audioFormat {
	case formatPCM:
		switch bitsPerSample {
		case 8, 16, 24, 32:
			return nil
		}
	case formatFloat:
		switch bitsPerSample {
		case 32, 64:
			return nil
		}
	}
	return ErrUnsupportedWAV
}
