package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/fmueller/subgen/internal/audio/audiotest"
	"github.com/stretchr/testify/require"
)

func TestIsSilentWAVDetectsSilence(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "silent.wav")
	require.NoError(t, os.WriteFile(path, audiotest.SilentWAV(1), 0o644))

	silent, metrics, err := IsSilentWAV(path, DefaultSilenceDBFS)
	require.NoError(t, err)
	require.True(t, silent)
	require.True(t, math.IsInf(metrics.RMSdBFS, -1))
	require.True(t, math.IsInf(metrics.PeakdBFS, -1))
	require.EqualValues(t, 16000, metrics.Samples)
}

func TestIsSilentWAVDetectsSpeechLikeSignal(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "voice.wav")
	require.NoError(t, os.WriteFile(path, audiotest.ToneWAV(1), 0o644))

	silent, metrics, err := IsSilentWAV(path, DefaultSilenceDBFS)
	require.NoError(t, err)
	require.False(t, silent)
	require.Greater(t, metrics.PeakdBFS, -20.0)
	require.Greater(t, metrics.RMSdBFS, -20.0)
}

func TestIsSilentWAVEmptyDataChunk(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.wav")
	require.NoError(t, os.WriteFile(path, audiotest.PCM16WAV(nil, 16000, 1), 0o644))

	silent, metrics, err := IsSilentWAV(path, DefaultSilenceDBFS)
	require.NoError(t, err)
	require.True(t, silent)
	require.Zero(t, metrics.Samples)
}

func TestIsSilentWAVInvalidFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "not-wav.wav")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	_, _, err := IsSilentWAV(path, DefaultSilenceDBFS)
	require.ErrorIs(t, err, ErrInvalidWAV)
}

func TestAmplitudeToDBFS(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 0.0, amplitudeToDBFS(1), 1e-9)
	require.InDelta(t, -6.0206, amplitudeToDBFS(0.5), 1e-3)
	require.True(t, math.IsInf(amplitudeToDBFS(0), -1))
}

func TestLevelSilent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		level Level
		want  bool
	}{
		{name: "no samples", level: Level{}, want: true},
		{name: "digital silence", level: Level{RMSdBFS: math.Inf(-1), PeakdBFS: math.Inf(-1), Samples: 10}, want: true},
		{name: "quiet hiss", level: Level{RMSdBFS: -70, PeakdBFS: -62, Samples: 10}, want: true},
		{name: "click above headroom", level: Level{RMSdBFS: -70, PeakdBFS: -50, Samples: 10}, want: false},
		{name: "speech", level: Level{RMSdBFS: -20, PeakdBFS: -3, Samples: 10}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, tt.level.Silent(DefaultSilenceDBFS))
		})
	}
}

func TestSampleDecoder24BitSignExtends(t *testing.T) {
	t.Parallel()

	decode, width := sampleDecoder(WAVInfo{AudioFormat: formatPCM, BitsPerSample: 24})
	require.Equal(t, 3, width)
	require.InDelta(t, -1.0, decode([]byte{0x00, 0x00, 0x80}), 1e-9)
	require.InDelta(t, 0.5, decode([]byte{0x00, 0x00, 0x40}), 1e-9)
}
