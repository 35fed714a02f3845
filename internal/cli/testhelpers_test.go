package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fmueller/subgen/internal/config"
	"github.com/fmueller/subgen/internal/subtitle"
	"github.com/fmueller/subgen/internal/whisper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEngine struct {
	mu       sync.Mutex
	requests []whisper.TranscriptionRequest
	result   subtitle.Transcript
}

func (f *fakeEngine) Transcribe(_ context.Context, req whisper.TranscriptionRequest) (subtitle.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.result, nil
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// newTestApp isolates the config loader from the real environment and swaps
// whisper-cli for engine.
func newTestApp(env map[string]string, engine whisper.Engine) *appState {
	return &appState{
		cfg: config.Default(),
		loader: config.Loader{
			Lookup: func(key string) (string, bool) {
				v, ok := env[key]
				return v, ok
			},
		},
		newEngine: func(config.WhisperConfig, *zap.Logger) (whisper.Engine, error) {
			return engine, nil
		},
	}
}

func runCommand(t *testing.T, app *appState, args []string) (stdout string, stderr string, err error) {
	t.Helper()

	if app == nil {
		app = newTestApp(nil, &fakeEngine{})
	}
	cmd := newRootCmd(app)
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

// installModel drops a placeholder weights file so no download is attempted.
func installModel(t *testing.T, dir, name string) {
	t.Helper()

	model, ok := whisper.LookupModel(name)
	require.True(t, ok)
	require.NoError(t, os.WriteFile(filepath.Join(dir, model.FileName), []byte("weights"), 0o644))
}
