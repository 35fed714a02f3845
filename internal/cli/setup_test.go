package cli

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fmueller/subgen/internal/whisper"
	"github.com/stretchr/testify/require"
)

func TestSetupModelReplacesCorruptWeights(t *testing.T) {
	t.Parallel()

	weights := []byte("fresh weights")
	sum := sha256.Sum256(weights)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(weights)
	}))
	t.Cleanup(server.Close)

	path := filepath.Join(t.TempDir(), "ggml-tiny.bin")
	require.NoError(t, os.WriteFile(path, []byte("truncated"), 0o644))

	app := newTestApp(nil, &fakeEngine{})
	app.noProgress = true

	var out bytes.Buffer
	err := app.setupModel(context.Background(), &out, whisper.ResolvedModel{
		Name:   "tiny",
		Path:   path,
		URL:    server.URL,
		SHA256: hex.EncodeToString(sum[:]),
	})
	require.NoError(t, err)
	require.Equal(t, "Model tiny installed at "+path+"\n", out.String())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, weights, got)
}

func TestSetupModelKeepsVerifiedWeights(t *testing.T) {
	t.Parallel()

	weights := []byte("good weights")
	sum := sha256.Sum256(weights)
	path := filepath.Join(t.TempDir(), "ggml-tiny.bin")
	require.NoError(t, os.WriteFile(path, weights, 0o644))

	app := newTestApp(nil, &fakeEngine{})
	var out bytes.Buffer
	err := app.setupModel(context.Background(), &out, whisper.ResolvedModel{
		Name:   "tiny",
		Path:   path,
		URL:    "http://127.0.0.1:1/unused",
		SHA256: hex.EncodeToString(sum[:]),
	})
	require.NoError(t, err)
	require.Equal(t, "Model tiny already present at "+path+"\n", out.String())
}
