package translate

import (
	"context"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sourceSRT = "1\n00:00:00,000 --> 00:00:01,500\nHello there.\n"

type fakeUpstream struct {
	mu       sync.Mutex
	form     map[string]string
	agent    string
	status   int
	body     string
	langs    string
	langCode int
}

func (f *fakeUpstream) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/translate", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())

		f.mu.Lock()
		f.agent = r.UserAgent()
		f.form = map[string]string{}
		for k := range r.PostForm {
			f.form[k] = r.PostForm.Get(k)
		}
		status, body := f.status, f.body
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/languages", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.langCode)
		_, _ = w.Write([]byte(f.langs))
	})
	return mux
}

func newTestService(t *testing.T, upstream *fakeUpstream) (*Service, string) {
	t.Helper()

	server := httptest.NewServer(upstream.handler(t))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL+"/", time.Second, nil)
	require.NoError(t, err)

	scratch := t.TempDir()
	svc, err := NewService(client, scratch, "en", nil)
	require.NoError(t, err)
	return svc, scratch
}

func TestTranslateWritesUpstreamBodyVerbatim(t *testing.T) {
	t.Parallel()

	reply := `{"translatedText":"1\n00:00:00,000 --> 00:00:01,500\nBonjour.\n"}`
	upstream := &fakeUpstream{status: http.StatusOK, body: reply}
	svc, scratch := newTestService(t, upstream)
	require.NoError(t, os.WriteFile(filepath.Join(scratch, "subtitles_en.srt"), []byte(sourceSRT), 0o644))

	outcome, err := svc.Translate(context.Background(), "fr", "")
	require.NoError(t, err)
	require.Equal(t, Outcome{Status: StatusSuccess, File: "subtitles_fr.srt"}, outcome)

	written, err := os.ReadFile(filepath.Join(scratch, "subtitles_fr.srt"))
	require.NoError(t, err)
	require.Equal(t, reply, string(written))

	require.Equal(t, map[string]string{"q": sourceSRT, "source": "en", "target": "fr", "format": "text"}, upstream.form)
	require.True(t, strings.HasPrefix(upstream.agent, "subgen/"))
}

func TestTranslateReportsUpstreamFailure(t *testing.T) {
	t.Parallel()

	upstream := &fakeUpstream{status: http.StatusBadRequest, body: `{"error":"fr is not supported"}`}
	svc, scratch := newTestService(t, upstream)
	require.NoError(t, os.WriteFile(filepath.Join(scratch, "subtitles_en.srt"), []byte(sourceSRT), 0o644))

	outcome, err := svc.Translate(context.Background(), "fr", "")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, outcome.Status)
	require.Equal(t, `{"error":"fr is not supported"}`, outcome.Details)

	_, statErr := os.Stat(filepath.Join(scratch, "subtitles_fr.srt"))
	require.ErrorIs(t, statErr, fs.ErrNotExist)
}

func TestTranslateMissingSourceFile(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, &fakeUpstream{status: http.StatusOK})

	_, err := svc.Translate(context.Background(), "fr", "")
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.Contains(t, err.Error(), "subtitles_en.srt")
}

func TestTranslateExplicitSource(t *testing.T) {
	t.Parallel()

	upstream := &fakeUpstream{status: http.StatusOK, body: "hola"}
	svc, scratch := newTestService(t, upstream)
	require.NoError(t, os.WriteFile(filepath.Join(scratch, "subtitles_de.srt"), []byte("hallo"), 0o644))

	outcome, err := svc.Translate(context.Background(), "es", "de")
	require.NoError(t, err)
	require.Equal(t, "subtitles_es.srt", outcome.File)
	require.Equal(t, "de", upstream.form["source"])
}

func TestTranslateRejectsPathLikeLanguage(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, &fakeUpstream{status: http.StatusOK})

	for _, lang := range []string{"", "  ", "../etc", `a\b`, ".."} {
		_, err := svc.Translate(context.Background(), lang, "")
		require.ErrorIs(t, err, ErrInvalidLanguage, "lang %q", lang)
	}
}

func TestTranslateTransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(url, time.Second, nil)
	require.NoError(t, err)

	scratch := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(scratch, "subtitles_en.srt"), []byte(sourceSRT), 0o644))
	svc, err := NewService(client, scratch, "", nil)
	require.NoError(t, err)

	_, err = svc.Translate(context.Background(), "fr", "")
	require.ErrorIs(t, err, ErrEngineUnreachable)
}

func TestLanguagesProxiesUpstream(t *testing.T) {
	t.Parallel()

	langs := `[{"code":"en","name":"English","targets":["fr"]}]`
	svc, _ := newTestService(t, &fakeUpstream{langs: langs, langCode: http.StatusOK})

	resp, err := svc.Languages(context.Background())
	require.NoError(t, err)
	require.True(t, resp.OK())
	require.Equal(t, langs, string(resp.Body))
	require.Equal(t, "application/json", resp.ContentType)
}

func TestNewClientRequiresURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient(" ", 0, nil)
	require.Error(t, err)
}
