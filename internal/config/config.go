package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fmueller/subgen/internal/audio"
	"github.com/fmueller/subgen/internal/platform"
	"github.com/fmueller/subgen/internal/whisper"
)

const (
	DefaultWhisperListenAddr   = "127.0.0.1:8000"
	DefaultTranslateListenAddr = "127.0.0.1:8001"
	DefaultUpstreamURL         = "http://localhost:5000"
	DefaultSourceLanguage      = "en"
	DefaultLanguage            = "auto"
	DefaultShutdownTimeout     = 10 * time.Second
	DefaultUpstreamTimeout     = 5 * time.Minute
	DefaultMaxUploadBytes      = 512 << 20
)

type Config struct {
	Whisper         WhisperConfig   `yaml:"whisper"`
	Translate       TranslateConfig `yaml:"translate"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
}

type WhisperConfig struct {
	ListenAddr     string  `yaml:"listen_addr"`
	ModelDir       string  `yaml:"model_dir"`
	ScratchDir     string  `yaml:"scratch_dir"`
	DefaultModel   string  `yaml:"default_model"`
	Language       string  `yaml:"language"`
	BeamSize       int     `yaml:"beam_size"`
	Threads        int     `yaml:"threads"`
	EnginePath     string  `yaml:"engine_path"`
	FFmpegPath     string  `yaml:"ffmpeg_path"`
	SilenceGate    bool    `yaml:"silence_gate"`
	SilenceDBFS    float64 `yaml:"silence_threshold_dbfs"`
	AutoDownload   bool    `yaml:"auto_download"`
	MaxUploadBytes int64   `yaml:"max_upload_bytes"`
}

type TranslateConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	UpstreamURL    string        `yaml:"upstream_url"`
	ScratchDir     string        `yaml:"scratch_dir"`
	SourceLanguage string        `yaml:"source_language"`
	Timeout        time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Whisper: WhisperConfig{
			ListenAddr:     DefaultWhisperListenAddr,
			ScratchDir:     platform.DefaultScratchDir,
			DefaultModel:   whisper.DefaultModel,
			Language:       DefaultLanguage,
			BeamSize:       whisper.DefaultBeamSize,
			SilenceGate:    true,
			SilenceDBFS:    audio.DefaultSilenceDBFS,
			AutoDownload:   true,
			MaxUploadBytes: DefaultMaxUploadBytes,
		},
		Translate: TranslateConfig{
			ListenAddr:     DefaultTranslateListenAddr,
			UpstreamURL:    DefaultUpstreamURL,
			ScratchDir:     platform.DefaultScratchDir,
			SourceLanguage: DefaultSourceLanguage,
			Timeout:        DefaultUpstreamTimeout,
		},
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// Validate fills zero values with defaults and rejects out-of-range values.
func (c *Config) Validate() error {
	def := Default()

	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}

	w := &c.Whisper
	w.ListenAddr = strings.TrimSpace(w.ListenAddr)
	if w.ListenAddr == "" {
		return fmt.Errorf("config: whisper.listen_addr is required")
	}
	if w.ScratchDir == "" {
		w.ScratchDir = def.Whisper.ScratchDir
	}
	if w.DefaultModel == "" {
		w.DefaultModel = def.Whisper.DefaultModel
	}
	if _, ok := whisper.LookupModel(w.DefaultModel); !ok {
		return fmt.Errorf("config: whisper.default_model %q is not one of %s", w.DefaultModel, strings.Join(whisper.ModelNames(), ", "))
	}
	w.Language = strings.ToLower(strings.TrimSpace(w.Language))
	if w.Language == "" {
		w.Language = DefaultLanguage
	}
	if w.BeamSize == 0 {
		w.BeamSize = def.Whisper.BeamSize
	}
	if w.BeamSize < 1 {
		return fmt.Errorf("config: whisper.beam_size must be >= 1, got %d", w.BeamSize)
	}
	if w.Threads < 0 {
		return fmt.Errorf("config: whisper.threads must be >= 0, got %d", w.Threads)
	}
	if w.MaxUploadBytes <= 0 {
		w.MaxUploadBytes = def.Whisper.MaxUploadBytes
	}

	t := &c.Translate
	t.ListenAddr = strings.TrimSpace(t.ListenAddr)
	if t.ListenAddr == "" {
		return fmt.Errorf("config: translate.listen_addr is required")
	}
	if t.ScratchDir == "" {
		t.ScratchDir = def.Translate.ScratchDir
	}
	if t.SourceLanguage == "" {
		t.SourceLanguage = def.Translate.SourceLanguage
	}
	if t.Timeout <= 0 {
		t.Timeout = def.Translate.Timeout
	}
	t.UpstreamURL = strings.TrimRight(strings.TrimSpace(t.UpstreamURL), "/")
	if t.UpstreamURL == "" {
		t.UpstreamURL = def.Translate.UpstreamURL
	}
	parsed, err := url.Parse(t.UpstreamURL)
	if err != nil {
		return fmt.Errorf("config: translate.upstream_url: %w", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("config: translate.upstream_url must be an http(s) URL, got %q", t.UpstreamURL)
	}

	return nil
}
