package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader builds a Config from defaults, an optional YAML file and SUBGEN_*
// environment variables, in that order. Tests can override Lookup and
// ReadFile to inject deterministic inputs.
type Loader struct {
	Lookup   func(string) (string, bool)
	ReadFile func(string) ([]byte, error)
}

func (l Loader) Load(path string) (Config, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}
	if l.ReadFile == nil {
		l.ReadFile = os.ReadFile
	}

	cfg := Default()

	if path == "" {
		if envPath, ok := l.Lookup("SUBGEN_CONFIG"); ok {
			path = strings.TrimSpace(envPath)
		}
	}
	if path != "" {
		raw, err := l.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := applyYAML(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	if err := l.applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyYAML(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (l Loader) applyEnv(cfg *Config) error {
	overrideString(l.Lookup, "SUBGEN_WHISPER_LISTEN_ADDR", &cfg.Whisper.ListenAddr)
	overrideString(l.Lookup, "SUBGEN_MODEL_DIR", &cfg.Whisper.ModelDir)
	overrideString(l.Lookup, "SUBGEN_WHISPER_SCRATCH_DIR", &cfg.Whisper.ScratchDir)
	overrideString(l.Lookup, "SUBGEN_DEFAULT_MODEL", &cfg.Whisper.DefaultModel)
	overrideString(l.Lookup, "SUBGEN_LANGUAGE", &cfg.Whisper.Language)
	overrideString(l.Lookup, "SUBGEN_FFMPEG_PATH", &cfg.Whisper.FFmpegPath)
	overrideString(l.Lookup, "SUBGEN_TRANSLATE_LISTEN_ADDR", &cfg.Translate.ListenAddr)
	overrideString(l.Lookup, "SUBGEN_TRANSLATE_URL", &cfg.Translate.UpstreamURL)
	overrideString(l.Lookup, "SUBGEN_TRANSLATE_SCRATCH_DIR", &cfg.Translate.ScratchDir)
	overrideString(l.Lookup, "SUBGEN_TRANSLATE_SOURCE", &cfg.Translate.SourceLanguage)

	if err := overrideInt(l.Lookup, "SUBGEN_BEAM_SIZE", &cfg.Whisper.BeamSize); err != nil {
		return err
	}
	if err := overrideInt(l.Lookup, "SUBGEN_THREADS", &cfg.Whisper.Threads); err != nil {
		return err
	}
	if err := overrideBool(l.Lookup, "SUBGEN_SILENCE_GATE", &cfg.Whisper.SilenceGate); err != nil {
		return err
	}
	if err := overrideBool(l.Lookup, "SUBGEN_AUTO_DOWNLOAD", &cfg.Whisper.AutoDownload); err != nil {
		return err
	}
	if err := overrideDuration(l.Lookup, "SUBGEN_TRANSLATE_TIMEOUT", &cfg.Translate.Timeout); err != nil {
		return err
	}
	return overrideDuration(l.Lookup, "SUBGEN_SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)
}

func lookupTrimmed(lookup func(string) (string, bool), key string) (string, bool) {
	value, ok := lookup(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if value, ok := lookupTrimmed(lookup, key); ok {
		*target = value
	}
}

func overrideInt(lookup func(string) (string, bool), key string, target *int) error {
	value, ok := lookupTrimmed(lookup, key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*target = n
	return nil
}

func overrideBool(lookup func(string) (string, bool), key string, target *bool) error {
	value, ok := lookupTrimmed(lookup, key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*target = b
	return nil
}

// overrideDuration accepts Go durations ("90s") or plain seconds ("90").
func overrideDuration(lookup func(string) (string, bool), key string, target *time.Duration) error {
	value, ok := lookupTrimmed(lookup, key)
	if !ok {
		return nil
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		*target = time.Duration(seconds) * time.Second
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*target = d
	return nil
}
