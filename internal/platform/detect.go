// Package platform knows where subgen keeps its files on each OS.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "subgen"

// DefaultScratchDir is the working directory shared between the
// transcription and translation services.
const DefaultScratchDir = "temp"

type Runtime struct {
	OS   string
	Arch string
}

func CurrentRuntime() Runtime {
	return Runtime{OS: runtime.GOOS, Arch: NormalizeArch(runtime.GOARCH)}
}

// Target is the os_arch directory name used for bundled binaries.
func (r Runtime) Target() string {
	return r.OS + "_" + r.Arch
}

func (r Runtime) String() string {
	return r.OS + "/" + r.Arch
}

// NormalizeArch maps uname style names onto GOARCH values.
func NormalizeArch(arch string) string {
	switch arch {
	case "x86_64", "x64":
		return "amd64"
	case "aarch64":
		return "arm64"
	default:
		return arch
	}
}

// Env holds the environment values the data directory depends on.
type Env struct {
	Home         string
	XDGDataHome  string
	LocalAppData string
}

func currentEnv() (Env, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Env{}, fmt.Errorf("resolve user home: %w", err)
	}
	return Env{
		Home:         home,
		XDGDataHome:  os.Getenv("XDG_DATA_HOME"),
		LocalAppData: os.Getenv("LOCALAPPDATA"),
	}, nil
}

// DataDir is the per-user directory subgen stores downloads in.
func DataDir(goos string, env Env) (string, error) {
	switch goos {
	case "windows":
		if env.LocalAppData != "" {
			return filepath.Join(env.LocalAppData, appDirName), nil
		}
		if env.Home == "" {
			return "", errors.New("neither LOCALAPPDATA nor a home directory is set")
		}
		return filepath.Join(env.Home, "AppData", "Local", appDirName), nil
	case "darwin":
		if env.Home == "" {
			return "", errors.New("home directory is empty")
		}
		return filepath.Join(env.Home, "Library", "Application Support", appDirName), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		if env.XDGDataHome != "" {
			return filepath.Join(env.XDGDataHome, appDirName), nil
		}
		if env.Home == "" {
			return "", errors.New("home directory is empty")
		}
		return filepath.Join(env.Home, ".local", "share", appDirName), nil
	}
	return "", fmt.Errorf("unsupported OS: %s", goos)
}

// ModelDir is where model weights live unless configured otherwise.
func ModelDir(goos string, env Env) (string, error) {
	dir, err := DataDir(goos, env)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "models"), nil
}

// ResolveModelDir returns override when set, else the per-user model dir.
func ResolveModelDir(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}
	env, err := currentEnv()
	if err != nil {
		return "", err
	}
	return ModelDir(runtime.GOOS, env)
}

// EnsureDir resolves path to an absolute directory and creates it.
func EnsureDir(path string) (string, error) {
	if path == "" {
		return "", errors.New("directory path is empty")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", abs, err)
	}
	return abs, nil
}
