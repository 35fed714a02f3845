package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/fmueller/subgen/internal/platform"
	"github.com/fmueller/subgen/internal/subtitle"
	"go.uber.org/zap"
)

// EnginePathEnv overrides where whisper-cli is looked up.
const EnginePathEnv = "SUBGEN_WHISPER_PATH"

// BundledEngine runs the whisper.cpp CLI once per transcription and reads
// back its JSON output.
type BundledEngine struct {
	Executable string
	Threads    int
	Logger     *zap.Logger
}

// NewBundledEngine locates whisper-cli. An explicit path wins, then
// SUBGEN_WHISPER_PATH, then the install layout next to the subgen binary,
// then PATH.
func NewBundledEngine(explicit string, logger *zap.Logger) (*BundledEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	override := strings.TrimSpace(explicit)
	source := "configured engine path"
	if override == "" {
		override = strings.TrimSpace(os.Getenv(EnginePathEnv))
		source = EnginePathEnv
	}
	if override != "" {
		if err := ensureExecutable(override); err != nil {
			return nil, fmt.Errorf("%s is not executable: %w", source, err)
		}
		return &BundledEngine{Executable: override, Logger: logger}, nil
	}

	selfExe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve subgen executable path: %w", err)
	}

	whisperExe, err := ResolveBundledEnginePath(selfExe)
	if err != nil {
		if fromPath, lookErr := exec.LookPath(engineBinaryName()); lookErr == nil {
			return &BundledEngine{Executable: fromPath, Logger: logger}, nil
		}
		return nil, err
	}

	return &BundledEngine{Executable: whisperExe, Logger: logger}, nil
}

func ResolveBundledEnginePath(selfExecutable string) (string, error) {
	for _, candidate := range EnginePathCandidates(selfExecutable) {
		if err := ensureExecutable(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("whisper engine not found near %s or on PATH; install whisper.cpp or set %s (expected at ../libexec/whisper/%s)", selfExecutable, EnginePathEnv, engineBinaryName())
}

func EnginePathCandidates(selfExecutable string) []string {
	binDir := filepath.Dir(selfExecutable)
	engineName := engineBinaryName()
	hostTarget := platform.CurrentRuntime().Target()

	return []string{
		filepath.Join(binDir, "..", "libexec", "whisper", engineName),
		filepath.Join(binDir, "libexec", "whisper", engineName),
		filepath.Join(binDir, "packaging", "whisper", hostTarget, engineName),
		filepath.Join(binDir, engineName),
	}
}

func (b *BundledEngine) Transcribe(ctx context.Context, req TranscriptionRequest) (subtitle.Transcript, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return subtitle.Transcript{}, errors.New("audio path is required")
	}
	if strings.TrimSpace(req.ModelPath) == "" {
		return subtitle.Transcript{}, errors.New("model path is required")
	}

	if err := ensureExecutable(b.Executable); err != nil {
		return subtitle.Transcript{}, fmt.Errorf("whisper engine missing or not executable: %w", err)
	}

	outBase := filepath.Join(filepath.Dir(req.AudioPath), fmt.Sprintf("whisper-%d", time.Now().UnixNano()))
	jsonOut := outBase + ".json"
	defer os.Remove(jsonOut)

	cmd := exec.CommandContext(ctx, b.Executable, b.buildArgs(req, outBase)...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	b.log().Debug("running whisper engine", zap.String("engine", b.Executable), zap.Strings("args", cmd.Args[1:]))
	if err := cmd.Run(); err != nil {
		errText := strings.TrimSpace(stderr.String())
		if isMissingSharedLibraryError(errText) {
			return subtitle.Transcript{}, fmt.Errorf("whisper engine at %s is missing required shared libraries (%s); rebuild whisper-cli with BUILD_SHARED_LIBS=OFF", b.Executable, errText)
		}
		if isIllegalInstructionError(errText) || isIllegalInstructionError(err.Error()) {
			return subtitle.Transcript{}, fmt.Errorf("whisper engine crashed with an illegal CPU instruction; "+
				"your CPU may lack required instruction set extensions; "+
				"set %s to a whisper-cli binary built for your CPU", EnginePathEnv)
		}
		return subtitle.Transcript{}, fmt.Errorf("whisper transcribe failed: %w (%s)", err, errText)
	}

	content, err := os.ReadFile(jsonOut)
	if err != nil {
		return subtitle.Transcript{}, fmt.Errorf("read whisper output: %w", err)
	}

	return parseCLIOutput(content)
}

func (b *BundledEngine) buildArgs(req TranscriptionRequest, outBase string) []string {
	beamSize := req.BeamSize
	if beamSize <= 0 {
		beamSize = DefaultBeamSize
	}

	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = "auto"
	}

	args := []string{
		"-m", req.ModelPath,
		"-f", req.AudioPath,
		"-bs", strconv.Itoa(beamSize),
		"-l", lang,
		"-np",
		"-oj",
		"-of", outBase,
	}
	if b.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(b.Threads))
	}
	return args
}

func (b *BundledEngine) log() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "whisper-cli.exe"
	}
	return "whisper-cli"
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func isMissingSharedLibraryError(stderr string) bool {
	value := strings.ToLower(strings.TrimSpace(stderr))
	if value == "" {
		return false
	}

	patterns := []string{
		"error while loading shared libraries",
		"cannot open shared object file",
		"dyld: library not loaded",
		"image not found",
	}

	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func isIllegalInstructionError(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "illegal instruction")
}
