package cli

import (
	"fmt"
	"os"

	"github.com/fmueller/subgen/internal/config"
	"github.com/fmueller/subgen/internal/logging"
	"github.com/fmueller/subgen/internal/platform"
	"github.com/fmueller/subgen/internal/version"
	"github.com/fmueller/subgen/internal/whisper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"
)

type appState struct {
	verbose    bool
	jsonLogs   bool
	noProgress bool
	configPath string

	// cfg is filled by the config loader before a command runs. Command
	// flags are bound to its fields and win over file and environment.
	cfg    config.Config
	loader config.Loader

	logger *zap.Logger

	newEngine func(cfg config.WhisperConfig, logger *zap.Logger) (whisper.Engine, error)
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&appState{
		cfg:       config.Default(),
		newEngine: newBundledEngine,
	})
}

func newRootCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "subgen",
		Short:         "Generate and translate subtitles with a local whisper engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.loadConfig(cmd); err != nil {
				return err
			}
			app.logger = logging.New(logging.Options{
				Verbose: app.verbose,
				JSON:    app.jsonLogs,
				Service: serviceName(cmd),
				Output:  cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.PersistentFlags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
	cmd.PersistentFlags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
	cmd.PersistentFlags().StringVar(&app.configPath, "config", app.configPath, "YAML config file (default $SUBGEN_CONFIG)")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newModelsCmd(app))
	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newTranslateCmd(app))
	cmd.AddCommand(newVersionCmd())

	markUsageErrors(cmd)
	return cmd
}

// loadConfig replaces app.cfg with defaults, file and environment, then
// re-applies every flag the user set so flags keep the last word.
func (a *appState) loadConfig(cmd *cobra.Command) error {
	changed := map[string]string{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	cfg, err := a.loader.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	for name, value := range changed {
		if err := cmd.Flags().Set(name, value); err != nil {
			return fmt.Errorf("apply --%s: %w", name, err)
		}
	}
	return a.cfg.Validate()
}

func bindWhisperModelFlags(cmd *cobra.Command, app *appState) {
	w := &app.cfg.Whisper
	cmd.Flags().StringVar(&w.DefaultModel, "model", w.DefaultModel, "Model name ("+joinedModelNames()+")")
	cmd.Flags().StringVar(&w.ModelDir, "model-dir", w.ModelDir, "Directory where models are stored")
}

func bindWhisperEngineFlags(cmd *cobra.Command, app *appState) {
	w := &app.cfg.Whisper
	cmd.Flags().StringVar(&w.Language, "language", w.Language, "Language code (auto|en|de|...) for transcription")
	cmd.Flags().IntVar(&w.BeamSize, "beam-size", w.BeamSize, "Beam search width")
	cmd.Flags().IntVar(&w.Threads, "threads", w.Threads, "Inference threads; 0 lets whisper decide")
	cmd.Flags().StringVar(&w.EnginePath, "whisper-path", w.EnginePath, "Path to whisper-cli (default $"+whisper.EnginePathEnv+", then bundled, then PATH)")
	cmd.Flags().StringVar(&w.FFmpegPath, "ffmpeg-path", w.FFmpegPath, "Path to ffmpeg used to convert uploads")
	cmd.Flags().BoolVar(&w.AutoDownload, "auto-download", w.AutoDownload, "Automatically download missing models")
	cmd.Flags().BoolVar(&w.SilenceGate, "silence-gate", w.SilenceGate, "Detect near-silent WAV audio and skip transcription")
	cmd.Flags().Float64Var(&w.SilenceDBFS, "silence-threshold-dbfs", w.SilenceDBFS, "Silence gate threshold in dBFS")
}

func serviceName(cmd *cobra.Command) string {
	if cmd.Parent() != nil && cmd.Parent().Name() == "serve" {
		return cmd.Name()
	}
	return ""
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func (a *appState) modelStorageDir() (string, error) {
	dir, err := platform.ResolveModelDir(a.cfg.Whisper.ModelDir)
	if err != nil {
		return "", err
	}
	return platform.EnsureDir(dir)
}
