package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersCoreSubcommands(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "models", "setup", "transcribe", "translate", "version"} {
		require.True(t, names[want], "missing subcommand %s", want)
	}

	require.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("json"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("no-progress"))
}

func TestServeWhisperFlagDefaults(t *testing.T) {
	t.Parallel()

	cmd, _, err := NewRootCmd().Find([]string{"serve", "whisper"})
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:8000", cmd.Flags().Lookup("listen").DefValue)
	require.Equal(t, "base", cmd.Flags().Lookup("model").DefValue)
	require.Equal(t, "5", cmd.Flags().Lookup("beam-size").DefValue)
	require.Equal(t, "true", cmd.Flags().Lookup("auto-download").DefValue)
	require.Equal(t, "true", cmd.Flags().Lookup("silence-gate").DefValue)
	require.Equal(t, "-65", cmd.Flags().Lookup("silence-threshold-dbfs").DefValue)
	require.NotNil(t, cmd.InheritedFlags().Lookup("shutdown-timeout"))

	cmd, _, err = NewRootCmd().Find([]string{"serve", "translate"})
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8001", cmd.Flags().Lookup("listen").DefValue)
	require.Equal(t, "http://localhost:5000", cmd.Flags().Lookup("translate-url").DefValue)
	require.Equal(t, "en", cmd.Flags().Lookup("source").DefValue)
}

func TestRootHelpParsesSuccessfully(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)
	require.Contains(t, out.String(), "serve")
	require.Contains(t, out.String(), "transcribe")
	require.Contains(t, out.String(), "translate")
	require.Contains(t, out.String(), "setup")
}

func TestSubcommandHelpParsesSuccessfully(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{name: "serve whisper", args: []string{"serve", "whisper", "--help"}, contains: "Serve transcription and model management over HTTP"},
		{name: "serve translate", args: []string{"serve", "translate", "--help"}, contains: "LibreTranslate"},
		{name: "transcribe", args: []string{"transcribe", "--help"}, contains: "Transcribe an audio file into subtitles"},
		{name: "models", args: []string{"models", "--help"}, contains: "List the supported model sizes"},
		{name: "setup", args: []string{"setup", "--help"}, contains: "Download and verify speech model assets"},
		{name: "translate languages", args: []string{"translate", "languages", "--help"}, contains: "languages the translation engine supports"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewRootCmd()
			out := new(bytes.Buffer)
			cmd.SetOut(out)
			cmd.SetErr(out)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.NoError(t, err)
			require.Contains(t, out.String(), tt.contains)
		})
	}
}
