package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fmueller/subgen/internal/cli"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const (
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd()
	err := root.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, err)
	code := exitCode(ctx, err)
	if code == exitUsage {
		fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", helpHintTarget(root, os.Args[1:]))
	}
	os.Exit(code)
}

func exitCode(ctx context.Context, err error) int {
	switch {
	case cli.IsUsageError(err):
		return exitUsage
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return exitInterrupted
	default:
		return exitFailure
	}
}

// helpHintTarget names the deepest command args resolve to, so the hint
// points at the help page that lists the offending flag.
func helpHintTarget(root *cobra.Command, args []string) string {
	if root == nil {
		return "subgen"
	}
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return root.CommandPath()
	}
	if found, _, err := root.Find(args); err == nil && found != nil {
		return found.CommandPath()
	}
	return root.CommandPath()
}
