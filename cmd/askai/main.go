package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/doeshing/askai-go/internal/infrastructure/cli"
)

func main() {
	ctx := context.Background()
	opts := cli.Options{Verbose: isVerbose(os.Args[1:])}

	root, err := cli.NewRootCmd(ctx, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if err := root.ExecuteContext(ctx); err != nil {
		var exit *cli.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// isVerbose reads ASKAI_DEBUG or --debug; the logger is built before flags are parsed.
func isVerbose(args []string) bool {
	env := os.Getenv("ASKAI_DEBUG")
	return env == "1" || strings.EqualFold(env, "true") || slices.Contains(args, "--debug")
}
