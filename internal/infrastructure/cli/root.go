package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/doeshing/askai-go/internal/app"
	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/ports"
)

// Version is overridden at build time with -ldflags "-X ...cli.Version=v1.2.3".
var Version = "dev"

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// ExitError carries the exit status of an executed command so main can
// propagate it without printing anything further.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewRootCmd wires the cobra root command.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, error) {
	container, err := app.BuildContainer(ctx, app.Options{Verbose: opts.Verbose})
	if err != nil {
		return nil, err
	}

	cobra.OnFinalize(func() {
		if err := container.Close(); err != nil {
			container.Logger.Warn("close failed", map[string]interface{}{"error": err.Error()})
		}
	})

	var (
		flags   queryFlags
		debug   bool
		timeout time.Duration
	)
	root := &cobra.Command{
		Use:   "askai [query]",
		Short: "askai - natural language to shell commands",
		Long: "askai turns a natural-language request into a shell command, " +
			"checks it against safety guardrails and optionally runs it.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return runQuery(ctx, cmd, container, flags.request(args))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.Flags()
	f.StringVarP(&flags.provider, "provider", "p", "", "Provider to use (gemini, claude, codex, ollama, gemini-api)")
	f.BoolVar(&flags.noCache, "no-cache", false, "Bypass the response cache lookup")
	f.BoolVar(&flags.preview, "preview", false, "Only show the command, never run it")
	f.BoolVarP(&flags.yes, "yes", "y", false, "Run without asking (blocked commands never run)")
	f.BoolVarP(&flags.copy, "copy", "c", false, "Copy the generated command to the clipboard")
	f.BoolVar(&flags.direct, "direct", false, "Skip the daemon and generate in-process")
	f.DurationVar(&timeout, "timeout", 60*time.Second, "Overall request timeout")
	// Read by main before the container is built; declared so cobra accepts it.
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable verbose logging")

	root.AddCommand(
		newDaemonCommand(container),
		newBatchCommand(container),
		newCacheCommand(container),
		newHistoryCommand(container),
		newDoctorCommand(container),
		newConfigCommand(container),
		newVersionCommand(),
	)
	return root, nil
}

type queryFlags struct {
	provider string
	noCache  bool
	preview  bool
	yes      bool
	copy     bool
	direct   bool
}

func (f queryFlags) request(args []string) domain.QueryRequest {
	return domain.QueryRequest{
		Prompt:          strings.Join(args, " "),
		Provider:        f.provider,
		NoCache:         f.noCache,
		PreviewOnly:     f.preview,
		AutoApprove:     f.yes,
		CopyToClipboard: f.copy,
		Direct:          f.direct,
	}
}

func runQuery(ctx context.Context, cmd *cobra.Command, container *app.Container, req domain.QueryRequest) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	container.Executor.Stdout = out
	container.Executor.Stderr = errOut

	svc := container.QueryService(dir, NewPrompter(nil, nil), NewClipboard(), progressFor(errOut))
	resp, err := svc.Run(ctx, req)
	if err != nil {
		RenderError(errOut, err)
		return &ExitError{Code: 1}
	}
	RenderResponse(out, resp, container.Verbose)
	if exec := resp.ExecutionResult; exec != nil && exec.Ran && exec.ExitCode != 0 {
		return &ExitError{Code: exec.ExitCode}
	}
	return nil
}

// progressFor only animates when stderr is a terminal.
func progressFor(w io.Writer) ports.ProgressReporter {
	if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		return NewSpinner(w)
	}
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show askai version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "askai %s (%s, %s/%s)\n",
				Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
