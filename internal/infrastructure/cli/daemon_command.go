package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/askai-go/internal/app"
	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/infrastructure/daemon"
)

const daemonStartupWait = 10 * time.Second

func newDaemonCommand(container *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the background daemon",
	}
	cmd.AddCommand(
		newDaemonStartCommand(container),
		newDaemonRunCommand(container),
		newDaemonStopCommand(container),
		newDaemonStatusCommand(container),
	)
	return cmd
}

// newDaemonStartCommand re-executes the binary as `daemon run` in its own
// session and waits until the socket answers.
func newDaemonStartCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			wait := container.Config.DaemonRequestTimeout() + daemonStartupWait
			return stopDaemon(cmd.Context(), cmd.OutOrStdout(), container.Daemon, wait)
		},
	}
}

// stopDaemon exits 1 when no daemon answers so scripts can tell nothing was stopped.
func stopDaemon(ctx context.Context, out io.Writer, client *daemon.Client, wait time.Duration) error {
	if err := client.Stop(ctx); err != nil {
		if errors.Is(err, domain.ErrDaemonNotRunning) {
			fmt.Fprintln(out, "Daemon is not running.")
			return &ExitError{Code: 1}
		}
		return err
	}
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := client.WaitFor(waitCtx, false); err != nil {
		return fmt.Errorf("daemon still answering: %w", err)
	}
	fmt.Fprintln(out, "Daemon stopped.")
	return nil
}

func newDaemonStatusCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon state, uptime and loaded providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := container.Daemon.Status(cmd.Context())
			if errors.Is(err, domain.ErrDaemonNotRunning) {
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon %s (socket %s)\n", domain.DaemonStopped, container.Daemon.Socket())
				return nil
			}
			if err != nil {
				return err
			}
			RenderDaemonStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
}
