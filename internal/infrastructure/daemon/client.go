package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/ports"
)

// Client talks to a running daemon. A missing or dead socket surfaces as
// domain.ErrDaemonNotRunning and a slow daemon as domain.ErrIPCTimeout, so
// callers can fall back to direct mode.
type Client struct {
	socket         string
	timeout        time.Duration
	requestTimeout time.Duration
	logger         ports.Logger
}

// NewClient builds a client. timeout bounds dialing and control requests;
// generate requests may additionally take up to requestTimeout.
func NewClient(socket string, timeout, requestTimeout time.Duration, logger ports.Logger) *Client {
	if timeout <= 0 {
		timeout = domain.DefaultClientTimeout
	}
	if requestTimeout <= 0 {
		requestTimeout = domain.DefaultDaemonRequestTimeout
	}
	return &Client{socket: socket, timeout: timeout, requestTimeout: requestTimeout, logger: logger}
}

// Socket returns the socket path.
func (c *Client) Socket() string {
	return c.socket
}

// Generate implements ports.Generator.
func (c *Client) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	resp, err := c.roundTrip(ctx, Request{
		Kind:     KindGenerate,
		Prompt:   req.Prompt,
		Provider: req.Provider,
		NoCache:  !req.UseCache,
		Dir:      req.WorkingDir,
	}, c.requestTimeout+c.timeout)
	if err != nil {
		return domain.GenerateResult{}, err
	}
	if err := remoteError(resp); err != nil {
		return domain.GenerateResult{}, err
	}
	return domain.GenerateResult{
		Command:  resp.Command,
		Risk:     domain.RiskAssessment{Level: resp.RiskLevel, Reasons: resp.Reasons},
		CacheHit: resp.CacheHit,
		Provider: resp.Provider,
	}, nil
}

// Status queries the daemon.
func (c *Client) Status(ctx context.Context) (domain.DaemonStatus, error) {
	resp, err := c.roundTrip(ctx, Request{Kind: KindStatus}, c.timeout)
	if err != nil {
		return domain.DaemonStatus{}, err
	}
	if err := remoteError(resp); err != nil {
		return domain.DaemonStatus{}, err
	}
	return domain.DaemonStatus{
		State:           resp.State,
		PID:             resp.PID,
		Uptime:          time.Duration(resp.UptimeSeconds * float64(time.Second)),
		LoadedProviders: resp.LoadedProviders,
		CacheEntries:    resp.CacheEntries,
		Socket:          c.socket,
	}, nil
}

// Stop asks the daemon to shut down gracefully.
func (c *Client) Stop(ctx context.Context) error {
	resp, err := c.roundTrip(ctx, Request{Kind: KindStop}, c.timeout)
	if err != nil {
		return err
	}
	return remoteError(resp)
}

// RecordExecution implements ports.ExecutionRecorder.
func (c *Client) RecordExecution(ctx context.Context, prompt, command string, exitCode int) error {
	resp, err := c.roundTrip(ctx, Request{
		Kind:     KindExecuted,
		Prompt:   prompt,
		Command:  command,
		ExitCode: exitCode,
	}, c.timeout)
	if err != nil {
		return err
	}
	return remoteError(resp)
}

// ClearCache empties the daemon's in-memory cache.
func (c *Client) ClearCache(ctx context.Context) error {
	resp, err := c.roundTrip(ctx, Request{Kind: KindClear}, c.timeout)
	if err != nil {
		return err
	}
	return remoteError(resp)
}

// WaitFor polls until the daemon is reachable (running=true) or gone
// (running=false), or ctx ends.
func (c *Client) WaitFor(ctx context.Context, running bool) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		_, err := c.Status(ctx)
		if running && err == nil {
			return nil
		}
		if !running && errors.Is(err, domain.ErrDaemonNotRunning) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) roundTrip(ctx context.Context, req Request, wait time.Duration) (Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socket)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Response{}, fmt.Errorf("%w: dial %s", domain.ErrIPCTimeout, c.socket)
		}
		return Response{}, fmt.Errorf("%w: %v", domain.ErrDaemonNotRunning, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(wait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)
	// Unblock reads promptly when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	if err := NewEncoder(conn, c.logger).Encode(req); err != nil {
		return Response{}, c.ioError(ctx, err)
	}
	var resp Response
	if err := NewDecoder(conn, c.logger).Decode(&resp); err != nil {
		return Response{}, c.ioError(ctx, err)
	}
	if resp.ID != req.ID {
		return Response{}, fmt.Errorf("daemon answered request %q with %q", req.ID, resp.ID)
	}
	return resp, nil
}

func (c *Client) ioError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrIPCTimeout, err)
	}
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: connection closed before a response", domain.ErrDaemonNotRunning)
	}
	return fmt.Errorf("daemon ipc: %w", err)
}

var (
	_ ports.Generator         = (*Client)(nil)
	_ ports.ExecutionRecorder = (*Client)(nil)
)
