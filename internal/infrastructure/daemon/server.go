package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/pkg/filesystem"
	"github.com/doeshing/askai-go/internal/ports"
)

const (
	// ioGrace is added to the request timeout for reading and writing the lines.
	ioGrace = 5 * time.Second
	// staleProbe bounds the dial used to tell a live daemon from a leftover socket.
	staleProbe = 500 * time.Millisecond
	// queueFactor sizes the generate queue relative to the generation slots.
	queueFactor = 4
	// readLane bounds connections whose request line has not been read yet.
	readLane = 16
)

// ServerOptions configures a Server.
type ServerOptions struct {
	Socket         string
	PIDFile        string
	Workers        int
	RequestTimeout time.Duration
	Session        *Session
	Logger         ports.Logger
	// Watchers run next to the accept loop and are cancelled when it exits.
	Watchers []func(context.Context) error
}

// Server accepts connections on a unix socket and answers one request per
// connection. Generate requests hold a queue token while they wait for one of
// the generation slots; a full queue is answered with a busy error. Control
// requests (status, stop, executed, clear_cache) take neither.
type Server struct {
	opts ServerOptions
	pid  int

	mu       sync.RWMutex
	state    domain.DaemonState
	listener net.Listener

	slots    *semaphore.Weighted
	queue    chan struct{}
	reading  chan struct{}
	handlers sync.WaitGroup
	stopOnce sync.Once
	stopping chan struct{}
}

// NewServer applies defaults to opts.
func NewServer(opts ServerOptions) *Server {
	if opts.Workers <= 0 {
		opts.Workers = domain.DefaultDaemonWorkers
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = domain.DefaultDaemonRequestTimeout
	}
	return &Server{
		opts:     opts,
		pid:      os.Getpid(),
		state:    domain.DaemonStopped,
		slots:    semaphore.NewWeighted(int64(opts.Workers)),
		queue:    make(chan struct{}, opts.Workers*queueFactor),
		reading:  make(chan struct{}, readLane),
		stopping: make(chan struct{}),
	}
}

// State returns the lifecycle state.
func (s *Server) State() domain.DaemonState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Server) setState(state domain.DaemonState) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()
	s.opts.Logger.Debug("daemon state", map[string]interface{}{"from": prev, "to": state})
}

// Run starts the server and serves until ctx is cancelled or a stop request arrives.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Start claims the socket, writes the PID file and warms the session.
// ErrDaemonAlreadyRunning is returned when another daemon answers on the socket.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != domain.DaemonStopped {
		s.mu.Unlock()
		return fmt.Errorf("daemon is %s", s.state)
	}
	s.state = domain.DaemonStarting
	s.mu.Unlock()

	if err := s.claimSocket(); err != nil {
		s.setState(domain.DaemonStopped)
		return err
	}
	listener, err := net.Listen("unix", s.opts.Socket)
	if err != nil {
		s.setState(domain.DaemonStopped)
		return fmt.Errorf("listen on %s: %w", s.opts.Socket, err)
	}
	if err := os.Chmod(s.opts.Socket, 0o600); err != nil {
		s.opts.Logger.Warn("chmod socket failed", map[string]interface{}{"error": err.Error()})
	}
	if err := s.writePID(); err != nil {
		listener.Close()
		s.cleanup()
		s.setState(domain.DaemonStopped)
		return err
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.opts.Session.Warm(ctx)
	s.setState(domain.DaemonRunning)
	s.opts.Logger.Info("daemon started", map[string]interface{}{
		"socket":  s.opts.Socket,
		"pid":     s.pid,
		"workers": s.opts.Workers,
	})
	return nil
}

// Serve runs the accept loop. On stop it closes the listener, waits for
// in-flight requests and removes the socket and PID file.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.RLock()
	listener := s.listener
	running := s.state == domain.DaemonRunning
	s.mu.RUnlock()
	if !running || listener == nil {
		return errors.New("daemon not started")
	}

	watchCtx, cancelWatchers := context.WithCancel(ctx)
	var watchers sync.WaitGroup
	for _, watch := range s.opts.Watchers {
		watchers.Add(1)
		go func(watch func(context.Context) error) {
			defer watchers.Done()
			if err := watch(watchCtx); err != nil {
				s.opts.Logger.Warn("watcher stopped", map[string]interface{}{"error": err.Error()})
			}
		}(watch)
	}

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.stopping:
		}
	}()

	// In-flight requests finish even when ctx is cancelled.
	handlerCtx := context.WithoutCancel(ctx)
	s.acceptLoop(handlerCtx, listener)

	s.handlers.Wait()
	cancelWatchers()
	watchers.Wait()
	s.cleanup()
	s.setState(domain.DaemonStopped)
	served, _ := s.opts.Session.Counters()
	s.opts.Logger.Info("daemon stopped", map[string]interface{}{"served": served})
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.stopping:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.opts.Logger.Warn("accept failed", map[string]interface{}{"error": err.Error()})
			continue
		}

		select {
		case s.reading <- struct{}{}:
		case <-s.stopping:
			conn.Close()
			return
		}
		s.handlers.Add(1)
		go func() {
			defer s.handlers.Done()
			s.handle(ctx, conn)
		}()
	}
}

// Stop begins a graceful shutdown. It is safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.setState(domain.DaemonStopping)
		close(s.stopping)
		s.mu.RLock()
		listener := s.listener
		s.mu.RUnlock()
		if listener != nil {
			listener.Close()
		}
	})
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	start := time.Now()

	// The read lane is held only until the request line is in.
	_ = conn.SetDeadline(start.Add(ioGrace))
	dec := NewDecoder(conn, s.opts.Logger)
	enc := NewEncoder(conn, s.opts.Logger)

	var req Request
	err := dec.Decode(&req)
	<-s.reading
	if err != nil {
		if !errors.Is(err, io.EOF) {
			_ = enc.Encode(Response{Error: domain.KindInternal, Message: "malformed request"})
		}
		return
	}
	_ = conn.SetDeadline(time.Now().Add(s.opts.RequestTimeout + ioGrace))

	resp := s.dispatch(ctx, req)
	resp.ID = req.ID
	if err := enc.Encode(resp); err != nil {
		s.opts.Logger.Warn("write response failed", map[string]interface{}{"id": req.ID, "error": err.Error()})
	}
	s.opts.Logger.Debug("request served", map[string]interface{}{
		"id":       req.ID,
		"kind":     req.Kind,
		"error":    resp.Error,
		"duration": time.Since(start).String(),
	})

	if req.Kind == KindStop {
		s.Stop()
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	switch req.Kind {
	case KindGenerate:
		return s.generate(ctx, req)
	case KindStatus:
		status := s.opts.Session.Status(s.pid, s.State())
		return Response{
			State:           status.State,
			PID:             status.PID,
			UptimeSeconds:   status.Uptime.Seconds(),
			LoadedProviders: status.LoadedProviders,
			CacheEntries:    status.CacheEntries,
		}
	case KindStop:
		return Response{State: domain.DaemonStopping, PID: s.pid, Message: "stopping"}
	case KindExecuted:
		if err := s.opts.Session.RecordExecution(req.Prompt, req.Command, req.ExitCode); err != nil {
			return errorResponse(req.ID, err)
		}
		return Response{}
	case KindClear:
		if err := s.opts.Session.Cache.Clear(); err != nil {
			return errorResponse(req.ID, err)
		}
		return Response{}
	default:
		return Response{Error: domain.KindInternal, Message: fmt.Sprintf("unknown request kind %q", req.Kind)}
	}
}

func (s *Server) generate(ctx context.Context, req Request) Response {
	if strings.TrimSpace(req.Prompt) == "" {
		return Response{Error: domain.KindInternal, Message: "empty prompt"}
	}

	select {
	case s.queue <- struct{}{}:
		defer func() { <-s.queue }()
	default:
		return Response{Error: domain.KindBusy, Message: fmt.Sprintf("daemon busy: %d generate requests queued", cap(s.queue))}
	}

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return errorResponse(req.ID, err)
	}
	defer s.slots.Release(1)

	reqCtx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	result, err := s.opts.Session.Generate(reqCtx, domain.GenerateRequest{
		Prompt:     req.Prompt,
		Provider:   req.Provider,
		UseCache:   !req.NoCache,
		WorkingDir: req.Dir,
	})
	if err != nil {
		return errorResponse(req.ID, err)
	}
	return Response{
		Command:   result.Command,
		RiskLevel: result.Risk.Level,
		Reasons:   result.Risk.Reasons,
		CacheHit:  result.CacheHit,
		Provider:  result.Provider,
	}
}

// claimSocket fails when a daemon answers on the socket and removes a stale one.
func (s *Server) claimSocket() error {
	if err := os.MkdirAll(filepath.Dir(s.opts.Socket), 0o700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	if _, err := os.Stat(s.opts.Socket); err != nil {
		return nil
	}
	conn, err := net.DialTimeout("unix", s.opts.Socket, staleProbe)
	if err == nil {
		conn.Close()
		return domain.ErrDaemonAlreadyRunning
	}
	s.opts.Logger.Info("removing stale socket", map[string]interface{}{"socket": s.opts.Socket})
	if err := os.Remove(s.opts.Socket); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	return nil
}

func (s *Server) writePID() error {
	if s.opts.PIDFile == "" {
		return nil
	}
	if err := filesystem.WriteFileAtomic(s.opts.PIDFile, []byte(strconv.Itoa(s.pid)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

func (s *Server) cleanup() {
	for _, path := range []string{s.opts.Socket, s.opts.PIDFile} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.opts.Logger.Warn("cleanup failed", map[string]interface{}{"path": path, "error": err.Error()})
		}
	}
}

// ReadPID returns the PID recorded in path.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file %s: %w", path, err)
	}
	return pid, nil
}
