package daemon

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/doeshing/askai-go/internal/application/generate"
	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/infrastructure/cache"
	"github.com/doeshing/askai-go/internal/infrastructure/history"
	"github.com/doeshing/askai-go/internal/infrastructure/security"
	"github.com/doeshing/askai-go/internal/pkg/logger"
	"github.com/doeshing/askai-go/internal/ports/portstest"
)

type harness struct {
	server   *Server
	client   *Client
	provider *portstest.Provider
	history  *history.FileStore
	socket   string
	pidFile  string
	done     chan error
}

// shortDir keeps socket paths under the unix path length limit.
func shortDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "askai")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func newHarness(t *testing.T, dir string, provider *portstest.Provider) *harness {
	t.Helper()
	guardrail, err := security.NewGuardrail(filepath.Join(dir, "rules.yaml"))
	require.NoError(t, err)

	log := logger.NewNop()
	store := history.NewFileStore(filepath.Join(dir, "history.json"), 10, log)
	memory := cache.NewMemoryCache()
	gateway := portstest.NewGateway(provider)
	session := &Session{
		Generator: &generate.Pipeline{
			Gateway:  gateway,
			Security: guardrail,
			Cache:    memory,
			History:  store,
			Logger:   log,
		},
		Cache:     memory,
		Gateway:   gateway,
		History:   store,
		Logger:    log,
		Providers: []string{provider.Name()},
	}
	h := &harness{
		provider: provider,
		history:  store,
		socket:   filepath.Join(dir, "askai.sock"),
		pidFile:  filepath.Join(dir, "askai.pid"),
	}
	h.server = NewServer(ServerOptions{
		Socket:         h.socket,
		PIDFile:        h.pidFile,
		Workers:        2,
		RequestTimeout: 5 * time.Second,
		Session:        session,
		Logger:         log,
	})
	h.client = NewClient(h.socket, time.Second, 5*time.Second, log)
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.server.Start(context.Background()))
	h.done = make(chan error, 1)
	go func() { h.done <- h.server.Serve(context.Background()) }()
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	require.NoError(t, h.client.Stop(context.Background()))
	select {
	case err := <-h.done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func geminiProvider() *portstest.Provider {
	return &portstest.Provider{
		ProviderName: domain.ProviderGemini,
		Commands: map[string]string{
			"show disk usage": "df -h",
			"wipe the disk":   "rm -rf /",
		},
	}
}

func TestDaemonServesPrewarmedPromptFromCache(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, shortDir(t), geminiProvider())
	h.start(t)
	defer h.stop(t)

	result, err := h.client.Generate(context.Background(), domain.GenerateRequest{Prompt: "list files", UseCache: true})
	require.NoError(t, err)
	assert.Equal(t, "ls -la", result.Command)
	assert.True(t, result.CacheHit)
	assert.Equal(t, 0, h.provider.Calls())

	result, err = h.client.Generate(context.Background(), domain.GenerateRequest{Prompt: "show disk usage", UseCache: true})
	require.NoError(t, err)
	assert.Equal(t, "df -h", result.Command)
	assert.False(t, result.CacheHit)
	assert.Equal(t, domain.RiskLow, result.Risk.Level)

	result, err = h.client.Generate(context.Background(), domain.GenerateRequest{Prompt: "show disk usage", UseCache: true})
	require.NoError(t, err)
	assert.True(t, result.CacheHit)
	assert.Equal(t, 1, h.provider.Calls())
}

func TestDaemonStatusWhileGenerating(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	provider := geminiProvider()
	provider.Block = release
	h := newHarness(t, shortDir(t), provider)
	h.start(t)
	defer h.stop(t)

	type outcome struct {
		result domain.GenerateResult
		err    error
	}
	generated := make(chan outcome, 1)
	go func() {
		result, err := h.client.Generate(context.Background(), domain.GenerateRequest{Prompt: "show disk usage", UseCache: true})
		generated <- outcome{result, err}
	}()

	require.Eventually(t, func() bool { return provider.Calls() == 1 }, 5*time.Second, 10*time.Millisecond)

	status, err := h.client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DaemonRunning, status.State)
	assert.Equal(t, os.Getpid(), status.PID)
	assert.Equal(t, []string{domain.ProviderGemini}, status.LoadedProviders)
	assert.Greater(t, status.CacheEntries, 0)
	assert.Equal(t, h.socket, status.Socket)

	close(release)
	got := <-generated
	require.NoError(t, got.err)
	assert.Equal(t, "df -h", got.result.Command)
}

func TestDaemonAnswersControlRequestsWhileQueueFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	provider := geminiProvider()
	provider.Block = release
	h := newHarness(t, shortDir(t), provider)
	h.start(t)
	defer h.stop(t)

	queued := cap(h.server.queue)
	errs := make(chan error, queued)
	for i := 0; i < queued; i++ {
		go func() {
			_, err := h.client.Generate(context.Background(), domain.GenerateRequest{Prompt: "show disk usage"})
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return len(h.server.queue) == queued }, 5*time.Second, 10*time.Millisecond)

	status, err := h.client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DaemonRunning, status.State)
	require.NoError(t, h.client.ClearCache(context.Background()))

	_, err = h.client.Generate(context.Background(), domain.GenerateRequest{Prompt: "show disk usage"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIPCTimeout), "got %v", err)

	close(release)
	for i := 0; i < queued; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestDaemonCarriesErrorKinds(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, shortDir(t), geminiProvider())
	h.start(t)
	defer h.stop(t)

	_, err := h.client.Generate(context.Background(), domain.GenerateRequest{Prompt: "wipe the disk", UseCache: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBlocked))
	var blocked *domain.BlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, "rm -rf /", blocked.Command)
	assert.NotEmpty(t, blocked.Reasons)

	_, err = h.client.Generate(context.Background(), domain.GenerateRequest{Prompt: "x", Provider: "nope"})
	assert.True(t, errors.Is(err, domain.ErrUnknownProvider))

	_, err = h.client.Generate(context.Background(), domain.GenerateRequest{Prompt: "unanswerable", UseCache: true})
	assert.True(t, errors.Is(err, domain.ErrGenerationFailed))
}

func TestDaemonRecordsExecution(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, shortDir(t), geminiProvider())
	h.start(t)
	defer h.stop(t)

	_, err := h.client.Generate(context.Background(), domain.GenerateRequest{Prompt: "show disk usage", UseCache: true})
	require.NoError(t, err)
	require.NoError(t, h.client.RecordExecution(context.Background(), "show disk usage", "df -h", 0))

	records, err := h.history.Records(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Executed)
	assert.True(t, records[0].Success)
}

func TestDaemonClearsCache(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, shortDir(t), geminiProvider())
	h.start(t)
	defer h.stop(t)

	require.NoError(t, h.client.ClearCache(context.Background()))
	status, err := h.client.Status(context.Background())
	require.NoError(t, err)
	assert.Zero(t, status.CacheEntries)

	_, err = h.client.Generate(context.Background(), domain.GenerateRequest{Prompt: "list files", UseCache: true})
	assert.True(t, errors.Is(err, domain.ErrGenerationFailed))
}

func TestDaemonRejectsSecondInstance(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := shortDir(t)
	h := newHarness(t, dir, geminiProvider())
	h.start(t)
	defer h.stop(t)

	second := newHarness(t, dir, geminiProvider())
	err := second.server.Start(context.Background())
	assert.True(t, errors.Is(err, domain.ErrDaemonAlreadyRunning))
	assert.Equal(t, domain.DaemonStopped, second.server.State())
}

func TestDaemonStopRemovesSocketAndPIDFile(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, shortDir(t), geminiProvider())
	h.start(t)

	pid, err := ReadPID(h.pidFile)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	h.stop(t)
	assert.Equal(t, domain.DaemonStopped, h.server.State())
	assert.NoFileExists(t, h.socket)
	assert.NoFileExists(t, h.pidFile)

	_, err = h.client.Status(context.Background())
	assert.True(t, errors.Is(err, domain.ErrDaemonNotRunning))
}

func TestDaemonStopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, shortDir(t), geminiProvider())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.server.Run(ctx) }()
	require.NoError(t, h.client.WaitFor(context.Background(), true))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
	assert.NoFileExists(t, h.socket)
}

func TestDaemonReplacesStaleSocket(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, shortDir(t), geminiProvider())
	require.NoError(t, os.WriteFile(h.socket, []byte("stale"), 0o600))

	h.start(t)
	defer h.stop(t)

	_, err := h.client.Status(context.Background())
	require.NoError(t, err)
}

func TestClientWithoutDaemon(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := NewClient(filepath.Join(shortDir(t), "missing.sock"), 200*time.Millisecond, time.Second, logger.NewNop())

	_, err := client.Status(context.Background())
	assert.True(t, errors.Is(err, domain.ErrDaemonNotRunning))
	assert.True(t, errors.Is(client.Stop(context.Background()), domain.ErrDaemonNotRunning))
	_, err = client.Generate(context.Background(), domain.GenerateRequest{Prompt: "list files"})
	assert.True(t, errors.Is(err, domain.ErrDaemonNotRunning))
	require.NoError(t, client.WaitFor(context.Background(), false))
}

func TestCodecRoundTripSkipsBlankLines(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, logger.NewNop())
	require.NoError(t, enc.Encode(Request{ID: "1", Kind: KindStatus}))
	buf.WriteString("\n\n")
	require.NoError(t, enc.Encode(Request{ID: "2", Kind: KindGenerate, Prompt: "현재 시간"}))

	dec := NewDecoder(&buf, logger.NewNop())
	var first, second Request
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))
	assert.Equal(t, KindStatus, first.Kind)
	assert.Equal(t, "현재 시간", second.Prompt)
}

func TestCodecLimits(t *testing.T) {
	enc := NewEncoder(&bytes.Buffer{}, logger.NewNop())
	err := enc.Encode(Request{Prompt: strings.Repeat("a", MaxMessageSize)})
	assert.ErrorContains(t, err, "exceeds limit")

	dec := NewDecoder(strings.NewReader("{not json}\n"), logger.NewNop())
	var req Request
	assert.Error(t, dec.Decode(&req))
}
