// Package app wires application services to their infrastructure adapters.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	appconfig "github.com/doeshing/askai-go/internal/application/config"
	"github.com/doeshing/askai-go/internal/application/batch"
	"github.com/doeshing/askai-go/internal/application/doctor"
	"github.com/doeshing/askai-go/internal/application/generate"
	"github.com/doeshing/askai-go/internal/application/query"
	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/infrastructure/ai"
	"github.com/doeshing/askai-go/internal/infrastructure/cache"
	"github.com/doeshing/askai-go/internal/infrastructure/config"
	contextcollector "github.com/doeshing/askai-go/internal/infrastructure/context"
	"github.com/doeshing/askai-go/internal/infrastructure/daemon"
	"github.com/doeshing/askai-go/internal/infrastructure/executor"
	"github.com/doeshing/askai-go/internal/infrastructure/history"
	"github.com/doeshing/askai-go/internal/infrastructure/project"
	"github.com/doeshing/askai-go/internal/infrastructure/security"
	"github.com/doeshing/askai-go/internal/pkg/logger"
	"github.com/doeshing/askai-go/internal/ports"
)

// Options control container construction.
type Options struct {
	ConfigPath string
	Verbose    bool
}

// Container holds the adapters shared by every command. Direct mode uses the
// disk cache; the daemon builds its own in-memory cache through DaemonServer.
type Container struct {
	Config     domain.Config
	ConfigPath string
	Verbose    bool
	Logger     ports.Logger

	Gateway   *ai.Gateway
	Security  ports.SecurityService
	Cache     *cache.FileCache
	History   ports.HistoryStore
	Collector ports.ContextCollector
	Scanner   *project.Scanner
	Executor  *executor.LocalExecutor
	Pipeline  *generate.Pipeline
	Daemon    *daemon.Client

	closers []func() error
}

// BuildContainer loads configuration and constructs the dependency graph.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	loader := config.NewFileLoader(opts.ConfigPath)
	cfg, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := appconfig.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", loader.Path(), err)
	}

	log := logger.New(opts.Verbose)
	c := &Container{
		Config:     cfg,
		ConfigPath: loader.Path(),
		Verbose:    opts.Verbose,
		Logger:     log,
		Gateway:    ai.NewGateway(cfg, log),
		Security:   loadGuardrail(cfg, log),
		Executor:   executor.NewLocalExecutor(cfg.Execution.Shell),
	}

	store, closer, err := openHistory(cfg, log)
	if err != nil {
		return nil, err
	}
	c.History = store
	if closer != nil {
		c.closers = append(c.closers, closer)
	}

	detector := project.NewDetector()
	c.Collector = contextcollector.NewBasicCollector(detector)
	c.Scanner, err = project.NewScanner(detector, cfg.Batch.Exclude, log)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("batch.exclude: %w", err)
	}

	c.Cache = cache.NewFileCache(cfg.Cache.Path, log,
		cache.WithTTL(cfg.CacheTTL()),
		cache.WithMaxEntries(cfg.CacheMaxEntries()),
	)
	c.Pipeline = c.newPipeline(c.Security, c.responseCache(c.Cache), log)
	c.Daemon = daemon.NewClient(cfg.Daemon.Socket, cfg.DaemonClientTimeout(), cfg.DaemonRequestTimeout(), log)
	return c, nil
}

// QueryService builds the interactive query flow.
func (c *Container) QueryService(dir string, prompter ports.ConfirmationPrompter, clipboard ports.Clipboard, progress ports.ProgressReporter) *query.Service {
	pipeline := *c.Pipeline
	pipeline.Progress = progress
	svc := &query.Service{
		Config:     c.Config,
		Local:      &pipeline,
		History:    c.History,
		Executor:   c.Executor,
		Prompter:   prompter,
		Clipboard:  clipboard,
		Progress:   progress,
		Logger:     c.Logger,
		WorkingDir: dir,
	}
	if c.Config.Daemon.Enabled {
		svc.Remote = c.Daemon
		svc.RemoteRecorder = c.Daemon
	}
	return svc
}

// BatchService builds the multi-project runner. Batch generation always runs
// in-process because each target carries its own project context.
func (c *Container) BatchService(prompter ports.ConfirmationPrompter) *batch.Service {
	return &batch.Service{
		Config:    c.Config,
		Scanner:   c.Scanner,
		Generator: c.Pipeline,
		Executor:  c.Executor,
		Prompter:  prompter,
		Logger:    c.Logger,
	}
}

// DoctorService builds the diagnostics runner.
func (c *Container) DoctorService() *doctor.Service {
	return &doctor.Service{
		Config:     c.Config,
		ConfigPath: c.ConfigPath,
		Security:   c.Security,
		Gateway:    c.Gateway,
		Daemon:     c.Daemon,
		Cache:      c.Cache,
		History:    c.History,
		Collector:  c.Collector,
	}
}

// DaemonServer builds the resident server with its own in-memory cache,
// a file logger and, when configured, a rules watcher.
func (c *Container) DaemonServer() (*daemon.Server, error) {
	cfg := c.Config
	log, err := logger.NewFile(cfg.Daemon.LogFile, c.Verbose)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, log.Sync)

	var (
		guard    ports.SecurityService = c.Security
		watchers []func(context.Context) error
	)
	if cfg.Security.WatchRules {
		reloading, err := security.NewReloadingGuardrail(cfg.Security.RulesFile, log)
		if err != nil {
			log.Warn("rules watcher disabled", map[string]interface{}{"error": err.Error()})
		} else {
			guard = reloading
			watchers = append(watchers, reloading.Watch)
		}
	}

	memory := cache.NewMemoryCache(
		cache.WithTTL(cfg.CacheTTL()),
		cache.WithMaxEntries(cfg.CacheMaxEntries()),
	)
	gateway := ai.NewGateway(cfg, log)
	pipeline := c.newPipeline(guard, c.responseCache(memory), log)
	pipeline.Gateway = gateway

	session := &daemon.Session{
		Generator: pipeline,
		Cache:     memory,
		Gateway:   gateway,
		History:   c.History,
		Logger:    log,
		Providers: cfg.PrewarmProviders(),
	}
	return daemon.NewServer(daemon.ServerOptions{
		Socket:         cfg.Daemon.Socket,
		PIDFile:        cfg.Daemon.PIDFile,
		Workers:        cfg.DaemonWorkers(),
		RequestTimeout: cfg.DaemonRequestTimeout(),
		Session:        session,
		Logger:         log,
		Watchers:       watchers,
	}), nil
}

// Close releases stores and flushes loggers.
func (c *Container) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Container) newPipeline(guard ports.SecurityService, responseCache ports.ResponseCache, log ports.Logger) *generate.Pipeline {
	p := &generate.Pipeline{
		Config:    c.Config,
		Gateway:   c.Gateway,
		Security:  guard,
		Cache:     responseCache,
		History:   c.History,
		Collector: c.Collector,
		Logger:    log,
	}
	if c.Config.EnableRAG {
		p.Retriever = history.NewRetriever(c.History, nil)
	}
	return p
}

// responseCache returns nil when caching is disabled so the pipeline skips it.
func (c *Container) responseCache(rc ports.ResponseCache) ports.ResponseCache {
	if !c.Config.Cache.Enabled {
		return nil
	}
	return rc
}

// loadGuardrail falls back to the built-in rules when the rules file is broken.
func loadGuardrail(cfg domain.Config, log ports.Logger) ports.SecurityService {
	guard, err := security.NewGuardrail(cfg.Security.RulesFile)
	if err != nil {
		log.Warn("using built-in guardrail rules", map[string]interface{}{"error": err.Error()})
		return security.Builtin()
	}
	return guard
}

func openHistory(cfg domain.Config, log ports.Logger) (ports.HistoryStore, func() error, error) {
	path := cfg.History.Path
	if strings.EqualFold(cfg.History.Backend, "sqlite") {
		if filepath.Ext(path) == ".json" {
			path = strings.TrimSuffix(path, ".json") + ".db"
		}
		store, err := history.NewSQLiteStore(path, cfg.HistoryMaxEntries())
		if err != nil {
			return nil, nil, fmt.Errorf("open history: %w", err)
		}
		return store, store.Close, nil
	}
	return history.NewFileStore(path, cfg.HistoryMaxEntries(), log), nil, nil
}
