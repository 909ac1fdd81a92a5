// Package lspserver wires the core's components together and owns the
// process-level resource lifecycle of spec.md §5: one Index handle, one
// dispatcher, one worker pool, one scheduler.
package lspserver

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/char5742/groovy-lsp/internal/config"
	"github.com/char5742/groovy-lsp/internal/depcache"
	"github.com/char5742/groovy-lsp/internal/dispatch"
	"github.com/char5742/groovy-lsp/internal/docstore"
	"github.com/char5742/groovy-lsp/internal/eventbus"
	"github.com/char5742/groovy-lsp/internal/indexer"
	"github.com/char5742/groovy-lsp/internal/logging"
	"github.com/char5742/groovy-lsp/internal/mcpbridge"
	"github.com/char5742/groovy-lsp/internal/parsecache"
	"github.com/char5742/groovy-lsp/internal/router"
	"github.com/char5742/groovy-lsp/internal/symbolindex"
)

const component = "lspserver"

// shutdownTimeout bounds how long the worker pool is given to drain before
// Shutdown forces an exit (spec.md §5 resource lifecycle).
const shutdownTimeout = 5 * time.Second

// Server owns every long-lived component and the order they start and
// stop in.
type Server struct {
	cfg config.Config

	docs       *docstore.Store
	parseCache *parsecache.Cache
	depCache   *depcache.Cache
	symIndex   *symbolindex.Index
	bus        *eventbus.Bus
	idx        *indexer.Indexer
	dispatcher *dispatch.Dispatcher
	router     *router.Router
	bridge     *mcpbridge.Bridge
	pool       *Pool

	memoryMonitorCancel context.CancelFunc
	shutdownOnce        sync.Once
}

// Options configures a Server beyond the workspace's own config file.
type Options struct {
	EnableMCP bool
}

// New builds every component and binds the Service Router onto a fresh
// Dispatcher, but starts nothing yet (see Run).
func New(cfg config.Config, opts Options) (*Server, error) {
	symIndex, err := symbolindex.Open(cfg.Project.Root)
	if err != nil {
		return nil, err
	}

	docs := docstore.New()
	parseCache := parsecache.New(parsecache.NewTreeSitterParser(), cfg.Performance.ParseCacheEntries)
	depCache := depcache.New(
		depcache.NewBuildSystemResolver(),
		depcache.NewDefaultContextFactory(),
		time.Duration(cfg.Performance.DepCacheMaxAgeHrs)*time.Hour,
		cfg.Performance.DepCacheMaxEntries,
	)
	bus := eventbus.New()
	idx := indexer.New(cfg, parseCache, depCache, symIndex, bus)

	pool := NewPool(cfg.Performance.CoreThreads, cfg.Performance.MaxThreads, time.Duration(cfg.Performance.WorkerIdleSec)*time.Second)

	r := router.New(docs, parseCache, symIndex, nil)

	s := &Server{
		cfg:        cfg,
		docs:       docs,
		parseCache: parseCache,
		depCache:   depCache,
		symIndex:   symIndex,
		bus:        bus,
		idx:        idx,
		router:     r,
		pool:       pool,
	}

	if opts.EnableMCP {
		s.bridge = mcpbridge.New(r)
	}

	return s, nil
}

// Run opens the configured transport, performs the initial workspace scan,
// starts the scheduler, and serves requests until the client disconnects
// or sends exit. It always closes and invalidates the core's state on the
// way out, regardless of how Run returns (spec.md §5 resource lifecycle).
func (s *Server) Run(ctx context.Context, transportCfg dispatch.TransportConfig) error {
	transport, err := dispatch.Open(transportCfg)
	if err != nil {
		return err
	}
	defer func() { _ = transport.Close() }()

	d := dispatch.New(transport.Writer)
	d.Executor = s.pool.Submit
	s.router.Bind(d)
	bindLifecycleAndDocumentEvents(d, s.docs, s.idx)
	s.dispatcher = d
	diagSub := bindDiagnosticPublishing(s.bus, d)
	defer s.bus.Unsubscribe(diagSub)

	runCtx, cancel := context.WithCancel(ctx)
	d.OnExit(cancel)

	if err := s.idx.InitialScan(runCtx); err != nil {
		logging.Warnf(component, "initial workspace scan failed: %v", err)
	}
	if err := s.idx.StartWatch(); err != nil {
		logging.Warnf(component, "file watch failed to start: %v", err)
	}

	s.startMemoryMonitor(runCtx)

	if s.bridge != nil {
		go func() {
			if err := s.bridge.Run(runCtx); err != nil {
				logging.Warnf(component, "mcp bridge stopped: %v", err)
			}
		}()
	}

	runErr := s.dispatcher.Run(runCtx, transport.Reader)
	s.Shutdown()
	return runErr
}

// startMemoryMonitor runs the dependency-cache memory monitor on its own
// ticker, the scheduled-pool duty of spec.md §5 (default every 5 minutes,
// matching the teacher's debounced_rebuilder.go timer shape).
func (s *Server) startMemoryMonitor(ctx context.Context) {
	monitorCtx, cancel := context.WithCancel(ctx)
	s.memoryMonitorCancel = cancel

	interval := time.Duration(s.cfg.Performance.MemoryCheckSec) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				s.depCache.EvictIfNeeded(interval)
			}
		}
	}()
}

// Shutdown runs the resource-teardown order of spec.md §5: stop accepting
// requests, cancel in-flight handlers, flush and close the Symbol Index,
// invalidate the Dependency Cache, then drain the worker pool with a
// bounded timeout. Idempotent.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(s.shutdown)
}

func (s *Server) shutdown() {
	if s.memoryMonitorCancel != nil {
		s.memoryMonitorCancel()
	}
	if s.dispatcher != nil {
		s.dispatcher.Close()
	}
	s.idx.StopWatch()

	if err := s.symIndex.Close(); err != nil {
		logging.Errorf(component, "symbol index close: %v", err)
	}
	s.depCache.InvalidateAll()
	s.pool.Shutdown(shutdownTimeout)
}

// bindLifecycleAndDocumentEvents wires the notifications the Dispatcher
// hands straight to the Document Store and Indexer, without going through
// the Service Router (spec.md §2 data flow).
func bindLifecycleAndDocumentEvents(d *dispatch.Dispatcher, docs *docstore.Store, idx *indexer.Indexer) {
	d.HandleRequest("initialize", func(ctx context.Context, params json.RawMessage) (any, *dispatch.WireError) {
		return map[string]any{
			"capabilities": map[string]any{
				"textDocumentSync":   1,
				"completionProvider": map[string]any{},
				"hoverProvider":      true,
				"definitionProvider": true,
				"documentSymbolProvider": true,
				"workspaceSymbolProvider": true,
				"renameProvider":     map[string]any{"prepareProvider": true},
			},
		}, nil
	})
	d.HandleNotification("initialized", func(json.RawMessage) {})

	d.HandleNotification("textDocument/didOpen", func(params json.RawMessage) {
		handleDidOpen(docs, params)
	})
	d.HandleNotification("textDocument/didChange", func(params json.RawMessage) {
		handleDidChange(docs, params)
	})
	d.HandleNotification("textDocument/didClose", func(params json.RawMessage) {
		handleDidClose(docs, params)
	})
	d.HandleNotification("textDocument/didSave", func(json.RawMessage) {})
	d.HandleNotification("workspace/didChangeConfiguration", func(json.RawMessage) {})
	d.HandleNotification("workspace/didChangeWatchedFiles", func(params json.RawMessage) {
		handleDidChangeWatchedFiles(idx, params)
	})
}
