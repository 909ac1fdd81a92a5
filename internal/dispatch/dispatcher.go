package dispatch

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/char5742/groovy-lsp/internal/logging"
)

const component = "dispatch"

// RequestCancelled is the JSON-RPC error code a cancelled request's handler
// must return (spec.md §4.7).
const RequestCancelled = -32800

const (
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)

// RequestHandler answers a request. ctx is cancelled if the client sends
// $/cancelRequest for this id; the handler must poll ctx at its own
// suspension points (spec.md §5 cancellation semantics) and return a
// RequestCancelled error if it does.
type RequestHandler func(ctx context.Context, params json.RawMessage) (result any, rpcErr *WireError)

// NotificationHandler processes a notification; it never produces a reply.
type NotificationHandler func(params json.RawMessage)

// Dispatcher is the Request Dispatcher (C7).
type Dispatcher struct {
	// Executor runs a request handler; defaults to an unbounded goroutine
	// per request. The bounded worker pool of spec.md §5 is owned by
	// lspserver, which supplies its Submit method here.
	Executor func(func())

	mu           sync.RWMutex
	requestRoute map[string]RequestHandler
	notifyRoute  map[string]NotificationHandler

	writeMu sync.Mutex
	out     io.Writer

	queueMu sync.Mutex
	queues  map[string]chan func()

	activeMu sync.Mutex
	active   map[string]context.CancelFunc

	stateMu    sync.Mutex
	shutdown   bool
	exitCalled bool
	onExit     func()
}

// New creates an empty Dispatcher writing framed responses/notifications to
// out.
func New(out io.Writer) *Dispatcher {
	return &Dispatcher{
		out:          out,
		requestRoute: make(map[string]RequestHandler),
		notifyRoute:  make(map[string]NotificationHandler),
		queues:       make(map[string]chan func()),
		active:       make(map[string]context.CancelFunc),
	}
}

// HandleRequest registers h for method.
func (d *Dispatcher) HandleRequest(method string, h RequestHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requestRoute[method] = h
}

// HandleNotification registers h for method.
func (d *Dispatcher) HandleNotification(method string, h NotificationHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifyRoute[method] = h
}

// OnExit registers the callback Run invokes after processing the `exit`
// notification, before returning.
func (d *Dispatcher) OnExit(f func()) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	d.onExit = f
}

// Run reads framed messages from r until EOF, ctx cancellation, or `exit`,
// dispatching each to its route. ctx is checked between frames; a read
// already blocked waiting for input is not interrupted by cancellation.
// One goroutine reads; requests execute on
// Executor (or their own goroutine) so a slow handler never blocks the
// reader (spec.md §5 scheduling model).
func (d *Dispatcher) Run(ctx context.Context, r io.Reader) error {
	reader := bufio.NewReader(r)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := readFrame(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if d.exited() {
			return nil
		}

		switch {
		case msg.IsResponse():
			// This dispatcher only serves as a server; responses to our own
			// outgoing requests are not modeled (the core issues none).
		case msg.IsNotification():
			d.dispatchNotification(msg)
		default:
			d.dispatchRequest(ctx, msg)
		}

		if d.exited() {
			return nil
		}
	}
}

func (d *Dispatcher) exited() bool {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.exitCalled
}

func (d *Dispatcher) dispatchNotification(msg Message) {
	if msg.Method == "$/cancelRequest" {
		d.handleCancel(msg.Params)
		return
	}
	if msg.Method == "exit" {
		d.handleExit()
		return
	}

	d.mu.RLock()
	h, ok := d.notifyRoute[msg.Method]
	d.mu.RUnlock()
	if !ok {
		return
	}

	uri := extractURI(msg.Params)
	run := func() {
		defer d.recoverNotification(msg.Method)
		h(msg.Params)
	}
	if uri == "" {
		run()
		return
	}
	d.queueFor(uri) <- run
}

func (d *Dispatcher) recoverNotification(method string) {
	if r := recover(); r != nil {
		logging.Errorf(component, "notification handler %s panicked: %v", method, r)
	}
}

func (d *Dispatcher) dispatchRequest(ctx context.Context, msg Message) {
	if msg.Method == "initialize" || msg.Method == "shutdown" {
		d.runRequest(ctx, msg)
		return
	}

	d.stateMu.Lock()
	stopping := d.shutdown
	d.stateMu.Unlock()
	if stopping {
		d.writeResponse(newErrorMessage(msg.ID, codeInvalidRequest, "server is shutting down"))
		return
	}

	d.runRequest(ctx, msg)
}

func (d *Dispatcher) runRequest(parent context.Context, msg Message) {
	d.mu.RLock()
	h, ok := d.requestRoute[msg.Method]
	d.mu.RUnlock()
	if !ok {
		d.writeResponse(newErrorMessage(msg.ID, codeMethodNotFound, "method not found: "+msg.Method))
		return
	}

	reqCtx, cancel := context.WithCancel(parent)
	idKey := string(msg.ID)
	d.activeMu.Lock()
	d.active[idKey] = cancel
	d.activeMu.Unlock()

	uri := extractURI(msg.Params)
	exec := d.Executor
	if exec == nil {
		exec = func(f func()) { go f() }
	}

	exec(func() {
		defer func() {
			d.activeMu.Lock()
			delete(d.active, idKey)
			d.activeMu.Unlock()
			cancel()
		}()
		d.barrier(uri)
		d.serveRequest(reqCtx, msg, h)
	})
}

func (d *Dispatcher) serveRequest(ctx context.Context, msg Message, h RequestHandler) (resp Message) {
	defer func() {
		if r := recover(); r != nil {
			logging.Errorf(component, "request handler %s panicked: %v", msg.Method, r)
			resp = newErrorMessage(msg.ID, codeInternalError, "internal error")
		}
		d.writeResponse(resp)
	}()

	if msg.Method == "shutdown" {
		d.stateMu.Lock()
		d.shutdown = true
		d.stateMu.Unlock()
	}

	result, rpcErr := h(ctx, msg.Params)
	if rpcErr != nil {
		return Message{JSONRPC: "2.0", ID: msg.ID, Error: rpcErr}
	}
	return newResultMessage(msg.ID, result)
}

func (d *Dispatcher) handleCancel(params json.RawMessage) {
	var p struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return
	}
	d.activeMu.Lock()
	cancel, ok := d.active[string(p.ID)]
	d.activeMu.Unlock()
	if ok {
		cancel()
	}
}

func (d *Dispatcher) handleExit() {
	d.stateMu.Lock()
	d.exitCalled = true
	onExit := d.onExit
	d.stateMu.Unlock()
	if onExit != nil {
		onExit()
	}
}

func (d *Dispatcher) writeResponse(msg Message) {
	if msg.JSONRPC == "" {
		return
	}
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if err := writeFrame(d.out, msg); err != nil {
		logging.Errorf(component, "write response: %v", err)
	}
}

// Notify writes a server-initiated notification (e.g.
// textDocument/publishDiagnostics) to the client.
func (d *Dispatcher) Notify(method string, params any) {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if err := writeFrame(d.out, newNotification(method, params)); err != nil {
		logging.Errorf(component, "write notification: %v", err)
	}
}

// Close cancels the context of every request still in flight and stops
// every per-uri drain goroutine. Callers running a Dispatcher for the life
// of a process don't need the queue teardown: the uri set is bounded by the
// documents a client opens in one session, so leaving the queues running
// until process exit is harmless. Tests and embedders that construct many
// short-lived Dispatchers should call it once Run has returned.
func (d *Dispatcher) Close() {
	d.activeMu.Lock()
	for _, cancel := range d.active {
		cancel()
	}
	d.activeMu.Unlock()

	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	for uri, q := range d.queues {
		close(q)
		delete(d.queues, uri)
	}
}

// queueFor returns the per-uri FIFO goroutine queue, creating it (and its
// drain goroutine) lazily.
func (d *Dispatcher) queueFor(uri string) chan func() {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	q, ok := d.queues[uri]
	if !ok {
		q = make(chan func(), 64)
		d.queues[uri] = q
		go func() {
			for fn := range q {
				fn()
			}
		}()
	}
	return q
}

// barrier blocks until every notification enqueued for uri before this call
// has finished processing, giving a request handler the "observes every
// prior same-uri notification" guarantee of spec.md §4.7 invariant 2.
func (d *Dispatcher) barrier(uri string) {
	if uri == "" {
		return
	}
	done := make(chan struct{})
	d.queueFor(uri) <- func() { close(done) }
	<-done
}

// extractURI reads params.textDocument.uri, the common shape every
// uri-scoped LSP notification/request shares. Returns "" if absent, which
// callers treat as "no per-uri ordering applies".
func extractURI(params json.RawMessage) string {
	var p struct {
		TextDocument struct {
			URI string `json:"uri"`
		} `json:"textDocument"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return ""
	}
	return p.TextDocument.URI
}
