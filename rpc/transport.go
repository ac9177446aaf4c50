package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// DefaultTimeout is the per-call timeout used when none is configured.
const DefaultTimeout = 10 * time.Second

// Options configures a Transport.
type Options struct {
	// Endpoint is the aria2 RPC URL; the scheme must be ws or wss.
	Endpoint string

	// Secret is the shared RPC token. When set it is sent as the first
	// positional parameter of every call, formatted "token:"+secret.
	Secret string

	// Timeout bounds each call from transmission to settlement.
	// Zero means DefaultTimeout; negative is a configuration error.
	Timeout time.Duration

	// Headers are attached to the WebSocket handshake request.
	Headers map[string]string

	// Logger receives transport diagnostics. Zero value logs nothing.
	Logger zerolog.Logger
}

type phase int

const (
	phaseUnopened phase = iota
	phaseOpening
	phaseOpen
	phaseClosed
)

// settlement is the terminal outcome of one pending call. Exactly one is
// ever delivered per registered call.
type settlement struct {
	result json.RawMessage
	err    error
}

type pendingCall struct {
	method string
	done   chan settlement // buffered, capacity 1
	timer  *time.Timer
}

type subscriber struct {
	token   uuid.UUID
	handler func(payload json.RawMessage)
}

// Transport multiplexes concurrent JSON-RPC calls onto one WebSocket
// connection. The connection is dialed lazily on first use and is never
// re-established: once the transport observes a socket error, a peer close,
// or an explicit Close, it is permanently closed and every future call
// fails immediately. A new Transport is required to resume communication.
type Transport struct {
	endpoint string
	secret   string
	timeout  time.Duration
	headers  http.Header
	log      zerolog.Logger

	mu      sync.Mutex
	phase   phase
	opening chan struct{} // closed when the in-flight dial settles
	openErr error
	conn    *websocket.Conn
	nextID  uint64
	pending map[uint64]*pendingCall
	subs    map[string][]subscriber

	// Gorilla connections allow one concurrent writer; the read loop is the
	// sole reader so only writes need serializing.
	writeMu sync.Mutex
}

// New validates the options and returns an unopened transport. No network
// traffic happens here; the socket is dialed on the first call or an
// explicit Open.
func New(opts Options) (*Transport, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil {
		return nil, ConfigurationErr("invalid endpoint %q: %v", opts.Endpoint, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, ConfigurationErr("endpoint %q: scheme must be ws or wss", opts.Endpoint)
	}
	if u.Host == "" {
		return nil, ConfigurationErr("endpoint %q: missing host", opts.Endpoint)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if timeout < 0 {
		return nil, ConfigurationErr("timeout must be positive, got %s", opts.Timeout)
	}

	headers := make(http.Header, len(opts.Headers))
	for k, v := range opts.Headers {
		headers.Set(k, v)
	}

	return &Transport{
		endpoint: opts.Endpoint,
		secret:   opts.Secret,
		timeout:  timeout,
		headers:  headers,
		log:      opts.Logger.With().Str("component", "aria2-transport").Logger(),
		pending:  make(map[uint64]*pendingCall),
		subs:     make(map[string][]subscriber),
	}, nil
}

// Open establishes the connection eagerly. Calling it is optional; Call
// dials on demand.
func (t *Transport) Open(ctx context.Context) error {
	return t.ensureOpen(ctx)
}

// ensureOpen returns once the connection is open. Concurrent callers on an
// unopened transport share a single dial attempt: exactly one socket is
// constructed no matter how many calls race the first use.
func (t *Transport) ensureOpen(ctx context.Context) error {
	for {
		t.mu.Lock()
		switch t.phase {
		case phaseOpen:
			t.mu.Unlock()
			return nil

		case phaseClosed:
			t.mu.Unlock()
			return connectivityErr("transport is closed")

		case phaseOpening:
			wait := t.opening
			t.mu.Unlock()
			select {
			case <-wait:
			case <-ctx.Done():
				return connectivityWrap("waiting for connection", ctx.Err())
			}
			t.mu.Lock()
			err := t.openErr
			t.mu.Unlock()
			if err != nil {
				return connectivityWrap("dial "+t.endpoint, err)
			}
			// Dial succeeded; loop to observe the new phase.

		case phaseUnopened:
			t.opening = make(chan struct{})
			t.phase = phaseOpening
			attempt := t.opening
			t.mu.Unlock()
			return t.dial(attempt)
		}
	}
}

// dial performs the single shared connection attempt. It always settles the
// attempt channel so every awaiter unblocks.
func (t *Transport) dial(attempt chan struct{}) error {
	dialer := websocket.Dialer{HandshakeTimeout: t.timeout}
	t.log.Debug().Str("endpoint", t.endpoint).Msg("dialing aria2")

	conn, resp, err := dialer.Dial(t.endpoint, t.headers)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	t.mu.Lock()
	if err != nil {
		t.phase = phaseClosed
		t.openErr = err
		close(attempt)
		t.mu.Unlock()
		return connectivityWrap("dial "+t.endpoint, err)
	}
	if t.phase != phaseOpening {
		// Close raced the handshake; the transport stays closed.
		t.openErr = connectivityErr("transport closed during dial")
		close(attempt)
		t.mu.Unlock()
		conn.Close()
		return connectivityErr("transport is closed")
	}
	t.conn = conn
	t.phase = phaseOpen
	close(attempt)
	t.mu.Unlock()

	go t.readLoop(conn)
	return nil
}

// Call sends one request and suspends until its response arrives, its
// timeout fires, or the transport tears down. Exactly one of those settles
// the call. Responses correlate by id, not arrival order, so concurrent
// calls may settle in any order.
func (t *Transport) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	return t.do(ctx, method, params, true)
}

func (t *Transport) do(ctx context.Context, method string, params []any, withToken bool) (json.RawMessage, error) {
	if err := t.ensureOpen(ctx); err != nil {
		return nil, err
	}

	t.mu.Lock()
	if t.phase != phaseOpen {
		t.mu.Unlock()
		return nil, connectivityErr("transport is closed")
	}
	conn := t.conn
	t.nextID++
	id := t.nextID
	pc := &pendingCall{method: method, done: make(chan settlement, 1)}
	t.pending[id] = pc
	pc.timer = time.AfterFunc(t.timeout, func() { t.expire(id) })
	t.mu.Unlock()

	secret := ""
	if withToken {
		secret = t.secret
	}
	payload, err := encodeRequest(method, params, secret, id)
	if err != nil {
		t.unregister(id)
		return nil, ValidationErr("encode %s request: %v", method, err)
	}

	t.writeMu.Lock()
	writeErr := conn.WriteMessage(websocket.TextMessage, payload)
	t.writeMu.Unlock()
	if writeErr != nil {
		t.unregister(id)
		return nil, connectivityWrap("send "+method, writeErr)
	}

	select {
	case s := <-pc.done:
		return s.result, s.err
	case <-ctx.Done():
		// Abandon the wait; a late response for this id is discarded.
		t.unregister(id)
		return nil, connectivityWrap("call "+method, ctx.Err())
	}
}

// unregister removes a pending call and stops its timer. It returns nil
// when the id has already been settled or never existed.
func (t *Transport) unregister(id uint64) *pendingCall {
	t.mu.Lock()
	pc := t.pending[id]
	delete(t.pending, id)
	t.mu.Unlock()
	if pc != nil {
		pc.timer.Stop()
	}
	return pc
}

// expire settles one call with a timeout error. A response that has already
// claimed the id wins; the timer then finds nothing to expire.
func (t *Transport) expire(id uint64) {
	pc := t.unregister(id)
	if pc == nil {
		return
	}
	t.log.Debug().Uint64("id", id).Str("method", pc.method).Msg("request timed out")
	pc.done <- settlement{err: timeoutErr("no response to %s within %s", pc.method, t.timeout)}
}

// readLoop is the sole reader of the socket. Any read error, including the
// peer closing the connection, is terminal for the transport.
func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.teardown("connection lost", err)
			return
		}

		in := decodeInbound(raw)
		switch in.Kind {
		case InboundResponse:
			pc := t.unregister(in.ID)
			if pc == nil {
				// Late or unknown id; drop without disturbing other calls.
				t.log.Debug().Uint64("id", in.ID).Msg("discarding response for unknown id")
				continue
			}
			if in.Fault != nil {
				pc.done <- settlement{err: faultErr(in.Fault.Code, in.Fault.Message, in.Fault.Data)}
			} else {
				pc.done <- settlement{result: in.Result}
			}

		case InboundNotification:
			t.notify(in.Event, in.Payload)

		default:
			t.log.Debug().Msg("discarding unrecognized inbound message")
		}
	}
}

// Subscribe registers a handler for one push-event method name, e.g.
// "aria2.onDownloadStart". Handlers for an event run synchronously on the
// read loop, in registration order; a handler must not issue calls on this
// transport or their responses can never be read. The returned func removes
// exactly this registration and is safe to call more than once.
func (t *Transport) Subscribe(event string, handler func(payload json.RawMessage)) (unsubscribe func()) {
	token := uuid.New()
	t.mu.Lock()
	t.subs[event] = append(t.subs[event], subscriber{token: token, handler: handler})
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		list := t.subs[event]
		for i, s := range list {
			if s.token == token {
				t.subs[event] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

func (t *Transport) notify(event string, payload json.RawMessage) {
	t.mu.Lock()
	list := make([]subscriber, len(t.subs[event]))
	copy(list, t.subs[event])
	t.mu.Unlock()

	for _, s := range list {
		s.handler(payload)
	}
}

// Close tears the transport down: the socket is released, the phase becomes
// closed for good, and every pending call is rejected with a connectivity
// error. Close is idempotent and safe with zero pending calls.
func (t *Transport) Close() error {
	t.teardown("transport closed", nil)
	return nil
}

// teardown is the single path to the closed phase. Each pending caller
// receives its own error instance so callers can wrap independently.
func (t *Transport) teardown(reason string, cause error) {
	t.mu.Lock()
	if t.phase == phaseClosed {
		t.mu.Unlock()
		return
	}
	t.phase = phaseClosed
	conn := t.conn
	t.conn = nil
	orphaned := t.pending
	t.pending = make(map[uint64]*pendingCall)
	t.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if len(orphaned) > 0 {
		t.log.Warn().Int("pending", len(orphaned)).Str("reason", reason).Msg("rejecting pending calls")
	}
	for _, pc := range orphaned {
		pc.timer.Stop()
		if cause != nil {
			pc.done <- settlement{err: connectivityWrap(reason+" before "+pc.method+" settled", cause)}
		} else {
			pc.done <- settlement{err: connectivityErr("%s before %s settled", reason, pc.method)}
		}
	}
}
