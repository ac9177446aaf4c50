// Package wstest provides a scriptable in-process aria2 JSON-RPC server
// speaking WebSocket, for exercising the client against real socket
// traffic in tests.
package wstest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Request is one JSON-RPC request as received on the wire.
type Request struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

// Token returns the secret token parameter if the request carries one,
// without the "token:" prefix, and whether it was present.
func (r Request) Token() (string, bool) {
	if len(r.Params) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(r.Params[0], &s); err != nil {
		return "", false
	}
	if !strings.HasPrefix(s, "token:") {
		return "", false
	}
	return strings.TrimPrefix(s, "token:"), true
}

// Fault makes a handler respond with a JSON-RPC error object.
type Fault struct {
	Code    int
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault %d: %s", f.Code, f.Message)
}

// Handler produces the result for one method. Returning a *Fault (as the
// error) sends a JSON-RPC error response; any other error closes the
// connection abruptly.
type Handler func(req Request) (any, error)

type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *conn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

// Server is a fake aria2 RPC endpoint. Zero-value handlers answer every
// method with a "method not found" fault; script behavior with Handle,
// Silence, and Notify.
type Server struct {
	httpServer *httptest.Server

	mu       sync.Mutex
	handlers map[string]Handler
	silenced map[string]bool
	conns    []*conn
	requests []Request
	dials    int
	lastHdr  http.Header
}

// New starts the server. Callers must Close it.
func New() *Server {
	s := &Server{
		handlers: make(map[string]Handler),
		silenced: make(map[string]bool),
	}
	s.httpServer = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// URL returns the ws:// endpoint of the server.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.httpServer.URL, "http") + "/jsonrpc"
}

// Handle registers the handler for one method name.
func (s *Server) Handle(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// Reply registers a handler that always returns the given result.
func (s *Server) Reply(method string, result any) {
	s.Handle(method, func(Request) (any, error) { return result, nil })
}

// Silence makes the server swallow requests for a method without ever
// responding, for exercising client timeouts.
func (s *Server) Silence(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silenced[method] = true
}

// Dials returns how many WebSocket connections have been accepted.
func (s *Server) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

// Requests returns a copy of every request received so far, in order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// HandshakeHeader returns the headers of the most recent WebSocket
// handshake request.
func (s *Server) HandshakeHeader() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHdr
}

// Notify pushes an unsolicited notification to every connected client.
func (s *Server) Notify(method string, payload any) {
	msg := map[string]any{
		"method": method,
		"params": []any{payload},
	}
	s.mu.Lock()
	conns := make([]*conn, len(s.conns))
	copy(conns, s.conns)
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.writeJSON(msg)
	}
}

// Send pushes a raw JSON message to every connected client, bypassing all
// envelope conventions. Used to inject malformed or unsolicited traffic.
func (s *Server) Send(raw string) {
	s.mu.Lock()
	conns := make([]*conn, len(s.conns))
	copy(conns, s.conns)
	s.mu.Unlock()
	for _, c := range conns {
		c.writeMu.Lock()
		_ = c.ws.WriteMessage(websocket.TextMessage, []byte(raw))
		c.writeMu.Unlock()
	}
}

// DropConnections abruptly closes every client connection.
func (s *Server) DropConnections() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for _, c := range conns {
		c.ws.Close()
	}
}

// Close shuts down the server and all connections.
func (s *Server) Close() {
	s.DropConnections()
	s.httpServer.Close()
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &conn{ws: ws}

	s.mu.Lock()
	s.dials++
	s.lastHdr = r.Header.Clone()
	s.conns = append(s.conns, c)
	s.mu.Unlock()

	go s.readLoop(c)
}

func (s *Server) readLoop(c *conn) {
	defer c.ws.Close()
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			continue
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		silenced := s.silenced[req.Method]
		handler := s.handlers[req.Method]
		s.mu.Unlock()

		if silenced {
			continue
		}
		if handler == nil {
			s.respondFault(c, req.ID, &Fault{Code: -32601, Message: "Method not found: " + req.Method})
			continue
		}

		result, err := handler(req)
		if err != nil {
			if fault, ok := err.(*Fault); ok {
				s.respondFault(c, req.ID, fault)
				continue
			}
			c.ws.Close()
			return
		}
		_ = c.writeJSON(map[string]any{
			"jsonrpc": "2.0",
			"id":      json.RawMessage(req.ID),
			"result":  result,
		})
	}
}

func (s *Server) respondFault(c *conn, id json.RawMessage, f *Fault) {
	_ = c.writeJSON(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    f.Code,
			"message": f.Message,
		},
	})
}
