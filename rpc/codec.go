package rpc

import (
	"encoding/json"
	"strconv"
)

// request is the JSON-RPC 2.0 envelope sent to aria2.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// wireFault mirrors the "error" member of a JSON-RPC response.
type wireFault struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// InboundKind tags the result of decoding one raw inbound message.
type InboundKind int

const (
	// InboundUnrecognized is anything that is neither a correlated response
	// nor a known notification; such messages are dropped silently.
	InboundUnrecognized InboundKind = iota
	InboundResponse
	InboundNotification
)

// Inbound is the decoded form of one raw message off the socket.
type Inbound struct {
	Kind InboundKind

	// Response fields (Kind == InboundResponse).
	ID     uint64
	Result json.RawMessage
	Fault  *wireFault

	// Notification fields (Kind == InboundNotification).
	Event   string          // full method name, e.g. "aria2.onDownloadStart"
	Payload json.RawMessage // first element of params, at minimum {"gid": ...}
}

// Push-event method names aria2 emits on the notification channel.
var knownNotifications = map[string]bool{
	"aria2.onDownloadStart":      true,
	"aria2.onDownloadPause":      true,
	"aria2.onDownloadStop":       true,
	"aria2.onDownloadComplete":   true,
	"aria2.onDownloadError":      true,
	"aria2.onBtDownloadComplete": true,
}

// encodeRequest builds the outbound envelope. When a secret is configured it
// rides as the first positional parameter, formatted "token:"+secret. The id
// is supplied by the transport, never generated here.
func encodeRequest(method string, params []any, secret string, id uint64) ([]byte, error) {
	all := make([]any, 0, len(params)+1)
	if secret != "" {
		all = append(all, "token:"+secret)
	}
	all = append(all, params...)

	return json.Marshal(request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  all,
	})
}

// decodeInbound classifies one raw message. A message is a response iff it
// carries the version tag, a string-or-number id, and a result or error
// member; it is a notification iff it carries a known push method and no id.
// Everything else, including non-JSON payloads, decodes as Unrecognized —
// malformed input must never take down the dispatch loop.
func decodeInbound(raw []byte) Inbound {
	var msg struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params"`
		Result  json.RawMessage `json:"result"`
		Error   *wireFault      `json:"error"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Inbound{Kind: InboundUnrecognized}
	}

	if msg.JSONRPC != "" && len(msg.ID) > 0 && (msg.Result != nil || msg.Error != nil) {
		id, ok := decodeID(msg.ID)
		if !ok {
			return Inbound{Kind: InboundUnrecognized}
		}
		return Inbound{
			Kind:   InboundResponse,
			ID:     id,
			Result: msg.Result,
			Fault:  msg.Error,
		}
	}

	if len(msg.ID) == 0 && knownNotifications[msg.Method] {
		var params []json.RawMessage
		if err := json.Unmarshal(msg.Params, &params); err != nil || len(params) == 0 {
			return Inbound{Kind: InboundUnrecognized}
		}
		return Inbound{
			Kind:    InboundNotification,
			Event:   msg.Method,
			Payload: params[0],
		}
	}

	return Inbound{Kind: InboundUnrecognized}
}

// decodeID accepts the id as a JSON number or a numeric string; the server
// echoes whatever we sent, but other producers on the channel may quote it.
func decodeID(raw json.RawMessage) (uint64, bool) {
	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}
