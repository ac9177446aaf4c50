// Package rpc implements the aria2 JSON-RPC transport: a WebSocket
// connection multiplexing concurrent calls, correlating responses by
// request id, and fanning out server-pushed notifications.
package rpc

import (
	"errors"
	"fmt"
)

// Kind classifies transport and protocol failures.
type Kind int

const (
	// KindConnectivity covers dial failures, send failures, abrupt closes,
	// and calls attempted after Close.
	KindConnectivity Kind = iota

	// KindTimeout means no response arrived within the configured window.
	KindTimeout

	// KindAuthentication means the configured secret is missing or wrong
	// (aria2 reports this as fault code 1).
	KindAuthentication

	// KindProtocolFault is any other server-reported fault, carrying the
	// server's code and message verbatim.
	KindProtocolFault

	// KindValidation means a caller-supplied argument failed a precondition
	// before any wire traffic was sent.
	KindValidation

	// KindConfiguration means the client was constructed with bad parameters.
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindTimeout:
		return "timeout"
	case KindAuthentication:
		return "authentication"
	case KindProtocolFault:
		return "protocol fault"
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error is the single error type surfaced by this package and the façade
// above it. Callers dispatch on Kind rather than on concrete types.
type Error struct {
	Kind    Kind
	Code    int    // server fault code, 0 unless KindAuthentication/KindProtocolFault
	Message string
	Data    any   // optional auxiliary data from the server fault
	cause   error // wrapped lower-level error, if any
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("aria2: %s: %s (code %d)", e.Kind, e.Message, e.Code)
	}
	return fmt.Sprintf("aria2: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports kind equality, so errors.Is(err, &Error{Kind: KindTimeout})
// works without comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == 0 || t.Code == e.Code)
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

func connectivityErr(format string, args ...any) *Error {
	return &Error{Kind: KindConnectivity, Message: fmt.Sprintf(format, args...)}
}

func connectivityWrap(msg string, cause error) *Error {
	return &Error{Kind: KindConnectivity, Message: fmt.Sprintf("%s: %v", msg, cause), cause: cause}
}

func timeoutErr(format string, args ...any) *Error {
	return &Error{Kind: KindTimeout, Message: fmt.Sprintf(format, args...)}
}

// ValidationErr reports a caller-supplied argument failing a precondition.
// It never corresponds to wire traffic.
func ValidationErr(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// ConfigurationErr reports malformed construction parameters.
func ConfigurationErr(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// faultErr classifies a server fault: code 1 is aria2's unauthorized
// response, everything else passes through as a protocol fault.
func faultErr(code int, message string, data any) *Error {
	kind := KindProtocolFault
	if code == 1 {
		kind = KindAuthentication
	}
	return &Error{Kind: kind, Code: code, Message: message, Data: data}
}
