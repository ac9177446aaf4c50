package rpc

import (
	"context"
	"encoding/json"
)

// MulticallCall is one method invocation inside a system.multicall batch.
type MulticallCall struct {
	Method string `json:"methodName"`
	Params []any  `json:"params"`
}

// Fault is a per-slot multicall failure as reported by the server.
type Fault struct {
	Code    int    `json:"faultCode"`
	Message string `json:"faultString"`
}

// MulticallResult is one slot of a multicall response: either Value or
// Fault is set, never both.
type MulticallResult struct {
	Value json.RawMessage
	Fault *Fault
}

// Multicall bundles several calls into one system.multicall transmission.
// The result preserves input order and length exactly: slot i holds either
// the unwrapped value or the fault for calls[i]. An empty batch returns an
// empty result with no wire traffic at all.
//
// aria2 does not honor a batch-level token; when a secret is configured it
// is injected into the params of each nested call instead.
func (t *Transport) Multicall(ctx context.Context, calls []MulticallCall) ([]MulticallResult, error) {
	if len(calls) == 0 {
		return []MulticallResult{}, nil
	}

	batch := make([]MulticallCall, len(calls))
	for i, c := range calls {
		params := c.Params
		if t.secret != "" {
			params = append([]any{"token:" + t.secret}, c.Params...)
		}
		batch[i] = MulticallCall{Method: c.Method, Params: params}
	}

	raw, err := t.do(ctx, "system.multicall", []any{batch}, false)
	if err != nil {
		return nil, err
	}

	var slots []json.RawMessage
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, &Error{Kind: KindProtocolFault, Message: "multicall result is not an array", cause: err}
	}
	if len(slots) != len(calls) {
		return nil, &Error{
			Kind:    KindProtocolFault,
			Message: "multicall result length mismatch",
		}
	}

	results := make([]MulticallResult, len(slots))
	for i, slot := range slots {
		results[i] = decodeMulticallSlot(slot)
	}
	return results, nil
}

// decodeMulticallSlot unwraps one response slot. Successes arrive as a
// one-element array wrapping the real value; failures arrive as a fault
// object.
func decodeMulticallSlot(slot json.RawMessage) MulticallResult {
	var wrapped []json.RawMessage
	if err := json.Unmarshal(slot, &wrapped); err == nil && len(wrapped) == 1 {
		return MulticallResult{Value: wrapped[0]}
	}

	var fault Fault
	if err := json.Unmarshal(slot, &fault); err == nil && (fault.Code != 0 || fault.Message != "") {
		return MulticallResult{Fault: &fault}
	}

	// Unknown slot shape; pass it through as a value rather than lose it.
	return MulticallResult{Value: slot}
}
