// Package aria2 is a typed client for the aria2 download manager's JSON-RPC
// interface over WebSocket. One Client owns one connection, dialed lazily on
// the first call; server-pushed download events are delivered to subscribers
// over the same socket.
package aria2

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/slipstream/aria2/rpc"
)

// Config holds the connection parameters for an aria2 RPC endpoint.
type Config struct {
	// Endpoint is the RPC URL, e.g. "ws://localhost:6800/jsonrpc".
	// The scheme must be ws or wss.
	Endpoint string

	// Secret is aria2's --rpc-secret token, if one is configured.
	Secret string

	// Timeout bounds each call. Zero means rpc.DefaultTimeout.
	Timeout time.Duration

	// Headers are sent with the WebSocket handshake.
	Headers map[string]string

	// Logger receives client diagnostics. Zero value logs nothing.
	Logger zerolog.Logger
}

// Client exposes one method per aria2 RPC operation. All methods validate
// their arguments before any wire traffic and surface failures as *rpc.Error
// values dispatchable via rpc.IsKind.
type Client struct {
	transport *rpc.Transport
	log       zerolog.Logger
}

// New validates the configuration and returns a client. No connection is
// made until the first call.
func New(cfg Config) (*Client, error) {
	transport, err := rpc.New(rpc.Options{
		Endpoint: cfg.Endpoint,
		Secret:   cfg.Secret,
		Timeout:  cfg.Timeout,
		Headers:  cfg.Headers,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Client{
		transport: transport,
		log:       cfg.Logger.With().Str("component", "aria2-client").Logger(),
	}, nil
}

// Connect establishes the connection eagerly. Optional; any call dials on
// demand.
func (c *Client) Connect(ctx context.Context) error {
	return c.transport.Open(ctx)
}

// Close releases the connection and rejects any in-flight calls. The client
// is permanently unusable afterwards.
func (c *Client) Close() error {
	return c.transport.Close()
}

// Multicall batches several calls into one transmission. Slot i of the
// result corresponds to calls[i] and carries either the raw value or the
// server's fault for that call.
func (c *Client) Multicall(ctx context.Context, calls []rpc.MulticallCall) ([]rpc.MulticallResult, error) {
	return c.transport.Multicall(ctx, calls)
}

// Event is the payload of a download lifecycle notification.
type Event struct {
	GID string `json:"gid"`
}

// OnDownloadStart subscribes to download-started events. The returned func
// removes exactly this subscription.
func (c *Client) OnDownloadStart(fn func(Event)) (unsubscribe func()) {
	return c.on("aria2.onDownloadStart", fn)
}

// OnDownloadPause subscribes to download-paused events.
func (c *Client) OnDownloadPause(fn func(Event)) (unsubscribe func()) {
	return c.on("aria2.onDownloadPause", fn)
}

// OnDownloadStop subscribes to download-stopped events (removed by user).
func (c *Client) OnDownloadStop(fn func(Event)) (unsubscribe func()) {
	return c.on("aria2.onDownloadStop", fn)
}

// OnDownloadComplete subscribes to download-complete events.
func (c *Client) OnDownloadComplete(fn func(Event)) (unsubscribe func()) {
	return c.on("aria2.onDownloadComplete", fn)
}

// OnDownloadError subscribes to download-error events.
func (c *Client) OnDownloadError(fn func(Event)) (unsubscribe func()) {
	return c.on("aria2.onDownloadError", fn)
}

// OnBtDownloadComplete subscribes to BitTorrent download-complete events
// (fires when the data is complete, before seeding finishes).
func (c *Client) OnBtDownloadComplete(fn func(Event)) (unsubscribe func()) {
	return c.on("aria2.onBtDownloadComplete", fn)
}

func (c *Client) on(event string, fn func(Event)) func() {
	return c.transport.Subscribe(event, func(payload json.RawMessage) {
		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			c.log.Debug().Str("event", event).Err(err).Msg("dropping undecodable notification payload")
			return
		}
		fn(ev)
	})
}
