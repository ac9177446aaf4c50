package aria2

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/slipstream/aria2/internal/wstest"
	"github.com/slipstream/aria2/rpc"
)

func newTestClient(t *testing.T, server *wstest.Server, secret string) *Client {
	t.Helper()
	client, err := New(Config{Endpoint: server.URL(), Secret: secret})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNew_RejectsNonSocketEndpoint(t *testing.T) {
	_, err := New(Config{Endpoint: "http://localhost:6800/jsonrpc"})
	if err == nil {
		t.Fatal("expected error for http endpoint")
	}
	if !rpc.IsKind(err, rpc.KindConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestNew_RejectsNegativeTimeout(t *testing.T) {
	_, err := New(Config{Endpoint: "ws://localhost:6800/jsonrpc", Timeout: -time.Second})
	if err == nil {
		t.Fatal("expected error for negative timeout")
	}
	if !rpc.IsKind(err, rpc.KindConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestClient_AddURI(t *testing.T) {
	server := wstest.New()
	defer server.Close()
	server.Handle("aria2.addUri", func(req wstest.Request) (any, error) {
		token, ok := req.Token()
		if !ok || token != "s3cr3t" {
			t.Errorf("expected token:s3cr3t as first param, got %v", req.Params)
		}
		if len(req.Params) != 2 {
			t.Fatalf("expected 2 params, got %d", len(req.Params))
		}
		var uris []string
		if err := json.Unmarshal(req.Params[1], &uris); err != nil {
			t.Fatalf("params[1] not a URI list: %v", err)
		}
		if len(uris) != 1 || uris[0] != "https://x/file.zip" {
			t.Errorf("unexpected URIs %v", uris)
		}
		return "2089b05ecca3d829", nil
	})

	client := newTestClient(t, server, "s3cr3t")

	gid, err := client.AddURI(context.Background(), []string{"https://x/file.zip"}, nil)
	if err != nil {
		t.Fatalf("AddURI() failed: %v", err)
	}
	if gid != "2089b05ecca3d829" {
		t.Errorf("expected gid 2089b05ecca3d829, got %s", gid)
	}
}

func TestClient_AddURI_WithOptions(t *testing.T) {
	server := wstest.New()
	defer server.Close()
	server.Handle("aria2.addUri", func(req wstest.Request) (any, error) {
		if len(req.Params) != 2 {
			t.Fatalf("expected 2 params without secret, got %d", len(req.Params))
		}
		var opts map[string]string
		if err := json.Unmarshal(req.Params[1], &opts); err != nil {
			t.Fatalf("params[1] not an option map: %v", err)
		}
		if opts["dir"] != "/downloads" || opts["pause"] != "true" {
			t.Errorf("unexpected options %v", opts)
		}
		return "2089b05ecca3d829", nil
	})

	client := newTestClient(t, server, "")

	_, err := client.AddURI(context.Background(), []string{"https://x/file.zip"},
		Options{"dir": "/downloads", "pause": "true"})
	if err != nil {
		t.Fatalf("AddURI() failed: %v", err)
	}
}

func TestClient_AddURI_ValidationBeforeWire(t *testing.T) {
	server := wstest.New()
	defer server.Close()

	client := newTestClient(t, server, "")

	_, err := client.AddURI(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("expected error for empty URI list")
	}
	if !rpc.IsKind(err, rpc.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if server.Dials() != 0 {
		t.Error("validation error must not open a connection")
	}
}

func TestClient_AddTorrent(t *testing.T) {
	content := []byte("d8:announce3:urle")
	server := wstest.New()
	defer server.Close()
	server.Handle("aria2.addTorrent", func(req wstest.Request) (any, error) {
		if len(req.Params) != 2 {
			t.Fatalf("expected 2 params, got %d", len(req.Params))
		}
		var b64 string
		if err := json.Unmarshal(req.Params[0], &b64); err != nil {
			t.Fatalf("params[0] not a string: %v", err)
		}
		if b64 != base64.StdEncoding.EncodeToString(content) {
			t.Error("torrent content not base64 encoded")
		}
		var webseeds []string
		if err := json.Unmarshal(req.Params[1], &webseeds); err != nil {
			t.Fatalf("params[1] not a webseed list: %v", err)
		}
		return "2089b05ecca3d829", nil
	})

	client := newTestClient(t, server, "")

	gid, err := client.AddTorrent(context.Background(), content, nil, nil)
	if err != nil {
		t.Fatalf("AddTorrent() failed: %v", err)
	}
	if gid != "2089b05ecca3d829" {
		t.Errorf("unexpected gid %s", gid)
	}
}

func TestClient_AddTorrent_Empty(t *testing.T) {
	server := wstest.New()
	defer server.Close()

	client := newTestClient(t, server, "")

	_, err := client.AddTorrent(context.Background(), nil, nil, nil)
	if !rpc.IsKind(err, rpc.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestClient_TellStatus(t *testing.T) {
	server := wstest.New()
	defer server.Close()
	server.Reply("aria2.tellStatus", map[string]any{
		"gid":             "2089b05ecca3d829",
		"status":          "active",
		"totalLength":     "34896138",
		"completedLength": "8724034",
		"downloadSpeed":   "1000000",
		"uploadSpeed":     "0",
		"connections":     "3",
		"dir":             "/downloads",
		"files": []map[string]any{
			{"index": "1", "path": "/downloads/file.zip", "length": "34896138"},
		},
	})

	client := newTestClient(t, server, "")

	status, err := client.TellStatus(context.Background(), "2089b05ecca3d829")
	if err != nil {
		t.Fatalf("TellStatus() failed: %v", err)
	}
	if status.Status != StateActive {
		t.Errorf("expected active state, got %s", status.Status)
	}
	if status.Size() != 34896138 {
		t.Errorf("Size() = %d, want 34896138", status.Size())
	}
	if got := status.Progress(); got < 24.9 || got > 25.1 {
		t.Errorf("Progress() = %v, want ~25", got)
	}
	if status.Name() != "/downloads/file.zip" {
		t.Errorf("Name() = %q, want first file path", status.Name())
	}
}

func TestClient_TellStatus_BadGID(t *testing.T) {
	server := wstest.New()
	defer server.Close()

	client := newTestClient(t, server, "")

	_, err := client.TellStatus(context.Background(), "not-a-gid")
	if !rpc.IsKind(err, rpc.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestClient_TellWaiting_Pagination(t *testing.T) {
	server := wstest.New()
	defer server.Close()
	server.Reply("aria2.tellWaiting", []any{})

	client := newTestClient(t, server, "")

	_, err := client.TellWaiting(context.Background(), 0, 0)
	if !rpc.IsKind(err, rpc.KindValidation) {
		t.Errorf("expected validation error for num=0, got %v", err)
	}

	// Negative offset is valid: it counts back from the end.
	if _, err := client.TellWaiting(context.Background(), -10, 10); err != nil {
		t.Errorf("TellWaiting(-10, 10) failed: %v", err)
	}
}

func TestClient_ChangePosition(t *testing.T) {
	server := wstest.New()
	defer server.Close()
	server.Reply("aria2.changePosition", 3)

	client := newTestClient(t, server, "")

	pos, err := client.ChangePosition(context.Background(), "2089b05ecca3d829", 3, PositionSet)
	if err != nil {
		t.Fatalf("ChangePosition() failed: %v", err)
	}
	if pos != 3 {
		t.Errorf("expected position 3, got %d", pos)
	}

	_, err = client.ChangePosition(context.Background(), "2089b05ecca3d829", 3, Position("POS_NOWHERE"))
	if !rpc.IsKind(err, rpc.KindValidation) {
		t.Errorf("expected validation error for bad how, got %v", err)
	}
}

func TestClient_ChangeURI(t *testing.T) {
	server := wstest.New()
	defer server.Close()
	server.Reply("aria2.changeUri", []int{1, 2})

	client := newTestClient(t, server, "")

	deleted, added, err := client.ChangeURI(context.Background(), "2089b05ecca3d829", 1,
		[]string{"https://old/file.zip"}, []string{"https://a/file.zip", "https://b/file.zip"})
	if err != nil {
		t.Fatalf("ChangeURI() failed: %v", err)
	}
	if deleted != 1 || added != 2 {
		t.Errorf("expected 1 deleted / 2 added, got %d/%d", deleted, added)
	}

	_, _, err = client.ChangeURI(context.Background(), "2089b05ecca3d829", 0, nil, []string{"https://x"})
	if !rpc.IsKind(err, rpc.KindValidation) {
		t.Errorf("expected validation error for index 0, got %v", err)
	}

	_, _, err = client.ChangeURI(context.Background(), "2089b05ecca3d829", 1, nil, nil)
	if !rpc.IsKind(err, rpc.KindValidation) {
		t.Errorf("expected validation error for empty change, got %v", err)
	}
}

func TestClient_ChangeOption_Empty(t *testing.T) {
	server := wstest.New()
	defer server.Close()

	client := newTestClient(t, server, "")

	err := client.ChangeOption(context.Background(), "2089b05ecca3d829", nil)
	if !rpc.IsKind(err, rpc.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestClient_GetGlobalStat(t *testing.T) {
	server := wstest.New()
	defer server.Close()
	server.Reply("aria2.getGlobalStat", map[string]any{
		"downloadSpeed":   "2000000",
		"uploadSpeed":     "0",
		"numActive":       "2",
		"numWaiting":      "5",
		"numStopped":      "8",
		"numStoppedTotal": "8",
	})

	client := newTestClient(t, server, "")

	stat, err := client.GetGlobalStat(context.Background())
	if err != nil {
		t.Fatalf("GetGlobalStat() failed: %v", err)
	}
	if stat.Active() != 2 || stat.Waiting() != 5 || stat.Stopped() != 8 {
		t.Errorf("unexpected stat %+v", stat)
	}
}

func TestClient_GetVersion(t *testing.T) {
	server := wstest.New()
	defer server.Close()
	server.Reply("aria2.getVersion", map[string]any{
		"version":         "1.37.0",
		"enabledFeatures": []string{"BitTorrent", "Metalink"},
	})

	client := newTestClient(t, server, "")

	info, err := client.GetVersion(context.Background())
	if err != nil {
		t.Fatalf("GetVersion() failed: %v", err)
	}
	if info.Version != "1.37.0" {
		t.Errorf("expected version 1.37.0, got %s", info.Version)
	}
	if len(info.EnabledFeatures) != 2 {
		t.Errorf("expected 2 features, got %v", info.EnabledFeatures)
	}
}

func TestClient_PauseResume(t *testing.T) {
	server := wstest.New()
	defer server.Close()
	server.Reply("aria2.pause", "2089b05ecca3d829")
	server.Reply("aria2.unpause", "2089b05ecca3d829")
	server.Reply("aria2.pauseAll", "OK")

	client := newTestClient(t, server, "")
	ctx := context.Background()

	if err := client.Pause(ctx, "2089b05ecca3d829"); err != nil {
		t.Errorf("Pause() failed: %v", err)
	}
	if err := client.Unpause(ctx, "2089b05ecca3d829"); err != nil {
		t.Errorf("Unpause() failed: %v", err)
	}
	if err := client.PauseAll(ctx); err != nil {
		t.Errorf("PauseAll() failed: %v", err)
	}
	if err := client.Pause(ctx, "short"); !rpc.IsKind(err, rpc.KindValidation) {
		t.Errorf("expected validation error for bad gid, got %v", err)
	}
}

func TestClient_ListMethods(t *testing.T) {
	server := wstest.New()
	defer server.Close()
	server.Reply("system.listMethods", []string{"aria2.addUri", "aria2.tellStatus"})

	client := newTestClient(t, server, "")

	methods, err := client.ListMethods(context.Background())
	if err != nil {
		t.Fatalf("ListMethods() failed: %v", err)
	}
	if len(methods) != 2 || methods[0] != "aria2.addUri" {
		t.Errorf("unexpected methods %v", methods)
	}
}

func TestClient_Notifications(t *testing.T) {
	server := wstest.New()
	defer server.Close()
	server.Reply("aria2.getVersion", map[string]any{"version": "1.37.0"})

	client := newTestClient(t, server, "")
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}

	events := make(chan Event, 4)
	unsub := client.OnDownloadStart(func(ev Event) { events <- ev })

	server.Notify("aria2.onDownloadStart", map[string]any{"gid": "xyz789"})

	select {
	case ev := <-events:
		if ev.GID != "xyz789" {
			t.Errorf("expected gid xyz789, got %s", ev.GID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("notification never delivered")
	}

	unsub()
	server.Notify("aria2.onDownloadStart", map[string]any{"gid": "abc123"})

	// A roundtrip guarantees the read loop has processed the notification.
	if _, err := client.GetVersion(context.Background()); err != nil {
		t.Fatalf("GetVersion() failed: %v", err)
	}

	select {
	case ev := <-events:
		t.Errorf("unsubscribed handler received %+v", ev)
	default:
	}
}

func TestClient_Multicall(t *testing.T) {
	server := wstest.New()
	defer server.Close()
	server.Reply("system.multicall", []any{
		[]any{"OK"},
		map[string]any{"faultCode": 1, "faultString": "Unauthorized"},
	})

	client := newTestClient(t, server, "")

	results, err := client.Multicall(context.Background(), []rpc.MulticallCall{
		{Method: "aria2.pauseAll"},
		{Method: "aria2.unpauseAll"},
	})
	if err != nil {
		t.Fatalf("Multicall() failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Fault != nil {
		t.Errorf("slot 0 should be a value, got fault %+v", results[0].Fault)
	}
	if results[1].Fault == nil || results[1].Fault.Code != 1 {
		t.Errorf("slot 1 should be fault code 1, got %+v", results[1])
	}
}
