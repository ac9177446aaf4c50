package aria2

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/slipstream/aria2/internal/wstest"
	"github.com/slipstream/aria2/rpc"
)

func statusReply(gid string, state DownloadState) map[string]any {
	return map[string]any{
		"gid":             gid,
		"status":          string(state),
		"totalLength":     "1000",
		"completedLength": "1000",
		"downloadSpeed":   "0",
		"connections":     "0",
	}
}

func TestWaitForDownload_AlreadyComplete(t *testing.T) {
	server := wstest.New()
	defer server.Close()
	server.Reply("aria2.tellStatus", statusReply("2089b05ecca3d829", StateComplete))

	client := newTestClient(t, server, "")

	status, err := client.WaitForDownload(context.Background(), "2089b05ecca3d829")
	if err != nil {
		t.Fatalf("WaitForDownload() failed: %v", err)
	}
	if status.Status != StateComplete {
		t.Errorf("expected complete, got %s", status.Status)
	}
}

func TestWaitForDownload_CompletesViaNotification(t *testing.T) {
	const gid = "2089b05ecca3d829"

	server := wstest.New()
	defer server.Close()

	var mu sync.Mutex
	state := StateActive
	server.Handle("aria2.tellStatus", func(wstest.Request) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		return statusReply(gid, state), nil
	})

	client := newTestClient(t, server, "")

	done := make(chan *Status, 1)
	errs := make(chan error, 1)
	go func() {
		status, err := client.WaitForDownload(context.Background(), gid)
		if err != nil {
			errs <- err
			return
		}
		done <- status
	}()

	// Wait for the initial probe, then flip the state and push the event.
	deadline := time.Now().Add(5 * time.Second)
	for len(server.Requests()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	mu.Lock()
	state = StateComplete
	mu.Unlock()
	server.Notify("aria2.onDownloadComplete", map[string]any{"gid": gid})

	select {
	case status := <-done:
		if status.Status != StateComplete {
			t.Errorf("expected complete, got %s", status.Status)
		}
	case err := <-errs:
		t.Fatalf("WaitForDownload() failed: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("WaitForDownload() never returned")
	}
}

func TestWaitForDownload_IgnoresOtherGIDs(t *testing.T) {
	const gid = "2089b05ecca3d829"

	server := wstest.New()
	defer server.Close()
	server.Reply("aria2.tellStatus", statusReply(gid, StateActive))

	client := newTestClient(t, server, "")

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		_, err := client.WaitForDownload(ctx, gid)
		if err != context.DeadlineExceeded {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	}()

	// An event for a different download must not settle the wait.
	time.Sleep(50 * time.Millisecond)
	server.Notify("aria2.onDownloadComplete", map[string]any{"gid": "ffffffffffffffff"})
	<-done
}

func TestWaitForDownload_BadGID(t *testing.T) {
	server := wstest.New()
	defer server.Close()

	client := newTestClient(t, server, "")

	_, err := client.WaitForDownload(context.Background(), "nope")
	if !rpc.IsKind(err, rpc.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
