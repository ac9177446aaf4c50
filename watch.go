package aria2

import (
	"context"
	"time"
)

// watchPollInterval backstops the notification-driven wait below with a
// periodic status probe, covering events that fired before the
// subscription existed.
const watchPollInterval = 2 * time.Second

// WaitForDownload blocks until the download reaches a terminal state
// (complete, error, or removed) and returns its final status. The wait is
// driven by push notifications with a periodic status probe as fallback; a
// download that is already finished returns immediately. Callers decide how
// to treat non-complete terminal states via Status.Status.
func (c *Client) WaitForDownload(ctx context.Context, gid string) (*Status, error) {
	if err := validateGID(gid); err != nil {
		return nil, err
	}

	signal := make(chan struct{}, 1)
	notify := func(ev Event) {
		if ev.GID != gid {
			return
		}
		select {
		case signal <- struct{}{}:
		default:
		}
	}
	unsubs := []func(){
		c.OnDownloadComplete(notify),
		c.OnBtDownloadComplete(notify),
		c.OnDownloadError(notify),
		c.OnDownloadStop(notify),
	}
	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}()

	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()

	for {
		status, err := c.TellStatus(ctx, gid)
		if err != nil {
			return nil, err
		}
		if status.Status.Terminal() {
			return status, nil
		}

		select {
		case <-signal:
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
