package aria2

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/slipstream/aria2/rpc"
)

// call issues one RPC and decodes the result into out (skipped when nil).
func (c *Client) call(ctx context.Context, method string, out any, params ...any) error {
	raw, err := c.transport.Call(ctx, method, params...)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &rpc.Error{
			Kind:    rpc.KindProtocolFault,
			Message: fmt.Sprintf("unexpected %s response shape: %v", method, err),
		}
	}
	return nil
}

// AddURI queues a download from one or more URIs pointing at the same
// resource and returns its GID. opts may be nil.
func (c *Client) AddURI(ctx context.Context, uris []string, opts Options) (string, error) {
	if err := validateURIs(uris); err != nil {
		return "", err
	}
	params := []any{uris}
	if opts != nil {
		params = append(params, opts)
	}
	var gid string
	if err := c.call(ctx, "aria2.addUri", &gid, params...); err != nil {
		return "", err
	}
	return gid, nil
}

// AddTorrent uploads raw .torrent content and returns the download's GID.
// webseeds may be empty; opts may be nil.
func (c *Client) AddTorrent(ctx context.Context, torrent []byte, webseeds []string, opts Options) (string, error) {
	if len(torrent) == 0 {
		return "", rpc.ValidationErr("torrent content must be non-empty")
	}
	if webseeds == nil {
		webseeds = []string{}
	}
	params := []any{base64.StdEncoding.EncodeToString(torrent), webseeds}
	if opts != nil {
		params = append(params, opts)
	}
	var gid string
	if err := c.call(ctx, "aria2.addTorrent", &gid, params...); err != nil {
		return "", err
	}
	return gid, nil
}

// AddMetalink uploads raw .metalink content and returns the GIDs of every
// download it produced.
func (c *Client) AddMetalink(ctx context.Context, metalink []byte, opts Options) ([]string, error) {
	if len(metalink) == 0 {
		return nil, rpc.ValidationErr("metalink content must be non-empty")
	}
	params := []any{base64.StdEncoding.EncodeToString(metalink)}
	if opts != nil {
		params = append(params, opts)
	}
	var gids []string
	if err := c.call(ctx, "aria2.addMetalink", &gids, params...); err != nil {
		return nil, err
	}
	return gids, nil
}

// Remove removes a download, contacting the tracker first for torrents.
func (c *Client) Remove(ctx context.Context, gid string) error {
	return c.gidOp(ctx, "aria2.remove", gid)
}

// ForceRemove removes a download without any cleanup actions.
func (c *Client) ForceRemove(ctx context.Context, gid string) error {
	return c.gidOp(ctx, "aria2.forceRemove", gid)
}

// Pause pauses a download; it moves to the front of the waiting queue as
// paused.
func (c *Client) Pause(ctx context.Context, gid string) error {
	return c.gidOp(ctx, "aria2.pause", gid)
}

// ForcePause pauses a download without contacting trackers.
func (c *Client) ForcePause(ctx context.Context, gid string) error {
	return c.gidOp(ctx, "aria2.forcePause", gid)
}

// Unpause resumes a paused download.
func (c *Client) Unpause(ctx context.Context, gid string) error {
	return c.gidOp(ctx, "aria2.unpause", gid)
}

func (c *Client) gidOp(ctx context.Context, method, gid string) error {
	if err := validateGID(gid); err != nil {
		return err
	}
	return c.call(ctx, method, nil, gid)
}

// PauseAll pauses every active and waiting download.
func (c *Client) PauseAll(ctx context.Context) error {
	return c.call(ctx, "aria2.pauseAll", nil)
}

// ForcePauseAll pauses everything without contacting trackers.
func (c *Client) ForcePauseAll(ctx context.Context) error {
	return c.call(ctx, "aria2.forcePauseAll", nil)
}

// UnpauseAll resumes every paused download.
func (c *Client) UnpauseAll(ctx context.Context) error {
	return c.call(ctx, "aria2.unpauseAll", nil)
}

// TellStatus fetches the status of one download. keys narrows the response
// to the named fields; empty keys fetches everything.
func (c *Client) TellStatus(ctx context.Context, gid string, keys ...string) (*Status, error) {
	if err := validateGID(gid); err != nil {
		return nil, err
	}
	params := []any{gid}
	if len(keys) > 0 {
		params = append(params, keys)
	}
	var status Status
	if err := c.call(ctx, "aria2.tellStatus", &status, params...); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetURIs lists the URIs of a download with their usage status.
func (c *Client) GetURIs(ctx context.Context, gid string) ([]URI, error) {
	if err := validateGID(gid); err != nil {
		return nil, err
	}
	var uris []URI
	if err := c.call(ctx, "aria2.getUris", &uris, gid); err != nil {
		return nil, err
	}
	return uris, nil
}

// GetFiles lists the files of a download.
func (c *Client) GetFiles(ctx context.Context, gid string) ([]File, error) {
	if err := validateGID(gid); err != nil {
		return nil, err
	}
	var files []File
	if err := c.call(ctx, "aria2.getFiles", &files, gid); err != nil {
		return nil, err
	}
	return files, nil
}

// GetPeers lists the BitTorrent peers of a download.
func (c *Client) GetPeers(ctx context.Context, gid string) ([]Peer, error) {
	if err := validateGID(gid); err != nil {
		return nil, err
	}
	var peers []Peer
	if err := c.call(ctx, "aria2.getPeers", &peers, gid); err != nil {
		return nil, err
	}
	return peers, nil
}

// GetServers lists the currently connected servers per file of a download.
func (c *Client) GetServers(ctx context.Context, gid string) ([]ServerGroup, error) {
	if err := validateGID(gid); err != nil {
		return nil, err
	}
	var servers []ServerGroup
	if err := c.call(ctx, "aria2.getServers", &servers, gid); err != nil {
		return nil, err
	}
	return servers, nil
}

// TellActive lists downloads currently in progress.
func (c *Client) TellActive(ctx context.Context, keys ...string) ([]Status, error) {
	var params []any
	if len(keys) > 0 {
		params = append(params, keys)
	}
	var statuses []Status
	if err := c.call(ctx, "aria2.tellActive", &statuses, params...); err != nil {
		return nil, err
	}
	return statuses, nil
}

// TellWaiting lists a window of the waiting queue. A negative offset counts
// back from the end of the queue.
func (c *Client) TellWaiting(ctx context.Context, offset, num int, keys ...string) ([]Status, error) {
	return c.tellRange(ctx, "aria2.tellWaiting", offset, num, keys)
}

// TellStopped lists a window of stopped (completed, errored, or removed)
// downloads.
func (c *Client) TellStopped(ctx context.Context, offset, num int, keys ...string) ([]Status, error) {
	return c.tellRange(ctx, "aria2.tellStopped", offset, num, keys)
}

func (c *Client) tellRange(ctx context.Context, method string, offset, num int, keys []string) ([]Status, error) {
	if err := validatePagination(num); err != nil {
		return nil, err
	}
	params := []any{offset, num}
	if len(keys) > 0 {
		params = append(params, keys)
	}
	var statuses []Status
	if err := c.call(ctx, method, &statuses, params...); err != nil {
		return nil, err
	}
	return statuses, nil
}

// ChangePosition moves a download within the waiting queue and returns its
// resulting position.
func (c *Client) ChangePosition(ctx context.Context, gid string, pos int, how Position) (int, error) {
	if err := validateGID(gid); err != nil {
		return 0, err
	}
	if err := validatePosition(how); err != nil {
		return 0, err
	}
	var result int
	if err := c.call(ctx, "aria2.changePosition", &result, gid, pos, string(how)); err != nil {
		return 0, err
	}
	return result, nil
}

// ChangeURI removes delURIs from and appends addURIs to the URI list of the
// fileIndex-th file (1-based) of a download. It returns how many URIs were
// deleted and added.
func (c *Client) ChangeURI(ctx context.Context, gid string, fileIndex int, delURIs, addURIs []string) (deleted, added int, err error) {
	if err := validateGID(gid); err != nil {
		return 0, 0, err
	}
	if fileIndex < 1 {
		return 0, 0, rpc.ValidationErr("file index must be >= 1, got %d", fileIndex)
	}
	if len(delURIs) == 0 && len(addURIs) == 0 {
		return 0, 0, rpc.ValidationErr("nothing to change: both URI lists are empty")
	}
	if delURIs == nil {
		delURIs = []string{}
	}
	if addURIs == nil {
		addURIs = []string{}
	}
	var counts []int
	if err := c.call(ctx, "aria2.changeUri", &counts, gid, fileIndex, delURIs, addURIs); err != nil {
		return 0, 0, err
	}
	if len(counts) != 2 {
		return 0, 0, &rpc.Error{Kind: rpc.KindProtocolFault, Message: "unexpected changeUri response shape"}
	}
	return counts[0], counts[1], nil
}

// GetOption returns the options of one download.
func (c *Client) GetOption(ctx context.Context, gid string) (Options, error) {
	if err := validateGID(gid); err != nil {
		return nil, err
	}
	var opts Options
	if err := c.call(ctx, "aria2.getOption", &opts, gid); err != nil {
		return nil, err
	}
	return opts, nil
}

// ChangeOption updates options of one download.
func (c *Client) ChangeOption(ctx context.Context, gid string, opts Options) error {
	if err := validateGID(gid); err != nil {
		return err
	}
	if err := validateOptions(opts); err != nil {
		return err
	}
	return c.call(ctx, "aria2.changeOption", nil, gid, opts)
}

// GetGlobalOption returns the global options of the aria2 instance.
func (c *Client) GetGlobalOption(ctx context.Context) (Options, error) {
	var opts Options
	if err := c.call(ctx, "aria2.getGlobalOption", &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// ChangeGlobalOption updates global options of the aria2 instance.
func (c *Client) ChangeGlobalOption(ctx context.Context, opts Options) error {
	if err := validateOptions(opts); err != nil {
		return err
	}
	return c.call(ctx, "aria2.changeGlobalOption", nil, opts)
}

// GetGlobalStat returns aggregate transfer statistics.
func (c *Client) GetGlobalStat(ctx context.Context) (*GlobalStat, error) {
	var stat GlobalStat
	if err := c.call(ctx, "aria2.getGlobalStat", &stat); err != nil {
		return nil, err
	}
	return &stat, nil
}

// PurgeDownloadResult drops every completed/errored/removed result from
// aria2's memory.
func (c *Client) PurgeDownloadResult(ctx context.Context) error {
	return c.call(ctx, "aria2.purgeDownloadResult", nil)
}

// RemoveDownloadResult drops one stopped download's result from aria2's
// memory.
func (c *Client) RemoveDownloadResult(ctx context.Context, gid string) error {
	return c.gidOp(ctx, "aria2.removeDownloadResult", gid)
}

// GetVersion returns the server version and its enabled features.
func (c *Client) GetVersion(ctx context.Context) (*VersionInfo, error) {
	var info VersionInfo
	if err := c.call(ctx, "aria2.getVersion", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetSessionInfo returns the server's session identifier.
func (c *Client) GetSessionInfo(ctx context.Context) (*SessionInfo, error) {
	var info SessionInfo
	if err := c.call(ctx, "aria2.getSessionInfo", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Shutdown asks the server to shut down gracefully.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.call(ctx, "aria2.shutdown", nil)
}

// ForceShutdown shuts the server down without waiting for in-progress
// actions.
func (c *Client) ForceShutdown(ctx context.Context) error {
	return c.call(ctx, "aria2.forceShutdown", nil)
}

// SaveSession persists the current session to the server's session file.
func (c *Client) SaveSession(ctx context.Context) error {
	return c.call(ctx, "aria2.saveSession", nil)
}

// ListMethods returns the RPC method names the server exposes.
func (c *Client) ListMethods(ctx context.Context) ([]string, error) {
	var methods []string
	if err := c.call(ctx, "system.listMethods", &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

// ListNotifications returns the notification method names the server can
// push.
func (c *Client) ListNotifications(ctx context.Context) ([]string, error) {
	var notifications []string
	if err := c.call(ctx, "system.listNotifications", &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}
