package aria2

import "strconv"

// aria2 encodes every numeric field as a decimal string on the wire. The
// record types keep the wire representation and expose parsed accessors for
// the fields callers actually compute with.

// DownloadState is the lifecycle state aria2 reports for a download.
type DownloadState string

const (
	StateActive   DownloadState = "active"
	StateWaiting  DownloadState = "waiting"
	StatePaused   DownloadState = "paused"
	StateError    DownloadState = "error"
	StateComplete DownloadState = "complete"
	StateRemoved  DownloadState = "removed"
)

// Terminal reports whether the state is final: the download will make no
// further progress without caller intervention.
func (s DownloadState) Terminal() bool {
	return s == StateComplete || s == StateError || s == StateRemoved
}

// Status is the response shape of aria2.tellStatus and the tell* listings.
type Status struct {
	GID             string         `json:"gid"`
	Status          DownloadState  `json:"status"`
	TotalLength     string         `json:"totalLength"`
	CompletedLength string         `json:"completedLength"`
	UploadLength    string         `json:"uploadLength"`
	DownloadSpeed   string         `json:"downloadSpeed"`
	UploadSpeed     string         `json:"uploadSpeed"`
	InfoHash        string         `json:"infoHash,omitempty"`
	NumSeeders      string         `json:"numSeeders,omitempty"`
	Seeder          string         `json:"seeder,omitempty"`
	PieceLength     string         `json:"pieceLength,omitempty"`
	NumPieces       string         `json:"numPieces,omitempty"`
	Connections     string         `json:"connections"`
	ErrorCode       string         `json:"errorCode,omitempty"`
	ErrorMessage    string         `json:"errorMessage,omitempty"`
	FollowedBy      []string       `json:"followedBy,omitempty"`
	Following       string         `json:"following,omitempty"`
	BelongsTo       string         `json:"belongsTo,omitempty"`
	Dir             string         `json:"dir"`
	Files           []File         `json:"files"`
	Bittorrent      *TorrentDetail `json:"bittorrent,omitempty"`
	VerifiedLength  string         `json:"verifiedLength,omitempty"`
}

// Size returns the total length in bytes.
func (s *Status) Size() int64 { return parseIntString(s.TotalLength) }

// Completed returns the downloaded length in bytes.
func (s *Status) Completed() int64 { return parseIntString(s.CompletedLength) }

// Speed returns the download speed in bytes per second.
func (s *Status) Speed() int64 { return parseIntString(s.DownloadSpeed) }

// Progress returns completion as a percentage, 0 when the size is unknown.
func (s *Status) Progress() float64 {
	total := s.Size()
	if total <= 0 {
		return 0
	}
	return float64(s.Completed()) / float64(total) * 100
}

// ETA estimates the remaining seconds, -1 when it cannot be computed.
func (s *Status) ETA() int64 {
	speed := s.Speed()
	total, completed := s.Size(), s.Completed()
	if speed <= 0 || total <= completed {
		return -1
	}
	return (total - completed) / speed
}

// Name returns a human-readable name: the torrent name when present, else
// the first file path, else the GID.
func (s *Status) Name() string {
	if s.Bittorrent != nil && s.Bittorrent.Info.Name != "" {
		return s.Bittorrent.Info.Name
	}
	if len(s.Files) > 0 && s.Files[0].Path != "" {
		return s.Files[0].Path
	}
	return s.GID
}

// File is one entry of a download's file list.
type File struct {
	Index           string `json:"index"`
	Path            string `json:"path"`
	Length          string `json:"length"`
	CompletedLength string `json:"completedLength"`
	Selected        string `json:"selected"`
	URIs            []URI  `json:"uris"`
}

// URI is one source of a file with its usage status ("used" or "waiting").
type URI struct {
	URI    string `json:"uri"`
	Status string `json:"status"`
}

// TorrentDetail carries BitTorrent metadata attached to a Status.
type TorrentDetail struct {
	AnnounceList [][]string `json:"announceList,omitempty"`
	Comment      string     `json:"comment,omitempty"`
	CreationDate int64      `json:"creationDate,omitempty"`
	Mode         string     `json:"mode,omitempty"`
	Info         struct {
		Name string `json:"name"`
	} `json:"info"`
}

// Peer is one BitTorrent peer of a download.
type Peer struct {
	PeerID        string `json:"peerId"`
	IP            string `json:"ip"`
	Port          string `json:"port"`
	Bitfield      string `json:"bitfield"`
	AmChoking     string `json:"amChoking"`
	PeerChoking   string `json:"peerChoking"`
	DownloadSpeed string `json:"downloadSpeed"`
	UploadSpeed   string `json:"uploadSpeed"`
	Seeder        string `json:"seeder"`
}

// ServerGroup lists the servers currently used for one file of a download.
type ServerGroup struct {
	Index   string         `json:"index"`
	Servers []ServerDetail `json:"servers"`
}

// ServerDetail is one connected server.
type ServerDetail struct {
	URI           string `json:"uri"`
	CurrentURI    string `json:"currentUri"`
	DownloadSpeed string `json:"downloadSpeed"`
}

// GlobalStat is the response shape of aria2.getGlobalStat.
type GlobalStat struct {
	DownloadSpeed   string `json:"downloadSpeed"`
	UploadSpeed     string `json:"uploadSpeed"`
	NumActive       string `json:"numActive"`
	NumWaiting      string `json:"numWaiting"`
	NumStopped      string `json:"numStopped"`
	NumStoppedTotal string `json:"numStoppedTotal"`
}

// Active returns the number of active downloads.
func (g *GlobalStat) Active() int64 { return parseIntString(g.NumActive) }

// Waiting returns the number of waiting downloads.
func (g *GlobalStat) Waiting() int64 { return parseIntString(g.NumWaiting) }

// Stopped returns the number of stopped downloads in the current session.
func (g *GlobalStat) Stopped() int64 { return parseIntString(g.NumStopped) }

// VersionInfo is the response shape of aria2.getVersion.
type VersionInfo struct {
	Version         string   `json:"version"`
	EnabledFeatures []string `json:"enabledFeatures"`
}

// SessionInfo is the response shape of aria2.getSessionInfo.
type SessionInfo struct {
	SessionID string `json:"sessionId"`
}

// Options is an aria2 option map; aria2 represents every value as a string.
type Options map[string]string

// Position selects the reference point for aria2.changePosition.
type Position string

const (
	PositionSet Position = "POS_SET" // absolute position in the queue
	PositionCur Position = "POS_CUR" // relative to the current position
	PositionEnd Position = "POS_END" // relative to the end of the queue
)

func parseIntString(s string) int64 {
	if s == "" {
		return 0
	}
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}
