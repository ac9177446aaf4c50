package aria2

import "testing"

func TestStatus_Progress(t *testing.T) {
	s := &Status{TotalLength: "1000", CompletedLength: "250"}
	if got := s.Progress(); got != 25 {
		t.Errorf("Progress() = %v, want 25", got)
	}

	s = &Status{TotalLength: "0", CompletedLength: "0"}
	if got := s.Progress(); got != 0 {
		t.Errorf("Progress() with unknown size = %v, want 0", got)
	}
}

func TestStatus_ETA(t *testing.T) {
	s := &Status{TotalLength: "1000", CompletedLength: "400", DownloadSpeed: "100"}
	if got := s.ETA(); got != 6 {
		t.Errorf("ETA() = %d, want 6", got)
	}

	s = &Status{TotalLength: "1000", CompletedLength: "400", DownloadSpeed: "0"}
	if got := s.ETA(); got != -1 {
		t.Errorf("ETA() with zero speed = %d, want -1", got)
	}

	s = &Status{TotalLength: "1000", CompletedLength: "1000", DownloadSpeed: "100"}
	if got := s.ETA(); got != -1 {
		t.Errorf("ETA() when complete = %d, want -1", got)
	}
}

func TestStatus_Name(t *testing.T) {
	s := &Status{GID: "2089b05ecca3d829"}
	s.Bittorrent = &TorrentDetail{}
	s.Bittorrent.Info.Name = "ubuntu.iso"
	if got := s.Name(); got != "ubuntu.iso" {
		t.Errorf("Name() = %q, want torrent name", got)
	}

	s = &Status{
		GID:   "2089b05ecca3d829",
		Files: []File{{Path: "/downloads/file.zip"}},
	}
	if got := s.Name(); got != "/downloads/file.zip" {
		t.Errorf("Name() = %q, want first file path", got)
	}

	s = &Status{GID: "2089b05ecca3d829"}
	if got := s.Name(); got != "2089b05ecca3d829" {
		t.Errorf("Name() = %q, want GID fallback", got)
	}
}

func TestDownloadState_Terminal(t *testing.T) {
	terminal := []DownloadState{StateComplete, StateError, StateRemoved}
	for _, state := range terminal {
		if !state.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", state)
		}
	}

	ongoing := []DownloadState{StateActive, StateWaiting, StatePaused}
	for _, state := range ongoing {
		if state.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", state)
		}
	}
}

func TestGlobalStat_Accessors(t *testing.T) {
	g := &GlobalStat{NumActive: "3", NumWaiting: "7", NumStopped: "11"}
	if g.Active() != 3 || g.Waiting() != 7 || g.Stopped() != 11 {
		t.Errorf("accessors returned %d/%d/%d, want 3/7/11", g.Active(), g.Waiting(), g.Stopped())
	}
}

func TestParseIntString(t *testing.T) {
	cases := map[string]int64{
		"":           0,
		"0":          0,
		"123456789":  123456789,
		"not-a-num":  0,
		"-42":        -42,
	}
	for in, want := range cases {
		if got := parseIntString(in); got != want {
			t.Errorf("parseIntString(%q) = %d, want %d", in, got, want)
		}
	}
}
