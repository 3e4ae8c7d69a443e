package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-drift/geolocation/pkg/bridge/replay"
)

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = orig })
	return &buf
}

func TestExecute_Help(t *testing.T) {
	out := captureStdout(t)
	if err := Execute(nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, name := range []string{"current", "address", "watch", "version", "--source NAME"} {
		if !strings.Contains(out.String(), name) {
			t.Errorf("help missing %q", name)
		}
	}
}

func TestExecute_Version(t *testing.T) {
	out := captureStdout(t)
	if err := Execute([]string{"--version"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out.String(), "geodemo version "+Version) {
		t.Errorf("output = %q", out.String())
	}
}

func TestExecute_CommandHelp(t *testing.T) {
	out := captureStdout(t)
	if err := Execute([]string{"watch", "--help"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out.String(), "--snapshot FILE") {
		t.Errorf("watch help = %q", out.String())
	}
}

func TestExecute_UnknownCommand(t *testing.T) {
	captureStdout(t)
	if err := Execute([]string{"teleport"}); err == nil {
		t.Fatal("expected an error for an unknown command")
	}
}

func TestParseSourceArgs(t *testing.T) {
	sa, rest, err := parseSourceArgs([]string{"--source", "browser", "-track=walk.yaml", "--addr=:9000", "-config", "x.yaml", "--snapshot", "t.png"})
	if err != nil {
		t.Fatalf("parseSourceArgs: %v", err)
	}
	if sa.overrides.Source != "browser" || sa.overrides.Track != "walk.yaml" || sa.overrides.Addr != ":9000" || sa.configPath != "x.yaml" {
		t.Errorf("parsed = %+v", sa)
	}
	if strings.Join(rest, " ") != "--snapshot t.png" {
		t.Errorf("rest = %v", rest)
	}

	if _, _, err := parseSourceArgs([]string{"--track"}); err == nil {
		t.Error("expected an error for a missing value")
	}
}

func TestParseSnapshotArg(t *testing.T) {
	path, rest, err := parseSnapshotArg([]string{"--snapshot=a.png", "extra"})
	if err != nil || path != "a.png" || len(rest) != 1 {
		t.Errorf("got %q %v %v", path, rest, err)
	}
	path, _, _ = parseSnapshotArg(nil)
	if path != defaultSnapshot {
		t.Errorf("default = %q", path)
	}
}

func TestDefaultTrackIsValid(t *testing.T) {
	track, err := replay.ParseTrack(defaultTrack)
	if err != nil {
		t.Fatalf("default track: %v", err)
	}
	if len(track.Steps) == 0 {
		t.Error("default track has no steps")
	}
}
