package pipeline_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"syscall"
	"testing"

	"github.com/glizzus/toribot/internal/pipeline"
	"github.com/google/go-cmp/cmp"
)

func containsSequence(args []string, seq ...string) bool {
	for i := range args {
		if i+len(seq) <= len(args) && slices.Equal(args[i:i+len(seq)], seq) {
			return true
		}
	}
	return false
}

func TestFFmpegArgs(t *testing.T) {
	want := []string{
		"-analyzeduration", "0",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-f", "opus",
		"-ar", "48000",
		"-ac", "2",
		"pipe:1",
	}
	if diff := cmp.Diff(want, pipeline.FFmpegArgs()); diff != "" {
		t.Errorf("FFmpegArgs() mismatch (-want +got):\n%s", diff)
	}
}

func TestExecSpawner_AcquireCommand(t *testing.T) {
	const url = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	cookies := filepath.Join(t.TempDir(), "cookies.txt")

	s := &pipeline.ExecSpawner{CookieFile: cookies}
	args := s.AcquireCommand(url).Args
	if !containsSequence(args, "-f", "bestaudio") && !containsSequence(args, "--format", "bestaudio") {
		t.Errorf("expected bestaudio format in %v", args)
	}
	if !containsSequence(args, "-o", "-") && !containsSequence(args, "--output", "-") {
		t.Errorf("expected stdout output in %v", args)
	}
	if slices.Contains(args, "--cookies") {
		t.Errorf("expected no cookie flag without a cookie file, got %v", args)
	}
	if args[len(args)-1] != url {
		t.Errorf("expected url as last argument, got %v", args)
	}

	if err := os.WriteFile(cookies, []byte("# Netscape HTTP Cookie File\n"), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	args = s.AcquireCommand(url).Args
	if !containsSequence(args, "--cookies", cookies) {
		t.Errorf("expected cookie flag in %v", args)
	}
}

func TestExecSpawner_TranscodeCommand(t *testing.T) {
	cmd := (&pipeline.ExecSpawner{FFmpegPath: "/opt/ffmpeg"}).TranscodeCommand()
	if cmd.Path != "/opt/ffmpeg" {
		t.Errorf("expected configured path, got %s", cmd.Path)
	}
	if diff := cmp.Diff(pipeline.FFmpegArgs(), cmd.Args[1:]); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestIsBrokenPipe(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{err: nil, want: false},
		{err: syscall.EPIPE, want: true},
		{err: fmt.Errorf("write: %w", syscall.EPIPE), want: true},
		{err: errors.New("signal: broken pipe"), want: true},
		{err: errors.New("exit status 1"), want: false},
	}
	for _, tt := range tests {
		if got := pipeline.IsBrokenPipe(tt.err); got != tt.want {
			t.Errorf("IsBrokenPipe(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[pipeline.State]string{
		pipeline.StateNone:       "none",
		pipeline.StateSpawning:   "spawning",
		pipeline.StatePiped:      "piped",
		pipeline.StateTerminated: "terminated",
	} {
		if got := state.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
