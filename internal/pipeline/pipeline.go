// Package pipeline owns the yt-dlp | ffmpeg process chain that turns a
// YouTube URL into an Ogg/Opus byte stream.
//
// At most one chain is live at a time. Every acquisition tears down the
// previous chain first, and an acquisition that is overtaken by a newer one
// or by Teardown kills whatever it spawned instead of publishing it.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"
)

// ErrSuperseded is returned by Acquire when a newer acquisition or a
// teardown started before the spawned chain could be published.
var ErrSuperseded = errors.New("pipeline acquisition superseded")

// State describes the newest chain known to a Manager.
type State int

const (
	StateNone State = iota
	StateSpawning
	StatePiped
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateSpawning:
		return "spawning"
	case StatePiped:
		return "piped"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Process is a running child process.
type Process interface {
	Name() string
	// Kill terminates the process. Killing an exited process is a no-op.
	Kill() error
	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}
	// Err is the exit error after Done is closed. Exits caused by Kill or
	// by a broken pipe are reported as nil.
	Err() error
}

// Chain is one acquire | transcode pair and the transcoder's output.
type Chain struct {
	ID        string
	Acquire   Process
	Transcode Process
	Output    io.ReadCloser
}

// Kill terminates both processes, transcoder first.
func (c *Chain) Kill() error {
	return errors.Join(c.Transcode.Kill(), c.Acquire.Kill())
}

// Exited reports whether both processes have been reaped.
func (c *Chain) Exited() bool {
	return exited(c.Acquire) && exited(c.Transcode)
}

func exited(p Process) bool {
	select {
	case <-p.Done():
		return true
	default:
		return false
	}
}

// IsBrokenPipe reports whether err is the result of writing to a pipe
// whose reader went away, which is how a chain normally dies on teardown.
func IsBrokenPipe(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EPIPE) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "broken pipe")
}
