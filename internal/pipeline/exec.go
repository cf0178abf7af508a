package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

// waitDelay bounds how long reaping waits for stderr to drain after a
// process exits.
const waitDelay = 2 * time.Second

// FFmpegArgs are the transcoder arguments: stdin to Ogg/Opus at 48kHz stereo
// on stdout, with no input probing and errors-only diagnostics.
func FFmpegArgs() []string {
	return []string{
		"-analyzeduration", "0",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-f", "opus",
		"-ar", "48000",
		"-ac", "2",
		"pipe:1",
	}
}

// ExecSpawner runs real yt-dlp and ffmpeg binaries.
type ExecSpawner struct {
	YtdlpPath  string
	FFmpegPath string
	// CookieFile is passed to yt-dlp when it exists at spawn time.
	CookieFile string
}

// AcquireCommand builds the yt-dlp invocation for url.
func (s *ExecSpawner) AcquireCommand(url string) *exec.Cmd {
	cmd := ytdlp.New().
		Format("bestaudio").
		Output("-").
		NoPlaylist()
	if s.YtdlpPath != "" {
		cmd.SetExecutable(s.YtdlpPath)
	}
	if s.CookieFile != "" {
		if _, err := os.Stat(s.CookieFile); err == nil {
			cmd.Cookies(s.CookieFile)
		}
	}
	return cmd.BuildCommand(context.Background(), url)
}

// TranscodeCommand builds the ffmpeg invocation.
func (s *ExecSpawner) TranscodeCommand() *exec.Cmd {
	path := s.FFmpegPath
	if path == "" {
		path = "ffmpeg"
	}
	return exec.Command(path, FFmpegArgs()...)
}

func (s *ExecSpawner) Spawn(ctx context.Context, id, url string) (*Chain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	audioR, audioW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create audio pipe: %w", err)
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		audioR.Close()
		audioW.Close()
		return nil, fmt.Errorf("failed to create output pipe: %w", err)
	}
	// The children hold their own copies of these ends.
	defer audioR.Close()
	defer audioW.Close()
	defer outW.Close()

	acquire := newExecProcess("yt-dlp", id, s.AcquireCommand(url), func(line string) bool {
		return strings.Contains(line, "ERROR")
	})
	acquire.cmd.Stdout = audioW

	transcode := newExecProcess("ffmpeg", id, s.TranscodeCommand(), nil)
	transcode.cmd.Stdin = audioR
	transcode.cmd.Stdout = outW

	if err := acquire.start(); err != nil {
		outR.Close()
		return nil, err
	}
	if err := transcode.start(); err != nil {
		_ = acquire.Kill()
		outR.Close()
		return nil, err
	}

	slog.Debug("spawned pipeline", "chain", id, "url", url)
	return &Chain{
		ID:        id,
		Acquire:   acquire,
		Transcode: transcode,
		Output:    outR,
	}, nil
}

type execProcess struct {
	name   string
	chain  string
	cmd    *exec.Cmd
	stderr *stderrLogger

	done   chan struct{}
	killed atomic.Bool
	err    error
}

func newExecProcess(name, chain string, cmd *exec.Cmd, filter func(string) bool) *execProcess {
	stderr := &stderrLogger{process: name, chain: chain, filter: filter}
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay
	return &execProcess{
		name:   name,
		chain:  chain,
		cmd:    cmd,
		stderr: stderr,
		done:   make(chan struct{}),
	}
}

func (p *execProcess) start() error {
	if err := p.cmd.Start(); err != nil {
		close(p.done)
		return fmt.Errorf("failed to start %s: %w", p.name, err)
	}
	go p.wait()
	return nil
}

func (p *execProcess) wait() {
	err := p.cmd.Wait()
	p.stderr.flush()
	switch {
	case err == nil, p.killed.Load():
	case IsBrokenPipe(err), p.stderr.brokenPipe.Load():
		slog.Debug("process exited on broken pipe", "process", p.name, "chain", p.chain)
	default:
		p.err = fmt.Errorf("%s exited: %w", p.name, err)
	}
	close(p.done)
}

func (p *execProcess) Name() string { return p.name }

func (p *execProcess) Done() <-chan struct{} { return p.done }

func (p *execProcess) Err() error {
	<-p.done
	return p.err
}

func (p *execProcess) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if p.cmd.Process == nil {
		return nil
	}

	p.killed.Store(true)
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill %s: %w", p.name, err)
	}
	return nil
}

// stderrLogger logs a process's stderr line by line.
type stderrLogger struct {
	process string
	chain   string
	filter  func(string) bool

	mu         sync.Mutex
	buf        []byte
	brokenPipe atomic.Bool
}

func (l *stderrLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = append(l.buf, p...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		l.log(string(l.buf[:i]))
		l.buf = l.buf[i+1:]
	}
	return len(p), nil
}

func (l *stderrLogger) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.buf) > 0 {
		l.log(string(l.buf))
		l.buf = nil
	}
}

func (l *stderrLogger) log(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if strings.Contains(strings.ToLower(line), "broken pipe") {
		l.brokenPipe.Store(true)
		return
	}
	if l.filter != nil && !l.filter(line) {
		return
	}
	slog.Warn("pipeline process stderr", "process", l.process, "chain", l.chain, "line", line)
}

var _ Spawner = &ExecSpawner{}
