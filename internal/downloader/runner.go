package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultChunkSize = 32 << 10
	// eventBuffer holds the state transitions plus some progress reports.
	eventBuffer = 16
	// waitDelay bounds how long Wait keeps pipes open after ffmpeg is killed.
	waitDelay = 5 * time.Second
)

// Event is one notification from a transcode. State is one of
// JobStateStarting, JobStateRunning, JobStateSucceeded or JobStateFailed.
// Running events after the first carry Progress. Failed events carry Err.
type Event struct {
	State    JobState
	Progress *Progress
	Err      error
}

// Transcode is a running ffmpeg invocation.
//
// Output delivers stdout in order and is closed at EOF. Events delivers
// Starting, Running, progress reports and exactly one terminal event, then
// is closed. Consumers must drain both channels until closed, or cancel the
// context passed to Start and then drain.
type Transcode struct {
	Output <-chan []byte
	Events <-chan Event
}

// Runner invokes ffmpeg to concatenate a concat list into fragmented MP4 on
// stdout.
type Runner struct {
	bin       string
	chunkSize int
}

// NewRunner returns a Runner using the ffmpeg binary at bin ("ffmpeg" when empty).
func NewRunner(bin string) *Runner {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Runner{bin: bin, chunkSize: defaultChunkSize}
}

// Args returns the ffmpeg arguments for concatenating listPath. Streams are
// copied without re-encoding and muxed as fragmented MP4 so bytes can be
// written to a pipe before the whole output is known.
func Args(listPath string) []string {
	return []string{
		"-hide_banner", "-nostdin",
		"-loglevel", "error",
		"-nostats", "-progress", "pipe:2",
		"-protocol_whitelist", "file,http,https,tcp,tls,crypto",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-map", "0",
		"-c", "copy",
		"-bsf:a", "aac_adtstoasc",
		"-f", "mp4",
		"-movflags", "frag_keyframe+empty_moov+default_base_moof",
		"pipe:1",
	}
}

// Start launches ffmpeg for listPath. It never blocks on the process: an
// invocation failure is reported as Starting followed by Failed.
// Cancelling ctx kills the process.
func (r *Runner) Start(ctx context.Context, listPath string) *Transcode {
	output := make(chan []byte, 4)
	events := make(chan Event, eventBuffer)
	tc := &Transcode{Output: output, Events: events}

	events <- Event{State: JobStateStarting}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, r.bin, Args(listPath)...)
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	var stderr io.ReadCloser
	if err == nil {
		stderr, err = cmd.StderrPipe()
	}
	if err == nil {
		err = cmd.Start()
	}
	if err != nil {
		cancel()
		events <- Event{State: JobStateFailed, Err: fmt.Errorf("start %s: %w", r.bin, err)}
		close(events)
		close(output)
		return tc
	}

	events <- Event{State: JobStateRunning}
	go r.supervise(ctx, cancel, cmd, stdout, stderr, output, events)

	return tc
}

func (r *Runner) supervise(ctx context.Context, cancel context.CancelFunc, cmd *exec.Cmd,
	stdout, stderr io.Reader, output chan<- []byte, events chan<- Event) {
	defer close(events)
	defer cancel()

	ring := NewLineRing(32)

	var g errgroup.Group
	g.Go(func() error {
		defer close(output)
		if err := pump(ctx, stdout, output, r.chunkSize); err != nil {
			// Unblock ffmpeg if it is stuck writing to a pipe nobody reads.
			cancel()
			return err
		}
		return nil
	})
	g.Go(func() error {
		return scanStderr(stderr, ring, func(p Progress) {
			select {
			case events <- Event{State: JobStateRunning, Progress: &p}:
			default:
			}
		})
	})

	copyErr := g.Wait()
	waitErr := cmd.Wait()

	var err error
	switch {
	case ctx.Err() != nil && (waitErr != nil || copyErr != nil):
		err = fmt.Errorf("ffmpeg interrupted: %w", context.Cause(ctx))
	case waitErr != nil:
		err = fmt.Errorf("ffmpeg failed: %w%s", waitErr, tail(ring))
	case copyErr != nil:
		err = fmt.Errorf("read ffmpeg output: %w", copyErr)
	}

	if err != nil {
		events <- Event{State: JobStateFailed, Err: err}
		return
	}
	events <- Event{State: JobStateSucceeded}
}

// pump forwards src to out in chunks until EOF.
func pump(ctx context.Context, src io.Reader, out chan<- []byte, size int) error {
	buf := make([]byte, size)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case out <- chunk:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func tail(ring *LineRing) string {
	lines := ring.LastN(5)
	if len(lines) == 0 {
		return ""
	}
	return ": " + strings.Join(lines, " | ")
}
