package downloader

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"
)

// Progress is one ffmpeg -progress report.
type Progress struct {
	OutTime   time.Duration `json:"out_time"`
	TotalSize int64         `json:"total_size"`
	Speed     string        `json:"speed,omitempty"`
	// Done is set on the final report (progress=end).
	Done bool `json:"done"`
}

// maxStderrLine bounds one stderr line held in memory.
const maxStderrLine = 1 << 20

// scanStderr reads ffmpeg's stderr until EOF. Lines of the -progress
// key=value protocol are folded into Progress reports handed to emit on
// every "progress=" line; all other lines go to ring.
//
// A line longer than maxStderrLine stops parsing but not reading: the rest
// of stderr is discarded so ffmpeg never blocks on a full pipe.
func scanStderr(r io.Reader, ring *LineRing, emit func(Progress)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxStderrLine)

	var cur Progress
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok || key == "" || strings.ContainsAny(key, " \t[:") {
			ring.Add(line)
			continue
		}

		switch key {
		case "out_time_us", "out_time_ms":
			// Both keys are microseconds; out_time_ms is misnamed upstream.
			if n, err := strconv.ParseInt(val, 10, 64); err == nil && n >= 0 {
				cur.OutTime = time.Duration(n) * time.Microsecond
			}
		case "total_size":
			if n, err := strconv.ParseInt(val, 10, 64); err == nil {
				cur.TotalSize = n
			}
		case "speed":
			cur.Speed = strings.TrimSpace(val)
		case "progress":
			cur.Done = val == "end"
			emit(cur)
		}
	}

	err := sc.Err()
	if err == nil {
		return nil
	}
	_, derr := io.Copy(io.Discard, r)
	if errors.Is(err, bufio.ErrTooLong) {
		ring.Add("stderr line too long, remaining stderr discarded")
		return derr
	}
	return err
}
