package downloader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"hls-downloader/internal/platform/cors"
	"hls-downloader/internal/platform/metrics"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	videoContentType = "video/mp4"
	maxBodyBytes     = 64 << 10
)

// Handler exposes the download endpoint using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m, now: time.Now}
}

// Download handles GET /download?url=... and POST /download {"url": "..."}.
// The response body is the fragmented MP4 produced by ffmpeg.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	cors.SetHeaders(w.Header())

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodGet, http.MethodPost:
	default:
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		h.writeError(w, r, ErrMethodNotAllowed)
		return
	}

	log := h.log.With(slog.String("request_id", middleware.GetReqID(r.Context())))

	job, err := h.svc.Prepare(r.Context(), manifestURLFromRequest(r))
	if err != nil {
		kind := Classify(err)
		if kind == KindInternal {
			log.Error("prepare download failed", slog.String("error", err.Error()))
			h.countDownload(metrics.OutcomeFailed)
		} else {
			log.Info("download rejected", slog.String("kind", kind.String()), slog.String("error", err.Error()))
			h.countDownload(metrics.OutcomeRejected)
		}
		h.writeError(w, r, err)
		return
	}
	defer func() {
		if err := job.Close(); err != nil {
			log.Error("cleanup failed", slog.String("job_id", string(job.ID)), slog.String("error", err.Error()))
		}
	}()

	log = log.With(slog.String("job_id", string(job.ID)))
	log.Info("download prepared",
		slog.String("url", job.ManifestURL),
		slog.Int("segments", len(job.URIs)))

	h.stream(w, r, log, job, h.svc.Transcode(r.Context(), job))
}

// stream forwards transcoder output to w. Headers and the 200 status are
// committed with the first chunk, so a transcode that fails before producing
// output still gets a JSON error. Once committed, a failure can only be
// signalled by aborting the connection.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request, log *slog.Logger, job *Job, tc *Transcode) {
	rc := http.NewResponseController(w)
	committed := false
	var written int64
	var writeErr error
	var terminal Event

	out, events := tc.Output, tc.Events
	for out != nil || events != nil {
		select {
		case chunk, ok := <-out:
			if !ok {
				out = nil
				continue
			}
			if writeErr != nil {
				continue
			}
			if !committed {
				h.commit(w, job)
				committed = true
			}
			n, err := w.Write(chunk)
			written += int64(n)
			h.svc.registry.AddBytes(job.ID, n)
			if h.metrics != nil {
				h.metrics.AddBytesStreamed(n)
			}
			if err == nil {
				if ferr := rc.Flush(); ferr != nil && !errors.Is(ferr, http.ErrNotSupported) {
					err = ferr
				}
			}
			if err != nil {
				// Client is gone; stop ffmpeg and drain what is left.
				writeErr = err
				job.Cancel()
			}
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			h.onEvent(log, job, ev)
			if ev.State.Terminal() {
				terminal = ev
			}
		}
	}

	switch {
	case terminal.State == JobStateSucceeded && writeErr == nil:
		if !committed {
			h.commit(w, job)
		}
		h.countDownload(metrics.OutcomeSucceeded)
		log.Info("download finished", slog.Int64("bytes", written))
	case writeErr != nil:
		h.countDownload(metrics.OutcomeFailed)
		log.Warn("client went away", slog.Int64("bytes", written), slog.String("error", writeErr.Error()))
	case !committed:
		h.countDownload(metrics.OutcomeFailed)
		h.writeError(w, r, terminal.Err)
	default:
		h.countDownload(metrics.OutcomeFailed)
		log.Error("transcode failed after streaming started", slog.Int64("bytes", written))
		// Close the connection so the client sees a truncated download
		// instead of a complete-looking file. The deferred cleanup still runs.
		panic(http.ErrAbortHandler)
	}
}

func (h *Handler) commit(w http.ResponseWriter, job *Job) {
	hdr := w.Header()
	hdr.Set("Content-Type", videoContentType)
	hdr.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="lecture_%d.mp4"`, h.now().UnixMilli()))
	hdr.Set("Cache-Control", "no-store")
	hdr.Set("X-Job-Id", string(job.ID))
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) onEvent(log *slog.Logger, job *Job, ev Event) {
	if ev.Progress != nil {
		log.Debug("transcode progress",
			slog.Duration("out_time", ev.Progress.OutTime),
			slog.Int64("total_size", ev.Progress.TotalSize),
			slog.String("speed", ev.Progress.Speed))
		return
	}

	h.svc.registry.SetState(job.ID, ev.State)
	switch ev.State {
	case JobStateStarting:
		log.Info("transcode starting", slog.String("list", job.ListPath))
	case JobStateRunning:
		log.Debug("transcode running")
	case JobStateSucceeded:
		log.Info("transcode succeeded")
	case JobStateFailed:
		log.Error("transcode failed", slog.String("error", ev.Err.Error()))
	}
}

// ListJobs handles GET /jobs with a JSON array of in-flight downloads.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	cors.SetHeaders(w.Header())
	writeJSON(w, http.StatusOK, h.svc.registry.Snapshot())
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// NotAllowed is mounted as the router's method-not-allowed handler.
func (h *Handler) NotAllowed(w http.ResponseWriter, r *http.Request) {
	cors.SetHeaders(w.Header())
	h.writeError(w, r, ErrMethodNotAllowed)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		err = errors.New("transcode ended without a result")
	}
	resp := describe(err)
	if errors.Is(err, ErrMethodNotAllowed) {
		resp.Error = fmt.Sprintf("Method %s not allowed", r.Method)
	}
	writeJSON(w, Classify(err).Status(), resp)
}

func (h *Handler) countDownload(outcome string) {
	if h.metrics != nil {
		h.metrics.IncDownloads(outcome)
	}
}

// manifestURLFromRequest reads the url query parameter, falling back to the
// "url" field of a JSON body on POST.
func manifestURLFromRequest(r *http.Request) string {
	if u := strings.TrimSpace(r.URL.Query().Get("url")); u != "" {
		return u
	}
	if r.Method != http.MethodPost || r.Body == nil {
		return ""
	}
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.URL)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
