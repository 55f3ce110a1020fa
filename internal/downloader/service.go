package downloader

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"hls-downloader/internal/platform/metrics"
)

// DefaultTranscodeTimeout bounds one ffmpeg run when no timeout is configured.
const DefaultTranscodeTimeout = 2 * time.Hour

// ManifestFetcher downloads manifest text. *Fetcher is the production implementation.
type ManifestFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Service runs the download pipeline: fetch, parse, resolve, write the concat
// list, then hand the list to the Runner.
type Service struct {
	fetcher          ManifestFetcher
	runner           *Runner
	workspaces       *Workspaces
	registry         Registry
	metrics          *metrics.Metrics
	transcodeTimeout time.Duration
}

// NewService wires the pipeline. m may be nil to disable metric recording.
// A non-positive transcodeTimeout falls back to DefaultTranscodeTimeout.
func NewService(fetcher ManifestFetcher, runner *Runner, workspaces *Workspaces, registry Registry, m *metrics.Metrics, transcodeTimeout time.Duration) *Service {
	if transcodeTimeout <= 0 {
		transcodeTimeout = DefaultTranscodeTimeout
	}
	return &Service{
		fetcher:          fetcher,
		runner:           runner,
		workspaces:       workspaces,
		registry:         registry,
		metrics:          m,
		transcodeTimeout: transcodeTimeout,
	}
}

// Registry returns the registry tracking this service's jobs.
func (s *Service) Registry() Registry {
	return s.registry
}

// ValidateManifestURL checks the user-supplied playlist url.
func ValidateManifestURL(raw string) error {
	if raw == "" {
		return ErrMissingURL
	}
	if !strings.Contains(raw, ".m3u8") {
		return ErrNotStreamURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidURL
	}
	return nil
}

// Prepare validates manifestURL, fetches and parses the playlist and writes
// the concat list into a fresh workspace. On error nothing is left on disk.
// On success the caller owns the job and must Close it.
func (s *Service) Prepare(ctx context.Context, manifestURL string) (*Job, error) {
	if err := ValidateManifestURL(manifestURL); err != nil {
		return nil, err
	}

	ws, err := s.workspaces.Create()
	if err != nil {
		return nil, err
	}
	job := &Job{ID: ws.ID, ManifestURL: manifestURL, ws: ws, registry: s.registry}
	s.registry.Add(job.ID, manifestURL)

	if err := s.prepare(ctx, job); err != nil {
		_ = job.Close()
		return nil, err
	}
	return job, nil
}

func (s *Service) prepare(ctx context.Context, job *Job) error {
	text, err := s.fetcher.Fetch(ctx, job.ManifestURL)
	s.recordFetch(err)
	if err != nil {
		return err
	}

	manifest, err := ParseManifest(text)
	if err != nil {
		return err
	}
	if len(manifest.Segments) == 0 {
		if manifest.Master {
			return fmt.Errorf("%w: %w", ErrNoSegments, ErrMasterPlaylist)
		}
		return ErrNoSegments
	}

	uris, err := ResolveSegments(BaseURL(job.ManifestURL), manifest.Segments)
	if err != nil {
		return err
	}
	path, err := WriteConcatList(job.ws, uris)
	if err != nil {
		return err
	}

	job.URIs = uris
	job.ListPath = path
	s.registry.SetSegments(job.ID, len(uris))
	if s.metrics != nil {
		s.metrics.AddSegmentsResolved(len(uris))
	}
	return nil
}

// Transcode starts ffmpeg for a prepared job, bounded by the transcode
// timeout and by ctx. Job.Cancel or Job.Close stops it.
func (s *Service) Transcode(ctx context.Context, job *Job) *Transcode {
	ctx, cancel := context.WithTimeout(ctx, s.transcodeTimeout)
	job.setCancel(cancel)
	s.registry.SetState(job.ID, JobStateStarting)
	return s.runner.Start(ctx, job.ListPath)
}

func (s *Service) recordFetch(err error) {
	if s.metrics == nil {
		return
	}
	var se *StatusError
	switch {
	case err == nil:
		s.metrics.IncManifestFetch("2xx")
	case errors.As(err, &se):
		s.metrics.IncManifestFetch(fmt.Sprintf("%dxx", se.StatusCode/100))
	default:
		s.metrics.IncManifestFetch("error")
	}
}

// Job is one prepared download. It owns its workspace.
type Job struct {
	ID          JobID
	ManifestURL string
	// URIs are the resolved segment uris in playlist order.
	URIs []string
	// ListPath is the concat list inside the job's workspace.
	ListPath string

	ws       *Workspace
	registry Registry

	mu     sync.Mutex
	cancel context.CancelFunc
	once   sync.Once
	err    error
}

func (j *Job) setCancel(cancel context.CancelFunc) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancel = cancel
}

// Cancel stops the job's transcode if one is running.
func (j *Job) Cancel() {
	j.mu.Lock()
	cancel := j.cancel
	j.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Close cancels any transcode, removes the workspace and unregisters the job.
// Safe to call repeatedly.
func (j *Job) Close() error {
	j.once.Do(func() {
		j.Cancel()
		j.err = j.ws.Remove()
		j.registry.Remove(j.ID)
	})
	return j.err
}
