package downloader

import (
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// Registry is the concurrency-safe contract for tracking in-flight jobs.
type Registry interface {
	// Add records a new job in JobStatePreparing. Credentials in the
	// manifest url (query, fragment, userinfo) are not stored.
	Add(id JobID, manifestURL string)

	// SetSegments records how many segments the job's concat list holds.
	SetSegments(id JobID, n int)

	// SetState moves the job to state. Unknown ids are ignored.
	SetState(id JobID, state JobState)

	// AddBytes adds n to the bytes streamed for the job.
	AddBytes(id JobID, n int)

	// Remove forgets the job. Removing an unknown id is a no-op.
	Remove(id JobID)

	// Snapshot returns a copy of all jobs ordered by start time.
	Snapshot() []JobInfo

	// ActiveCount returns the number of tracked jobs. Used for metrics.
	ActiveCount() int
}

// InMemoryRegistry is a concurrency-safe in-memory implementation of Registry.
type InMemoryRegistry struct {
	mu   sync.RWMutex
	jobs map[JobID]*JobInfo
	now  func() time.Time
}

// NewInMemoryRegistry constructs an empty registry.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		jobs: make(map[JobID]*JobInfo),
		now:  time.Now,
	}
}

// Add implements Registry.Add.
func (r *InMemoryRegistry) Add(id JobID, manifestURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[id] = &JobInfo{
		ID:          id,
		ManifestURL: redactURL(manifestURL),
		State:       JobStatePreparing,
		StartedAt:   r.now().UTC(),
	}
}

// SetSegments implements Registry.SetSegments.
func (r *InMemoryRegistry) SetSegments(id JobID, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, ok := r.jobs[id]; ok {
		job.SegmentCount = n
	}
}

// SetState implements Registry.SetState.
func (r *InMemoryRegistry) SetState(id JobID, state JobState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, ok := r.jobs[id]; ok {
		job.State = state
	}
}

// AddBytes implements Registry.AddBytes.
func (r *InMemoryRegistry) AddBytes(id JobID, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, ok := r.jobs[id]; ok {
		job.BytesOut += int64(n)
	}
}

// Remove implements Registry.Remove.
func (r *InMemoryRegistry) Remove(id JobID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.jobs, id)
}

// Snapshot implements Registry.Snapshot.
func (r *InMemoryRegistry) Snapshot() []JobInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]JobInfo, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// ActiveCount implements Registry.ActiveCount.
func (r *InMemoryRegistry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.jobs)
}

// redactURL drops the parts of raw that commonly carry access tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexAny(raw, "?#"); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	u.User = nil
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
