package downloader

import "time"

// JobID identifies one download request and names its workspace directory.
type JobID string

// Segment is one media segment descriptor taken from a media playlist.
type Segment struct {
	// URI as written in the playlist; may be relative to the manifest.
	URI string `json:"uri"`
	// Duration in seconds from #EXTINF. Diagnostic only.
	Duration float64 `json:"duration"`
}

// Manifest is a parsed playlist. It is never modified after parsing.
type Manifest struct {
	Segments []Segment
	// Master is true when the text was a multi-variant playlist. Those carry
	// no media segments and are not followed.
	Master bool
}

// JobState is the lifecycle state of a download job. The transcode states
// double as the states of the ffmpeg state machine.
type JobState string

const (
	JobStatePreparing JobState = "preparing"
	JobStateStarting  JobState = "starting"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
)

// Terminal reports whether no further transitions can happen from s.
func (s JobState) Terminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

// JobInfo is the registry's view of an in-flight job. ManifestURL has its
// query, fragment and userinfo removed.
type JobInfo struct {
	ID           JobID     `json:"id"`
	ManifestURL  string    `json:"manifest_url"`
	SegmentCount int       `json:"segment_count"`
	State        JobState  `json:"state"`
	BytesOut     int64     `json:"bytes_out"`
	StartedAt    time.Time `json:"started_at"`
}
