package downloader

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMethodNotAllowed is returned for methods other than GET, POST and OPTIONS.
	ErrMethodNotAllowed = errors.New("method not allowed")
	// ErrMissingURL is returned when neither the query nor the body carries a url.
	ErrMissingURL = errors.New("missing url")
	// ErrNotStreamURL is returned when the url does not reference an .m3u8 playlist.
	ErrNotStreamURL = errors.New("url must reference an .m3u8 playlist")
	// ErrInvalidURL is returned for urls that are not absolute http(s) urls.
	ErrInvalidURL = errors.New("url must be an absolute http or https url")
	// ErrNoSegments is returned when the parsed manifest has no segments.
	ErrNoSegments = errors.New("no segments found in playlist")
	// ErrUnsupportedSegment is returned when a segment resolves to a non-http(s) uri.
	ErrUnsupportedSegment = errors.New("unsupported segment uri")
	// ErrMasterPlaylist is wrapped into ErrNoSegments for multi-variant playlists.
	ErrMasterPlaylist = errors.New("master playlist has no media segments")
)

// StatusError reports a manifest fetch that completed with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: upstream status %d", e.URL, e.StatusCode)
}

// FetchError reports a manifest fetch that failed below HTTP (DNS, timeout,
// refused connection, truncated body).
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Kind is the error taxonomy exposed over HTTP.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindMethodNotAllowed
	KindUpstreamNotFound
	KindUpstreamForbidden
)

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindUpstreamNotFound:
		return http.StatusNotFound
	case KindUpstreamForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "BadRequest"
	case KindMethodNotAllowed:
		return "MethodNotAllowed"
	case KindUpstreamNotFound:
		return "UpstreamNotFound"
	case KindUpstreamForbidden:
		return "UpstreamForbidden"
	default:
		return "InternalError"
	}
}

// Classify maps any pipeline error to exactly one Kind.
func Classify(err error) Kind {
	var se *StatusError
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrMethodNotAllowed):
		return KindMethodNotAllowed
	case errors.Is(err, ErrMissingURL),
		errors.Is(err, ErrNotStreamURL),
		errors.Is(err, ErrInvalidURL),
		errors.Is(err, ErrNoSegments),
		errors.Is(err, ErrUnsupportedSegment):
		return KindBadRequest
	case errors.As(err, &se):
		switch se.StatusCode {
		case http.StatusNotFound:
			return KindUpstreamNotFound
		case http.StatusForbidden:
			return KindUpstreamForbidden
		}
	}
	return KindInternal
}

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Usage   string   `json:"usage,omitempty"`
	Example string   `json:"example,omitempty"`
	Tips    []string `json:"tips,omitempty"`
}

const (
	usageText   = "GET /download?url=<playlist.m3u8> or POST /download with JSON body {\"url\": \"<playlist.m3u8>\"}"
	exampleText = "/download?url=https://cdn.example.com/lecture/index.m3u8"
)

// describe builds the user-facing payload for err.
func describe(err error) errorResponse {
	var se *StatusError
	switch {
	case errors.Is(err, ErrMethodNotAllowed):
		return errorResponse{
			Error: "Method not allowed",
			Usage: usageText,
		}
	case errors.Is(err, ErrMissingURL):
		return errorResponse{
			Error:   "Missing required parameter: url",
			Usage:   usageText,
			Example: exampleText,
		}
	case errors.Is(err, ErrNotStreamURL):
		return errorResponse{
			Error:   "Invalid URL: must be a valid stream URL (.m3u8)",
			Example: exampleText,
		}
	case errors.Is(err, ErrInvalidURL):
		return errorResponse{
			Error:   "Invalid URL: must be an absolute http or https URL",
			Example: exampleText,
		}
	case errors.Is(err, ErrMasterPlaylist):
		return errorResponse{
			Error:   "No segments found in playlist",
			Message: "The URL points to a master playlist that only lists variant streams.",
			Tips:    []string{"Open the master playlist and pass one of the variant (media) playlist URLs instead."},
		}
	case errors.Is(err, ErrNoSegments):
		return errorResponse{
			Error: "No segments found in playlist",
			Tips:  []string{"Make sure the URL points to a media playlist that lists .ts or .m4s segments."},
		}
	case errors.Is(err, ErrUnsupportedSegment):
		return errorResponse{
			Error:   "Playlist references unsupported segment URIs",
			Message: err.Error(),
		}
	case errors.As(err, &se) && se.StatusCode == http.StatusNotFound:
		return errorResponse{
			Error: "Playlist not found",
			Tips:  []string{"The stream URL may have expired. Copy a fresh link from the player and try again."},
		}
	case errors.As(err, &se) && se.StatusCode == http.StatusForbidden:
		return errorResponse{
			Error: "Access to the playlist was denied",
			Tips: []string{
				"The stream URL is probably signed and has expired. Copy a fresh link and try again.",
				"Some hosts only serve playlists to their own player.",
			},
		}
	default:
		return errorResponse{
			Error:   "Failed to process stream",
			Message: err.Error(),
		}
	}
}
