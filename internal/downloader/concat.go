package downloader

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ConcatListName is the concat-list file name inside a workspace.
const ConcatListName = "segments.txt"

var schemePrefix = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)

// BaseURL returns manifestURL up to and including its final '/'. The query
// and fragment are dropped first so a '/' inside them is not picked up.
// A manifest served at the host root with no path gets "scheme://host/".
func BaseURL(manifestURL string) string {
	base := manifestURL
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	if u, err := url.Parse(base); err == nil && u.Host != "" && u.Path == "" {
		return base + "/"
	}
	return base[:strings.LastIndex(base, "/")+1]
}

// ResolveSegments turns segment URIs into absolute http(s) URIs against base.
// Order is kept exactly and duplicates are not removed.
func ResolveSegments(base string, segments []Segment) ([]string, error) {
	var origin *url.URL
	out := make([]string, 0, len(segments))

	for i, seg := range segments {
		var abs string
		switch {
		case schemePrefix.MatchString(seg.URI):
			abs = seg.URI
		case strings.HasPrefix(seg.URI, "/"):
			// Host- and root-relative references cannot be appended to a
			// directory; resolve them against the manifest origin.
			if origin == nil {
				u, err := url.Parse(base)
				if err != nil {
					return nil, fmt.Errorf("segment %d: parse base url: %w", i, err)
				}
				origin = u
			}
			ref, err := url.Parse(seg.URI)
			if err != nil {
				return nil, fmt.Errorf("segment %d: %w: %s", i, ErrUnsupportedSegment, seg.URI)
			}
			abs = origin.ResolveReference(ref).String()
		default:
			abs = base + seg.URI
		}

		lower := strings.ToLower(abs)
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			return nil, fmt.Errorf("segment %d: %w: %s", i, ErrUnsupportedSegment, abs)
		}
		out = append(out, abs)
	}

	return out, nil
}

// BuildConcatList renders uris in ffmpeg concat demuxer syntax, one
// `file '<uri>'` line per uri. Single quotes inside a uri are escaped the
// way the demuxer's quoting rules require.
func BuildConcatList(uris []string) string {
	var b strings.Builder
	for _, u := range uris {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(u, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

// WriteConcatList writes the concat list for uris into ws and returns its path.
func WriteConcatList(ws *Workspace, uris []string) (string, error) {
	path := filepath.Join(ws.Dir, ConcatListName)
	if err := os.WriteFile(path, []byte(BuildConcatList(uris)), 0o600); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}
	return path, nil
}
