package downloader

import (
	"fmt"
	"strings"

	"github.com/grafov/m3u8"
)

// ParseManifest decodes playlist text. Media playlists yield their segments
// in playlist order; master playlists yield none and set Master.
func ParseManifest(text string) (*Manifest, error) {
	pl, listType, err := m3u8.DecodeFrom(strings.NewReader(text), false)
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	switch listType {
	case m3u8.MASTER:
		return &Manifest{Master: true}, nil
	case m3u8.MEDIA:
		media, ok := pl.(*m3u8.MediaPlaylist)
		if !ok {
			return nil, fmt.Errorf("parse manifest: unexpected playlist type %T", pl)
		}
		segments := make([]Segment, 0, media.Count())
		for _, seg := range media.Segments {
			// The decoder's segment buffer has spare nil slots.
			if seg == nil {
				continue
			}
			segments = append(segments, Segment{URI: strings.TrimSpace(seg.URI), Duration: seg.Duration})
		}
		return &Manifest{Segments: segments}, nil
	default:
		return nil, fmt.Errorf("parse manifest: unknown playlist type")
	}
}
