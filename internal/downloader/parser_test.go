package downloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mediaPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:10.0,
seg0.ts
#EXTINF:10.0,
seg1.ts
#EXTINF:4.5,
https://other.example.com/abs/seg2.ts
#EXT-X-ENDLIST
`

func TestParseManifest_media(t *testing.T) {
	m, err := ParseManifest(mediaPlaylist)
	require.NoError(t, err)
	assert.False(t, m.Master)

	uris := make([]string, 0, len(m.Segments))
	for _, s := range m.Segments {
		uris = append(uris, s.URI)
	}
	assert.Equal(t, []string{"seg0.ts", "seg1.ts", "https://other.example.com/abs/seg2.ts"}, uris)
	assert.InDelta(t, 4.5, m.Segments[2].Duration, 0.001)
}

func TestParseManifest_preservesOrderAndDuplicates(t *testing.T) {
	text := "#EXTM3U\n#EXT-X-TARGETDURATION:2\n" +
		"#EXTINF:2,\nb.ts\n#EXTINF:2,\na.ts\n#EXTINF:2,\nb.ts\n#EXT-X-ENDLIST\n"

	m, err := ParseManifest(text)
	require.NoError(t, err)
	require.Len(t, m.Segments, 3)
	assert.Equal(t, "b.ts", m.Segments[0].URI)
	assert.Equal(t, "a.ts", m.Segments[1].URI)
	assert.Equal(t, "b.ts", m.Segments[2].URI)
}

func TestParseManifest_empty(t *testing.T) {
	m, err := ParseManifest("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n#EXT-X-ENDLIST\n")
	require.NoError(t, err)
	assert.Empty(t, m.Segments)
	assert.False(t, m.Master)
}

func TestParseManifest_master(t *testing.T) {
	text := "#EXTM3U\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=1280000,RESOLUTION=1280x720\n720p/index.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=640000,RESOLUTION=640x360\n360p/index.m3u8\n"

	m, err := ParseManifest(text)
	require.NoError(t, err)
	assert.True(t, m.Master)
	assert.Empty(t, m.Segments)
}

func TestParseManifest_manySegments(t *testing.T) {
	text := "#EXTM3U\n#EXT-X-TARGETDURATION:2\n"
	for i := 0; i < 2000; i++ {
		text += "#EXTINF:2,\nseg.ts\n"
	}
	text += "#EXT-X-ENDLIST\n"

	m, err := ParseManifest(text)
	require.NoError(t, err)
	assert.Len(t, m.Segments, 2000)
}
