package downloader

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRegistry_lifecycle(t *testing.T) {
	r := NewInMemoryRegistry()
	r.Add("a", "https://cdn.example.com/a.m3u8")
	r.SetSegments("a", 3)
	r.SetState("a", JobStateRunning)
	r.AddBytes("a", 100)
	r.AddBytes("a", 28)

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, JobID("a"), snap[0].ID)
	assert.Equal(t, 3, snap[0].SegmentCount)
	assert.Equal(t, JobStateRunning, snap[0].State)
	assert.Equal(t, int64(128), snap[0].BytesOut)
	assert.Equal(t, 1, r.ActiveCount())

	r.Remove("a")
	assert.Equal(t, 0, r.ActiveCount())
	assert.Empty(t, r.Snapshot())
}

func TestInMemoryRegistry_redactsManifestURL(t *testing.T) {
	cases := map[string]string{
		"https://cdn.example.com/a/index.m3u8?token=secret&exp=1": "https://cdn.example.com/a/index.m3u8",
		"https://user:pw@cdn.example.com/index.m3u8#t=secret":     "https://cdn.example.com/index.m3u8",
		"https://cdn.example.com/plain.m3u8":                      "https://cdn.example.com/plain.m3u8",
		"%zz/bad.m3u8?token=secret":                               "%zz/bad.m3u8",
	}
	for in, want := range cases {
		r := NewInMemoryRegistry()
		r.Add("a", in)
		snap := r.Snapshot()
		require.Len(t, snap, 1)
		assert.Equal(t, want, snap[0].ManifestURL, in)
	}
}

func TestInMemoryRegistry_unknownIDsIgnored(t *testing.T) {
	r := NewInMemoryRegistry()
	r.SetState("missing", JobStateFailed)
	r.AddBytes("missing", 10)
	r.SetSegments("missing", 1)
	r.Remove("missing")
	assert.Equal(t, 0, r.ActiveCount())
}

func TestInMemoryRegistry_snapshotOrderAndCopy(t *testing.T) {
	r := NewInMemoryRegistry()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	r.Add("second", "u")
	r.Add("first", "u")

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, JobID("second"), snap[0].ID)

	snap[0].State = JobStateFailed
	assert.Equal(t, JobStatePreparing, r.Snapshot()[0].State)
}

func TestInMemoryRegistry_concurrent(t *testing.T) {
	r := NewInMemoryRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := JobID(fmt.Sprintf("job-%d", i))
			r.Add(id, "u")
			r.AddBytes(id, 1)
			_ = r.Snapshot()
			if i%2 == 0 {
				r.Remove(id)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 25, r.ActiveCount())
}
