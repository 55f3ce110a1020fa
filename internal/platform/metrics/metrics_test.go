package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestMiddleware_countsErrors(t *testing.T) {
	m := New()
	h := RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	for _, p := range []string{"/ok", "/bad", "/ok"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requestsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsTotal))
}

func TestMetrics_downloadCounters(t *testing.T) {
	m := New()
	m.IncDownloads(OutcomeSucceeded)
	m.IncDownloads(OutcomeFailed)
	m.IncDownloads(OutcomeFailed)
	m.IncManifestFetch("4xx")
	m.AddBytesStreamed(2048)
	m.AddSegmentsResolved(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.downloadsTotal.WithLabelValues(OutcomeSucceeded)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.downloadsTotal.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.manifestFetches.WithLabelValues("4xx")))
	assert.Equal(t, 2048.0, testutil.ToFloat64(m.bytesStreamed))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.segmentsResolved))
}

func TestHandler_updatesGaugesBeforeScrape(t *testing.T) {
	m := New()
	srv := httptest.NewServer(m.Handler(func() { m.SetActiveTranscodes(4) }))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), "hls_active_transcodes 4"), string(body))
}
