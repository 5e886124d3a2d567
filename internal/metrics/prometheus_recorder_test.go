package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveAcquire("multi_crane", 2*time.Millisecond, 1)
	pr.ObserveAcquire("multi_crane", 0, 2)
	pr.ObserveRelease("multi_crane", 1)
	pr.ObserveTaskDuration(1500 * time.Millisecond)
	pr.ObservePhase(3*time.Second, PhaseSucceeded)
	pr.IncSinkError("file")

	assert.InDelta(t, 2, testutil.ToFloat64(pr.acquisitions.WithLabelValues("multi_crane")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.holders.WithLabelValues("multi_crane")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.phases.WithLabelValues(string(PhaseSucceeded))), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.sinkErrors.WithLabelValues("file")), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestNilRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveAcquire("elevator", time.Millisecond, 1)
	pr.ObserveRelease("elevator", 0)
	pr.ObserveTaskDuration(time.Second)
	pr.ObservePhase(time.Second, PhaseFailed)
	pr.IncSinkError("console")

	assert.Equal(t, NoopRecorder{}, OrNoop(nil))
	assert.Equal(t, Recorder(pr), OrNoop(pr))
}

func TestHTTPHandlerServesRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveAcquire("elevator", 0, 1)

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `towerbuild_resource_holders{resource="elevator"} 1`))
}

func TestHoldersGaugeSettlesAtZero(t *testing.T) {
	pr := NewPrometheusRecorder(nil)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				pr.ObserveAcquire("door_window_crew", 0, i)
				pr.ObserveRelease("door_window_crew", i)
			}
		}()
	}
	wg.Wait()

	assert.InDelta(t, 0, testutil.ToFloat64(pr.holders.WithLabelValues("door_window_crew")), 0)
}

func TestPhaseDurationBucketsCoverFloorTimes(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObservePhase(5*time.Second, PhaseSucceeded)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	var finite uint64
	for _, mf := range mfs {
		if mf.GetName() != "towerbuild_phase_duration_seconds" {
			continue
		}
		require.Len(t, mf.GetMetric(), 1)
		buckets := mf.GetMetric()[0].GetHistogram().GetBucket()
		require.NotEmpty(t, buckets)
		assert.GreaterOrEqual(t, buckets[len(buckets)-1].GetUpperBound(), 60.0)
		for _, b := range buckets {
			if b.GetUpperBound() >= 5 {
				finite = b.GetCumulativeCount()
				break
			}
		}
	}
	assert.Equal(t, uint64(1), finite)
}
