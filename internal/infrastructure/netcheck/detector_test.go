package netcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDetector(t *testing.T, handler http.HandlerFunc) (*Detector, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	d := NewDetector(Config{ProbeURL: srv.URL, ProbeTimeout: time.Second, PollInterval: 10 * time.Millisecond}, nil, zap.NewNop())
	return d, srv
}

func TestDetectorStartsOnline(t *testing.T) {
	d := NewDetector(Config{ProbeURL: "http://localhost:0"}, nil, zap.NewNop())
	assert.True(t, d.IsOnline())
}

func TestCheckConnection(t *testing.T) {
	t.Run("reachable endpoint keeps online", func(t *testing.T) {
		d, _ := newTestDetector(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		assert.True(t, d.CheckConnection(context.Background()))
		assert.True(t, d.IsOnline())
	})

	t.Run("server error means offline", func(t *testing.T) {
		d, _ := newTestDetector(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		assert.False(t, d.CheckConnection(context.Background()))
		assert.False(t, d.IsOnline())
	})

	t.Run("unreachable endpoint means offline, no error escapes", func(t *testing.T) {
		d := NewDetector(Config{ProbeURL: "http://127.0.0.1:1", ProbeTimeout: 200 * time.Millisecond}, nil, zap.NewNop())
		assert.False(t, d.CheckConnection(context.Background()))
	})

	t.Run("client errors still count as reachable", func(t *testing.T) {
		d, _ := newTestDetector(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		assert.True(t, d.CheckConnection(context.Background()))
	})
}

func TestOnChangeFiresOnTransitionsOnly(t *testing.T) {
	d := NewDetector(Config{ProbeURL: "http://localhost:0"}, nil, zap.NewNop())

	var flips []bool
	d.OnChange(func(online bool) { flips = append(flips, online) })

	d.Report(true) // already online, no event
	d.Report(false)
	d.Report(false) // no change, no event
	d.Report(true)

	assert.Equal(t, []bool{false, true}, flips)
}

func TestIsSlowConnection(t *testing.T) {
	t.Run("no provider", func(t *testing.T) {
		d := NewDetector(Config{}, nil, zap.NewNop())
		assert.False(t, d.IsSlowConnection())
	})

	t.Run("provider without data", func(t *testing.T) {
		d := NewDetector(Config{}, func() (NetworkInfo, bool) { return NetworkInfo{}, false }, zap.NewNop())
		assert.False(t, d.IsSlowConnection())
	})

	t.Run("slow effective type", func(t *testing.T) {
		d := NewDetector(Config{}, func() (NetworkInfo, bool) {
			return NetworkInfo{EffectiveType: "2g"}, true
		}, zap.NewNop())
		assert.True(t, d.IsSlowConnection())
	})

	t.Run("low bandwidth", func(t *testing.T) {
		d := NewDetector(Config{}, func() (NetworkInfo, bool) {
			return NetworkInfo{EffectiveType: "4g", DownlinkMbps: 0.3}, true
		}, zap.NewNop())
		assert.True(t, d.IsSlowConnection())
	})

	t.Run("fast connection", func(t *testing.T) {
		d := NewDetector(Config{}, func() (NetworkInfo, bool) {
			return NetworkInfo{EffectiveType: "4g", DownlinkMbps: 20}, true
		}, zap.NewNop())
		assert.False(t, d.IsSlowConnection())
	})
}

func TestPollLoopRecoversConnectivity(t *testing.T) {
	var healthy atomic.Bool
	d, _ := newTestDetector(t, func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	recovered := make(chan struct{})
	d.OnChange(func(online bool) {
		if online {
			close(recovered)
		}
	})

	d.Start(context.Background())
	defer d.Stop()

	d.Report(false)
	healthy.Store(true)

	select {
	case <-recovered:
	case <-time.After(2 * time.Second):
		t.Fatal("detector did not recover within the poll window")
	}
	require.True(t, d.IsOnline())
}
