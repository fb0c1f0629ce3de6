package netcheck

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// NetworkInfo is a snapshot of the transport the host currently uses.
// It mirrors what a connection-information API exposes; hosts without
// one simply have no provider.
type NetworkInfo struct {
	EffectiveType string  // "slow-2g", "2g", "3g", "4g"
	DownlinkMbps  float64 // estimated bandwidth
	RTTMillis     float64 // estimated round-trip time
}

// InfoProvider supplies the current NetworkInfo, or false when the host
// exposes no connection information.
type InfoProvider func() (NetworkInfo, bool)

// Listener is notified when the online state flips
type Listener func(online bool)

// Config holds detector settings
type Config struct {
	ProbeURL     string
	ProbeTimeout time.Duration // default 5s
	PollInterval time.Duration // default 30s
}

// Detector tracks reachability of the upstream service. It starts
// optimistic (online) and flips on probe results and explicit reports.
// While offline it polls the probe endpoint until connectivity returns.
type Detector struct {
	probeURL     string
	probeTimeout time.Duration
	pollInterval time.Duration
	client       *http.Client
	info         InfoProvider
	logger       *zap.Logger

	mu        sync.RWMutex
	online    bool
	listeners []Listener

	cancel context.CancelFunc
	wg     sync.WaitGroup
	wake   chan struct{}
}

// NewDetector creates a detector in the online state
func NewDetector(cfg Config, info InfoProvider, logger *zap.Logger) *Detector {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	return &Detector{
		probeURL:     cfg.ProbeURL,
		probeTimeout: cfg.ProbeTimeout,
		pollInterval: cfg.PollInterval,
		client:       &http.Client{Timeout: cfg.ProbeTimeout},
		info:         info,
		logger:       logger,
		online:       true,
		wake:         make(chan struct{}, 1),
	}
}

// IsOnline returns the current reachability state
func (d *Detector) IsOnline() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.online
}

// IsSlowConnection reports whether the current transport is known to be
// slow. Without an info provider it always returns false.
func (d *Detector) IsSlowConnection() bool {
	if d.info == nil {
		return false
	}
	info, ok := d.info()
	if !ok {
		return false
	}
	switch info.EffectiveType {
	case "slow-2g", "2g":
		return true
	}
	return info.DownlinkMbps > 0 && info.DownlinkMbps < 0.5
}

// OnChange registers a listener for online/offline transitions. Listeners
// run synchronously on the goroutine that detected the flip.
func (d *Detector) OnChange(listener Listener) {
	d.mu.Lock()
	d.listeners = append(d.listeners, listener)
	d.mu.Unlock()
}

// CheckConnection probes the upstream endpoint and updates the state.
// It returns the resulting online state and never returns an error: a
// failed probe simply means offline.
func (d *Detector) CheckConnection(ctx context.Context) bool {
	online := d.probe(ctx)
	d.setOnline(online)
	return online
}

// Report records an externally observed state, e.g. a failed API call
// or a platform connectivity event.
func (d *Detector) Report(online bool) {
	d.setOnline(online)
}

func (d *Detector) probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, d.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

func (d *Detector) setOnline(online bool) {
	d.mu.Lock()
	changed := d.online != online
	d.online = online
	listeners := make([]Listener, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.Unlock()

	if !changed {
		return
	}

	if d.logger != nil {
		if online {
			d.logger.Info("connectivity restored")
		} else {
			d.logger.Warn("connectivity lost")
		}
	}

	if !online {
		// nudge the poll loop so it starts probing immediately
		select {
		case d.wake <- struct{}{}:
		default:
		}
	}

	for _, listener := range listeners {
		listener(online)
	}
}

// Start launches the background poll loop. While the detector is
// offline it probes every poll interval until connectivity returns.
func (d *Detector) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go d.pollLoop(ctx)
}

// Stop terminates the poll loop and waits for it to exit
func (d *Detector) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

func (d *Detector) pollLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.wake:
		case <-ticker.C:
		}
		if d.IsOnline() {
			continue
		}
		d.CheckConnection(ctx)
	}
}
