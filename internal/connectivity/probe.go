package connectivity

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"hospital-service/pkg/sl"
)

// Probe pings the backend on an interval and turns reachability changes
// into HandleOnline and HandleOffline calls.
type Probe struct {
	log      *slog.Logger
	svc      *Service
	interval time.Duration
	timeout  time.Duration

	started uint32
	stopCh  chan chan struct{}
}

func NewProbe(log *slog.Logger, svc *Service, interval time.Duration) *Probe {
	timeout := interval / 2
	if timeout <= 0 || timeout > 5*time.Second {
		timeout = 5 * time.Second
	}

	return &Probe{
		log:      log,
		svc:      svc,
		interval: interval,
		timeout:  timeout,
		stopCh:   make(chan chan struct{}, 1),
	}
}

func (p *Probe) Started() bool {
	return atomic.LoadUint32(&p.started) != 0
}

// Start runs the probe loop if it is not already running.
func (p *Probe) Start() {
	if atomic.SwapUint32(&p.started, 1) == 1 {
		return
	}

	go func() {
		defer atomic.StoreUint32(&p.started, 0)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case ch := <-p.stopCh:
				ch <- struct{}{}
				return
			case <-ticker.C:
				p.Check(context.Background())
			}
		}
	}()
}

// Stop signals the loop and waits up to wait for it to exit.
func (p *Probe) Stop(wait time.Duration) {
	if !p.Started() {
		return
	}

	ch := make(chan struct{}, 1)
	p.stopCh <- ch

	select {
	case <-ch:
	case <-time.After(wait):
	}
}

// Check runs one ping and reports a transition if the reachability changed.
// A healthy ping with no transition runs the OnHealthy listeners.
func (p *Probe) Check(ctx context.Context) {
	const op = "connectivity.Probe.Check"

	pingCtx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.svc.net.Ping(pingCtx)
	cancel()

	switch {
	case err != nil && p.svc.IsConnected():
		p.log.Warn("backend unreachable", slog.String("op", op), sl.Err(err))
		_ = p.svc.HandleOffline(ctx)
	case err == nil && !p.svc.IsConnected():
		_ = p.svc.HandleOnline(ctx)
	case err == nil:
		p.svc.handleHealthy(ctx)
	}
}
