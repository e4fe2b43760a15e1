// Package connectivity tracks whether the backing store is reachable and
// drives reconnects.
package connectivity

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"hospital-service/pkg/response"
	"hospital-service/pkg/sl"
)

const DefaultMaxAttempts = 3

// Network is the store-side switch the service flips.
type Network interface {
	EnableNetwork(ctx context.Context) error
	DisableNetwork(ctx context.Context) error
	Ping(ctx context.Context) error
}

type Service struct {
	log         *slog.Logger
	net         Network
	maxAttempts int
	delay       func(attempt int) time.Duration
	sleep       func(ctx context.Context, d time.Duration) error

	connected atomic.Bool

	mu          sync.Mutex
	onReconnect []func(ctx context.Context)
	onHealthy   []func(ctx context.Context)
}

type Option func(*Service)

// WithMaxAttempts sets how many retries follow a failed first connect.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxAttempts = n
		}
	}
}

func WithDelay(fn func(attempt int) time.Duration) Option {
	return func(s *Service) { s.delay = fn }
}

func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) { s.sleep = fn }
}

// New returns a service that reports connected until told otherwise.
func New(log *slog.Logger, net Network, opts ...Option) *Service {
	s := &Service{
		log:         log,
		net:         net,
		maxAttempts: DefaultMaxAttempts,
		delay:       Backoff,
		sleep:       sleepCtx,
	}
	s.connected.Store(true)

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Backoff is 2^attempt seconds: 2s, 4s, 8s.
func Backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Service) IsConnected() bool {
	return s.connected.Load()
}

// OnReconnect registers fn to run after every successful HandleOnline.
func (s *Service) OnReconnect(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReconnect = append(s.onReconnect, fn)
}

// OnHealthy registers fn to run after every probe that finds the backend
// reachable while already connected.
func (s *Service) OnHealthy(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onHealthy = append(s.onHealthy, fn)
}

func (s *Service) handleHealthy(ctx context.Context) {
	s.mu.Lock()
	listeners := append([]func(context.Context){}, s.onHealthy...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx)
	}
}

// Start enables the network, retrying with backoff. Once the attempts run out
// it stays offline until the next HandleOnline.
func (s *Service) Start(ctx context.Context) error {
	const op = "connectivity.Start"

	log := s.log.With(slog.String("op", op))

	err := s.net.EnableNetwork(ctx)
	if err == nil {
		s.connected.Store(true)
		log.Info("backend connected")
		return nil
	}

	s.connected.Store(false)
	log.Warn("backend connection issue", sl.Err(err))

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := s.sleep(ctx, s.delay(attempt)); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		err = s.net.EnableNetwork(ctx)
		if err == nil {
			s.connected.Store(true)
			log.Info("backend reconnected", slog.Int("attempt", attempt))
			return nil
		}

		log.Error("failed to reconnect", slog.Int("attempt", attempt), sl.Err(err))
	}

	log.Warn("max connection attempts reached, operating in offline mode")

	return fmt.Errorf("%s: %w: %w", op, response.ErrOffline, err)
}

// HandleOnline re-enables the network. On success the reconnect listeners run
// in registration order.
func (s *Service) HandleOnline(ctx context.Context) error {
	const op = "connectivity.HandleOnline"

	log := s.log.With(slog.String("op", op))

	if err := s.net.EnableNetwork(ctx); err != nil {
		s.connected.Store(false)
		log.Error("failed to reconnect after network restore", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.connected.Store(true)
	log.Info("network restored, backend reconnected")

	s.mu.Lock()
	listeners := append([]func(context.Context){}, s.onReconnect...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx)
	}

	return nil
}

// HandleOffline switches to offline mode. The flag drops even when the store
// refuses to disable.
func (s *Service) HandleOffline(ctx context.Context) error {
	const op = "connectivity.HandleOffline"

	s.connected.Store(false)

	if err := s.net.DisableNetwork(ctx); err != nil {
		s.log.Error("failed to enable offline mode", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("network lost, offline mode enabled", slog.String("op", op))

	return nil
}
