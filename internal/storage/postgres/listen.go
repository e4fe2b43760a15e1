package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"

	"hospital-service/internal/models"
	"hospital-service/pkg/sl"
)

const appointmentsChannel = "appointments_changed"

type subscriber struct {
	onChange func([]models.Appointment)
	onError  func(error)
}

// Feed fans appointment change notifications out to per-doctor subscribers.
// Every delivery is the doctor's full, freshly loaded list.
type Feed struct {
	log      *slog.Logger
	storage  *Storage
	listener *pq.Listener

	mu   sync.Mutex
	next uint64
	subs map[string]map[uint64]subscriber

	done chan struct{}
	wg   sync.WaitGroup
}

func NewFeed(log *slog.Logger, storagePath string, storage *Storage) (*Feed, error) {
	const op = "storage.postgres.NewFeed"

	f := &Feed{
		log:     log.With(slog.String("component", "appointments_feed")),
		storage: storage,
		subs:    make(map[string]map[uint64]subscriber),
		done:    make(chan struct{}),
	}

	f.listener = pq.NewListener(storagePath, 10*time.Second, time.Minute, f.onEvent)

	if err := f.listener.Listen(appointmentsChannel); err != nil {
		_ = f.listener.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	f.wg.Add(1)
	go f.run()

	return f, nil
}

func (f *Feed) onEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventDisconnected, pq.ListenerEventConnectionAttemptFailed:
		f.log.Warn("appointment listener lost connection", sl.Err(err))
		f.broadcastError(fmt.Errorf("appointments feed: %w", err))
	case pq.ListenerEventReconnected:
		f.log.Info("appointment listener reconnected")
	}
}

func (f *Feed) run() {
	defer f.wg.Done()

	for {
		select {
		case <-f.done:
			return
		case n, ok := <-f.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// Notifications may have been missed while reconnecting.
				for _, doctorID := range f.doctors() {
					f.deliver(doctorID)
				}
				continue
			}
			f.deliver(n.Extra)
		case <-time.After(90 * time.Second):
			go func() {
				if err := f.listener.Ping(); err != nil {
					f.log.Warn("appointment listener ping failed", sl.Err(err))
				}
			}()
		}
	}
}

// SubscribeAppointments registers callbacks for doctorID's appointment list.
// The returned function unsubscribes.
func (f *Feed) SubscribeAppointments(_ context.Context, doctorID string, onChange func([]models.Appointment), onError func(error)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	select {
	case <-f.done:
		return nil, fmt.Errorf("storage.postgres.Feed.SubscribeAppointments: feed closed")
	default:
	}

	f.next++
	id := f.next

	if f.subs[doctorID] == nil {
		f.subs[doctorID] = make(map[uint64]subscriber)
	}
	f.subs[doctorID][id] = subscriber{onChange: onChange, onError: onError}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()

			delete(f.subs[doctorID], id)
			if len(f.subs[doctorID]) == 0 {
				delete(f.subs, doctorID)
			}
		})
	}, nil
}

// ListAppointments is the one-shot read paired with the feed.
func (f *Feed) ListAppointments(ctx context.Context, doctorID string) ([]models.Appointment, error) {
	return f.storage.ListDoctorAppointments(ctx, doctorID)
}

func (f *Feed) deliver(doctorID string) {
	subs := f.subscribers(doctorID)
	if len(subs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	list, err := f.storage.ListDoctorAppointments(ctx, doctorID)

	for _, s := range subs {
		if err != nil {
			s.onError(err)
			continue
		}
		s.onChange(list)
	}
}

func (f *Feed) broadcastError(err error) {
	for _, doctorID := range f.doctors() {
		for _, s := range f.subscribers(doctorID) {
			s.onError(err)
		}
	}
}

func (f *Feed) subscribers(doctorID string) []subscriber {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]subscriber, 0, len(f.subs[doctorID]))
	for _, s := range f.subs[doctorID] {
		out = append(out, s)
	}
	return out
}

func (f *Feed) doctors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.subs))
	for id := range f.subs {
		out = append(out, id)
	}
	return out
}

func (f *Feed) Close() error {
	f.mu.Lock()
	select {
	case <-f.done:
		f.mu.Unlock()
		return nil
	default:
		close(f.done)
	}
	f.mu.Unlock()

	err := f.listener.Close()
	f.wg.Wait()

	return err
}
