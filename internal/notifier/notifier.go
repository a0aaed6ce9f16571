// Package notifier fans out reservation and zone events to in-process
// subscribers and to external sinks. Publishing never blocks the caller:
// when a queue is full the event is dropped and counted.
package notifier

import (
	"context"
	"sync"
	"time"

	"parking/internal/logger"
	"parking/internal/metrics"
	"parking/internal/models"
)

const (
	DefaultSubscriberBuffer = 64
	DefaultSinkQueue        = 1024
	sinkPublishTimeout      = 5 * time.Second
)

// Sink delivers events outside the process, for example to NATS or Valkey.
type Sink interface {
	PublishEvent(ctx context.Context, event models.Event) error
}

// Publisher is what the reservation core depends on.
type Publisher interface {
	Publish(events ...models.Event)
}

type Broker struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	sinks   []*sinkWorker
	closed  bool
	wg      sync.WaitGroup
	metrics *metrics.Metrics
}

func NewBroker(m *metrics.Metrics) *Broker {
	return &Broker{
		subs:    make(map[uint64]*Subscription),
		metrics: m,
	}
}

// Subscription receives events on C until Close is called or the broker
// shuts down. A zero zoneID receives events for every zone.
type Subscription struct {
	C <-chan models.Event

	ch     chan models.Event
	id     uint64
	zoneID int64
	broker *Broker
	once   sync.Once
}

func (s *Subscription) Close() {
	s.broker.unsubscribe(s)
}

func (b *Broker) Subscribe(zoneID int64, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	ch := make(chan models.Event, buffer)
	sub := &Subscription{C: ch, ch: ch, zoneID: zoneID, broker: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		sub.once.Do(func() {})
		return sub
	}
	b.nextID++
	sub.id = b.nextID
	b.subs[sub.id] = sub
	return sub
}

func (b *Broker) unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s.once.Do(func() {
		delete(b.subs, s.id)
		close(s.ch)
	})
}

// AddSink starts a worker that forwards every published event to sink.
func (b *Broker) AddSink(name string, sink Sink, queueSize int) {
	if queueSize <= 0 {
		queueSize = DefaultSinkQueue
	}
	w := &sinkWorker{name: name, sink: sink, queue: make(chan models.Event, queueSize)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.sinks = append(b.sinks, w)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		w.run()
	}()
}

// Publish delivers events in order to every matching subscriber and sink.
func (b *Broker) Publish(events ...models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, e := range events {
		for _, sub := range b.subs {
			if sub.zoneID != 0 && sub.zoneID != e.ZoneID {
				continue
			}
			select {
			case sub.ch <- e:
			default:
				b.metrics.EventDropped("subscriber")
				logger.Get().Debug("Subscriber queue full, dropping event",
					"event_type", e.Type, "zone_id", e.ZoneID)
			}
		}
		for _, w := range b.sinks {
			select {
			case w.queue <- e:
			default:
				b.metrics.EventDropped(w.name)
				logger.Get().Warn("Sink queue full, dropping event",
					"sink", w.name, "event_type", e.Type)
			}
		}
	}
}

// Close stops accepting events, closes every subscription and waits for
// sink workers to drain their queues.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		sub.once.Do(func() { close(sub.ch) })
	}
	b.subs = map[uint64]*Subscription{}
	for _, w := range b.sinks {
		close(w.queue)
	}
	b.mu.Unlock()

	b.wg.Wait()
}

type sinkWorker struct {
	name  string
	sink  Sink
	queue chan models.Event
}

func (w *sinkWorker) run() {
	for e := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sinkPublishTimeout)
		if err := w.sink.PublishEvent(ctx, e); err != nil {
			logger.Get().Error("Failed to publish event to sink",
				"sink", w.name, "event_type", e.Type, "error", err)
		}
		cancel()
	}
}
