package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"parking/internal/metrics"
	"parking/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func (s *recordingSink) PublishEvent(_ context.Context, e models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestBroker_FanOutWithZoneFilter(t *testing.T) {
	b := NewBroker(nil)
	defer b.Close()

	all := b.Subscribe(0, 8)
	zone1 := b.Subscribe(1, 8)
	zone2 := b.Subscribe(2, 8)

	b.Publish(
		models.Event{Type: models.EventHoldCreated, ZoneID: 1},
		models.Event{Type: models.EventZoneUpdated, ZoneID: 1},
	)

	assert.Len(t, all.C, 2)
	assert.Len(t, zone1.C, 2)
	assert.Len(t, zone2.C, 0)

	first := <-zone1.C
	assert.Equal(t, models.EventHoldCreated, first.Type)
}

func TestBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	b := NewBroker(m)
	defer b.Close()

	slow := b.Subscribe(0, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(models.Event{Type: models.EventZoneUpdated, ZoneID: 1})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	assert.Len(t, slow.C, 1)
	assert.Equal(t, 9.0, testutil.ToFloat64(m.EventsDropped.WithLabelValues("subscriber")))
}

func TestBroker_SinkReceivesEventsAndErrorsAreIsolated(t *testing.T) {
	ok := &recordingSink{}
	failing := &recordingSink{err: errors.New("broker unavailable")}

	b := NewBroker(nil)
	b.AddSink("ok", ok, 16)
	b.AddSink("failing", failing, 16)
	sub := b.Subscribe(0, 16)

	b.Publish(
		models.Event{Type: models.EventHoldCreated, ZoneID: 1},
		models.Event{Type: models.EventHoldConfirmed, ZoneID: 1},
	)
	b.Close()

	assert.Equal(t, 2, ok.count())
	assert.Equal(t, 2, failing.count())

	var received []models.Event
	for e := range sub.C {
		received = append(received, e)
	}
	require.Len(t, received, 2)
	assert.Equal(t, models.EventHoldConfirmed, received[1].Type)
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	b := NewBroker(nil)
	sub := b.Subscribe(0, 1)

	sub.Close()
	sub.Close()
	b.Close()

	_, open := <-sub.C
	assert.False(t, open)

	b.Publish(models.Event{Type: models.EventZoneUpdated})
	late := b.Subscribe(0, 1)
	_, open = <-late.C
	assert.False(t, open)
	late.Close()
}
