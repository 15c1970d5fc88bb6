package observability

import (
	"log/slog"
	"sync"

	"termswap/core/events"
	"termswap/core/types"
)

const (
	defaultEventBacklog     = 256
	defaultSubscriberBuffer = 64
)

// EventSink is the exchange's event emitter for the daemon. It counts every
// event, logs it, keeps a bounded backlog for the API, fans out to live
// subscribers and forwards to next.
type EventSink struct {
	logger  *slog.Logger
	metrics *TermswapMetrics
	next    events.Emitter

	mu      sync.Mutex
	backlog []types.Event
	limit   int
	subs    map[uint64]chan types.Event
	nextSub uint64
}

// NewEventSink builds a sink. A nil logger falls back to slog.Default and a
// nil next discards forwarded events.
func NewEventSink(logger *slog.Logger, metrics *TermswapMetrics, next events.Emitter, backlog int) *EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	if next == nil {
		next = events.NoopEmitter{}
	}
	if backlog <= 0 {
		backlog = defaultEventBacklog
	}
	return &EventSink{logger: logger, metrics: metrics, next: next, limit: backlog}
}

type structuredEvent interface {
	Event() *types.Event
}

// Emit implements events.Emitter.
func (s *EventSink) Emit(evt events.Event) {
	if s == nil || evt == nil {
		return
	}
	s.metrics.RecordEvent(evt.EventType())
	if structured, ok := evt.(structuredEvent); ok {
		if rec := structured.Event(); rec != nil {
			attrs := make([]any, 0, 2*len(rec.Attributes)+2)
			attrs = append(attrs, slog.String("component", "events"))
			for k, v := range rec.Attributes {
				attrs = append(attrs, slog.String(k, v))
			}
			s.logger.Debug(rec.Type, attrs...)
			s.push(*rec)
		}
	}
	s.next.Emit(evt)
}

func (s *EventSink) push(rec types.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.backlog) == s.limit {
		copy(s.backlog, s.backlog[1:])
		s.backlog = s.backlog[:len(s.backlog)-1]
	}
	s.backlog = append(s.backlog, rec)
	for id, ch := range s.subs {
		select {
		case ch <- rec.Clone():
		default:
			// A subscriber that cannot keep up is dropped; its stream ends.
			close(ch)
			delete(s.subs, id)
			s.logger.Warn("event subscriber dropped", slog.String("component", "events"), slog.Uint64("subscriber", id))
		}
	}
}

// Subscribe registers a live subscriber. It returns the current backlog, newest
// last, together with a channel receiving every later event. The snapshot and
// the registration happen under one lock so no event is missed or repeated.
// The channel is closed by cancel or when the subscriber falls more than buffer
// events behind.
func (s *EventSink) Subscribe(buffer int) (<-chan types.Event, func(), []types.Event) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan types.Event, buffer)
	if s == nil {
		close(ch)
		return ch, func() {}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[uint64]chan types.Event)
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	backlog := make([]types.Event, 0, len(s.backlog))
	for _, rec := range s.backlog {
		backlog = append(backlog, rec.Clone())
	}
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if current, ok := s.subs[id]; ok && current == ch {
				close(ch)
				delete(s.subs, id)
			}
		})
	}
	return ch, cancel, backlog
}

// Recent returns up to n of the newest events, oldest first. n <= 0 returns the
// whole backlog.
func (s *EventSink) Recent(n int) []types.Event {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if n > 0 && n < len(s.backlog) {
		start = len(s.backlog) - n
	}
	out := make([]types.Event, 0, len(s.backlog)-start)
	for _, rec := range s.backlog[start:] {
		out = append(out, rec.Clone())
	}
	return out
}
