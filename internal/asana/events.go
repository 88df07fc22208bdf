package asana

import (
	"context"
	"strings"
	"sync"
	"time"

	"bugshot-cli/internal/logging"
	"bugshot-cli/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const EventPrefix = "Bugshot-"

// EventSink is what EventLogger posts to; *Client satisfies it.
type EventSink interface {
	LogEvent(ctx context.Context, ev model.Event) error
}

// EventLogger posts usage events without blocking the caller. Failures are logged and
// dropped; bursts beyond the limiter are dropped too.
type EventLogger struct {
	sink    EventSink
	limiter *rate.Limiter
	timeout time.Duration
	log     zerolog.Logger

	wg sync.WaitGroup
}

// NewEventLogger allows perSecond events with the given burst.
func NewEventLogger(sink EventSink, perSecond float64, burst int) *EventLogger {
	if burst < 1 {
		burst = 1
	}
	return &EventLogger{
		sink:    sink,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		timeout: 10 * time.Second,
		log:     logging.For("events"),
	}
}

// Log fires name (prefixed with EventPrefix) and returns immediately.
func (l *EventLogger) Log(name string) {
	if l == nil || l.sink == nil {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if !strings.HasPrefix(name, EventPrefix) {
		name = EventPrefix + name
	}
	if !l.limiter.Allow() {
		l.log.Debug().Str("event", name).Msg("event dropped by rate limit")
		return
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()
		if err := l.sink.LogEvent(ctx, model.Event{Name: name}); err != nil {
			l.log.Warn().Err(err).Str("event", name).Msg("event not recorded")
		}
	}()
}

// Wait blocks until all in-flight events finished.
func (l *EventLogger) Wait() {
	if l == nil {
		return
	}
	l.wg.Wait()
}
