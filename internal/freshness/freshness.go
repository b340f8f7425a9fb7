// Package freshness keeps cached views current. A Source is refreshed when
// one of its change events is published and, optionally, on a fixed
// interval. Refreshes are serialized and coalesced: a burst of events while a
// refresh is running yields one more refresh, not one per event.
package freshness

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// Subscriber is the push half of the record store.
type Subscriber interface {
	Subscribe(eventType events.EventType, handler events.EventHandler) events.Unsubscribe
}

// Ticker runs a job periodically and returns a cancel func.
type Ticker interface {
	Every(name string, interval time.Duration, job func(context.Context)) (func(), error)
}

// Source describes one cached view.
type Source struct {
	Name     string
	Events   []events.EventType
	Interval time.Duration
	Refresh  func(ctx context.Context) error
}

// Deps are the collaborators shared by every source.
type Deps struct {
	Subscriber Subscriber
	Ticker     Ticker
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// Handle controls a started source.
type Handle struct {
	name    string
	signal  chan struct{}
	unsubs  []events.Unsubscribe
	stopTkr func()
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// Start refreshes the source once and then keeps it fresh until ctx is done
// or Stop is called. Missing push or pull collaborators only disable that
// half; the other keeps working.
func Start(ctx context.Context, deps Deps, src Source) *Handle {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("source", src.Name))

	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		name:   src.Name,
		signal: make(chan struct{}, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	if deps.Subscriber != nil {
		for _, eventType := range src.Events {
			h.unsubs = append(h.unsubs, deps.Subscriber.Subscribe(eventType, func(context.Context, events.Event) error {
				h.Trigger()
				return nil
			}))
		}
	} else if len(src.Events) > 0 {
		logger.Warn("no change subscriber; relying on polling")
	}

	if src.Interval > 0 && deps.Ticker != nil {
		stop, err := deps.Ticker.Every("refresh:"+src.Name, src.Interval, func(context.Context) {
			h.Trigger()
		})
		if err != nil {
			logger.Warn("refresh timer not started", zap.Error(err))
		} else {
			h.stopTkr = stop
		}
	}

	h.Trigger()
	go h.loop(runCtx, src, deps.Metrics, logger)
	return h
}

// Trigger requests a refresh without blocking.
func (h *Handle) Trigger() {
	select {
	case h.signal <- struct{}{}:
	default:
	}
}

// Stop unsubscribes, stops the timer and waits for an in-flight refresh.
func (h *Handle) Stop() {
	h.once.Do(func() {
		for _, unsubscribe := range h.unsubs {
			unsubscribe()
		}
		if h.stopTkr != nil {
			h.stopTkr()
		}
		h.cancel()
		<-h.done
	})
}

func (h *Handle) loop(ctx context.Context, src Source, metrics *observability.Metrics, logger *zap.Logger) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.signal:
			err := src.Refresh(ctx)
			metrics.RecordRefresh(src.Name, err)
			if err != nil && ctx.Err() == nil {
				logger.Warn("refresh failed; keeping previous data", zap.Error(err))
			}
		}
	}
}
