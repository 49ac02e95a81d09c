package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"visadesk/internal/metrics"
)

// Dispatcher hands events to sinks in the background
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	log     *zap.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher bounding each delivery by timeout
func NewDispatcher(log *zap.Logger, timeout time.Duration, sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, timeout: timeout, log: log.Named("notify")}
}

// Dispatch returns immediately; each sink is tried once in its own goroutine
func (d *Dispatcher) Dispatch(ev Event) {
	for _, s := range d.sinks {
		d.wg.Add(1)
		go func(s Sink) {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()

			err := s.Notify(ctx, ev)
			metrics.RecordNotification(s.Name(), err)
			if err != nil {
				d.log.Warn("notification failed",
					zap.String("sink", s.Name()),
					zap.String("event", string(ev.Type)),
					zap.String("kind", string(ev.Kind)),
					zap.Uint("id", ev.EntityID),
					zap.Error(err))
				return
			}
			d.log.Debug("notification delivered",
				zap.String("sink", s.Name()),
				zap.String("event", string(ev.Type)),
				zap.Uint("id", ev.EntityID))
		}(s)
	}
}

// Wait blocks until in-flight deliveries finish or ctx ends
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close waits for deliveries and closes sinks that hold connections
func (d *Dispatcher) Close(ctx context.Context) error {
	err := d.Wait(ctx)
	for _, s := range d.sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			err = errors.Join(err, c.Close())
		}
	}
	return err
}

// LogSink writes events to the structured log
type LogSink struct {
	log *zap.Logger
}

// NewLogSink creates a sink that only logs
func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("events")}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Notify(_ context.Context, ev Event) error {
	s.log.Info("lifecycle event",
		zap.String("event_id", ev.ID),
		zap.String("event", string(ev.Type)),
		zap.String("kind", string(ev.Kind)),
		zap.Uint("id", ev.EntityID),
		zap.String("from", ev.From),
		zap.String("to", ev.To))
	return nil
}
