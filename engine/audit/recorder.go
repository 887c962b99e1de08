package audit

import (
	"context"
	"sync"
	"time"

	"github.com/kishore28kumar/pulss/engine/core"
	"github.com/kishore28kumar/pulss/pkg/logger"
)

// RecorderConfig holds the async recorder configuration.
type RecorderConfig struct {
	QueueSize    int
	Workers      int
	WriteTimeout time.Duration
	DrainTimeout time.Duration
	// DepthGauge receives the queue backlog after every enqueue and dequeue,
	// typically wired to a metrics gauge. Nil disables reporting.
	DepthGauge func(depth int)
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() *RecorderConfig {
	return &RecorderConfig{
		QueueSize:    1024,
		Workers:      2,
		WriteTimeout: 2 * time.Second,
		DrainTimeout: 5 * time.Second,
	}
}

// Recorder persists audit events asynchronously. Record never blocks the
// response path: events go through a buffered queue drained by background
// workers, and every failure is swallowed into the operational log.
type Recorder struct {
	store   Store
	queue   chan *Event
	config  *RecorderConfig
	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// NewRecorder creates a recorder and starts its workers.
func NewRecorder(store Store, config *RecorderConfig) *Recorder {
	if config == nil {
		config = DefaultRecorderConfig()
	}
	defaults := DefaultRecorderConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = defaults.DrainTimeout
	}
	r := &Recorder{
		store:  store,
		queue:  make(chan *Event, config.QueueSize),
		config: config,
	}
	for i := 0; i < config.Workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Record enqueues an event for persistence. The event is sanitized here so no
// unredacted snapshot ever sits in the queue. A full queue drops the event
// with an operational warning rather than blocking.
func (r *Recorder) Record(ctx context.Context, event *Event) {
	if event == nil {
		return
	}
	event.OldValues = SanitizeMap(event.OldValues)
	event.NewValues = SanitizeMap(event.NewValues)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.ID.IsZero() {
		id, err := core.NewID()
		if err != nil {
			logger.FromContext(ctx).Warn("dropping audit event: id generation failed",
				"error", err)
			return
		}
		event.ID = id
	}
	r.closeMu.Lock()
	defer r.closeMu.Unlock()
	if r.closed {
		logger.FromContext(ctx).Warn("dropping audit event: recorder closed",
			"action", event.Action)
		return
	}
	select {
	case r.queue <- event:
		r.reportDepth()
	default:
		logger.FromContext(ctx).Warn("dropping audit event: queue full",
			"action", event.Action, "path", event.Path)
	}
}

func (r *Recorder) reportDepth() {
	if r.config.DepthGauge != nil {
		r.config.DepthGauge(len(r.queue))
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	log := logger.GetDefault().With("component", "audit_recorder")
	for event := range r.queue {
		r.reportDepth()
		ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
		if err := r.store.Insert(ctx, event); err != nil {
			// Swallowed: an audit write failure must never affect the
			// response already sent or in flight.
			log.Error("audit write failed",
				"event_id", event.ID,
				"action", event.Action,
				"error", core.RedactError(err),
			)
		}
		cancel()
	}
}

// Close stops accepting events and drains the queue, bounded by DrainTimeout.
func (r *Recorder) Close() {
	r.closeMu.Lock()
	if r.closed {
		r.closeMu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(r.config.DrainTimeout):
		logger.GetDefault().Warn("audit recorder drain timed out")
	}
}
