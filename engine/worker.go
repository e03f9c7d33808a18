package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"

	"github.com/frc5881/tba-slackbot/telemetry"
)

// DuplicateWindow is how long a payload digest suppresses byte-identical
// redeliveries. It only absorbs retry bursts; a repeat after the window is a
// new message.
const DuplicateWindow = 10 * time.Second

var ErrQueueFull = zerr.New("inbound queue full")

// Processor handles one decoded message.
type Processor interface {
	Process(ctx context.Context, msg Message) error
}

type job struct {
	raw  []byte
	corr string
}

// Worker feeds inbound payloads to a Processor one at a time, in arrival
// order. Byte-identical payloads accepted within DuplicateWindow are dropped.
type Worker struct {
	proc   Processor
	queue  chan job
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	seen map[uint64]time.Time
}

// NewWorker returns a Worker with a queue of size entries.
func NewWorker(proc Processor, size int, logger *slog.Logger) *Worker {
	if size <= 0 {
		size = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		proc:   proc,
		queue:  make(chan job, size),
		logger: logger.With(slog.String("component", "worker")),
		now:    time.Now,
		seen:   make(map[uint64]time.Time),
	}
}

// Submit queues raw for processing without blocking. Duplicates are accepted
// and dropped; a full queue returns ErrQueueFull.
func (w *Worker) Submit(ctx context.Context, raw []byte) error {
	if w.duplicate(xxhash.Sum64(raw)) {
		telemetry.IncDuplicate()
		w.logger.Debug("duplicate delivery dropped")
		return nil
	}
	j := job{raw: append([]byte(nil), raw...), corr: telemetry.GetCorrelation(ctx)}
	select {
	case w.queue <- j:
		telemetry.SetQueueDepth(len(w.queue))
		return nil
	default:
		w.forget(xxhash.Sum64(raw))
		return ErrQueueFull
	}
}

// Len returns the number of queued payloads.
func (w *Worker) Len() int { return len(w.queue) }

// Run processes queued payloads until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started", slog.Int("capacity", cap(w.queue)))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped", slog.Int("pending", len(w.queue)))
			return
		case j := <-w.queue:
			telemetry.SetQueueDepth(len(w.queue))
			w.handle(ctx, j)
		}
	}
}

func (w *Worker) handle(ctx context.Context, j job) {
	logger := w.logger
	if j.corr != "" {
		ctx = telemetry.WithCorrelation(ctx, j.corr)
		logger = logger.With(slog.String("corr", j.corr))
	}
	msg, err := Decode(j.raw)
	if err != nil {
		logger.Warn("inbound message rejected", slog.Any("err", err))
		return
	}
	if err := w.proc.Process(ctx, msg); err != nil {
		logger.Error("message processing failed", slog.String("kind", string(msg.Kind())), slog.Any("err", err))
	}
}

// duplicate records sum and reports whether it was accepted within
// DuplicateWindow. Expired digests are pruned on the way.
func (w *Worker) duplicate(sum uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	for k, at := range w.seen {
		if now.Sub(at) >= DuplicateWindow {
			delete(w.seen, k)
		}
	}
	if _, ok := w.seen[sum]; ok {
		return true
	}
	w.seen[sum] = now
	return false
}

// forget drops sum so a rejected payload can be redelivered.
func (w *Worker) forget(sum uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.seen, sum)
}
