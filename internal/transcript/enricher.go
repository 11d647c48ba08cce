package transcript

import (
	"sync"

	"go.uber.org/zap"
)

// Task asks the enricher to summarize one transcript and patch the feed
// event that announced it.
type Task struct {
	EventID string
	Path    string
}

// ApplyFunc posts an enrichment result back onto the pipeline's single
// writer. err is non-nil when the transcript was unreadable; the pipeline
// attaches an error marker instead of failing the event.
type ApplyFunc func(eventID string, s Summary, err error)

// Enricher runs transcript summaries off the dispatch hot path,
// fire-and-forget. Results may land after the consumer has moved on; the
// apply callback must tolerate that.
type Enricher struct {
	tasks  chan Task
	apply  ApplyFunc
	logger *zap.Logger
	wg     sync.WaitGroup
	once   sync.Once
}

// NewEnricher starts a single worker. Logger may be nil.
func NewEnricher(apply ApplyFunc, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Enricher{
		tasks:  make(chan Task, 64),
		apply:  apply,
		logger: logger,
	}
	e.wg.Add(1)
	go e.run()
	return e
}

// Submit queues a task. A full queue drops the task: enrichment is
// best-effort and must never block dispatch.
func (e *Enricher) Submit(t Task) {
	select {
	case e.tasks <- t:
	default:
		e.logger.Warn("enrichment queue full, dropping task",
			zap.String("event_id", t.EventID), zap.String("path", t.Path))
	}
}

// Close stops the worker after draining queued tasks.
func (e *Enricher) Close() {
	e.once.Do(func() { close(e.tasks) })
	e.wg.Wait()
}

func (e *Enricher) run() {
	defer e.wg.Done()
	for t := range e.tasks {
		s, err := Summarize(t.Path)
		e.apply(t.EventID, s, err)
	}
}
