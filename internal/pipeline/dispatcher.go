package pipeline

import (
	"context"
	"sync"

	"github.com/whisperleaf/whisperleaf/internal/observability/metrics"
	"github.com/whisperleaf/whisperleaf/pkg/logging"
)

// task couples a request with its reply channel.
type task struct {
	ctx  context.Context
	req  *Request
	done chan taskResult
}

type taskResult struct {
	resp *Response
	err  error
}

// Dispatcher runs a shared worker pool with a dedicated crisis lane.
// Requests whose text trips the quick crisis scan are queued on the crisis
// lane, which every worker drains before touching routine work, so crisis
// requests are never stuck behind a backlog.
type Dispatcher struct {
	logger  *logging.Logger
	coord   *Coordinator
	metrics *metrics.PipelineMetrics

	crisisCh  chan *task
	routineCh chan *task

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the coordinator with the given
// worker count and per-lane queue depth.
func NewDispatcher(logger *logging.Logger, coord *Coordinator, m *metrics.PipelineMetrics, workers, queueDepth int) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if workers <= 0 {
		workers = 4
	}
	if queueDepth <= 0 {
		queueDepth = 64
	}
	d := &Dispatcher{
		logger:    logger,
		coord:     coord,
		metrics:   m,
		crisisCh:  make(chan *task, queueDepth),
		routineCh: make(chan *task, queueDepth),
		stopCh:    make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	logger.Info("pipeline dispatcher started", "workers", workers, "queue_depth", queueDepth)
	return d
}

// Submit enqueues a request and waits for its result. Crisis-flagged
// requests are dispatched ahead of routine ones.
func (d *Dispatcher) Submit(ctx context.Context, req *Request) (*Response, error) {
	t := &task{ctx: ctx, req: req, done: make(chan taskResult, 1)}

	lane := d.routineCh
	if d.coord.assessor.QuickScan(req.Text) {
		lane = d.crisisCh
	}

	select {
	case lane <- t:
		d.observeDepth()
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.stopCh:
		return nil, context.Canceled
	}

	select {
	case result := <-t.done:
		return result.resp, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop drains the workers. In-flight requests finish; queued requests are
// abandoned with their submitters unblocked by their own contexts.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
	})
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		// Crisis lane first, unconditionally.
		select {
		case t := <-d.crisisCh:
			d.run(t)
			continue
		default:
		}

		select {
		case t := <-d.crisisCh:
			d.run(t)
		case t := <-d.routineCh:
			d.run(t)
		case <-d.stopCh:
			return
		}
	}
}

func (d *Dispatcher) run(t *task) {
	defer d.observeDepth()
	if err := t.ctx.Err(); err != nil {
		t.done <- taskResult{err: err}
		return
	}
	resp, err := d.coord.Process(t.ctx, t.req)
	t.done <- taskResult{resp: resp, err: err}
}

func (d *Dispatcher) observeDepth() {
	d.metrics.SetCrisisLaneWaiting(len(d.crisisCh))
	d.metrics.SetRoutineLaneWaiting(len(d.routineCh))
}
