package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisperleaf/whisperleaf/internal/mood"
	"github.com/whisperleaf/whisperleaf/internal/observability/metrics"
)

// gateModel records the order texts reach the model and holds each call
// until released.
type gateModel struct {
	mu    sync.Mutex
	order []string
	gate  chan struct{}
}

func newGateModel() *gateModel {
	return &gateModel{gate: make(chan struct{}, 16)}
}

func (m *gateModel) Score(ctx context.Context, text string) (*mood.RawScores, error) {
	m.mu.Lock()
	m.order = append(m.order, text)
	m.mu.Unlock()

	select {
	case <-m.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return mood.NewLexiconModel().Score(ctx, text)
}

func (m *gateModel) seen() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

func TestDispatcherCrisisLaneJumpsQueue(t *testing.T) {
	model := newGateModel()
	coord := newTestCoordinator(t, model, 10*time.Second)
	d := NewDispatcher(nil, coord, metrics.NewPipelineMetrics(prometheus.NewRegistry()), 1, 16)
	defer d.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	submit := func(text string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Submit(ctx, &Request{Text: text, ActionType: "journal_entry", CallerID: "u"})
			assert.NoError(t, err)
		}()
	}

	submit("first routine entry")
	require.Eventually(t, func() bool {
		return len(model.seen()) == 1
	}, 5*time.Second, 10*time.Millisecond, "worker should pick up the first task")

	submit("second routine entry")
	submit("third routine entry")
	require.Eventually(t, func() bool {
		return len(d.routineCh) == 2
	}, 5*time.Second, 10*time.Millisecond)

	submit("I want to die") // quick scan routes this to the crisis lane
	require.Eventually(t, func() bool {
		return len(d.crisisCh) == 1
	}, 5*time.Second, 10*time.Millisecond)

	for i := 0; i < 4; i++ {
		model.gate <- struct{}{}
	}
	wg.Wait()

	order := model.seen()
	require.Len(t, order, 4)
	assert.Equal(t, "first routine entry", order[0])
	assert.Equal(t, "I want to die", order[1], "crisis request must jump the routine backlog")
}

func TestDispatcherSubmitHonorsContext(t *testing.T) {
	model := newGateModel()
	coord := newTestCoordinator(t, model, 10*time.Second)
	d := NewDispatcher(nil, coord, metrics.NewPipelineMetrics(prometheus.NewRegistry()), 1, 1)
	defer d.Stop()

	// Occupy the only worker.
	bg, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()
	go func() {
		_, _ = d.Submit(bg, &Request{Text: "occupying entry", ActionType: "journal_entry", CallerID: "u"})
	}()
	require.Eventually(t, func() bool {
		return len(model.seen()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Submit(ctx, &Request{Text: "waiting entry", ActionType: "journal_entry", CallerID: "u"})
	assert.ErrorIs(t, err, context.Canceled)

	model.gate <- struct{}{}
	cancelBg()
}

func TestDispatcherStopIsIdempotent(t *testing.T) {
	coord := newTestCoordinator(t, mood.NewLexiconModel(), time.Second)
	d := NewDispatcher(nil, coord, metrics.NewPipelineMetrics(prometheus.NewRegistry()), 2, 4)

	resp, err := d.Submit(context.Background(), &Request{Text: "I feel happy today", ActionType: "journal_entry", CallerID: "u"})
	require.NoError(t, err)
	assert.NotNil(t, resp)

	d.Stop()
	d.Stop()
}
