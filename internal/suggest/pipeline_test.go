package suggest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/p42rthicle/shoku/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingQuerier struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, prefix string) ([]model.FoodItem, error)
}

func (q *recordingQuerier) SuggestionsFor(ctx context.Context, prefix string) ([]model.FoodItem, error) {
	q.mu.Lock()
	q.calls = append(q.calls, prefix)
	q.mu.Unlock()
	if q.fn != nil {
		return q.fn(ctx, prefix)
	}
	return []model.FoodItem{{Name: prefix + "-match"}}, nil
}

func (q *recordingQuerier) Calls() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.calls...)
}

func receive(t *testing.T, p *Pipeline) []model.FoodItem {
	t.Helper()
	select {
	case items, ok := <-p.Results():
		require.True(t, ok, "results channel closed")
		return items
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for suggestions")
		return nil
	}
}

func assertNoResult(t *testing.T, p *Pipeline) {
	t.Helper()
	select {
	case items := <-p.Results():
		t.Fatalf("unexpected suggestions %+v", items)
	default:
	}
}

func newTestPipeline(q Querier, opts ...Option) (*Pipeline, *fakeClock) {
	clock := &fakeClock{}
	p := New(q, append([]Option{WithClock(clock)}, opts...)...)
	return p, clock
}

func TestBurstWithinDebounceQueriesOnce(t *testing.T) {
	q := &recordingQuerier{}
	p, clock := newTestPipeline(q)
	defer p.Close()

	p.Input("a")
	clock.Advance(100 * time.Millisecond)
	p.Input("ap")
	clock.Advance(100 * time.Millisecond)
	p.Input("app")
	clock.Advance(299 * time.Millisecond)
	assert.Empty(t, q.Calls())

	clock.Advance(time.Millisecond)
	items := receive(t, p)
	require.Len(t, items, 1)
	assert.Equal(t, "app-match", items[0].Name)
	assert.Equal(t, []string{"app"}, q.Calls())
}

func TestQuietPeriodBetweenInputsQueriesTwice(t *testing.T) {
	q := &recordingQuerier{}
	p, clock := newTestPipeline(q)
	defer p.Close()

	p.Input("ap")
	clock.Advance(301 * time.Millisecond)
	assert.Equal(t, "ap-match", receive(t, p)[0].Name)

	p.Input("apple")
	clock.Advance(300 * time.Millisecond)
	assert.Equal(t, "apple-match", receive(t, p)[0].Name)

	assert.Equal(t, []string{"ap", "apple"}, q.Calls())
}

func TestShortInputSkipsQuery(t *testing.T) {
	q := &recordingQuerier{}
	p, clock := newTestPipeline(q)
	defer p.Close()

	p.Input("a")
	clock.Advance(DefaultDebounce)
	assert.Empty(t, receive(t, p))
	assert.Empty(t, q.Calls())

	// Multi-byte runes count as single characters.
	p.Input("é")
	clock.Advance(DefaultDebounce)
	assert.Empty(t, receive(t, p))
	assert.Empty(t, q.Calls())
}

func TestConsecutiveDuplicateInputIsSuppressed(t *testing.T) {
	q := &recordingQuerier{}
	p, clock := newTestPipeline(q)
	defer p.Close()

	p.Input("apple")
	clock.Advance(DefaultDebounce)
	receive(t, p)

	p.Input("apple")
	clock.Advance(DefaultDebounce)
	assertNoResult(t, p)
	assert.Equal(t, []string{"apple"}, q.Calls())
}

func TestSupersededQueryResultIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	staleCtxErr := make(chan error, 1)
	q := &recordingQuerier{fn: func(ctx context.Context, prefix string) ([]model.FoodItem, error) {
		if prefix == "ap" {
			<-release
			staleCtxErr <- ctx.Err()
			return []model.FoodItem{{Name: "stale"}}, nil
		}
		return []model.FoodItem{{Name: "Apple"}}, nil
	}}
	p, clock := newTestPipeline(q)

	p.Input("ap")
	clock.Advance(DefaultDebounce)
	require.Eventually(t, func() bool { return len(q.Calls()) == 1 }, time.Second, time.Millisecond)

	p.Input("apple")
	clock.Advance(DefaultDebounce)
	items := receive(t, p)
	require.Len(t, items, 1)
	assert.Equal(t, "Apple", items[0].Name)

	close(release)
	assert.ErrorIs(t, <-staleCtxErr, context.Canceled)

	p.Close()
	for items := range p.Results() {
		t.Fatalf("stale result observed: %+v", items)
	}
}

func TestShortInputCancelsInFlightQuery(t *testing.T) {
	release := make(chan struct{})
	q := &recordingQuerier{fn: func(ctx context.Context, prefix string) ([]model.FoodItem, error) {
		<-release
		return []model.FoodItem{{Name: "stale"}}, nil
	}}
	p, clock := newTestPipeline(q)

	p.Input("ap")
	clock.Advance(DefaultDebounce)
	require.Eventually(t, func() bool { return len(q.Calls()) == 1 }, time.Second, time.Millisecond)

	p.Input("a")
	clock.Advance(DefaultDebounce)
	assert.Empty(t, receive(t, p))

	close(release)
	p.Close()
	for items := range p.Results() {
		t.Fatalf("stale result observed: %+v", items)
	}
}

func TestQueryFailureDegradesToEmptyList(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := NewMetrics(registry)
	require.NoError(t, err)

	q := &recordingQuerier{fn: func(ctx context.Context, prefix string) ([]model.FoodItem, error) {
		return nil, errors.New("database is locked")
	}}
	p, clock := newTestPipeline(q, WithMetrics(metrics))
	defer p.Close()

	p.Input("apple")
	clock.Advance(DefaultDebounce)
	items := receive(t, p)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.events.WithLabelValues(eventDegraded)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.events.WithLabelValues(eventQueried)), 0)
}

func TestMetricsCountPipelineEvents(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := NewMetrics(registry)
	require.NoError(t, err)

	q := &recordingQuerier{}
	p, clock := newTestPipeline(q, WithMetrics(metrics))
	defer p.Close()

	p.Input("x")
	p.Input("x")
	clock.Advance(DefaultDebounce)
	receive(t, p)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.events.WithLabelValues(eventDeduplicated)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.events.WithLabelValues(eventShortCircuited)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.events.WithLabelValues(eventDelivered)), 0)

	_, err = NewMetrics(registry)
	assert.Error(t, err, "registering twice must fail")
}

func TestCloseStopsPendingDebounce(t *testing.T) {
	q := &recordingQuerier{}
	p, clock := newTestPipeline(q)

	p.Input("apple")
	p.Close()
	clock.Advance(DefaultDebounce)
	p.Input("banana")

	assert.Empty(t, q.Calls())
	_, ok := <-p.Results()
	assert.False(t, ok)
	p.Close()
}

func TestFlushSettlesPendingInput(t *testing.T) {
	q := &recordingQuerier{}
	p, _ := newTestPipeline(q)

	p.Input("ap")
	p.Input("apple")
	p.Flush()
	assert.Equal(t, []string{"apple"}, q.Calls())

	p.Close()
	items, ok := <-p.Results()
	require.True(t, ok, "flushed result must survive Close")
	assert.Equal(t, "apple-match", items[0].Name)

	p.Flush()
}

func TestRealClockDebounce(t *testing.T) {
	q := &recordingQuerier{}
	p := New(q, WithDebounce(20*time.Millisecond))
	defer p.Close()

	p.Input("ba")
	p.Input("ban")
	p.Input("bana")
	items := receive(t, p)
	require.Len(t, items, 1)
	assert.Equal(t, "bana-match", items[0].Name)
	assert.Equal(t, []string{"bana"}, q.Calls())
}
