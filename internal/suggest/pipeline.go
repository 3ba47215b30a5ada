// Package suggest turns a stream of typed food names into ranked catalog suggestions.
//
// Inputs pass through four stages: consecutive duplicates are dropped, a quiet
// period is awaited, short inputs resolve to an empty list without querying, and
// only the newest query may deliver its result. Query failures deliver an empty list.
package suggest

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/p42rthicle/shoku/internal/model"
)

const (
	DefaultDebounce  = 300 * time.Millisecond
	DefaultMinLength = 2
)

// Querier fetches ranked catalog entries for a prefix.
type Querier interface {
	SuggestionsFor(ctx context.Context, prefix string) ([]model.FoodItem, error)
}

type QuerierFunc func(ctx context.Context, prefix string) ([]model.FoodItem, error)

func (f QuerierFunc) SuggestionsFor(ctx context.Context, prefix string) ([]model.FoodItem, error) {
	return f(ctx, prefix)
}

type Option func(*Pipeline)

func WithDebounce(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.debounce = d
		}
	}
}

func WithMinLength(n int) Option {
	return func(p *Pipeline) {
		if n >= 0 {
			p.minLength = n
		}
	}
}

func WithClock(c Clock) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.clock = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// Pipeline serves one consumer. It is safe to call Input from any goroutine.
type Pipeline struct {
	querier   Querier
	clock     Clock
	debounce  time.Duration
	minLength int
	logger    *slog.Logger
	metrics   *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	out    chan []model.FoodItem

	mu          sync.Mutex
	closed      bool
	last        string
	hasLast     bool
	timer       Timer
	pendingGen  uint64
	queryGen    uint64
	cancelQuery context.CancelFunc
}

func New(q Querier, opts ...Option) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		querier:   q,
		clock:     realClock{},
		debounce:  DefaultDebounce,
		minLength: DefaultMinLength,
		logger:    slog.Default(),
		ctx:       ctx,
		cancel:    cancel,
		out:       make(chan []model.FoodItem, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "suggest")
	return p
}

// Results delivers suggestion lists. An unread list is replaced by a newer one.
// The channel is closed by Close.
func (p *Pipeline) Results() <-chan []model.FoodItem {
	return p.out
}

// Input feeds the current text of the name field.
func (p *Pipeline) Input(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.hasLast && text == p.last {
		p.metrics.record(eventDeduplicated)
		return
	}
	p.last, p.hasLast = text, true

	if p.timer != nil {
		p.timer.Stop()
	}
	p.pendingGen++
	gen := p.pendingGen
	p.timer = p.clock.AfterFunc(p.debounce, func() { p.settle(gen, text) })
}

// settle runs once the input has been quiet for the debounce period.
func (p *Pipeline) settle(gen uint64, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || gen != p.pendingGen {
		return
	}
	p.settleLocked(text)
}

func (p *Pipeline) settleLocked(text string) {
	p.timer = nil

	if p.cancelQuery != nil {
		p.cancelQuery()
		p.cancelQuery = nil
	}
	p.queryGen++

	if utf8.RuneCountInString(text) < p.minLength {
		p.metrics.record(eventShortCircuited)
		p.emit([]model.FoodItem{})
		return
	}

	ctx, cancel := context.WithCancel(p.ctx)
	p.cancelQuery = cancel
	p.metrics.record(eventQueried)
	p.wg.Add(1)
	go p.query(ctx, p.queryGen, text)
}

func (p *Pipeline) query(ctx context.Context, gen uint64, text string) {
	defer p.wg.Done()
	start := time.Now()
	items, err := p.querier.SuggestionsFor(ctx, text)
	p.metrics.observeQuery(time.Since(start))

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || gen != p.queryGen {
		p.metrics.record(eventDiscarded)
		return
	}
	p.cancelQuery()
	p.cancelQuery = nil

	if err != nil {
		p.logger.Debug("suggestion query failed, showing none", "prefix", text, "error", err)
		p.metrics.record(eventDegraded)
		items = []model.FoodItem{}
	}
	if items == nil {
		items = []model.FoodItem{}
	}
	p.emit(items)
}

// emit must be called with p.mu held.
func (p *Pipeline) emit(items []model.FoodItem) {
	select {
	case <-p.out:
	default:
	}
	p.out <- items
	p.metrics.record(eventDelivered)
}

// Flush settles pending input without waiting out the debounce and blocks
// until in-flight queries have delivered. It must not race with Input.
func (p *Pipeline) Flush() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if p.timer != nil {
		p.timer.Stop()
		// A callback that already fired sees a newer generation and backs off.
		p.pendingGen++
		p.settleLocked(p.last)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Close cancels any pending or in-flight work and closes Results.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	close(p.out)
}
