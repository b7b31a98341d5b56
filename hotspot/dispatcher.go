package hotspot

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/tierup/jit"
	"github.com/wippyai/tierup/method"
)

// Config controls when and how many methods are compiled.
type Config struct {
	// Threshold is the number of calls after which a method is offered for
	// compilation. Zero or negative means the default.
	Threshold int64 `yaml:"threshold"`

	// Workers bounds the number of concurrently running compile tasks.
	Workers int `yaml:"workers"`
}

const (
	DefaultThreshold = 50
	DefaultWorkers   = 2
)

// DefaultConfig returns the default thresholds.
func DefaultConfig() *Config {
	return &Config{Threshold: DefaultThreshold, Workers: DefaultWorkers}
}

// ResultHandler receives the result of every finished task. It runs on the
// worker goroutine.
type ResultHandler func(m *method.Method, className string, res jit.Result)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithResultHandler registers fn to receive task results.
func WithResultHandler(fn ResultHandler) Option {
	return func(d *Dispatcher) {
		d.onResult = fn
	}
}

// WithLogger sets the dispatcher's logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// Stats is a snapshot of dispatcher activity.
type Stats struct {
	Submitted int64
	Dropped   int64
	Completed int64
	InFlight  int
}

// Dispatcher counts calls and runs compile tasks on a bounded pool.
type Dispatcher struct {
	ctx       context.Context
	cancel    context.CancelFunc
	compiler  *jit.Compiler
	group     *errgroup.Group
	onResult  ResultHandler
	logger    *zap.Logger
	inFlight  map[*method.Method]struct{}
	cfg       Config
	submitted atomic.Int64
	dropped   atomic.Int64
	completed atomic.Int64
	mu        sync.Mutex
	closed    bool
}

// New creates a dispatcher compiling with c. Tasks run under a context
// derived from ctx; canceling ctx or calling Close stops accepting work.
func New(ctx context.Context, c *jit.Compiler, cfg *Config, opts ...Option) *Dispatcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	conf := *cfg
	if conf.Threshold <= 0 {
		conf.Threshold = DefaultThreshold
	}
	if conf.Workers <= 0 {
		conf.Workers = DefaultWorkers
	}

	g := &errgroup.Group{}
	g.SetLimit(conf.Workers)

	dctx, cancel := context.WithCancel(ctx)
	d := &Dispatcher{
		ctx:      dctx,
		cancel:   cancel,
		compiler: c,
		group:    g,
		logger:   Logger(),
		inFlight: make(map[*method.Method]struct{}),
		cfg:      conf,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Config returns the effective configuration.
func (d *Dispatcher) Config() Config { return d.cfg }

// Invoke counts the call, offers m for compilation when it crosses a
// threshold, and calls it through its current implementation. className
// names the type m was found on; empty means m's owner.
func (d *Dispatcher) Invoke(ctx context.Context, m *method.Method, className string, args ...int64) (int64, error) {
	if n := m.Tick(); n > 0 && n%d.cfg.Threshold == 0 {
		d.Submit(m, className)
	}
	return m.Call(ctx, args...)
}

// Submit offers m to the pool without blocking. It reports whether a task
// was started.
func (d *Dispatcher) Submit(m *method.Method, className string) bool {
	if m.IsCompileDisabled() || m.Implementation().Tier() == method.Compiled {
		return false
	}

	// TryGo does not block. Holding mu across it keeps Close from waiting
	// on the group before the task is added.
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.ctx.Err() != nil {
		return false
	}
	if _, busy := d.inFlight[m]; busy {
		return false
	}

	started := d.group.TryGo(func() error {
		d.run(m, className)
		return nil
	})
	if !started {
		d.dropped.Add(1)
		d.logger.Debug("compile pool full", zap.String("method", m.QualifiedName()))
		return false
	}
	d.inFlight[m] = struct{}{}
	d.submitted.Add(1)
	return true
}

func (d *Dispatcher) run(m *method.Method, className string) {
	defer d.release(m)

	res := d.compiler.Compile(d.ctx, m, className)
	d.completed.Add(1)

	if res.Outcome == jit.OutcomeFailed {
		m.DisableCompile()
	}

	d.logger.Debug("compile finished",
		zap.String("method", res.Method),
		zap.Stringer("outcome", res.Outcome),
		zap.Duration("duration", res.Duration),
	)
	if d.onResult != nil {
		d.onResult(m, className, res)
	}
}

func (d *Dispatcher) release(m *method.Method) {
	d.mu.Lock()
	delete(d.inFlight, m)
	d.mu.Unlock()
}

// Wait blocks until every started task has finished.
func (d *Dispatcher) Wait() {
	_ = d.group.Wait()
}

// Close stops accepting work, cancels running tasks and waits for them.
// Canceled tasks do not install anything.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	d.Wait()
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	inFlight := len(d.inFlight)
	d.mu.Unlock()

	return Stats{
		Submitted: d.submitted.Load(),
		Dropped:   d.dropped.Load(),
		Completed: d.completed.Load(),
		InFlight:  inFlight,
	}
}
