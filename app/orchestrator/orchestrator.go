package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
	"github.com/vibast-solutions/ms-go-checkout/app/metrics"
	"github.com/vibast-solutions/ms-go-checkout/app/provider"
	"github.com/vibast-solutions/ms-go-checkout/app/surface"
)

type Config struct {
	PollInterval     time.Duration
	WatchdogInterval time.Duration
	Timeout          time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 3 * time.Second
	}
	if c.WatchdogInterval <= 0 {
		c.WatchdogInterval = time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Minute
	}
	return c
}

// Orchestrator runs payment sessions. Each session lives in its own goroutine
// and is tracked by key until it resolves.
type Orchestrator struct {
	client  provider.Client
	surface surface.Surface
	cfg     Config
	metrics *metrics.Metrics
	logger  logrus.FieldLogger

	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
	wg       sync.WaitGroup
}

func New(client provider.Client, surf surface.Surface, cfg Config, m *metrics.Metrics) *Orchestrator {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		client:     client,
		surface:    surf,
		cfg:        cfg.withDefaults(),
		metrics:    m,
		logger:     factory.NewModuleLogger("orchestrator"),
		baseCtx:    baseCtx,
		cancelBase: cancel,
		sessions:   make(map[string]*Session),
	}
}

// ProcessPayment starts a session and returns without waiting for it. The
// session keeps the values of ctx but not its cancellation; it ends on
// resolution, Abort or Shutdown.
func (o *Orchestrator) ProcessPayment(ctx context.Context, key string, req *provider.InvoiceRequest, cb Callbacks) (*Session, error) {
	key = strings.TrimSpace(key)
	if key == "" || req == nil {
		return nil, ErrInvalidRequest
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrShuttingDown
	}
	if _, exists := o.sessions[key]; exists {
		o.mu.Unlock()
		return nil, ErrSessionExists
	}

	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stopWatch := context.AfterFunc(o.baseCtx, cancel)
	s := newSession(key, o, cb, cancel)
	s.logger = factory.LoggerFromContext(o.logger, ctx).WithField("session", key)
	o.sessions[key] = s
	o.wg.Add(1)
	o.mu.Unlock()

	o.metrics.SessionStarted()

	go func() {
		defer o.wg.Done()
		defer stopWatch()
		defer o.remove(s)
		s.run(sessionCtx, req)
	}()

	return s, nil
}

func (o *Orchestrator) Session(key string) (*Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[strings.TrimSpace(key)]
	return s, ok
}

// Abort cancels a live session. It returns ErrSessionNotFound when no session
// runs under key, which includes sessions that already resolved.
func (o *Orchestrator) Abort(key string) error {
	s, ok := o.Session(key)
	if !ok {
		return ErrSessionNotFound
	}
	if !s.Abort(CancelAborted) {
		return ErrSessionResolved
	}
	return nil
}

func (o *Orchestrator) Active() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sessions)
}

// Shutdown cancels every live session with reason shutdown and waits for
// their callbacks to complete or ctx to end.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.cancelBase()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) remove(s *Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if current, ok := o.sessions[s.key]; ok && current == s {
		delete(o.sessions, s.key)
	}
}
