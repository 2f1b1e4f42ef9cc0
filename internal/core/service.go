// Package core is the data-access layer of the pipeline. It coordinates
// database rows with the artifact files they reference, restoring archived
// files into the temporary tier on read and archiving them before rows are
// written.
package core

import (
	"context"
	"errors"
	"time"

	"elaspicdb/internal/artifact"
	"elaspicdb/pkg/domain"
)

// Clock provides the current time. It allows tests to supply deterministic timestamps.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// Logger is the minimal structured logger used by the service. Its method set
// matches *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MetricsRecorder observes the outcome and latency of service operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// TraceSpan is ended once per started operation.
type TraceSpan interface {
	End(err error)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

type noopTracer struct{}

type noopSpan struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

func (noopSpan) End(error) {}

// SequenceFetcher retrieves protein sequences from a remote source.
type SequenceFetcher interface {
	FetchSequence(ctx context.Context, uniprotID string) (domain.UniprotSequence, error)
}

// Option customises the service.
type Option func(*Service)

// WithClock overrides the clock used for modification timestamps.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the recorder observing every operation.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithTracer sets the tracer wrapping every operation.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithImmutable marks the database read-only; merges then only touch the archive.
func WithImmutable(immutable bool) Option {
	return func(s *Service) { s.immutable = immutable }
}

// WithSequenceFetcher enables remote lookups in GetUniprotSequence.
func WithSequenceFetcher(f SequenceFetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// Service is the data-access object over a persistent store and an
// artifact store.
type Service struct {
	store     domain.PersistentStore
	artifacts *artifact.Store
	clock     Clock
	logger    Logger
	metrics   MetricsRecorder
	tracer    Tracer
	fetcher   SequenceFetcher
	immutable bool
}

// NewService constructs a service. artifacts may be nil when only the
// database is used; operations that copy files then fail.
func NewService(store domain.PersistentStore, artifacts *artifact.Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		artifacts: artifacts,
		clock:     ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:    noopLogger{},
		metrics:   noopMetrics{},
		tracer:    noopTracer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying persistent store.
func (s *Service) Store() domain.PersistentStore { return s.store }

// Artifacts returns the artifact store.
func (s *Service) Artifacts() *artifact.Store { return s.artifacts }

// Immutable reports whether row merges are disabled.
func (s *Service) Immutable() bool { return s.immutable }

// Close releases the persistent store.
func (s *Service) Close() error { return s.store.Close() }

// CreateSchema creates the tables, dropping them first when clear is set.
func (s *Service) CreateSchema(ctx context.Context, clear bool) error {
	return s.run(ctx, "create_schema", func(ctx context.Context) error {
		return s.store.CreateSchema(ctx, clear)
	})
}

// run wraps an operation with tracing, metrics and error logging.
func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	err := fn(ctx)
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	span.End(err)
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "error", err)
	}
	return err
}

var errNoArtifacts = errors.New("core: artifact store not configured")

func (s *Service) requireArtifacts() error {
	if s.artifacts == nil {
		return errNoArtifacts
	}
	return nil
}
