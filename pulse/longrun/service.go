// Package longrun is the service shell around timed jobs: it builds batches,
// starts and registers them, answers status and results queries by identity,
// and refuses teardown while work is in flight.
//
// Status is always derived from the job's interval and the wall clock. A query
// in a later process finds the job through the registry and re-derives it there.
package longrun

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/longrun/errors"
	"github.com/teranos/longrun/logger"
	"github.com/teranos/longrun/pulse/job"
	"github.com/teranos/longrun/pulse/metrics"
	"github.com/teranos/longrun/pulse/registry"
	"github.com/teranos/longrun/pulse/timed"
)

// Config holds the service settings resolved from configuration.
type Config struct {
	DefaultNumberOfJobs uint32
	DefaultMinDuration  int32
	// MaxNumberOfJobs caps a single run request
	MaxNumberOfJobs uint32
	// Seed for job durations; 0 seeds from the clock
	Seed uint64
	// PurgeOnClose deletes registry records of released jobs on Close
	PurgeOnClose bool
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		DefaultNumberOfJobs: DefaultNumberOfJobs,
		DefaultMinDuration:  DefaultMinDuration,
		MaxNumberOfJobs:     DefaultMaxNumberOfJobs,
	}
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock jobs are started and derived against.
func WithClock(clock job.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// WithMetrics records service activity on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Service) { s.metrics = c }
}

// WithFactory replaces the job factory.
func WithFactory(f *timed.Factory) Option {
	return func(s *Service) { s.factory = f }
}

// Service runs batches of timed jobs and answers queries about them.
type Service struct {
	cfg      Config
	registry *registry.Adapter
	factory  *timed.Factory
	clock    job.Clock
	logger   *zap.SugaredLogger
	metrics  *metrics.Collector

	mu     sync.Mutex
	sets   []*JobSet
	closed bool
	// runs between their closed check and keeping their set
	starting int
}

// New creates a service recording its jobs through reg.
func New(cfg Config, reg *registry.Adapter, log *zap.SugaredLogger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.DefaultNumberOfJobs == 0 {
		cfg.DefaultNumberOfJobs = DefaultNumberOfJobs
	}
	if cfg.MaxNumberOfJobs == 0 {
		cfg.MaxNumberOfJobs = DefaultMaxNumberOfJobs
	}
	s := &Service{
		cfg:      cfg,
		registry: reg,
		clock:    job.SystemClock,
		logger:   log.With(logger.FieldService, ServiceName),
	}
	for _, o := range opts {
		o(s)
	}
	if s.factory == nil {
		s.factory = timed.NewFactory(ServiceName, cfg.Seed, s.logger.Named("factory"))
	}
	return s
}

// Metadata describes the service.
func (s *Service) Metadata() Metadata {
	return ServiceMetadata()
}

// ParameterDescriptions lists the parameters Run accepts.
func (s *Service) ParameterDescriptions() []ParameterDescription {
	return ParameterDescriptions(s.cfg.DefaultNumberOfJobs)
}

// Build creates a batch of pending jobs. Nothing is started or registered.
func (s *Service) Build(count uint32, minDuration int32) (*JobSet, error) {
	jobs, err := s.factory.CreateBatch(count, minDuration)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build job set")
	}
	for _, j := range jobs {
		s.metrics.RecordCreated(j.Interval().Duration)
	}
	return NewJobSet(jobs), nil
}

// Start stamps j's interval and records it in the registry.
//
// A registration failure is returned but the job keeps running: it stays in
// its set with its registered flag cleared and can still be queried from this
// process.
func (s *Service) Start(ctx context.Context, j job.Job) error {
	j.Start(s.clock())
	s.metrics.RecordStarted()
	return s.registry.Register(ctx, j)
}

// Run builds a batch from params, starts and registers every job, and keeps
// the set until Close.
func (s *Service) Run(ctx context.Context, params Parameters) (*JobSet, error) {
	if err := params.Validate(s.cfg.MaxNumberOfJobs); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.NewInvalidRequestError("service %q is closed", ServiceName)
	}
	s.starting++
	s.mu.Unlock()

	count := *params.NumberOfJobs
	minDuration := params.MinDurationOr(s.cfg.DefaultMinDuration)

	set, err := s.Build(count, minDuration)
	if err != nil {
		s.mu.Lock()
		s.starting--
		s.mu.Unlock()
		return nil, err
	}

	unregistered := 0
	for _, j := range set.Jobs() {
		if err := s.Start(ctx, j); err != nil {
			unregistered++
		}
	}

	s.mu.Lock()
	s.sets = append(s.sets, set)
	s.starting--
	s.mu.Unlock()

	logger.AddPulseOpenSymbol(s.logger).Infow("Started job set",
		logger.FieldCount, set.Len(),
		"min_duration", minDuration,
		"unregistered", unregistered)
	return set, nil
}

// find returns a job held by one of the service's own sets.
func (s *Service) find(id uuid.UUID) (job.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, set := range s.sets {
		if j, ok := set.Find(id); ok {
			return j, true
		}
	}
	return nil, false
}

// Lookup returns the job with the given identity, from this process's sets or
// from the registry.
func (s *Service) Lookup(ctx context.Context, id uuid.UUID) (job.Job, error) {
	if j, ok := s.find(id); ok {
		return j, nil
	}
	return s.registry.Lookup(ctx, id)
}

// Status derives the current status of the job with the given identity.
// An unknown identity reports StatusError with an error wrapping ErrNotFound.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (job.Status, error) {
	j, err := s.Lookup(ctx, id)
	if err != nil {
		if !errors.IsNotFoundError(err) {
			s.logger.Warnw("Failed to get job status",
				logger.FieldJobID, id.String(),
				logger.FieldError, err)
		}
		s.metrics.RecordStatus(string(job.StatusError))
		return job.StatusError, err
	}

	status := j.DeriveStatus(s.clock())
	s.metrics.RecordStatus(string(status))
	return status, nil
}

// timedJob is any job whose progress is an interval.
type timedJob interface {
	job.Job
	Interval() job.Interval
}

// Results returns when the job ran, as a single inline resource.
func (s *Service) Results(ctx context.Context, id uuid.UUID) ([]Resource, error) {
	j, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	tj, ok := j.(timedJob)
	if !ok {
		return nil, errors.NewInvalidRequestError("job %s of kind %q has no interval results", id, j.Kind())
	}
	iv := tj.Interval()

	return []Resource{{
		Protocol: ProtocolInline,
		Title:    ResultsTitle,
		Data:     IntervalData{Start: iv.Start, End: iv.End},
	}}, nil
}

// Sets returns the job sets held by the service, oldest first.
func (s *Service) Sets() []*JobSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*JobSet(nil), s.sets...)
}

// Close tears the service down. It is refused with ErrJobsInFlight while any
// job of any set is idle, pending or started, or while a Run is still starting
// its batch; nothing is released in that case.
//
// On success every set is released and its jobs are forgotten by the registry
// adapter. Registry records are kept so later processes can still query them,
// unless PurgeOnClose is set.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	if s.starting > 0 {
		logger.AddPulseSymbol(s.logger).Infow("Refusing to close while a run is starting",
			"runs", s.starting)
		return errors.WithHint(
			errors.Wrapf(errors.ErrJobsInFlight, "cannot close %q: %d runs starting", ServiceName, s.starting),
			"wait for the run to return, then close again")
	}

	now := s.clock()
	busy := 0
	for _, set := range s.sets {
		busy += len(set.InFlight(now))
	}
	if busy > 0 {
		logger.AddPulseSymbol(s.logger).Infow("Refusing to close with jobs in flight",
			logger.FieldCount, busy)
		return errors.WithHint(
			errors.Wrapf(errors.ErrJobsInFlight, "cannot close %q: %d jobs", ServiceName, busy),
			"wait until every job has succeeded, then close again")
	}

	released := 0
	for _, set := range s.sets {
		if err := set.Release(now); err != nil {
			return errors.Wrap(err, "failed to release job set")
		}
		for _, j := range set.Jobs() {
			if s.cfg.PurgeOnClose {
				// Logged by the adapter; a record left behind is harmless
				_ = s.registry.Remove(ctx, j.ID())
			} else {
				s.registry.Forget(j.ID())
			}
			released++
		}
	}
	s.sets = nil
	s.closed = true

	logger.AddPulseCloseSymbol(s.logger).Infow("Service closed",
		logger.FieldCount, released,
		"purged", s.cfg.PurgeOnClose)
	return nil
}

// Closed reports whether Close succeeded.
func (s *Service) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Now reads the service clock.
func (s *Service) Now() time.Time {
	return s.clock()
}
