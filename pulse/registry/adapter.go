package registry

import (
	"context"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/teranos/longrun/errors"
	"github.com/teranos/longrun/logger"
	"github.com/teranos/longrun/pulse/job"
	"github.com/teranos/longrun/pulse/metrics"
)

// DefaultLoadedJobs bounds how many jobs decoded from the backend stay in memory.
const DefaultLoadedJobs = 1024

// Option configures an Adapter.
type Option func(*Adapter)

// WithClock sets the clock statuses are derived against.
func WithClock(clock job.Clock) Option {
	return func(a *Adapter) { a.clock = clock }
}

// WithMetrics records registry activity on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(a *Adapter) { a.metrics = c }
}

// WithLoadedJobs bounds the cache of jobs decoded from the backend.
func WithLoadedJobs(n int) Option {
	return func(a *Adapter) { a.loadedSize = n }
}

// Adapter registers, looks up, reconciles and removes jobs in a Backend.
//
// It holds references to registered jobs by identity but does not own them:
// the job set that created a job decides its lifetime and calls Forget on
// teardown. Jobs decoded from the backend belong to no set; they are kept in a
// least-recently-used cache so a long-lived process answering queries about
// other processes' jobs stays bounded.
type Adapter struct {
	backend Backend
	kinds   *job.Kinds
	service string
	clock   job.Clock
	logger  *zap.SugaredLogger
	metrics *metrics.Collector

	mu         sync.RWMutex
	resident   map[uuid.UUID]job.Job
	loaded     *lru.Cache
	loadedSize int
}

var _ job.Reconciler = (*Adapter)(nil)

// NewAdapter creates an adapter for jobs owned by service.
// kinds selects the decoder for records loaded from the backend.
func NewAdapter(backend Backend, kinds *job.Kinds, service string, log *zap.SugaredLogger, opts ...Option) *Adapter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	a := &Adapter{
		backend:  backend,
		kinds:    kinds,
		service:  service,
		clock:    job.SystemClock,
		logger:   log.With(logger.FieldBackend, backend.Name()),
		resident:   make(map[uuid.UUID]job.Job),
		loadedSize: DefaultLoadedJobs,
	}
	for _, o := range opts {
		o(a)
	}
	if a.loadedSize <= 0 {
		a.loadedSize = DefaultLoadedJobs
	}
	// Only fails for a non-positive size
	a.loaded, _ = lru.New(a.loadedSize)
	return a
}

// Backend returns the underlying store.
func (a *Adapter) Backend() Backend {
	return a.backend
}

// env is what decoders receive: this adapter as the reconciler.
func (a *Adapter) env() job.Env {
	return job.Env{Service: a.service, Clock: a.clock, Reconciler: a}
}

// Register records j in the backend and makes it resident.
//
// On failure the job's registered flag is cleared and an error marked
// ErrRegistry is returned. The job itself is unaffected and keeps running;
// it just cannot be looked up by other observers.
func (a *Adapter) Register(ctx context.Context, j job.Job) error {
	id := j.ID()

	j.SetRegistered(true)
	data, err := a.encode(j)
	if err == nil {
		err = a.backend.Put(ctx, id, data)
	}
	if err != nil {
		j.SetRegistered(false)
		a.metrics.RecordRegistryFailure("put")
		logger.AddPulseSymbol(a.logger).Warnw("Failed to register job",
			logger.FieldJobID, id.String(),
			logger.FieldJobName, j.Name(),
			logger.FieldError, err)
		return errors.Wrapf(errors.Mark(err, errors.ErrRegistry), "failed to register job %s", id)
	}

	a.keep(j)
	a.metrics.RecordRegistered()
	a.logger.Debugw("Registered job",
		logger.FieldJobID, id.String(),
		logger.FieldStatus, j.CachedStatus())
	return nil
}

func (a *Adapter) encode(j job.Job) ([]byte, error) {
	rec, err := j.ToRecord()
	if err != nil {
		return nil, err
	}
	return job.Encode(rec)
}

// Lookup returns the job with the given identity: the resident instance if
// there is one, otherwise a fresh job decoded from the backend's record.
// Decoding re-derives the status and may reconcile the registry entry.
func (a *Adapter) Lookup(ctx context.Context, id uuid.UUID) (job.Job, error) {
	if j, ok := a.cached(id); ok {
		a.metrics.RecordLookup(metrics.SourceResident)
		return j, nil
	}

	data, err := a.backend.Get(ctx, id)
	if errors.IsNotFoundError(err) {
		a.metrics.RecordLookup(metrics.SourceMissing)
		return nil, errors.NewNotFoundError("job %s", id)
	}
	if err != nil {
		a.metrics.RecordRegistryFailure("get")
		a.logger.Warnw("Failed to look up job",
			logger.FieldJobID, id.String(),
			logger.FieldError, err)
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrRegistry), "failed to look up job %s", id)
	}

	j, err := a.kinds.FromBytes(ctx, data, a.env())
	if err != nil {
		a.logger.Errorw("Failed to decode job record",
			logger.FieldJobID, id.String(),
			logger.FieldError, err)
		return nil, errors.Wrapf(err, "failed to load job %s", id)
	}
	if j.ID() != id {
		return nil, errors.NewMalformedRecordError("record stored under %s belongs to job %s", id, j.ID())
	}

	a.metrics.RecordLookup(metrics.SourceRegistry)
	return a.load(j), nil
}

func (a *Adapter) cached(id uuid.UUID) (job.Job, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if j, ok := a.resident[id]; ok {
		return j, true
	}
	if v, ok := a.loaded.Get(id); ok {
		return v.(job.Job), true
	}
	return nil, false
}

// keep holds a registered job until Forget.
func (a *Adapter) keep(j job.Job) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resident[j.ID()] = j
	a.loaded.Remove(j.ID())
	a.setResidentMetric()
}

// load caches a decoded job unless another instance already is held, and
// returns the held one.
func (a *Adapter) load(j job.Job) job.Job {
	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.resident[j.ID()]; ok {
		return existing
	}
	if v, ok := a.loaded.Get(j.ID()); ok {
		return v.(job.Job)
	}
	a.loaded.Add(j.ID(), j)
	a.setResidentMetric()
	return j
}

func (a *Adapter) setResidentMetric() {
	a.metrics.SetResident(len(a.resident) + a.loaded.Len())
}

// Reconcile re-derives j's status and, if the job was recorded as started and
// no longer is, removes its registry entry: the job has concluded and need not
// be tracked. Any other transition leaves the entry in place.
// It reports whether an entry was removed.
func (a *Adapter) Reconcile(ctx context.Context, j job.Job, recorded job.Status) (bool, error) {
	derived := j.DeriveStatus(a.clock())
	if recorded != job.StatusStarted || derived == recorded {
		return false, nil
	}

	id := j.ID()
	if err := a.backend.Remove(ctx, id); err != nil {
		a.metrics.RecordRegistryFailure("remove")
		logger.AddPulseSymbol(a.logger).Warnw("Failed to remove concluded job",
			logger.FieldJobID, id.String(),
			logger.FieldRecordedStatus, recorded,
			logger.FieldStatus, derived,
			logger.FieldError, err)
		return false, errors.Wrapf(errors.Mark(err, errors.ErrRegistry), "failed to reconcile job %s", id)
	}

	a.metrics.RecordReconcileRemoval()
	logger.AddPulseCloseSymbol(a.logger).Infow("Job concluded, removed from registry",
		logger.FieldJobID, id.String(),
		logger.FieldRecordedStatus, recorded,
		logger.FieldStatus, derived)
	return true, nil
}

// Remove deletes the registry entry for id and drops any resident reference.
func (a *Adapter) Remove(ctx context.Context, id uuid.UUID) error {
	if err := a.backend.Remove(ctx, id); err != nil {
		a.metrics.RecordRegistryFailure("remove")
		a.logger.Warnw("Failed to remove job",
			logger.FieldJobID, id.String(),
			logger.FieldError, err)
		return errors.Wrapf(errors.Mark(err, errors.ErrRegistry), "failed to remove job %s", id)
	}
	a.Forget(id)
	return nil
}

// Forget drops the resident reference to id without touching the backend.
func (a *Adapter) Forget(id uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.resident, id)
	a.loaded.Remove(id)
	a.setResidentMetric()
}

// Resident reports whether a job with the given identity is held in memory.
func (a *Adapter) Resident(id uuid.UUID) bool {
	_, ok := a.cached(id)
	return ok
}

// Loaded reports how many decoded jobs are cached.
func (a *Adapter) Loaded() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loaded.Len()
}

// Keys lists the identities stored in the backend.
func (a *Adapter) Keys(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := a.backend.Keys(ctx)
	if err != nil {
		a.metrics.RecordRegistryFailure("keys")
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrRegistry), "failed to list jobs in %s registry", a.backend.Name())
	}
	return ids, nil
}
