// Package timed implements the long-running job variant: a job that "works" for a
// fixed number of seconds after it is started, and whose progress is derived from
// its start/end timestamps and the wall clock.
package timed

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/longrun/errors"
	"github.com/teranos/longrun/pulse/job"
)

// Kind is the tag timed jobs are recorded with.
const Kind = "long running service job"

// Record keys specific to timed jobs.
const (
	KeyStart      = "start"
	KeyEnd        = "end"
	KeyDuration   = "duration"
	KeyRegistered = "added_to_job_manager"
)

// Job is a unit of simulated work lasting Interval().Duration seconds.
//
// The interval is written once by Start, before the job is registered, and only
// read afterwards. The status cache is refreshed by every DeriveStatus call and
// may be read from concurrent requests, so it is guarded.
type Job struct {
	job.Base

	interval   job.Interval
	registered atomic.Bool

	mu sync.RWMutex // guards the cached status in Base
}

var _ job.Job = (*Job)(nil)

// New creates a pending job with the given duration in seconds.
func New(id uuid.UUID, service, name, description string, duration int64) *Job {
	return &Job{
		Base:     job.NewBase(id, Kind, service, name, description),
		interval: job.Interval{Duration: duration},
	}
}

// Interval returns the job's start/end/duration triple.
func (j *Job) Interval() job.Interval {
	return j.interval
}

// Start stamps the interval at now and caches StatusStarted.
func (j *Job) Start(now time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.interval = j.interval.Stamp(now)
	j.Base.SetStatus(job.StatusStarted)
}

// DeriveStatus recomputes the status from the interval and refreshes the cache.
func (j *Job) DeriveStatus(now time.Time) job.Status {
	status := job.DeriveStatus(j.interval, now)

	j.mu.Lock()
	j.Base.SetStatus(status)
	j.mu.Unlock()

	return status
}

func (j *Job) CachedStatus() job.Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Base.CachedStatus()
}

func (j *Job) SetStatus(s job.Status) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Base.SetStatus(s)
}

func (j *Job) Registered() bool              { return j.registered.Load() }
func (j *Job) SetRegistered(registered bool) { j.registered.Store(registered) }

// ToRecord converts the job to its durable document.
func (j *Job) ToRecord() (job.Record, error) {
	j.mu.RLock()
	rec := j.BaseRecord()
	j.mu.RUnlock()

	rec[KeyStart] = j.interval.Start
	rec[KeyEnd] = j.interval.End
	rec[KeyDuration] = j.interval.Duration
	rec[KeyRegistered] = j.Registered()
	return rec, nil
}

// FromRecord rebuilds a timed job from its durable document. It is the Decoder
// registered for Kind.
//
// start and end are mandatory; a record missing either fails as a whole and no
// job is returned. The status is re-derived at env.Now(). When the record was
// stored as started and that no longer holds, env.Reconciler is told so the
// registry can drop the concluded job.
func FromRecord(ctx context.Context, rec job.Record, env job.Env) (job.Job, error) {
	j := &Job{}
	if err := j.InitFromRecord(rec, Kind); err != nil {
		return nil, errors.Wrap(err, "failed to decode timed job")
	}
	if j.Service() == "" {
		j.SetService(env.Service)
	}

	start, ok := rec.Int64(KeyStart)
	if !ok {
		return nil, errors.NewMalformedRecordError("job %s: missing or non-integer %q", j.ID(), KeyStart)
	}
	end, ok := rec.Int64(KeyEnd)
	if !ok {
		return nil, errors.NewMalformedRecordError("job %s: missing or non-integer %q", j.ID(), KeyEnd)
	}
	duration, ok := rec.Int64(KeyDuration)
	if !ok {
		duration = end - start
	}
	registered, _ := rec.Bool(KeyRegistered)

	j.interval = job.Interval{Start: start, End: end, Duration: duration}
	j.registered.Store(registered)

	recorded := j.Base.CachedStatus()
	derived := j.DeriveStatus(env.Now())

	if recorded == job.StatusStarted && derived != recorded && env.Reconciler != nil {
		// Registry failures are logged by the reconciler and never fail a decode.
		_, _ = env.Reconciler.Reconcile(ctx, j, recorded)
	}
	return j, nil
}

// Register adds the timed decoder to a kind table.
func Register(kinds *job.Kinds) {
	kinds.Register(Kind, FromRecord)
}
