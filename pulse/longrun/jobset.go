package longrun

import (
	"time"

	"github.com/google/uuid"

	"github.com/teranos/longrun/errors"
	"github.com/teranos/longrun/pulse/job"
	"github.com/teranos/longrun/pulse/timed"
)

// JobSet is the batch of jobs created by one run request. It owns its jobs:
// releasing the set ends their life in this process.
type JobSet struct {
	jobs     []*timed.Job
	released bool
}

// NewJobSet wraps a batch of jobs.
func NewJobSet(jobs []*timed.Job) *JobSet {
	if jobs == nil {
		jobs = []*timed.Job{}
	}
	return &JobSet{jobs: jobs}
}

// Jobs returns the jobs in creation order.
func (s *JobSet) Jobs() []*timed.Job {
	return s.jobs
}

func (s *JobSet) Len() int {
	return len(s.jobs)
}

// Find returns the job with the given identity.
func (s *JobSet) Find(id uuid.UUID) (*timed.Job, bool) {
	for _, j := range s.jobs {
		if j.ID() == id {
			return j, true
		}
	}
	return nil, false
}

// InFlight returns the jobs whose derived status at now is idle, pending or started.
func (s *JobSet) InFlight(now time.Time) []*timed.Job {
	var busy []*timed.Job
	for _, j := range s.jobs {
		if j.DeriveStatus(now).InFlight() {
			busy = append(busy, j)
		}
	}
	return busy
}

// Release ends the set's life. It is refused with ErrJobsInFlight while any
// job may still be working, so that state other observers could still query
// is never destroyed.
func (s *JobSet) Release(now time.Time) error {
	if s.released {
		return nil
	}
	if busy := s.InFlight(now); len(busy) > 0 {
		return errors.WithHintf(
			errors.Wrapf(errors.ErrJobsInFlight, "%d of %d jobs", len(busy), len(s.jobs)),
			"job %s is %s; retry after it concludes", busy[0].ID(), busy[0].CachedStatus())
	}
	s.released = true
	return nil
}

// Released reports whether Release succeeded.
func (s *JobSet) Released() bool {
	return s.released
}

// Statuses derives the status of every job at now, keyed by identity.
func (s *JobSet) Statuses(now time.Time) map[uuid.UUID]job.Status {
	out := make(map[uuid.UUID]job.Status, len(s.jobs))
	for _, j := range s.jobs {
		out[j.ID()] = j.DeriveStatus(now)
	}
	return out
}
