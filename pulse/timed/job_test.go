package timed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/longrun/errors"
	"github.com/teranos/longrun/pulse/job"
)

const testService = "Long Running service"

// recordingReconciler remembers every reconciliation request.
type recordingReconciler struct {
	mu    sync.Mutex
	calls []job.Status
	err   error
}

func (r *recordingReconciler) Reconcile(_ context.Context, _ job.Job, recorded job.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recorded)
	return r.err == nil, r.err
}

func TestNewJobIsPending(t *testing.T) {
	j := New(uuid.New(), testService, "job 0", "duration 12", 12)

	assert.Equal(t, Kind, j.Kind())
	assert.Equal(t, job.StatusIdle, j.CachedStatus())
	assert.False(t, j.Registered())
	assert.Equal(t, job.Interval{Duration: 12}, j.Interval())
	assert.Equal(t, job.StatusIdle, j.DeriveStatus(time.Now()))
}

func TestStartStampsInterval(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	j := New(uuid.New(), testService, "job 0", "duration 12", 12)

	j.Start(t0)

	assert.Equal(t, job.Interval{Start: t0.Unix(), End: t0.Unix() + 12, Duration: 12}, j.Interval())
	assert.Equal(t, job.StatusStarted, j.CachedStatus())
	assert.Equal(t, job.StatusStarted, j.DeriveStatus(t0.Add(12*time.Second)))
	assert.Equal(t, job.StatusSucceeded, j.DeriveStatus(t0.Add(13*time.Second)))
	assert.Equal(t, job.StatusSucceeded, j.CachedStatus(), "DeriveStatus refreshes the cache")
}

func TestToRecordFields(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	j := New(uuid.New(), testService, "job 3", "duration 20", 20)
	j.Start(t0)
	j.SetRegistered(true)

	rec, err := j.ToRecord()
	require.NoError(t, err)

	assert.Equal(t, j.ID().String(), rec[job.KeyID])
	assert.Equal(t, "job 3", rec[job.KeyName])
	assert.Equal(t, "duration 20", rec[job.KeyDescription])
	assert.Equal(t, Kind, rec[job.KeyKind])
	assert.Equal(t, testService, rec[job.KeyService])
	assert.Equal(t, "started", rec[job.KeyStatus])
	assert.Equal(t, t0.Unix(), rec[KeyStart])
	assert.Equal(t, t0.Unix()+20, rec[KeyEnd])
	assert.Equal(t, int64(20), rec[KeyDuration])
	assert.Equal(t, true, rec[KeyRegistered])
}

func TestRoundTripThroughBytes(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	orig := New(uuid.New(), testService, "job 1", "duration 30", 30)
	orig.Start(t0)

	rec, err := orig.ToRecord()
	require.NoError(t, err)
	data, err := job.Encode(rec)
	require.NoError(t, err)

	tests := []struct {
		name       string
		at         time.Time
		wantStatus job.Status
		reconciled bool
	}{
		{"still running", t0.Add(10 * time.Second), job.StatusStarted, false},
		{"concluded", t0.Add(31 * time.Second), job.StatusSucceeded, true},
		{"clock behind start", t0.Add(-5 * time.Second), job.StatusError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			back, err := job.Decode(data)
			require.NoError(t, err)

			rc := &recordingReconciler{}
			env := job.Env{Service: testService, Clock: job.NewManualClock(tt.at).Now, Reconciler: rc}

			decoded, err := FromRecord(context.Background(), back, env)
			require.NoError(t, err)
			got := decoded.(*Job)

			assert.NotSame(t, orig, got, "decoding allocates a fresh job")
			assert.Equal(t, orig.ID(), got.ID())
			assert.Equal(t, orig.Name(), got.Name())
			assert.Equal(t, orig.Description(), got.Description())
			assert.Equal(t, orig.Interval(), got.Interval())
			assert.Equal(t, tt.wantStatus, got.CachedStatus())
			assert.Equal(t, job.DeriveStatus(orig.Interval(), tt.at), got.CachedStatus())

			if tt.reconciled {
				assert.Equal(t, []job.Status{job.StatusStarted}, rc.calls)
			} else {
				assert.Empty(t, rc.calls)
			}
		})
	}
}

func TestFromRecordOnlyReconcilesStartedRecords(t *testing.T) {
	j := New(uuid.New(), testService, "job 0", "duration 5", 5)
	j.Start(time.Unix(100, 0))
	j.SetStatus(job.StatusSucceeded)

	rec, err := j.ToRecord()
	require.NoError(t, err)

	rc := &recordingReconciler{}
	env := job.Env{Clock: job.NewManualClock(time.Unix(50, 0)).Now, Reconciler: rc}

	decoded, err := FromRecord(context.Background(), rec, env)
	require.NoError(t, err)
	assert.Equal(t, job.StatusError, decoded.CachedStatus())
	assert.Empty(t, rc.calls, "only records stored as started are reconciled")
}

func TestFromRecordDefaults(t *testing.T) {
	id := uuid.New()
	rec := job.Record{
		job.KeyID:     id.String(),
		job.KeyName:   "job 0",
		job.KeyKind:   Kind,
		job.KeyStatus: "started",
		KeyStart:      int64(100),
		KeyEnd:        int64(140),
	}

	decoded, err := FromRecord(context.Background(), rec, job.Env{
		Service: testService,
		Clock:   job.NewManualClock(time.Unix(120, 0)).Now,
	})
	require.NoError(t, err)

	got := decoded.(*Job)
	assert.False(t, got.Registered(), "added_to_job_manager defaults to false")
	assert.Equal(t, int64(40), got.Interval().Duration, "duration defaults to end-start")
	assert.Equal(t, testService, got.Service(), "service falls back to the decoding environment")
	assert.Equal(t, job.StatusStarted, got.CachedStatus())
}

func TestFromRecordRequiresStartAndEnd(t *testing.T) {
	valid := func() job.Record {
		j := New(uuid.New(), testService, "job 0", "duration 5", 5)
		j.Start(time.Unix(100, 0))
		rec, err := j.ToRecord()
		require.NoError(t, err)
		return rec
	}

	tests := []struct {
		name   string
		mutate func(job.Record)
	}{
		{"missing start", func(r job.Record) { delete(r, KeyStart) }},
		{"missing end", func(r job.Record) { delete(r, KeyEnd) }},
		{"string start", func(r job.Record) { r[KeyStart] = "100" }},
		{"fractional end", func(r job.Record) { r[KeyEnd] = 104.5 }},
		{"missing name", func(r job.Record) { delete(r, job.KeyName) }},
		{"wrong kind", func(r job.Record) { r[job.KeyKind] = "cron job" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid()
			tt.mutate(rec)

			rc := &recordingReconciler{}
			j, err := FromRecord(context.Background(), rec, job.Env{Reconciler: rc})
			require.Error(t, err)
			assert.Nil(t, j, "no partially decoded job escapes")
			assert.True(t, errors.Is(err, errors.ErrMalformedRecord), "got %v", err)
			assert.Empty(t, rc.calls)
		})
	}
}

func TestFromRecordIgnoresReconcileFailure(t *testing.T) {
	j := New(uuid.New(), testService, "job 0", "duration 5", 5)
	j.Start(time.Unix(100, 0))
	rec, err := j.ToRecord()
	require.NoError(t, err)

	rc := &recordingReconciler{err: errors.ErrRegistry}
	decoded, err := FromRecord(context.Background(), rec, job.Env{
		Clock:      job.NewManualClock(time.Unix(200, 0)).Now,
		Reconciler: rc,
	})
	require.NoError(t, err)
	assert.Equal(t, job.StatusSucceeded, decoded.CachedStatus())
	assert.Len(t, rc.calls, 1)
}

func TestRegisterKind(t *testing.T) {
	kinds := job.NewKinds()
	Register(kinds)
	assert.True(t, kinds.Has(Kind))

	j := New(uuid.New(), testService, "job 0", "duration 5", 5)
	rec, err := j.ToRecord()
	require.NoError(t, err)
	data, err := job.Encode(rec)
	require.NoError(t, err)

	decoded, err := kinds.FromBytes(context.Background(), data, job.Env{})
	require.NoError(t, err)
	assert.IsType(t, &Job{}, decoded)
	assert.Equal(t, job.StatusIdle, decoded.CachedStatus())
}

func TestConcurrentStatusReads(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	j := New(uuid.New(), testService, "job 0", "duration 5", 5)
	j.Start(t0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			j.DeriveStatus(t0.Add(time.Duration(i) * time.Second))
			_ = j.CachedStatus()
			_, _ = j.ToRecord()
		}(i)
	}
	wg.Wait()
}
