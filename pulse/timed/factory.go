package timed

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/longrun/errors"
	"github.com/teranos/longrun/logger"
)

// DurationSpread is the number of distinct durations a batch draws from:
// durations fall in [minDuration, minDuration+DurationSpread-1].
const DurationSpread = 60

// IDGenerator returns a fresh job identity.
type IDGenerator func() (uuid.UUID, error)

// Factory builds batches of pending timed jobs.
//
// Each Factory owns its random source. A non-zero seed makes the durations of
// successive batches reproducible; seed 0 seeds from the clock.
type Factory struct {
	service string
	newID   IDGenerator
	logger  *zap.SugaredLogger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewFactory creates a factory for jobs owned by service.
func NewFactory(service string, seed uint64, logger *zap.SugaredLogger) *Factory {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Factory{
		service: service,
		newID:   uuid.NewRandom,
		logger:  logger,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// WithIDGenerator replaces the identity source. Used by tests to exercise
// allocation failures.
func (f *Factory) WithIDGenerator(gen IDGenerator) *Factory {
	f.newID = gen
	return f
}

// CreateBatch builds count pending jobs, each lasting a random number of seconds
// in [minDuration, minDuration+59].
//
// The batch is built entirely or not at all: if any job cannot be created, the
// jobs built so far are discarded and an error marked ErrAllocation is returned.
func (f *Factory) CreateBatch(count uint32, minDuration int32) ([]*Job, error) {
	// Grown by append: count comes from callers and is not trusted for sizing
	jobs := []*Job{}

	for i := uint32(0); i < count; i++ {
		id, err := f.newID()
		if err != nil {
			logger.AddPulseSymbol(f.logger).Errorw("Failed to allocate job",
				logger.FieldCount, count,
				"index", i,
				logger.FieldError, err)
			return nil, errors.Wrapf(errors.Mark(err, errors.ErrAllocation),
				"failed to create job %d of %d", i, count)
		}

		duration := int64(minDuration) + f.drawOffset()
		jobs = append(jobs, New(id, f.service,
			fmt.Sprintf("job %d", i),
			fmt.Sprintf("duration %d", duration),
			duration))
	}

	f.logger.Debugw("Created job batch",
		logger.FieldCount, len(jobs),
		"min_duration", minDuration)
	return jobs, nil
}

func (f *Factory) drawOffset() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rng.Int64N(DurationSpread)
}
