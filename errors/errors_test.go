package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsSentinel(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"not found", NewNotFoundError("job %s", "abc"), ErrNotFound},
		{"invalid request", NewInvalidRequestError("missing %s", "Number of Jobs"), ErrInvalidRequest},
		{"malformed record", NewMalformedRecordError("missing %q", "start"), ErrMalformedRecord},
		{"registry", Wrap(ErrRegistry, "put job"), ErrRegistry},
		{"allocation", Wrapf(ErrAllocation, "job %d", 2), ErrAllocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.True(t, Is(tt.err, tt.sentinel))
			assert.Contains(t, tt.err.Error(), tt.sentinel.Error())
		})
	}
}

func TestNotFoundMessage(t *testing.T) {
	err := NewNotFoundError("job %s", "0b5d")
	assert.Equal(t, "job 0b5d: not found", err.Error())
	assert.True(t, IsNotFoundError(err))
	assert.False(t, IsNotFoundError(nil))
	assert.False(t, IsNotFoundError(New("other")))
}

func TestInvalidRequest(t *testing.T) {
	assert.True(t, IsInvalidRequestError(NewInvalidRequestError("bad")))
	assert.False(t, IsInvalidRequestError(ErrNotFound))
}

func TestWithHint(t *testing.T) {
	err := WithHint(ErrJobsInFlight, "wait for running jobs to finish")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, "wait for running jobs to finish", hints[0])
	assert.True(t, Is(err, ErrJobsInFlight))
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")

	detailed := fmt.Sprintf("%+v", err)
	assert.Contains(t, detailed, "errors_test.go")
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
	assert.Nil(t, WithStack(nil))
	assert.Nil(t, WithHint(nil, "hint"))
}

func ExampleWrap() {
	err := Wrap(ErrRegistry, "failed to add job to registry")
	fmt.Println(err)
	// Output: failed to add job to registry: registry failure
}
