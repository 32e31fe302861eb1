package job

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/longrun/errors"
)

func TestKindsRegister(t *testing.T) {
	kinds := NewKinds()
	assert.False(t, kinds.Has(stubKind))

	kinds.Register(stubKind, decodeStub)
	assert.True(t, kinds.Has(stubKind))
	assert.Equal(t, []string{stubKind}, kinds.Names())

	assert.Panics(t, func() { kinds.Register(stubKind, decodeStub) })
}

func TestKindsNamesSorted(t *testing.T) {
	kinds := NewKinds()
	kinds.Register("zeta", decodeStub)
	kinds.Register("alpha", decodeStub)
	kinds.Register(stubKind, decodeStub)

	assert.Equal(t, []string{"alpha", stubKind, "zeta"}, kinds.Names())
}

func TestKindsFromBytesDispatches(t *testing.T) {
	kinds := NewKinds()
	kinds.Register(stubKind, decodeStub)

	orig := &stubJob{Base: NewBase(uuid.New(), stubKind, "svc", "job 2", "duration 3")}
	rec, err := orig.ToRecord()
	require.NoError(t, err)
	data, err := Encode(rec)
	require.NoError(t, err)

	j, err := kinds.FromBytes(context.Background(), data, Env{Service: "svc"})
	require.NoError(t, err)
	require.IsType(t, &stubJob{}, j)
	assert.Equal(t, orig.ID(), j.ID())
	assert.Equal(t, "job 2", j.Name())
	assert.Equal(t, stubKind, j.Kind())
}

func TestKindsFromRecordRejectsUnknownKind(t *testing.T) {
	kinds := NewKinds()
	kinds.Register(stubKind, decodeStub)

	tests := []struct {
		name string
		rec  Record
	}{
		{"missing kind", Record{KeyID: uuid.NewString(), KeyName: "job 0"}},
		{"unregistered kind", Record{KeyID: uuid.NewString(), KeyName: "job 0", KeyKind: "cron job"}},
		{"kind not a string", Record{KeyID: uuid.NewString(), KeyName: "job 0", KeyKind: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := kinds.FromRecord(context.Background(), tt.rec, Env{})
			require.Error(t, err)
			assert.Nil(t, j)
			assert.True(t, errors.Is(err, errors.ErrMalformedRecord), "got %v", err)
		})
	}
}

func TestKindsFromBytesRejectsGarbage(t *testing.T) {
	kinds := NewKinds()
	kinds.Register(stubKind, decodeStub)

	j, err := kinds.FromBytes(context.Background(), []byte("{\x00"), Env{})
	require.Error(t, err)
	assert.Nil(t, j)
	assert.True(t, errors.Is(err, errors.ErrMalformedRecord))
}
