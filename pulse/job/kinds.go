package job

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/teranos/longrun/errors"
)

// Decoder rebuilds a job variant from its durable record.
type Decoder func(ctx context.Context, rec Record, env Env) (Job, error)

// Kinds maps job kind tags to the decoder of their variant.
// Thread-safe for concurrent registration and lookup.
type Kinds struct {
	decoders map[string]Decoder // Kind tag -> decoder
	mu       sync.RWMutex
}

// NewKinds creates an empty kind table.
func NewKinds() *Kinds {
	return &Kinds{
		decoders: make(map[string]Decoder),
	}
}

// Register adds the decoder for a kind tag.
// Panics if a decoder is already registered for that kind.
func (k *Kinds) Register(kind string, dec Decoder) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.decoders[kind]; exists {
		panic(fmt.Sprintf("decoder already registered for kind: %s", kind))
	}
	k.decoders[kind] = dec
}

// Has checks if a decoder is registered for a kind.
func (k *Kinds) Has(kind string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, exists := k.decoders[kind]
	return exists
}

// Names returns all registered kind tags, sorted.
func (k *Kinds) Names() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()

	names := make([]string, 0, len(k.decoders))
	for name := range k.decoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FromRecord dispatches on the record's kind tag.
func (k *Kinds) FromRecord(ctx context.Context, rec Record, env Env) (Job, error) {
	kind, ok := rec.String(KeyKind)
	if !ok {
		return nil, errors.NewMalformedRecordError("missing %q", KeyKind)
	}

	k.mu.RLock()
	dec := k.decoders[kind]
	k.mu.RUnlock()

	if dec == nil {
		return nil, errors.NewMalformedRecordError("no decoder registered for kind %q", kind)
	}
	return dec(ctx, rec, env)
}

// FromBytes decodes the registry byte form and dispatches on its kind tag.
func (k *Kinds) FromBytes(ctx context.Context, data []byte, env Env) (Job, error) {
	rec, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return k.FromRecord(ctx, rec, env)
}
