package job

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/longrun/errors"
)

// Job is the capability every job variant provides.
//
// ARCHITECTURE: closed set of variants behind one interface
// - Variants embed Base for identity, display strings and the cached status
// - Kind() names the variant and selects its decoder in Kinds
// - Callers (registry, service shell) only ever see this interface
type Job interface {
	ID() uuid.UUID
	Name() string
	Description() string
	Kind() string

	// Start stamps the job's interval at now. Called at most once.
	Start(now time.Time)

	// DeriveStatus recomputes the status at now and refreshes the cached value.
	DeriveStatus(now time.Time) Status

	// CachedStatus returns the last computed or recorded status without recomputing.
	CachedStatus() Status

	// Registered reports whether the job was recorded in the jobs registry.
	Registered() bool
	SetRegistered(registered bool)

	// ToRecord converts the job into its durable document.
	ToRecord() (Record, error)
}

// Reconciler updates the jobs registry when a freshly derived status contradicts
// the status a record was persisted with.
type Reconciler interface {
	Reconcile(ctx context.Context, j Job, recorded Status) (bool, error)
}

// Env carries what a decoder needs to rebuild a job owned by a service.
// It is passed explicitly into every decode; nothing is reached through globals.
type Env struct {
	// Service is the name of the owning service
	Service string
	// Clock reads the wall clock used to re-derive status
	Clock Clock
	// Reconciler is notified when a loaded job's status changed since it was stored.
	// May be nil, in which case no reconciliation happens.
	Reconciler Reconciler
}

// Now reads the environment's clock, falling back to the system clock.
func (e Env) Now() time.Time {
	if e.Clock == nil {
		return SystemClock()
	}
	return e.Clock()
}

// Base holds the fields every job variant shares.
// Variants embed it and add their own state.
type Base struct {
	id          uuid.UUID
	name        string
	description string
	kind        string
	service     string
	status      Status
}

// NewBase creates the shared part of a job in the idle state.
func NewBase(id uuid.UUID, kind, service, name, description string) Base {
	return Base{
		id:          id,
		name:        name,
		description: description,
		kind:        kind,
		service:     service,
		status:      StatusIdle,
	}
}

func (b *Base) ID() uuid.UUID        { return b.id }
func (b *Base) Name() string         { return b.name }
func (b *Base) Description() string  { return b.description }
func (b *Base) Kind() string         { return b.kind }
func (b *Base) Service() string      { return b.service }
func (b *Base) CachedStatus() Status { return b.status }

// SetStatus replaces the cached status.
func (b *Base) SetStatus(s Status) {
	b.status = s
}

// SetService names the owning service. Decoders use it for records that predate
// the service_name field.
func (b *Base) SetService(name string) {
	b.service = name
}

// BaseRecord returns the document holding the shared fields.
func (b *Base) BaseRecord() Record {
	rec := Record{
		KeyID:     b.id.String(),
		KeyName:   b.name,
		KeyKind:   b.kind,
		KeyStatus: string(b.status),
	}
	if b.description != "" {
		rec[KeyDescription] = b.description
	}
	if b.service != "" {
		rec[KeyService] = b.service
	}
	return rec
}

// InitFromRecord fills the shared fields from a durable document.
// kind is the variant's own tag; a record of another kind is rejected.
func (b *Base) InitFromRecord(rec Record, kind string) error {
	idStr, ok := rec.String(KeyID)
	if !ok {
		return errors.NewMalformedRecordError("missing %q", KeyID)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return errors.Wrapf(errors.Mark(err, errors.ErrMalformedRecord), "invalid %q %q", KeyID, idStr)
	}

	recKind, ok := rec.String(KeyKind)
	if !ok {
		return errors.NewMalformedRecordError("job %s: missing %q", id, KeyKind)
	}
	if recKind != kind {
		return errors.NewMalformedRecordError("job %s: kind %q is not %q", id, recKind, kind)
	}

	name, ok := rec.String(KeyName)
	if !ok {
		return errors.NewMalformedRecordError("job %s: missing %q", id, KeyName)
	}

	statusStr, ok := rec.String(KeyStatus)
	if !ok || !IsValidStatus(statusStr) {
		return errors.NewMalformedRecordError("job %s: invalid %q %q", id, KeyStatus, statusStr)
	}

	description, _ := rec.String(KeyDescription)
	service, _ := rec.String(KeyService)

	*b = Base{
		id:          id,
		name:        name,
		description: description,
		kind:        recKind,
		service:     service,
		status:      Status(statusStr),
	}
	return nil
}
