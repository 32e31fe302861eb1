package job

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/teranos/longrun/errors"
)

// Keys of the shared part of a durable record.
const (
	KeyID          = "job_uuid"
	KeyName        = "name"
	KeyDescription = "description"
	KeyKind        = "job_type"
	KeyService     = "service_name"
	KeyStatus      = "status"
)

// recordTerminator ends the byte form stored in the registry.
const recordTerminator byte = 0

// Record is the structured document a job is persisted as.
type Record map[string]interface{}

// String returns the string at key.
func (r Record) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// Bool returns the boolean at key.
func (r Record) Bool(key string) (bool, bool) {
	b, ok := r[key].(bool)
	return b, ok
}

// Int64 returns the integer at key. Non-integral numbers are rejected.
func (r Record) Int64(key string) (int64, bool) {
	switch v := r[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int64(v), true
	default:
		return 0, false
	}
}

// Encode serialises a record to the registry byte form: indented JSON
// followed by a single terminator byte.
func Encode(rec Record) ([]byte, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal job record")
	}
	return append(data, recordTerminator), nil
}

// Decode parses the registry byte form. The terminator byte is optional.
func Decode(data []byte) (Record, error) {
	data = bytes.TrimRight(data, "\x00")

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrMalformedRecord), "failed to unmarshal job record")
	}
	if rec == nil {
		return nil, errors.NewMalformedRecordError("job record is null")
	}
	return rec, nil
}
