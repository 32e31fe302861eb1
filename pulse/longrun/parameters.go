package longrun

import (
	"github.com/teranos/longrun/errors"
)

// Parameter names as clients send them.
const (
	ParamNumberOfJobs = "number_of_jobs"
	ParamMinDuration  = "min_duration"
)

// Built-in defaults, overridable through configuration.
const (
	DefaultNumberOfJobs    uint32 = 3
	DefaultMinDuration     int32  = 1
	DefaultMaxNumberOfJobs uint32 = 1000
)

// Parameters are the run-time inputs of a run request.
// NumberOfJobs is required; MinDuration falls back to the configured default.
type Parameters struct {
	NumberOfJobs *uint32 `json:"number_of_jobs"`
	MinDuration  *int32  `json:"min_duration,omitempty"`
}

// Validate checks that the required parameters are present and that no more
// than maxJobs jobs are requested. A maxJobs of 0 means DefaultMaxNumberOfJobs.
func (p Parameters) Validate(maxJobs uint32) error {
	if p.NumberOfJobs == nil {
		return errors.WithHint(
			errors.NewInvalidRequestError("missing parameter %q", ParamNumberOfJobs),
			"pass the number of jobs to run, e.g. {\"number_of_jobs\": 3}")
	}
	if maxJobs == 0 {
		maxJobs = DefaultMaxNumberOfJobs
	}
	if *p.NumberOfJobs > maxJobs {
		return errors.WithHintf(
			errors.NewInvalidRequestError("%s %d exceeds the limit of %d", ParamNumberOfJobs, *p.NumberOfJobs, maxJobs),
			"run at most %d jobs per request, or raise service.max_number_of_jobs", maxJobs)
	}
	return nil
}

// MinDurationOr returns the requested minimum duration, or def if none was given.
func (p Parameters) MinDurationOr(def int32) int32 {
	if p.MinDuration == nil {
		return def
	}
	return *p.MinDuration
}

// ParameterType names the value type of a parameter.
type ParameterType string

const (
	TypeUnsignedInt ParameterType = "unsigned_int"
	TypeSignedInt   ParameterType = "signed_int"
)

// ParameterDescription tells clients how to fill in a parameter.
type ParameterDescription struct {
	Name        string        `json:"name"`
	DisplayName string        `json:"display_name"`
	Description string        `json:"description"`
	Type        ParameterType `json:"type"`
	Required    bool          `json:"required"`
	Default     interface{}   `json:"default,omitempty"`
}

// ParameterDescriptions lists the parameters a run accepts, with the given defaults.
func ParameterDescriptions(defaultJobs uint32) []ParameterDescription {
	return []ParameterDescription{
		{
			Name:        ParamNumberOfJobs,
			DisplayName: "Number of jobs",
			Description: "Number of jobs to run",
			Type:        TypeUnsignedInt,
			Required:    true,
			Default:     defaultJobs,
		},
		{
			Name:        ParamMinDuration,
			DisplayName: "Minimum time",
			Description: "Minimum duration of each job",
			Type:        TypeSignedInt,
		},
	}
}
