package server

import (
	"github.com/teranos/longrun/pulse/job"
	"github.com/teranos/longrun/pulse/longrun"
)

// ServerState tracks the server lifecycle
type ServerState int32

const (
	ServerStateRunning  ServerState = iota // Normal operation
	ServerStateDraining                    // Graceful shutdown in progress
	ServerStateStopped                     // Shutdown complete
)

func (s ServerState) String() string {
	switch s {
	case ServerStateRunning:
		return "running"
	case ServerStateDraining:
		return "draining"
	case ServerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// JobView is the wire form of a job
type JobView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Kind        string     `json:"kind"`
	Status      job.Status `json:"status"`
	Registered  bool       `json:"registered"`
	Start       int64      `json:"start"`
	End         int64      `json:"end"`
	Duration    int64      `json:"duration"`
}

// RunResponse answers POST /api/jobs
type RunResponse struct {
	Jobs []JobView `json:"jobs"`
}

// StatusResponse answers GET /api/jobs/{id}
type StatusResponse struct {
	ID     string     `json:"id"`
	Status job.Status `json:"status"`
	Error  string     `json:"error,omitempty"`
}

// ResultsResponse answers GET /api/jobs/{id}/results
type ResultsResponse struct {
	ID        string             `json:"id"`
	Resources []longrun.Resource `json:"resources"`
}

// WatchEvent is sent over /api/jobs/{id}/watch each time the derived status changes
type WatchEvent struct {
	ID     string     `json:"id"`
	Status job.Status `json:"status"`
	At     int64      `json:"at"`
	Error  string     `json:"error,omitempty"`
}

// ServiceResponse answers GET /api/service
type ServiceResponse struct {
	longrun.Metadata
	Closed bool `json:"closed"`
	Sets   int  `json:"sets"`
	Jobs   int  `json:"jobs"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// HealthResponse answers GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	State   string `json:"state"`
	Version string `json:"version"`
}
