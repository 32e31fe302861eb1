package server

import (
	"math"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/teranos/longrun/logger"
	"github.com/teranos/longrun/pulse/job"
	"github.com/teranos/longrun/pulse/longrun"
	"github.com/teranos/longrun/pulse/timed"
	"github.com/teranos/longrun/version"
)

// HandleRun starts a batch of jobs (POST /api/jobs)
func (s *Server) HandleRun(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = shortID(uuid.NewString())
	}
	log := logger.FromContext(logger.WithRequestID(r.Context(), requestID), s.logger)

	if s.limiter != nil {
		if res := s.limiter.Reserve(); res.Delay() > 0 {
			res.Cancel()
			log.Debugw("Run throttled", "retry_after", res.Delay().String())
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(res.Delay().Seconds()))))
			writeError(w, http.StatusTooManyRequests, "Too many run requests")
			return
		}
	}

	var params longrun.Parameters
	if err := readJSON(w, r, &params); err != nil {
		return
	}

	set, err := s.svc.Run(r.Context(), params)
	if err != nil {
		log.Debugw("Run rejected", logger.FieldError, err.Error())
		writeServiceError(w, err)
		return
	}
	log.Debugw("Run accepted", logger.FieldCount, set.Len())

	now := s.svc.Now()
	resp := RunResponse{Jobs: make([]JobView, 0, set.Len())}
	for _, j := range set.Jobs() {
		resp.Jobs = append(resp.Jobs, jobView(j, j.DeriveStatus(now)))
	}
	_ = writeJSON(w, http.StatusAccepted, resp)
}

func jobView(j *timed.Job, status job.Status) JobView {
	iv := j.Interval()
	return JobView{
		ID:          j.ID().String(),
		Name:        j.Name(),
		Description: j.Description(),
		Kind:        j.Kind(),
		Status:      status,
		Registered:  j.Registered(),
		Start:       iv.Start,
		End:         iv.End,
		Duration:    iv.Duration,
	}
}

// HandleStatus reports the derived status of one job (GET /api/jobs/{id})
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	status, err := s.svc.Status(r.Context(), id)
	resp := StatusResponse{ID: id.String(), Status: status}
	if err != nil {
		resp.Error = err.Error()
		_ = writeJSON(w, httpStatus(err), resp)
		return
	}
	_ = writeJSON(w, http.StatusOK, resp)
}

// HandleResults returns when a job ran (GET /api/jobs/{id}/results)
func (s *Server) HandleResults(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	resources, err := s.svc.Results(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, ResultsResponse{ID: id.String(), Resources: resources})
}

// HandleService describes the service (GET) or closes it (DELETE /api/service)
func (s *Server) HandleService(w http.ResponseWriter, r *http.Request) {
	if !requireMethods(w, r, http.MethodGet, http.MethodDelete) {
		return
	}

	if r.Method == http.MethodDelete {
		if err := s.svc.Close(r.Context()); err != nil {
			logger.AddPulseSymbol(s.logger).Infow("Close refused", logger.FieldError, err.Error())
			writeServiceError(w, err)
			return
		}
	}

	sets := s.svc.Sets()
	jobs := 0
	for _, set := range sets {
		jobs += set.Len()
	}
	_ = writeJSON(w, http.StatusOK, ServiceResponse{
		Metadata: s.svc.Metadata(),
		Closed:   s.svc.Closed(),
		Sets:     len(sets),
		Jobs:     jobs,
	})
}

// HandleParameters lists the parameters a run request accepts
func (s *Server) HandleParameters(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	_ = writeJSON(w, http.StatusOK, s.svc.ParameterDescriptions())
}

// HandleHealth reports liveness
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	_ = writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		State:   s.getState().String(),
		Version: version.Get().Short(),
	})
}
