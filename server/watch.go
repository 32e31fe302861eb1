package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teranos/longrun/logger"
	"github.com/teranos/longrun/pulse/job"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Watch clients only ever send control frames
	maxMessageSize = 512
)

// HandleWatch streams a job's derived status over a websocket
// (GET /api/jobs/{id}/watch). An event is sent on connect and on every change;
// the stream closes normally once the status is terminal.
func (s *Server) HandleWatch(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if s.getState() != ServerStateRunning {
		writeError(w, http.StatusServiceUnavailable, "Server is shutting down")
		return
	}
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	// Unknown jobs are refused before the upgrade so clients get a plain 404
	if _, err := s.svc.Lookup(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		s.logger.Debugw("Watch upgrade failed", logger.FieldJobID, id.String(), logger.FieldError, err)
		return
	}

	s.wg.Add(1)
	s.watchers.Add(1)
	defer func() {
		s.watchers.Add(-1)
		s.wg.Done()
	}()
	defer conn.Close()

	ctx := logger.WithComponent(logger.WithJobID(r.Context(), shortID(id.String())), "watch")
	log := logger.FromContext(ctx, s.logger)
	log.Debugw("Watch opened", "watchers", s.watchers.Load())

	// Reading is required to process close and ping frames
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(maxMessageSize)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.opts.WatchInterval)
	defer ticker.Stop()

	var last job.Status
	for {
		status, err := s.svc.Status(s.ctx, id)
		now := s.svc.Now().Unix()

		if err != nil {
			if s.ctx.Err() != nil {
				s.closeStream(conn, websocket.CloseGoingAway, "server shutting down")
				return
			}
			_ = s.send(conn, WatchEvent{ID: id.String(), Status: status, At: now, Error: err.Error()})
			s.closeStream(conn, websocket.CloseInternalServerErr, "status unavailable")
			log.Warnw("Watch ended on error", logger.FieldError, err)
			return
		}
		if status != last {
			if err := s.send(conn, WatchEvent{ID: id.String(), Status: status, At: now}); err != nil {
				log.Debugw("Watch client went away", logger.FieldError, err)
				return
			}
			last = status
		}

		if status.IsTerminal() {
			s.closeStream(conn, websocket.CloseNormalClosure, string(status))
			log.Debugw("Watch completed", logger.FieldStatus, status)
			return
		}

		select {
		case <-ticker.C:
		case <-gone:
			return
		case <-s.ctx.Done():
			s.closeStream(conn, websocket.CloseGoingAway, "server shutting down")
			return
		}
	}
}

func (s *Server) send(conn *websocket.Conn, ev WatchEvent) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(ev)
}

func (s *Server) closeStream(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
