package tsid

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/GoSim-25-26J-441/tsi/internal/engine"
	"github.com/GoSim-25-26J-441/tsi/internal/metrics"
	"github.com/GoSim-25-26J-441/tsi/pkg/config"
	"github.com/GoSim-25-26J-441/tsi/pkg/logger"
)

const (
	defaultProgressInterval = 250 * time.Millisecond
	wsWriteWait             = 5 * time.Second
	maxRequestBytes         = 1 << 20
	maxListLimit            = 1000
)

// ProgressEvent is one message on the run progress websocket.
type ProgressEvent struct {
	RunID    string    `json:"run_id"`
	Status   RunStatus `json:"status"`
	Progress float64   `json:"progress"`
	Error    string    `json:"error,omitempty"`
}

type HTTPServer struct {
	router   *mux.Router
	service  *Service
	store    *RunStore
	Executor *RunExecutor

	limiter          *rate.Limiter
	upgrader         websocket.Upgrader
	progressInterval time.Duration
}

// NewHTTPServer wires the REST and websocket routes. Run creation is limited
// to cfg.RunsPerSecond with bursts of cfg.RunBurst; a non-positive rate
// disables the limit.
func NewHTTPServer(service *Service, store *RunStore, executor *RunExecutor, cfg config.ServerConfig) *HTTPServer {
	limit := rate.Limit(cfg.RunsPerSecond)
	if cfg.RunsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RunBurst
	if burst < 1 {
		burst = 1
	}

	s := &HTTPServer{
		router:   mux.NewRouter(),
		service:  service,
		store:    store,
		Executor: executor,
		limiter:  rate.NewLimiter(limit, burst),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		progressInterval: defaultProgressInterval,
	}

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	api := s.router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/engines", s.handleListEngines).Methods(http.MethodGet)
	api.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	api.HandleFunc("/optimize", s.handleOptimize).Methods(http.MethodPost)
	api.Handle("/runs", s.limitRuns(http.HandlerFunc(s.handleCreateRun))).Methods(http.MethodPost)
	api.HandleFunc("/runs", s.handleListRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}/stop", s.handleStopRun).Methods(http.MethodPost)
	api.HandleFunc("/runs/{id}/progress", s.handleProgress).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func (s *HTTPServer) limitRuns(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.writeError(w, http.StatusTooManyRequests, "too many runs, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"engines":   s.service.Catalog().Len(),
	})
}

// handleListEngines handles GET /v1/engines?propellant=&name=
func (s *HTTPServer) handleListEngines(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	engines := s.service.Catalog().Filter(q.Get("propellant"), q.Get("name"))
	if engines == nil {
		engines = []engine.Engine{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"engines": engines,
		"count":   len(engines),
	})
}

// handleMetrics handles GET /v1/metrics
func (s *HTTPServer) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.Metrics().Summary())
}

// handleOptimize handles POST /v1/optimize. The solve runs on the request
// goroutine and stops if the client goes away.
func (s *HTTPServer) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	start := time.Now()
	doc, err := s.service.Optimize(r.Context(), req, nil)
	metrics.RecordOptimize(s.service.Metrics(), "http", time.Since(start), outcome(err))
	if err != nil {
		logger.Debug("optimize failed", "kind", errorKind(err), "error", err)
		s.writeOptimizeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

// handleCreateRun handles POST /v1/runs
func (s *HTTPServer) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RunID string           `json:"run_id,omitempty"`
		Input *OptimizeRequest `json:"input"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.Input == nil {
		s.writeError(w, http.StatusBadRequest, "input is required")
		return
	}

	rec, err := s.Executor.Submit(body.RunID, *body.Input)
	if err != nil {
		switch {
		case errors.Is(err, ErrRunExists):
			s.writeError(w, http.StatusConflict, err.Error())
		default:
			s.writeOptimizeError(w, err)
		}
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]any{"run": rec})
}

// handleListRuns handles GET /v1/runs?limit=&status=
func (s *HTTPServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = min(parsed, maxListLimit)
		}
	}

	var status RunStatus
	if v := r.URL.Query().Get("status"); v != "" {
		st, ok := ParseRunStatus(v)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown status: "+v)
			return
		}
		status = st
	}

	runs := s.store.List(limit, status)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleGetRun handles GET /v1/runs/{id}
func (s *HTTPServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.store.Get(mux.Vars(r)["id"])
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"run": rec})
}

// handleStopRun handles POST /v1/runs/{id}/stop
func (s *HTTPServer) handleStopRun(w http.ResponseWriter, r *http.Request) {
	updated, err := s.Executor.Stop(mux.Vars(r)["id"])
	if err != nil {
		switch {
		case errors.Is(err, ErrRunNotFound):
			s.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrRunTerminal):
			s.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, ErrRunIDMissing):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"run": updated})
}

// handleProgress handles GET /v1/runs/{id}/progress. It upgrades to a
// websocket, sends an event whenever status or progress changes and closes
// once the run is terminal.
func (s *HTTPServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]
	if _, ok := s.store.Get(runID); !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "run_id", runID, "error", err)
		return
	}
	defer conn.Close()

	// Reads only detect the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debug("progress stream read error", "run_id", runID, "error", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(s.progressInterval)
	defer ticker.Stop()

	var last *ProgressEvent
	for {
		rec, ok := s.store.Get(runID)
		if !ok {
			return
		}
		ev := ProgressEvent{RunID: rec.ID, Status: rec.Status, Progress: rec.Progress, Error: rec.Error}
		if last == nil || ev != *last {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
			last = &ev
		}
		if rec.Status.Terminal() {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(rec.Status))
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
			return
		}

		select {
		case <-gone:
			return
		case <-ticker.C:
		}
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}

func (s *HTTPServer) writeOptimizeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, httpStatus(err), map[string]any{
		"error": err.Error(),
		"kind":  errorKind(err),
	})
}
