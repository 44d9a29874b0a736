package tsid

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/tsi/internal/report"
	"github.com/GoSim-25-26J-441/tsi/pkg/utils"
)

// RunStatus is the lifecycle state of a background optimization.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether no further transitions can happen.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ParseRunStatus accepts a status name in any case. Empty matches nothing.
func ParseRunStatus(s string) (RunStatus, bool) {
	switch st := RunStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return st, true
	default:
		return "", false
	}
}

// ErrRunExists is returned when a caller-supplied run id is taken.
var ErrRunExists = errors.New("run already exists")

// RunRecord is a snapshot of one run. The store hands out copies.
type RunRecord struct {
	ID        string                   `json:"id"`
	Status    RunStatus                `json:"status"`
	Progress  float64                  `json:"progress"`
	CreatedAt time.Time                `json:"created_at"`
	StartedAt *time.Time               `json:"started_at,omitempty"`
	EndedAt   *time.Time               `json:"ended_at,omitempty"`
	Request   OptimizeRequest          `json:"request"`
	Result    *report.SolutionDocument `json:"result,omitempty"`
	Error     string                   `json:"error,omitempty"`
	ErrorKind string                   `json:"error_kind,omitempty"`
}

// RunStore keeps run records in memory.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*RunRecord
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*RunRecord),
	}
}

func (s *RunStore) Create(runID string, req OptimizeRequest) (RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if runID == "" {
		runID = utils.GenerateRunID()
	}
	if _, exists := s.runs[runID]; exists {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunExists, runID)
	}

	rec := &RunRecord{
		ID:        runID,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
		Request:   req,
	}
	s.runs[runID] = rec
	return *rec, nil
}

func (s *RunStore) Get(runID string) (RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	if !ok {
		return RunRecord{}, false
	}
	return *rec, true
}

// List returns up to limit runs, newest first. An empty status matches all.
func (s *RunStore) List(limit int, status RunStatus) []RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	out := make([]RunRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		if status != "" && rec.Status != status {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SetStatus moves a run to status and stamps start and end times. Terminal
// runs cannot change status.
func (s *RunStore) SetStatus(runID string, status RunStatus, errMsg string) (RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.transition(runID, status, errMsg)
	if err != nil {
		return RunRecord{}, err
	}
	return *rec, nil
}

func (s *RunStore) transition(runID string, status RunStatus, errMsg string) (*RunRecord, error) {
	rec, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if rec.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}
	now := time.Now().UTC()
	rec.Status = status
	rec.Error = errMsg
	if status == StatusRunning && rec.StartedAt == nil {
		rec.StartedAt = &now
	}
	if status.Terminal() {
		rec.EndedAt = &now
		if status == StatusCompleted {
			rec.Progress = 100
		}
	}
	return rec, nil
}

// SetProgress records a progress percentage. Progress never goes backwards.
func (s *RunStore) SetProgress(runID string, percent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.runs[runID]; ok && !rec.Status.Terminal() && percent > rec.Progress {
		rec.Progress = utils.ClampFloat64(percent, 0, 100)
	}
}

// Complete stores the result and marks the run completed.
func (s *RunStore) Complete(runID string, doc *report.SolutionDocument) (RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.transition(runID, StatusCompleted, "")
	if err != nil {
		return RunRecord{}, err
	}
	rec.Result = doc
	return *rec, nil
}

// Fail marks the run failed, or cancelled when err is a context error.
func (s *RunStore) Fail(runID string, err error) (RunRecord, error) {
	kind := errorKind(err)
	status := StatusFailed
	if kind == "cancelled" {
		status = StatusCancelled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, terr := s.transition(runID, status, err.Error())
	if terr != nil {
		return RunRecord{}, terr
	}
	rec.ErrorKind = kind
	return *rec, nil
}
