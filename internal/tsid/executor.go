package tsid

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/tsi/internal/metrics"
	"github.com/GoSim-25-26J-441/tsi/pkg/logger"
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrRunTerminal  = errors.New("run is terminal")
	ErrRunIDMissing = errors.New("run_id is required")
)

// RunExecutor runs optimizations in the background and owns their
// cancellation.
type RunExecutor struct {
	store    *RunStore
	service  *Service
	notifier *Notifier

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunExecutor creates an executor. notifier may be nil.
func NewRunExecutor(store *RunStore, service *Service, notifier *Notifier) *RunExecutor {
	return &RunExecutor{
		store:    store,
		service:  service,
		notifier: notifier,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Submit creates a run for req and starts it.
func (e *RunExecutor) Submit(runID string, req OptimizeRequest) (RunRecord, error) {
	if req.CallbackURL != "" {
		if err := ValidateCallbackURL(req.CallbackURL); err != nil {
			return RunRecord{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	if err := e.service.Validate(req); err != nil {
		return RunRecord{}, err
	}
	rec, err := e.store.Create(runID, req)
	if err != nil {
		return RunRecord{}, err
	}
	logger.Info("run created", "run_id", rec.ID)
	metrics.RecordRunSubmitted(e.service.Metrics())
	return e.Start(rec.ID)
}

// Start begins executing a pending run.
// Returns the updated run state (running) or an error.
func (e *RunExecutor) Start(runID string) (RunRecord, error) {
	if runID == "" {
		return RunRecord{}, ErrRunIDMissing
	}

	rec, ok := e.store.Get(runID)
	if !ok {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	switch {
	case rec.Status == StatusRunning:
		return rec, nil
	case rec.Status.Terminal():
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}

	updated, err := e.store.SetStatus(runID, StatusRunning, "")
	if err != nil {
		return RunRecord{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	if old, exists := e.cancels[runID]; exists {
		old()
	}
	e.cancels[runID] = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go e.run(ctx, updated)
	return updated, nil
}

// Stop cancels a run and marks it cancelled.
func (e *RunExecutor) Stop(runID string) (RunRecord, error) {
	if runID == "" {
		return RunRecord{}, ErrRunIDMissing
	}

	e.mu.Lock()
	cancel, ok := e.cancels[runID]
	e.mu.Unlock()
	if ok {
		cancel()
	}

	updated, err := e.store.Fail(runID, context.Canceled)
	if err != nil {
		return RunRecord{}, err
	}
	logger.Info("run cancelled", "run_id", runID)
	e.finished(updated)
	e.notify(updated)
	return updated, nil
}

// Shutdown cancels every active run and waits for them to finish or for
// ctx to expire.
func (e *RunExecutor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	for _, cancel := range e.cancels {
		cancel()
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *RunExecutor) cleanup(runID string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[runID]; ok {
		cancel()
		delete(e.cancels, runID)
	}
	e.mu.Unlock()
}

func (e *RunExecutor) run(ctx context.Context, rec RunRecord) {
	defer e.wg.Done()
	defer e.cleanup(rec.ID)

	logger.Info("run started", "run_id", rec.ID)
	start := time.Now()
	doc, err := e.service.Optimize(ctx, rec.Request, func(percent float64) {
		e.store.SetProgress(rec.ID, percent)
	})
	metrics.RecordOptimize(e.service.Metrics(), "run", time.Since(start), outcome(err))

	var (
		final RunRecord
		serr  error
	)
	if err != nil {
		final, serr = e.store.Fail(rec.ID, err)
		if serr == nil {
			logger.Info("run failed", "run_id", rec.ID, "kind", final.ErrorKind, "error", err)
		}
	} else {
		final, serr = e.store.Complete(rec.ID, doc)
		if serr == nil {
			logger.Info("run completed",
				"run_id", rec.ID,
				"total_mass_kg", doc.TotalMassKg,
				"stages", len(doc.Stages),
				"optimizer", doc.Metadata.Optimizer)
		}
	}
	if serr != nil {
		// Stopped while finishing; Stop already recorded and notified.
		logger.Debug("run result discarded", "run_id", rec.ID, "reason", serr)
		return
	}
	e.finished(final)
	e.notify(final)
}

// finished records a terminal run.
func (e *RunExecutor) finished(rec RunRecord) {
	from := rec.CreatedAt
	if rec.StartedAt != nil {
		from = *rec.StartedAt
	}
	to := time.Now()
	if rec.EndedAt != nil {
		to = *rec.EndedAt
	}
	metrics.RecordRunFinished(e.service.Metrics(), string(rec.Status), to.Sub(from))
}

func (e *RunExecutor) notify(rec RunRecord) {
	if e.notifier == nil || rec.Request.CallbackURL == "" {
		return
	}
	e.notifier.Notify(rec.Request.CallbackURL, rec)
}
