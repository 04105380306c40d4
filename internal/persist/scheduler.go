// Package persist debounces annotation saves and captures suggestion feedback.
package persist

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jonathan/jd-annotator/internal/clock"
	"github.com/jonathan/jd-annotator/internal/types"
)

// DefaultDebounce is the quiet period before a save is issued.
const DefaultDebounce = 1000 * time.Millisecond

// DefaultSaveTimeout bounds a single save call.
const DefaultSaveTimeout = 30 * time.Second

// State is the save state shown to the user.
type State string

// Save states.
const (
	StateSaved   State = "saved"
	StateUnsaved State = "unsaved"
	StateSaving  State = "saving"
	StateError   State = "error"
)

// Saver persists a full annotation document.
type Saver interface {
	SaveAnnotations(ctx context.Context, jobID string, doc *types.Document) error
}

// SnapshotFunc returns the document to save. It is called when the save starts,
// so the payload always reflects the latest state.
type SnapshotFunc func() *types.Document

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	JobID       string
	Debounce    time.Duration
	SaveTimeout time.Duration
	Clock       clock.Scheduler
	Logger      *log.Logger
	// OnStateChange, if set, is called after every transition without the scheduler lock held.
	OnStateChange func(State)
}

// Scheduler is a trailing-edge debounced saver.
// Every MarkDirty restarts the timer; only the last one in a burst leads to a save.
type Scheduler struct {
	cfg      SchedulerConfig
	saver    Saver
	snapshot SnapshotFunc

	mu       sync.Mutex
	state    State
	lastErr  error
	timer    clock.Task
	dirtyGen uint64
	stopped  bool
}

// NewScheduler creates a scheduler in the saved state.
func NewScheduler(cfg SchedulerConfig, saver Saver, snapshot SnapshotFunc) *Scheduler {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = DefaultSaveTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Scheduler{
		cfg:      cfg,
		saver:    saver,
		snapshot: snapshot,
		state:    StateSaved,
	}
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the error from the most recent failed save, if the scheduler is in the error state.
func (s *Scheduler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateError {
		return nil
	}
	return s.lastErr
}

// MarkDirty records a mutation and restarts the debounce timer.
func (s *Scheduler) MarkDirty() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.dirtyGen++
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.cfg.Clock.AfterFunc(s.cfg.Debounce, s.fire)
	changed := s.setStateLocked(StateUnsaved)
	s.mu.Unlock()

	s.notify(changed)
}

// Flush cancels any pending timer and saves immediately. It is also the manual retry path.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("scheduler stopped")
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	return s.save(ctx)
}

// Stop cancels the pending timer. Saves already in flight finish but no state changes follow.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	s.timer = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SaveTimeout)
	defer cancel()
	if err := s.save(ctx); err != nil {
		s.cfg.Logger.Printf("[persist] save failed for job %s: %v", s.cfg.JobID, err)
	}
}

func (s *Scheduler) save(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	gen := s.dirtyGen
	changed := s.setStateLocked(StateSaving)
	s.mu.Unlock()
	s.notify(changed)

	doc := s.snapshot()
	err := s.saver.SaveAnnotations(ctx, s.cfg.JobID, doc)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return err
	}
	if err != nil {
		s.lastErr = err
		changed = s.setStateLocked(StateError)
	} else if s.dirtyGen != gen {
		// A mutation landed while saving; its timer is already armed.
		changed = s.setStateLocked(StateUnsaved)
	} else {
		s.lastErr = nil
		changed = s.setStateLocked(StateSaved)
	}
	s.mu.Unlock()
	s.notify(changed)

	if err != nil {
		return fmt.Errorf("failed to save annotations: %w", err)
	}
	return nil
}

func (s *Scheduler) setStateLocked(st State) State {
	if s.state == st {
		return ""
	}
	s.state = st
	return st
}

func (s *Scheduler) notify(st State) {
	if st != "" && s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(st)
	}
}
