package persist

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jonathan/jd-annotator/internal/clock"
	"github.com/jonathan/jd-annotator/internal/types"
)

// Feedback retry defaults.
const (
	DefaultFeedbackBaseDelay   = time.Second
	DefaultFeedbackMaxAttempts = 3
	DefaultFeedbackTimeout     = 10 * time.Second
)

// FeedbackSender delivers feedback payloads to the learning component.
type FeedbackSender interface {
	CaptureFeedback(ctx context.Context, jobID string, payload types.FeedbackPayload) error
}

// FeedbackConfig configures a FeedbackCapturer.
type FeedbackConfig struct {
	JobID       string
	BaseDelay   time.Duration
	MaxAttempts int
	Timeout     time.Duration
	Clock       clock.Scheduler
	Logger      *log.Logger
}

// FeedbackCapturer sends feedback in the background with exponential backoff.
// Failures are logged and never reported to the caller.
type FeedbackCapturer struct {
	cfg    FeedbackConfig
	sender FeedbackSender

	mu      sync.Mutex
	seq     uint64
	pending map[uint64]clock.Task
	stopped bool
	// outstanding counts attempts that are queued or running; idle is closed when it drops to zero.
	outstanding int
	idle        chan struct{}
}

// NewFeedbackCapturer creates a capturer.
func NewFeedbackCapturer(cfg FeedbackConfig, sender FeedbackSender) *FeedbackCapturer {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultFeedbackBaseDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultFeedbackMaxAttempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFeedbackTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &FeedbackCapturer{
		cfg:     cfg,
		sender:  sender,
		pending: make(map[uint64]clock.Task),
	}
}

// Capture queues payload for delivery and returns immediately.
func (f *FeedbackCapturer) Capture(payload types.FeedbackPayload) {
	f.schedule(payload, 0, 0)
}

// Pending returns the number of queued attempts.
func (f *FeedbackCapturer) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Wait blocks until every queued attempt, including retries, has finished or ctx ends.
func (f *FeedbackCapturer) Wait(ctx context.Context) error {
	f.mu.Lock()
	if f.outstanding == 0 {
		f.mu.Unlock()
		return nil
	}
	idle := f.idle
	f.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels every queued attempt.
func (f *FeedbackCapturer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	for id, task := range f.pending {
		if task.Stop() {
			f.finishLocked()
		}
		delete(f.pending, id)
	}
}

func (f *FeedbackCapturer) schedule(payload types.FeedbackPayload, attempt int, delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return
	}
	if f.outstanding == 0 {
		f.idle = make(chan struct{})
	}
	f.outstanding++
	f.seq++
	id := f.seq
	f.pending[id] = f.cfg.Clock.AfterFunc(delay, func() {
		defer f.finish()

		f.mu.Lock()
		_, live := f.pending[id]
		delete(f.pending, id)
		f.mu.Unlock()
		if live {
			f.attempt(payload, attempt)
		}
	})
}

func (f *FeedbackCapturer) finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishLocked()
}

func (f *FeedbackCapturer) finishLocked() {
	f.outstanding--
	if f.outstanding == 0 {
		close(f.idle)
	}
}

func (f *FeedbackCapturer) attempt(payload types.FeedbackPayload, attempt int) {
	ctx, cancel := context.WithTimeout(context.Background(), f.cfg.Timeout)
	defer cancel()

	err := f.sender.CaptureFeedback(ctx, f.cfg.JobID, payload)
	if err == nil {
		return
	}

	if attempt+1 >= f.cfg.MaxAttempts {
		f.cfg.Logger.Printf("[feedback] giving up on %s for annotation %s after %d attempts: %v",
			payload.Action, payload.AnnotationID, attempt+1, err)
		return
	}

	delay := f.cfg.BaseDelay * time.Duration(1<<attempt)
	f.cfg.Logger.Printf("[feedback] attempt %d for annotation %s failed, retrying in %v: %v",
		attempt+1, payload.AnnotationID, delay, err)
	f.schedule(payload, attempt+1, delay)
}
