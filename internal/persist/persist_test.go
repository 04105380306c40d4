package persist

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jd-annotator/internal/clock"
	"github.com/jonathan/jd-annotator/internal/types"
)

type fakeSaver struct {
	mu    sync.Mutex
	docs  []*types.Document
	err   error
	onRun func()
}

func (f *fakeSaver) SaveAnnotations(_ context.Context, _ string, doc *types.Document) error {
	if f.onRun != nil {
		f.onRun()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, doc)
	return f.err
}

func (f *fakeSaver) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

type fakeSender struct {
	calls   []types.FeedbackPayload
	failFor int
}

func (f *fakeSender) CaptureFeedback(_ context.Context, _ string, p types.FeedbackPayload) error {
	f.calls = append(f.calls, p)
	if len(f.calls) <= f.failFor {
		return errors.New("learning service unavailable")
	}
	return nil
}

func newTestScheduler(saver Saver, snapshot SnapshotFunc) (*Scheduler, *clock.Manual, *[]State) {
	m := clock.NewManual(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	var states []State
	s := NewScheduler(SchedulerConfig{
		JobID:         "job-1",
		Clock:         m,
		Logger:        log.New(&bytes.Buffer{}, "", 0),
		OnStateChange: func(st State) { states = append(states, st) },
	}, saver, snapshot)
	return s, m, &states
}

func docWith(n int) *types.Document {
	doc := types.NewDocument()
	for i := 0; i < n; i++ {
		doc.Annotations = append(doc.Annotations, types.Annotation{ID: string(rune('a' + i))})
	}
	return doc
}

func TestScheduler_DebounceCoalesces(t *testing.T) {
	saver := &fakeSaver{}
	current := 0
	s, m, states := newTestScheduler(saver, func() *types.Document { return docWith(current) })

	for i := 1; i <= 5; i++ {
		current = i
		s.MarkDirty()
		m.Advance(200 * time.Millisecond)
	}
	assert.Equal(t, 0, saver.calls())
	assert.Equal(t, StateUnsaved, s.State())

	m.Advance(DefaultDebounce)
	require.Equal(t, 1, saver.calls())
	assert.Len(t, saver.docs[0].Annotations, 5, "payload reflects the final state")
	assert.Equal(t, StateSaved, s.State())
	assert.Equal(t, []State{StateUnsaved, StateSaving, StateSaved}, *states)
}

func TestScheduler_FailureKeepsDataAndRetries(t *testing.T) {
	saver := &fakeSaver{err: errors.New("503 from backend")}
	s, m, _ := newTestScheduler(saver, func() *types.Document { return docWith(2) })

	s.MarkDirty()
	m.Advance(DefaultDebounce)
	assert.Equal(t, StateError, s.State())
	assert.ErrorContains(t, s.LastError(), "503")

	saver.err = nil
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, StateSaved, s.State())
	assert.Nil(t, s.LastError())
	assert.Equal(t, 2, saver.calls())
	assert.Len(t, saver.docs[1].Annotations, 2)
}

func TestScheduler_NextEditRetriesAfterError(t *testing.T) {
	saver := &fakeSaver{err: errors.New("timeout")}
	s, m, _ := newTestScheduler(saver, func() *types.Document { return docWith(1) })

	s.MarkDirty()
	m.Advance(DefaultDebounce)
	require.Equal(t, StateError, s.State())

	saver.err = nil
	s.MarkDirty()
	assert.Equal(t, StateUnsaved, s.State())
	m.Advance(DefaultDebounce)
	assert.Equal(t, StateSaved, s.State())
}

func TestScheduler_MutationDuringSaveStaysUnsaved(t *testing.T) {
	saver := &fakeSaver{}
	s, m, _ := newTestScheduler(saver, func() *types.Document { return docWith(1) })
	saver.onRun = func() {
		saver.onRun = nil
		s.MarkDirty()
	}

	s.MarkDirty()
	m.Advance(DefaultDebounce)
	assert.Equal(t, StateUnsaved, s.State())

	m.Advance(DefaultDebounce)
	assert.Equal(t, StateSaved, s.State())
	assert.Equal(t, 2, saver.calls())
}

func TestScheduler_StopCancelsTimer(t *testing.T) {
	saver := &fakeSaver{}
	s, m, _ := newTestScheduler(saver, func() *types.Document { return docWith(1) })

	s.MarkDirty()
	s.Stop()
	m.Advance(10 * DefaultDebounce)

	assert.Equal(t, 0, saver.calls())
	assert.Equal(t, 0, m.Pending())
	s.MarkDirty()
	assert.Equal(t, 0, m.Pending())
	assert.Error(t, s.Flush(context.Background()))
}

func newTestCapturer(sender FeedbackSender) (*FeedbackCapturer, *clock.Manual, *bytes.Buffer) {
	m := clock.NewManual(time.Time{})
	buf := &bytes.Buffer{}
	f := NewFeedbackCapturer(FeedbackConfig{
		JobID:     "job-1",
		BaseDelay: 100 * time.Millisecond,
		Clock:     m,
		Logger:    log.New(buf, "", 0),
	}, sender)
	return f, m, buf
}

func payload() types.FeedbackPayload {
	return types.FeedbackPayload{AnnotationID: "a1", Action: types.FeedbackSave}
}

func TestFeedback_IsNonBlocking(t *testing.T) {
	sender := &fakeSender{}
	f, m, _ := newTestCapturer(sender)

	f.Capture(payload())
	assert.Empty(t, sender.calls)
	assert.Equal(t, 1, f.Pending())

	m.Advance(0)
	assert.Len(t, sender.calls, 1)
	assert.Equal(t, 0, f.Pending())
}

func TestFeedback_ExponentialBackoff(t *testing.T) {
	sender := &fakeSender{failFor: 2}
	f, m, _ := newTestCapturer(sender)

	f.Capture(payload())
	m.Advance(0)
	assert.Len(t, sender.calls, 1)

	m.Advance(99 * time.Millisecond)
	assert.Len(t, sender.calls, 1)
	m.Advance(time.Millisecond)
	assert.Len(t, sender.calls, 2)

	m.Advance(199 * time.Millisecond)
	assert.Len(t, sender.calls, 2)
	m.Advance(time.Millisecond)
	assert.Len(t, sender.calls, 3)
	assert.Equal(t, 0, f.Pending())
}

func TestFeedback_GivesUpAfterMaxAttempts(t *testing.T) {
	sender := &fakeSender{failFor: 10}
	f, m, buf := newTestCapturer(sender)

	f.Capture(payload())
	m.Advance(time.Minute)

	assert.Len(t, sender.calls, DefaultFeedbackMaxAttempts)
	assert.Contains(t, buf.String(), "giving up")
	assert.Equal(t, 0, f.Pending())
}

func TestFeedback_StopCancelsRetries(t *testing.T) {
	sender := &fakeSender{failFor: 10}
	f, m, _ := newTestCapturer(sender)

	f.Capture(payload())
	m.Advance(0)
	require.Equal(t, 1, f.Pending())

	f.Stop()
	m.Advance(time.Minute)
	assert.Len(t, sender.calls, 1)

	f.Capture(payload())
	assert.Equal(t, 0, f.Pending())
}

func TestFeedback_WaitReturnsWhenRetriesFinish(t *testing.T) {
	sender := &fakeSender{failFor: 1}
	f, m, _ := newTestCapturer(sender)

	assert.NoError(t, f.Wait(context.Background()), "nothing queued")

	f.Capture(payload())
	m.Advance(0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.Wait(ctx), context.DeadlineExceeded, "retry still queued")

	m.Advance(100 * time.Millisecond)
	assert.Len(t, sender.calls, 2)
	assert.NoError(t, f.Wait(context.Background()))
}

func TestFeedback_WaitReturnsAfterStop(t *testing.T) {
	sender := &fakeSender{}
	f, _, _ := newTestCapturer(sender)

	f.Capture(payload())
	f.Capture(payload())
	f.Stop()

	assert.NoError(t, f.Wait(context.Background()))
	assert.Empty(t, sender.calls)
}
