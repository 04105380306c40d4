// Package engine ties the annotation store, history, highlighter, scoring and
// persistence together behind a single editor-session API.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/jd-annotator/internal/annotations"
	"github.com/jonathan/jd-annotator/internal/clock"
	"github.com/jonathan/jd-annotator/internal/highlight"
	"github.com/jonathan/jd-annotator/internal/history"
	"github.com/jonathan/jd-annotator/internal/persist"
	"github.com/jonathan/jd-annotator/internal/scoring"
	"github.com/jonathan/jd-annotator/internal/segment"
	"github.com/jonathan/jd-annotator/internal/types"
)

// ErrClosed is returned by operations on an engine after Close.
var ErrClosed = errors.New("annotation engine is closed")

// ErrNoSession is returned when an operation needs an open edit session.
var ErrNoSession = errors.New("no annotation is being edited")

// Persistence is the remote store for one job's annotations.
type Persistence interface {
	LoadAnnotations(ctx context.Context, jobID string) (*types.Document, error)
	persist.Saver
	persist.FeedbackSender
}

// Config holds engine tunables.
type Config struct {
	JobID             string
	Debounce          time.Duration
	MaxHistory        int
	FeedbackBaseDelay time.Duration
	SectionTargets    []scoring.SectionTarget
	// CaptureManualCreates also sends manual_create feedback for user-made annotations.
	CaptureManualCreates bool
}

// Deps are the collaborators injected into an Engine.
type Deps struct {
	// Surface may be nil when the engine runs without a rendered view.
	Surface     highlight.RenderSurface
	Persistence Persistence
	Clock       clock.Scheduler
	Logger      *log.Logger
	// StoreOptions are passed to the annotation store, mainly for tests.
	StoreOptions []annotations.Option
}

// ToggleResult reports the outcome of a dimension toggle.
type ToggleResult struct {
	Dimensions types.Dimensions
	// Deleted is true when the toggle cleared the last dimension of an existing annotation.
	Deleted bool
}

// Engine is one editor session over one job's annotations.
// All exported methods are safe to call from multiple goroutines; they are serialized.
type Engine struct {
	cfg    Config
	logger *log.Logger

	mu            sync.Mutex
	store         *annotations.Store
	history       *history.Log
	surface       highlight.RenderSurface
	session       *annotations.EditSession
	settings      types.Settings
	processedHTML *string
	scores        scoring.Result
	applied       int
	closed        bool
	// captured holds suggestions whose save feedback was sent. History replay can
	// restore an older copy, so the flag is re-applied from here.
	captured map[string]bool

	persistence Persistence
	scheduler   *persist.Scheduler
	feedback    *persist.FeedbackCapturer
}

// New creates an engine. Call Load to populate it from the persistence layer.
func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Persistence == nil {
		return nil, fmt.Errorf("persistence is required")
	}
	if cfg.JobID == "" {
		return nil, fmt.Errorf("job id is required")
	}
	if cfg.SectionTargets == nil {
		cfg.SectionTargets = scoring.DefaultSectionTargets()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}

	e := &Engine{
		cfg:         cfg,
		logger:      deps.Logger,
		store:       annotations.NewStore(deps.StoreOptions...),
		history:     history.NewLog(cfg.MaxHistory),
		surface:     deps.Surface,
		settings:    types.DefaultSettings(),
		persistence: deps.Persistence,
		captured:    make(map[string]bool),
	}
	e.scheduler = persist.NewScheduler(persist.SchedulerConfig{
		JobID:    cfg.JobID,
		Debounce: cfg.Debounce,
		Clock:    deps.Clock,
		Logger:   deps.Logger,
	}, deps.Persistence, e.Document)
	e.feedback = persist.NewFeedbackCapturer(persist.FeedbackConfig{
		JobID:     cfg.JobID,
		BaseDelay: cfg.FeedbackBaseDelay,
		Clock:     deps.Clock,
		Logger:    deps.Logger,
	}, deps.Persistence)

	e.refreshLocked(true)
	return e, nil
}

// Load replaces the engine state with the persisted document. History is cleared.
func (e *Engine) Load(ctx context.Context) error {
	doc, err := e.persistence.LoadAnnotations(ctx, e.cfg.JobID)
	if err != nil {
		return fmt.Errorf("failed to load annotations for job %s: %w", e.cfg.JobID, err)
	}
	if doc == nil {
		doc = types.NewDocument()
	}
	return e.LoadDocument(doc)
}

// LoadDocument replaces the engine state with doc without contacting the persistence layer.
func (e *Engine) LoadDocument(doc *types.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	doc.Normalize()
	if err := e.store.Load(doc.Annotations); err != nil {
		return err
	}
	e.settings = doc.Settings
	e.processedHTML = doc.ProcessedJDHTML
	clear(e.captured)
	for _, a := range doc.Annotations {
		if a.FeedbackCaptured {
			e.captured[a.ID] = true
		}
	}
	e.session = nil
	e.history.Clear()
	e.refreshLocked(true)
	return nil
}

// Document snapshots the full persisted shape.
func (e *Engine) Document() *types.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return &types.Document{
		AnnotationVersion: types.DocumentVersion,
		ProcessedJDHTML:   e.processedHTML,
		Annotations:       e.store.All(),
		Settings:          e.settings,
	}
}

// SetProcessedHTML records the structured JD markup saved alongside the annotations.
func (e *Engine) SetProcessedHTML(markup string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.processedHTML = &markup
	e.scheduler.MarkDirty()
}

// UpdateSettings replaces the display settings and schedules a save.
func (e *Engine) UpdateSettings(s types.Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = s
	e.scheduler.MarkDirty()
}

// SelectSentence opens a new edit session for the sentence around offset in text.
func (e *Engine) SelectSentence(section, text string, offset int) (*annotations.EditSession, error) {
	bounds, ok := segment.FindSentenceBounds(text, offset)
	if !ok {
		return nil, &annotations.ValidationError{Field: "selection", Message: "no sentence at this position"}
	}
	sentence := bounds.Text(text)
	return e.BeginCreate(types.Target{
		Text:         sentence,
		OriginalText: sentence,
		Section:      section,
		CharStart:    bounds.Start,
		CharEnd:      bounds.End,
	})
}

// BeginCreate opens a session for a new annotation on target, replacing any open session.
func (e *Engine) BeginCreate(target types.Target) (*annotations.EditSession, error) {
	if len(strings.TrimSpace(target.Text)) < types.MinTargetTextLength {
		return nil, &annotations.ValidationError{
			Field:   "target.text",
			Message: fmt.Sprintf("must be at least %d characters", types.MinTargetTextLength),
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	e.session = annotations.NewSession(target, types.Dimensions{})
	return e.session, nil
}

// BeginEdit opens a session populated from the stored annotation id.
func (e *Engine) BeginEdit(id string) (*annotations.EditSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	return e.beginEditLocked(id)
}

func (e *Engine) beginEditLocked(id string) (*annotations.EditSession, error) {
	a, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	e.session = annotations.EditExisting(a)
	return e.session, nil
}

// Session returns the open edit session, or nil.
func (e *Engine) Session() *annotations.EditSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// ToggleDimension toggles a dimension on the pending annotation. id names the
// stored annotation being edited, or is empty for the new annotation in the open
// session. Clearing the last dimension of a stored annotation deletes it.
func (e *Engine) ToggleDimension(id string, dim types.Dimension, value string) (ToggleResult, error) {
	if err := types.ValidateDimensionValue(dim, value); err != nil {
		return ToggleResult{}, &annotations.ValidationError{Field: string(dim), Message: err.Error()}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ToggleResult{}, ErrClosed
	}

	switch {
	case id == "" && e.session == nil:
		return ToggleResult{}, ErrNoSession
	case id != "" && (e.session == nil || e.session.ExistingID() != id):
		if _, err := e.beginEditLocked(id); err != nil {
			return ToggleResult{}, err
		}
	}

	e.session.Toggle(dim, value)
	if !e.session.ShouldAutoDelete() {
		return ToggleResult{Dimensions: e.session.Dimensions()}, nil
	}

	if err := e.deleteLocked(e.session.ExistingID()); err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{Deleted: true}, nil
}

// SaveSession commits the open session, creating or updating the annotation.
func (e *Engine) SaveSession() (*types.Annotation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	if e.session == nil {
		return nil, ErrNoSession
	}
	if strings.TrimSpace(e.session.Target().Text) == "" {
		return nil, &annotations.ValidationError{Field: "target.text", Message: "must not be empty"}
	}
	if !e.session.Complete() {
		return nil, &annotations.ValidationError{Field: "dimensions", Message: "select at least one dimension"}
	}

	var saved *types.Annotation
	var err error
	if e.session.IsNew() {
		saved, err = e.createLocked(e.session.Draft())
	} else {
		saved, err = e.commitEditLocked(e.session)
	}
	if err != nil {
		return nil, err
	}

	e.session = nil
	e.mutatedLocked()
	return saved, nil
}

// CancelSession discards the open session.
func (e *Engine) CancelSession() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return
	}
	e.session = nil
	e.refreshLocked(true)
}

// Update merges patch into a stored annotation outside of an edit session.
func (e *Engine) Update(id string, patch annotations.Patch) (*types.Annotation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	a, err := e.updateLocked(id, patch)
	if err != nil {
		return nil, err
	}
	e.mutatedLocked()
	return a, nil
}

// Delete removes an annotation.
func (e *Engine) Delete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return e.deleteLocked(id)
}

// ToggleActive flips whether an annotation counts toward highlighting and scoring.
func (e *Engine) ToggleActive(id string) (*types.Annotation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	cur, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	active := !cur.IsActive
	a, err := e.updateLocked(id, annotations.Patch{IsActive: &active})
	if err != nil {
		return nil, err
	}
	e.mutatedLocked()
	return a, nil
}

// Approve marks an annotation approved.
func (e *Engine) Approve(id string) (*types.Annotation, error) {
	return e.setStatus(id, types.StatusApproved)
}

// Reject marks an annotation rejected.
func (e *Engine) Reject(id string) (*types.Annotation, error) {
	return e.setStatus(id, types.StatusRejected)
}

func (e *Engine) setStatus(id string, status types.Status) (*types.Annotation, error) {
	return e.Update(id, annotations.Patch{Status: &status})
}

// AddSuggestions stores auto-generated annotations. Suggestions below the
// confidence threshold or with unusable text are skipped and counted.
func (e *Engine) AddSuggestions(drafts []annotations.Draft) ([]*types.Annotation, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, 0, ErrClosed
	}

	var created []*types.Annotation
	skipped := 0
	for _, d := range drafts {
		d.Source = types.SourceAutoGenerated
		if d.OriginalValues != nil && d.OriginalValues.Confidence < e.settings.MinConfidenceThreshold {
			skipped++
			continue
		}
		a, err := e.store.Create(d)
		if err != nil {
			if annotations.IsValidation(err) {
				skipped++
				continue
			}
			return created, skipped, err
		}
		e.history.Push(history.Action{Type: history.ActionAdd, Annotation: a, Index: e.store.Len() - 1})
		created = append(created, a)
	}

	if len(created) > 0 {
		e.mutatedLocked()
	}
	return created, skipped, nil
}

// Undo reverts the last change. It returns nil when there is nothing to undo.
func (e *Engine) Undo() (*history.Action, error) {
	return e.replay(e.history.Undo)
}

// Redo re-applies the last undone change. It returns nil when there is nothing to redo.
func (e *Engine) Redo() (*history.Action, error) {
	return e.replay(e.history.Redo)
}

func (e *Engine) replay(step func(history.Store) (*history.Action, error)) (*history.Action, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	action, err := step(e.store)
	if err != nil || action == nil {
		return action, err
	}
	// The session may describe data that no longer matches the store.
	e.session = nil
	e.restoreCapturedLocked()
	e.mutatedLocked()
	return action, nil
}

// restoreCapturedLocked marks replayed copies of already-reported suggestions as captured.
func (e *Engine) restoreCapturedLocked() {
	for id := range e.captured {
		a, err := e.store.Get(id)
		if err != nil || a.FeedbackCaptured {
			continue
		}
		a.FeedbackCaptured = true
		if err := e.store.Replace(a); err != nil {
			e.logger.Printf("[engine] failed to restore feedback flag on %s: %v", id, err)
		}
	}
}

// CanUndo reports whether Undo would change anything.
func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanUndo()
}

// CanRedo reports whether Redo would change anything.
func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanRedo()
}

// Refresh re-applies highlights and recomputes scores. Highlighting is skipped
// while a session is open unless force is set.
func (e *Engine) Refresh(force bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshLocked(force)
}

// Annotations returns every annotation in insertion order.
func (e *Engine) Annotations() []types.Annotation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.All()
}

// Scores returns the most recently computed coverage and boost.
func (e *Engine) Scores() scoring.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scores
}

// Highlighted returns how many annotations the last highlight pass applied.
func (e *Engine) Highlighted() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applied
}

// SaveState returns the persistence state.
func (e *Engine) SaveState() persist.State {
	return e.scheduler.State()
}

// SaveError returns the last save error while in the error state.
func (e *Engine) SaveError() error {
	return e.scheduler.LastError()
}

// RetrySave saves immediately, bypassing the debounce. It is the manual retry path
// and is also used to flush pending edits before exit.
func (e *Engine) RetrySave(ctx context.Context) error {
	return e.scheduler.Flush(ctx)
}

// Drain saves pending edits immediately and waits for queued feedback to be delivered.
// Command-line callers use it before Close.
func (e *Engine) Drain(ctx context.Context) error {
	if err := e.scheduler.Flush(ctx); err != nil {
		return err
	}
	return e.feedback.Wait(ctx)
}

// Close cancels the pending save and any feedback retries. Unsaved changes are not flushed.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.session = nil
	e.mu.Unlock()

	e.scheduler.Stop()
	e.feedback.Stop()
}

func (e *Engine) createLocked(d annotations.Draft) (*types.Annotation, error) {
	a, err := e.store.Create(d)
	if err != nil {
		return nil, err
	}
	if e.cfg.CaptureManualCreates && a.Source == types.SourceManual {
		e.feedback.Capture(types.NewFeedbackPayload(a, types.FeedbackManualCreate))
		captured := true
		if a, err = e.store.Update(a.ID, annotations.Patch{FeedbackCaptured: &captured}); err != nil {
			return nil, err
		}
	}
	e.history.Push(history.Action{Type: history.ActionAdd, Annotation: a, Index: e.store.Len() - 1})
	return a, nil
}

func (e *Engine) commitEditLocked(s *annotations.EditSession) (*types.Annotation, error) {
	patch := s.Patch()
	prev, err := e.store.Get(s.ExistingID())
	if err != nil {
		return nil, err
	}
	send := prev.Source == types.SourceAutoGenerated && !prev.FeedbackCaptured && !e.captured[prev.ID]
	if send || (e.captured[prev.ID] && !prev.FeedbackCaptured) {
		captured := true
		patch.FeedbackCaptured = &captured
	}

	next, err := e.store.Update(prev.ID, patch)
	if err != nil {
		return nil, err
	}
	if send {
		e.captured[next.ID] = true
		e.feedback.Capture(types.NewFeedbackPayload(next, types.FeedbackSave))
	}
	e.history.Push(history.Action{Type: history.ActionUpdate, Annotation: next, PreviousState: prev})
	return next, nil
}

func (e *Engine) updateLocked(id string, patch annotations.Patch) (*types.Annotation, error) {
	prev, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	next, err := e.store.Update(id, patch)
	if err != nil {
		return nil, err
	}
	e.history.Push(history.Action{Type: history.ActionUpdate, Annotation: next, PreviousState: prev})
	return next, nil
}

func (e *Engine) deleteLocked(id string) error {
	removed, idx, err := e.store.Delete(id)
	if err != nil {
		return err
	}
	e.history.Push(history.Action{Type: history.ActionDelete, Annotation: removed, Index: idx})
	if removed.Source == types.SourceAutoGenerated {
		e.feedback.Capture(types.NewFeedbackPayload(removed, types.FeedbackDelete))
	}
	if e.session != nil && e.session.ExistingID() == id {
		e.session = nil
	}
	e.mutatedLocked()
	return nil
}

// mutatedLocked runs the tail of every mutation: highlight, score, schedule save.
func (e *Engine) mutatedLocked() {
	e.refreshLocked(false)
	e.scheduler.MarkDirty()
}

func (e *Engine) refreshLocked(force bool) {
	all := e.store.All()
	if e.surface != nil && (e.session == nil || force) {
		n, err := highlight.Apply(e.surface, all)
		if err != nil {
			e.logger.Printf("[engine] highlight failed for job %s: %v", e.cfg.JobID, err)
		}
		e.applied = n
	}
	e.scores = scoring.Compute(all, e.cfg.SectionTargets)
}
