// Package history provides the bounded undo/redo transaction log for annotation edits.
package history

import (
	"fmt"

	"github.com/jonathan/jd-annotator/internal/types"
)

// DefaultMaxHistory is the default number of undoable actions kept.
const DefaultMaxHistory = 50

// ActionType is the kind of store mutation an action records.
type ActionType string

// Action types.
const (
	ActionAdd    ActionType = "add"
	ActionDelete ActionType = "delete"
	ActionUpdate ActionType = "update"
)

// Action is one recorded mutation.
// For add and delete, Annotation is the entity and Index its position in the store.
// For update, Annotation is the state after the update and PreviousState the state before it.
type Action struct {
	Type          ActionType
	Annotation    *types.Annotation
	PreviousState *types.Annotation
	Index         int
}

func (a Action) clone() Action {
	return Action{
		Type:          a.Type,
		Annotation:    a.Annotation.Clone(),
		PreviousState: a.PreviousState.Clone(),
		Index:         a.Index,
	}
}

// Store is the subset of the annotation store history replays against.
type Store interface {
	Insert(position int, a *types.Annotation) error
	Remove(id string) error
	Replace(a *types.Annotation) error
}

// Log is a linear undo/redo history. It is not safe for concurrent use.
type Log struct {
	maxHistory int
	undo       []Action
	redo       []Action
}

// NewLog creates a log that keeps at most maxHistory actions.
// A non-positive value selects DefaultMaxHistory.
func NewLog(maxHistory int) *Log {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Log{maxHistory: maxHistory}
}

// Push records action, evicting the oldest entry past the limit and clearing redo history.
func (l *Log) Push(action Action) {
	l.undo = append(l.undo, action.clone())
	if over := len(l.undo) - l.maxHistory; over > 0 {
		l.undo = append(l.undo[:0:0], l.undo[over:]...)
	}
	l.redo = nil
}

// Undo reverts the most recent action against store and moves it to the redo stack.
// It returns nil when there is nothing to undo. On a replay error the log is unchanged.
func (l *Log) Undo(store Store) (*Action, error) {
	if len(l.undo) == 0 {
		return nil, nil
	}
	action := l.undo[len(l.undo)-1]
	if err := revert(store, action); err != nil {
		return nil, fmt.Errorf("undo %s: %w", action.Type, err)
	}
	l.undo = l.undo[:len(l.undo)-1]
	l.redo = append(l.redo, action)
	out := action.clone()
	return &out, nil
}

// Redo re-applies the most recently undone action and moves it back to the undo stack.
// It returns nil when there is nothing to redo.
func (l *Log) Redo(store Store) (*Action, error) {
	if len(l.redo) == 0 {
		return nil, nil
	}
	action := l.redo[len(l.redo)-1]
	if err := apply(store, action); err != nil {
		return nil, fmt.Errorf("redo %s: %w", action.Type, err)
	}
	l.redo = l.redo[:len(l.redo)-1]
	l.undo = append(l.undo, action)
	out := action.clone()
	return &out, nil
}

// CanUndo reports whether Undo would do anything.
func (l *Log) CanUndo() bool { return len(l.undo) > 0 }

// CanRedo reports whether Redo would do anything.
func (l *Log) CanRedo() bool { return len(l.redo) > 0 }

// UndoLen returns the number of undoable actions.
func (l *Log) UndoLen() int { return len(l.undo) }

// RedoLen returns the number of redoable actions.
func (l *Log) RedoLen() int { return len(l.redo) }

// Clear drops all history.
func (l *Log) Clear() {
	l.undo = nil
	l.redo = nil
}

func revert(store Store, a Action) error {
	switch a.Type {
	case ActionAdd:
		return store.Remove(a.Annotation.ID)
	case ActionDelete:
		return store.Insert(a.Index, a.Annotation.Clone())
	case ActionUpdate:
		if a.PreviousState == nil {
			return fmt.Errorf("update action for %s has no previous state", a.Annotation.ID)
		}
		return store.Replace(a.PreviousState.Clone())
	}
	return fmt.Errorf("unknown action type %q", a.Type)
}

func apply(store Store, a Action) error {
	switch a.Type {
	case ActionAdd:
		return store.Insert(a.Index, a.Annotation.Clone())
	case ActionDelete:
		return store.Remove(a.Annotation.ID)
	case ActionUpdate:
		return store.Replace(a.Annotation.Clone())
	}
	return fmt.Errorf("unknown action type %q", a.Type)
}
