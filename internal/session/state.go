package session

import (
	"errors"
	"fmt"
)

// State represents the lifecycle state of a recording session.
type State int

const (
	// StateIdle - No active capture; the starting and post-discard state.
	StateIdle State = iota
	// StateRecording - Capture running, chunks arriving, clock ticking.
	StateRecording
	// StatePaused - Capture suspended; clock stopped; resumable.
	StatePaused
	// StateStopping - Stop requested, finalization in progress.
	StateStopping
	// StateStopped - Finalization finished; terminal.
	StateStopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRecording:
		return "RECORDING"
	case StatePaused:
		return "PAUSED"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true once the session can accept no further input.
func (s State) IsTerminal() bool {
	return s == StateStopped
}

// PauseCause distinguishes an explicit user pause from an automatic pause
// when the app loses foreground visibility. Resume is always explicit.
type PauseCause int

const (
	PauseNone PauseCause = iota
	PauseByUser
	PauseByBackground
)

func (c PauseCause) String() string {
	switch c {
	case PauseByUser:
		return "user"
	case PauseByBackground:
		return "background"
	default:
		return "none"
	}
}

// Errors for invalid state transitions.
var (
	ErrAlreadyRecording = errors.New("session: already recording")
	ErrNotRecording     = errors.New("session: not recording")
	ErrNotPaused        = errors.New("session: not paused")
	ErrNotActive        = errors.New("session: no active recording")
	ErrStopped          = errors.New("session: already stopped")
)
