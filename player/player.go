// Package player defines the playback pipeline facade shared by the transport controls and the
// event loop, plus an mpv backend speaking JSON-IPC.
//
// A Pipeline is an opaque handle to an external engine that owns demuxing, decoding, clock
// synchronization and rendering. Callers only assign a source, request lifecycle states, query
// position and duration, seek, and consume the event bus.
package player

import (
	"errors"
	"time"

	"github.com/samber/mo"
)

// ErrNotRunning is returned when a command is sent to an engine that has not been started or has exited.
var ErrNotRunning = errors.New("player is not running")

// ErrUnknownBackend is returned when the configured backend names no known engine.
var ErrUnknownBackend = errors.New("unknown player backend")

// State is the lifecycle state of a pipeline.
type State int

const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "Null"
	case StateReady:
		return "Ready"
	case StatePaused:
		return "Paused"
	case StatePlaying:
		return "Playing"
	default:
		return "Unknown"
	}
}

// SeekFlags tune how a seek is applied.
type SeekFlags uint8

const (
	// SeekFlush discards buffered data so the new position applies immediately.
	SeekFlush SeekFlags = 1 << iota
	// SeekKeyUnit snaps the target to the nearest keyframe.
	SeekKeyUnit
)

// Has reports whether all bits of f are set.
func (s SeekFlags) Has(f SeekFlags) bool {
	return s&f == f
}

// EventKind discriminates bus messages.
type EventKind int

const (
	EventOther EventKind = iota
	EventEndOfStream
	EventError
	EventStateChanged
)

// Event is an immutable message from a pipeline's bus.
type Event struct {
	Kind EventKind

	// Source identifies the element that posted the message; empty when unknown.
	Source string

	// Error details.
	Message string
	Debug   string

	// State change details.
	Old State
	New State
}

// Pipeline is the facade over an external playback engine. Implementations must be safe for
// concurrent use: every method is a single atomic request from the caller's point of view.
type Pipeline interface {
	// ID is the identifier the engine puts in the Source of its own top-level messages.
	ID() string

	SetSource(uri string) error

	// SetState requests a transition. It may complete asynchronously; the confirmation arrives
	// later as an EventStateChanged.
	SetState(target State) error

	// CurrentState returns the state the engine currently reports.
	CurrentState() State

	// QueryPosition is absent while the engine cannot report a position yet.
	QueryPosition() mo.Option[time.Duration]

	// QueryDuration is absent for live or not yet prerolled media.
	QueryDuration() mo.Option[time.Duration]

	SeekTo(target time.Duration, flags SeekFlags) error

	// Events delivers bus messages in order. The channel is closed by Close.
	Events() <-chan Event

	// Close forces the engine to Null and releases it.
	Close() error
}

// VideoSinkAttacher is implemented by pipelines that let the caller pick a video sink.
type VideoSinkAttacher interface {
	// AttachVideoSink installs the first candidate the engine can create and returns its name.
	AttachVideoSink(candidates ...string) (string, error)
}
