// Package bus consumes a pipeline's event bus until the session reaches a terminal condition.
package bus

import (
	"context"
	"fmt"
	"io"

	"github.com/vidplay-cli/vidplay/log"
	"github.com/vidplay-cli/vidplay/player"
)

// Reason tells why Watch returned.
type Reason int

const (
	// ReasonEndOfStream means the media played to the end.
	ReasonEndOfStream Reason = iota
	// ReasonError means the pipeline reported an unrecoverable error.
	ReasonError
	// ReasonCanceled means the context was canceled, e.g. after the user quit.
	ReasonCanceled
	// ReasonClosed means the bus channel was closed under the loop.
	ReasonClosed
)

func (r Reason) String() string {
	switch r {
	case ReasonEndOfStream:
		return "eos"
	case ReasonError:
		return "error"
	case ReasonCanceled:
		return "canceled"
	case ReasonClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Result is the terminal condition of a Watch call.
type Result struct {
	Reason Reason

	// Event is the terminal message for ReasonEndOfStream and ReasonError.
	Event player.Event

	// LastState is the last top-level state observed on the bus, StateNull when none was.
	LastState player.State
}

// unknownSource names error origins the engine did not report.
const unknownSource = "unknown"

// Watcher prints bus messages of one pipeline.
type Watcher struct {
	pipelineID string
	out        io.Writer
	errOut     io.Writer
}

// NewWatcher returns a watcher that prints state changes whose source is pipelineID to out and
// errors to errOut.
func NewWatcher(pipelineID string, out, errOut io.Writer) *Watcher {
	return &Watcher{pipelineID: pipelineID, out: out, errOut: errOut}
}

// Watch blocks on events until EndOfStream, Error, cancellation of ctx or the channel closing.
// Messages still pending after a terminal one are left unread.
func (w *Watcher) Watch(ctx context.Context, events <-chan player.Event) Result {
	var last player.State

	for {
		select {
		case <-ctx.Done():
			log.Debug("bus: canceled")
			return Result{Reason: ReasonCanceled, LastState: last}
		case event, ok := <-events:
			if !ok {
				log.Debug("bus: closed")
				return Result{Reason: ReasonClosed, LastState: last}
			}

			if reason, terminal := w.handle(event, &last); terminal {
				return Result{Reason: reason, Event: event, LastState: last}
			}
		}
	}
}

func (w *Watcher) handle(event player.Event, last *player.State) (Reason, bool) {
	switch event.Kind {
	case player.EventEndOfStream:
		log.Info("bus: end of stream")
		fmt.Fprintln(w.out, "End of stream.")
		return ReasonEndOfStream, true
	case player.EventError:
		source := event.Source
		if source == "" {
			source = unknownSource
		}
		log.Errorf("bus: error from %s: %s (%s)", source, event.Message, event.Debug)
		fmt.Fprintf(w.errOut, "Error from %s: %s (%s)\n", source, event.Message, event.Debug)
		return ReasonError, true
	case player.EventStateChanged:
		if event.Source != w.pipelineID {
			log.Tracef("bus: %s %s -> %s", event.Source, event.Old, event.New)
			return 0, false
		}
		*last = event.New
		fmt.Fprintf(w.out, "Pipeline state: %s -> %s\n", event.Old, event.New)
	}

	return 0, false
}
