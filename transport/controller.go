package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/muesli/cancelreader"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/vidplay-cli/vidplay/log"
	"github.com/vidplay-cli/vidplay/player"
)

// Outcome tells the caller why Run returned.
type Outcome int

const (
	// OutcomeInputClosed means the input reached EOF.
	OutcomeInputClosed Outcome = iota
	// OutcomeQuit means the user asked to stop playback.
	OutcomeQuit
	// OutcomeCanceled means the context was canceled or the input reader was interrupted.
	OutcomeCanceled
	// OutcomeFailed means a command failed and the loop gave up.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInputClosed:
		return "input-closed"
	case OutcomeQuit:
		return "quit"
	case OutcomeCanceled:
		return "canceled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// seekFlags applies seeks immediately and on a decodable frame.
const seekFlags = player.SeekFlush | player.SeekKeyUnit

// Controller applies commands to a pipeline and echoes them to out.
type Controller struct {
	pipeline player.Pipeline
	out      io.Writer
	step     time.Duration

	// position and duration seen by the last seek or quit; engines forget them once stopped.
	position mo.Option[time.Duration]
	duration mo.Option[time.Duration]
}

// NewController returns a controller; a non-positive step falls back to DefaultStep.
func NewController(p player.Pipeline, out io.Writer, step time.Duration) *Controller {
	if step <= 0 {
		step = DefaultStep
	}
	return &Controller{pipeline: p, out: out, step: step}
}

// Run reads lines from in until quit, EOF, cancellation, or a failed seek.
// A line read after ctx is canceled is discarded.
func (c *Controller) Run(ctx context.Context, in io.Reader) (Outcome, error) {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return OutcomeCanceled, nil
		}

		quit, err := c.Apply(Parse(scanner.Text(), c.step))
		if err != nil {
			return OutcomeFailed, err
		}
		if quit {
			return OutcomeQuit, nil
		}
	}

	if ctx.Err() != nil {
		return OutcomeCanceled, nil
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, cancelreader.ErrCanceled) {
			return OutcomeCanceled, nil
		}
		return OutcomeFailed, fmt.Errorf("read input: %w", err)
	}

	return OutcomeInputClosed, nil
}

// Apply executes one command. It reports true when the command ends the control loop.
func (c *Controller) Apply(cmd Command) (bool, error) {
	switch cmd.Kind {
	case Empty:
		return false, nil
	case TogglePause:
		c.togglePause()
		return false, nil
	case SeekForward, SeekBackward:
		return false, c.SeekRelative(cmd.Delta)
	case Quit:
		c.position, c.duration = c.pipeline.QueryPosition(), c.pipeline.QueryDuration()
		fmt.Fprintln(c.out, "Quitting…")
		if err := c.pipeline.SetState(player.StateNull); err != nil {
			log.Warnf("request Null on quit: %v", err)
		}
		return true, nil
	default:
		fmt.Fprintf(c.out, "Unknown command: '%s'. Use p/s/r/q.\n", cmd.Raw)
		return false, nil
	}
}

// togglePause reads the current state and requests its opposite. The echo names the requested
// state; the confirmation arrives later on the bus.
func (c *Controller) togglePause() {
	target := player.StatePlaying
	if c.pipeline.CurrentState() == player.StatePlaying {
		target = player.StatePaused
	}

	if err := c.pipeline.SetState(target); err != nil {
		log.Warnf("request %s: %v", target, err)
	}
	fmt.Fprintf(c.out, "State -> %s\n", target)
}

// SeekRelative moves playback by delta from the current position. Without a position yet the
// request is dropped silently.
func (c *Controller) SeekRelative(delta time.Duration) error {
	pos, ok := c.pipeline.QueryPosition().Get()
	if !ok {
		log.Debugf("seek %s ignored: position not available yet", delta)
		return nil
	}

	duration := c.pipeline.QueryDuration()
	target := ClampTarget(pos.Truncate(time.Millisecond)+delta, duration)
	if err := c.pipeline.SeekTo(target, seekFlags); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	c.position, c.duration = mo.Some(target), duration

	log.Infof("seek %s from %s to %s", delta, pos, target)
	fmt.Fprintf(c.out, "Seek -> %d ms\n", target.Milliseconds())
	return nil
}

// LastKnown returns the position and duration observed by the last seek or quit. It must not be
// called while Run is in progress.
func (c *Controller) LastKnown() (position, duration mo.Option[time.Duration]) {
	return c.position, c.duration
}

// ClampTarget bounds target to [0, duration], or to [0, ∞) when the duration is unknown.
func ClampTarget(target time.Duration, duration mo.Option[time.Duration]) time.Duration {
	if d, ok := duration.Get(); ok {
		return lo.Clamp(target, 0, d)
	}
	return max(target, 0)
}
