// Package playertest provides a scriptable in-memory player.Pipeline.
package playertest

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/samber/mo"
	"github.com/vidplay-cli/vidplay/player"
)

// Seek is a recorded SeekTo call.
type Seek struct {
	Target time.Duration
	Flags  player.SeekFlags
}

// Pipeline records every request and lets tests decide what the engine reports.
// State requests take effect immediately; set AutoPost to also post the matching StateChanged.
type Pipeline struct {
	mu sync.Mutex

	id       string
	uri      string
	state    player.State
	position mo.Option[time.Duration]
	duration mo.Option[time.Duration]
	sinks    []string

	requests []player.State
	seeks    []Seek
	seekErr  error
	stateErr error
	closed   bool

	// AutoPost posts a StateChanged for every accepted state request.
	AutoPost bool

	events chan player.Event
}

// New returns a pipeline in state Null whose own messages carry id as Source.
func New(id string) *Pipeline {
	return &Pipeline{
		id:     id,
		events: make(chan player.Event, 256),
	}
}

func (p *Pipeline) ID() string {
	return p.id
}

func (p *Pipeline) SetSource(uri string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uri = uri
	return nil
}

func (p *Pipeline) SetState(target player.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, target)
	if p.stateErr != nil {
		return p.stateErr
	}

	old := p.state
	p.state = target
	if p.AutoPost && !p.closed && old != target {
		p.events <- player.Event{Kind: player.EventStateChanged, Source: p.id, Old: old, New: target}
	}
	return nil
}

func (p *Pipeline) CurrentState() player.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) QueryPosition() mo.Option[time.Duration] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *Pipeline) QueryDuration() mo.Option[time.Duration] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

func (p *Pipeline) SeekTo(target time.Duration, flags player.SeekFlags) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.seekErr != nil {
		return p.seekErr
	}
	p.seeks = append(p.seeks, Seek{Target: target, Flags: flags})
	p.position = mo.Some(target)
	return nil
}

func (p *Pipeline) Events() <-chan player.Event {
	return p.events
}

func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.state = player.StateNull
	close(p.events)
	return nil
}

// AttachVideoSink accepts the first candidate present in the sinks given to WithSinks.
func (p *Pipeline) AttachVideoSink(candidates ...string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, c := range candidates {
		if slices.Contains(p.sinks, c) {
			return c, nil
		}
	}
	return "", errors.New("no video sink available")
}

// Post delivers an event on the bus. It is a no-op after Close.
func (p *Pipeline) Post(events ...player.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	for _, e := range events {
		p.events <- e
	}
}

// WithPosition sets what QueryPosition reports.
func (p *Pipeline) WithPosition(d time.Duration) *Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = mo.Some(d)
	return p
}

// WithDuration sets what QueryDuration reports.
func (p *Pipeline) WithDuration(d time.Duration) *Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.duration = mo.Some(d)
	return p
}

// WithState forces the current state without recording a request.
func (p *Pipeline) WithState(s player.State) *Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
	return p
}

// WithSinks sets the video sinks AttachVideoSink can create.
func (p *Pipeline) WithSinks(names ...string) *Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks = names
	return p
}

// FailSeeks makes every SeekTo return err.
func (p *Pipeline) FailSeeks(err error) *Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seekErr = err
	return p
}

// FailStates makes every SetState return err.
func (p *Pipeline) FailStates(err error) *Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stateErr = err
	return p
}

// URI returns the last source set.
func (p *Pipeline) URI() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uri
}

// Requests returns every state passed to SetState, in order.
func (p *Pipeline) Requests() []player.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.requests)
}

// Seeks returns every successful SeekTo, in order.
func (p *Pipeline) Seeks() []Seek {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.seeks)
}

// Closed reports whether Close was called.
func (p *Pipeline) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
