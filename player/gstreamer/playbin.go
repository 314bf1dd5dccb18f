// Package gstreamer implements player.Pipeline with a GStreamer playbin element.
//
// playbin owns the whole source, demux, decode and sink graph; this package only assigns
// properties, requests state changes, queries position and duration, seeks, and pumps the bus.
package gstreamer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-gst/go-gst/gst"
	"github.com/samber/mo"
	"github.com/vidplay-cli/vidplay/log"
	"github.com/vidplay-cli/vidplay/player"
)

// ElementName is the name given to the top-level playbin; it is the Source of its own bus messages.
const ElementName = "vidplay"

// shutdownMessage is posted on the bus by Close to wake the pump out of its pop early.
const shutdownMessage = "vidplay-shutdown"

// popTimeout bounds each bus pop so the pump notices Close even when the wake-up is dropped.
const popTimeout = gst.ClockTime(100 * time.Millisecond)

var initOnce sync.Once

// Init initializes GStreamer once per process.
func Init() {
	initOnce.Do(func() {
		gst.Init(nil)
	})
}

// Available reports whether an element can be created from the named factory.
func Available(factory string) bool {
	Init()
	_, err := gst.NewElement(factory)
	return err == nil
}

// Playbin is a player.Pipeline backed by a playbin element.
type Playbin struct {
	elem   *gst.Element
	bus    *gst.Bus
	events chan player.Event
	done   chan struct{}
	pumped chan struct{}

	closeOnce sync.Once
}

// New builds a playbin and starts pumping its bus.
func New() (*Playbin, error) {
	Init()

	elem, err := gst.NewElementWithName("playbin", ElementName)
	if err != nil {
		return nil, fmt.Errorf("create playbin: %w", err)
	}

	bus := elem.GetBus()
	if bus == nil {
		return nil, errors.New("playbin has no bus")
	}

	p := &Playbin{
		elem:   elem,
		bus:    bus,
		events: make(chan player.Event),
		done:   make(chan struct{}),
		pumped: make(chan struct{}),
	}
	go p.pump()

	return p, nil
}

func (p *Playbin) ID() string {
	return p.elem.GetName()
}

func (p *Playbin) Events() <-chan player.Event {
	return p.events
}

func (p *Playbin) SetSource(uri string) error {
	if err := p.elem.SetProperty("uri", uri); err != nil {
		return fmt.Errorf("set uri: %w", err)
	}
	return nil
}

// AttachVideoSink installs the first candidate sink GStreamer can create.
func (p *Playbin) AttachVideoSink(candidates ...string) (string, error) {
	for _, name := range candidates {
		sink, err := gst.NewElement(name)
		if err != nil {
			log.Debugf("video sink %s unavailable: %v", name, err)
			continue
		}
		if err := p.elem.SetProperty("video-sink", sink); err != nil {
			log.Debugf("video sink %s rejected: %v", name, err)
			continue
		}
		return name, nil
	}
	return "", fmt.Errorf("none of the video sinks %v could be created", candidates)
}

func (p *Playbin) SetState(target player.State) error {
	if err := p.elem.SetState(toGst(target)); err != nil {
		return fmt.Errorf("set state %s: %w", target, err)
	}
	return nil
}

func (p *Playbin) CurrentState() player.State {
	return fromGst(p.elem.GetCurrentState())
}

func (p *Playbin) QueryPosition() mo.Option[time.Duration] {
	ok, ns := p.elem.QueryPosition(gst.FormatTime)
	if !ok || ns < 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(ns))
}

func (p *Playbin) QueryDuration() mo.Option[time.Duration] {
	ok, ns := p.elem.QueryDuration(gst.FormatTime)
	if !ok || ns < 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(ns))
}

func (p *Playbin) SeekTo(target time.Duration, flags player.SeekFlags) error {
	var gstFlags gst.SeekFlags
	if flags.Has(player.SeekFlush) {
		gstFlags |= gst.SeekFlagFlush
	}
	if flags.Has(player.SeekKeyUnit) {
		gstFlags |= gst.SeekFlagKeyUnit
	}

	if !p.elem.SeekSimple(target.Nanoseconds(), gst.FormatTime, gstFlags) {
		return fmt.Errorf("seek to %s rejected by pipeline", target)
	}
	return nil
}

// Close forces Null, stops the bus pump and closes the event channel.
//
// The bus of a pipeline in Null is flushing and drops anything posted to it, so the
// shutdown message alone cannot be relied on; the pump also wakes every popTimeout.
func (p *Playbin) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.elem.SetState(gst.StateNull)
		close(p.done)
		p.bus.Post(gst.NewApplicationMessage(p.elem, gst.NewStructure(shutdownMessage)))
		<-p.pumped
		close(p.events)
	})
	return err
}

// pump forwards every bus message until Close.
func (p *Playbin) pump() {
	defer close(p.pumped)

	for {
		msg := p.bus.TimedPop(popTimeout)

		select {
		case <-p.done:
			return
		default:
		}

		if msg == nil {
			continue
		}

		event := translate(msg)
		select {
		case p.events <- event:
		case <-p.done:
			return
		}
	}
}

func translate(msg *gst.Message) player.Event {
	event := player.Event{Source: msg.Source()}

	switch msg.Type() {
	case gst.MessageEOS:
		event.Kind = player.EventEndOfStream
	case gst.MessageError:
		gerr := msg.ParseError()
		event.Kind = player.EventError
		event.Message = gerr.Error()
		event.Debug = gerr.DebugString()
	case gst.MessageStateChanged:
		old, current := msg.ParseStateChanged()
		event.Kind = player.EventStateChanged
		event.Old = fromGst(old)
		event.New = fromGst(current)
	default:
		event.Kind = player.EventOther
	}

	return event
}

func toGst(s player.State) gst.State {
	switch s {
	case player.StateReady:
		return gst.StateReady
	case player.StatePaused:
		return gst.StatePaused
	case player.StatePlaying:
		return gst.StatePlaying
	default:
		return gst.StateNull
	}
}

func fromGst(s gst.State) player.State {
	switch s {
	case gst.StateReady:
		return player.StateReady
	case gst.StatePaused:
		return player.StatePaused
	case gst.StatePlaying:
		return player.StatePlaying
	default:
		return player.StateNull
	}
}
