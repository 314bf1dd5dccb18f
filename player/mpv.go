package player

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/vidplay-cli/vidplay/constant"
	"github.com/vidplay-cli/vidplay/log"
)

// MpvID is the Source of every event the mpv backend posts.
const MpvID = "mpv"

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
	quitTimeout       = 3 * time.Second
	eventBufferSize   = 64
)

// MPV implements Pipeline on top of an mpv process driven through its JSON-IPC socket.
type MPV struct {
	binary     string
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{} // closed when the mpv process exits; nil when attached to a foreign socket
	listener   *EventListener
	mu         sync.Mutex // serializes socket requests

	stateMu sync.Mutex
	state   State
	closed  bool
	events  chan Event

	closeOnce sync.Once
}

// NewMPV creates an mpv pipeline. The process is started lazily by SetSource.
func NewMPV(binary string) *MPV {
	if binary == "" {
		binary = "mpv"
	}
	return &MPV{
		binary: binary,
		events: make(chan Event, eventBufferSize),
	}
}

func (m *MPV) ID() string {
	return MpvID
}

func (m *MPV) Events() <-chan Event {
	return m.events
}

// start launches mpv idle and paused so that nothing plays before SetState(StatePlaying).
func (m *MPV) start() error {
	if m.socketPath != "" {
		return nil
	}

	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Errorf("generate socket name: %w", err)
	}
	socketPath := filepath.Join(os.TempDir(), fmt.Sprintf("%s-%x.sock", constant.Vidplay, randomBytes))

	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--idle=yes",
		"--pause",
		"--force-window=yes",
		"--keep-open=no",
		fmt.Sprintf("--input-ipc-server=%s", socketPath),
	}

	m.cmd = exec.Command(m.binary, args...)
	m.cmd.SysProcAttr = sysProcAttr()
	m.cmd.Stdout = nil
	m.cmd.Stderr = nil
	m.cmd.Stdin = nil

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	m.exited = make(chan struct{})
	go func() {
		_ = m.cmd.Wait()
		close(m.exited)
	}()

	m.socketPath = socketPath
	if err := m.waitForSocket(); err != nil {
		select {
		case <-m.exited:
		default:
			log.Warnf("killing mpv: socket never became ready")
			_ = killProcess(m.cmd)
		}
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	return m.attach()
}

// attach subscribes to mpv events on an already listening socket.
func (m *MPV) attach() error {
	m.listener = NewEventListener(m.socketPath, m.handleEvent, m.handleDisconnect)
	if err := m.listener.Start(); err != nil {
		return err
	}
	m.transition(StateReady)
	return nil
}

func (m *MPV) waitForSocket() error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)

		select {
		case <-m.exited:
			return errors.New("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, socketWaitRetries)
}

// SetSource starts mpv if needed and loads uri, replacing the current file.
func (m *MPV) SetSource(uri string) error {
	if err := m.start(); err != nil {
		return err
	}
	_, err := m.sendCommand("loadfile", uri, "replace")
	return err
}

// SetState maps lifecycle states onto mpv: Playing and Paused toggle the pause property, Ready and
// Null unload the current file. The process itself is only terminated by Close.
func (m *MPV) SetState(target State) error {
	if m.socketPath == "" {
		if target == StateNull {
			return nil
		}
		return ErrNotRunning
	}

	var err error
	switch target {
	case StatePlaying:
		_, err = m.sendCommand("set_property", "pause", false)
	case StatePaused:
		_, err = m.sendCommand("set_property", "pause", true)
	case StateReady, StateNull:
		_, err = m.sendCommand("stop")
	default:
		return fmt.Errorf("unsupported state %s", target)
	}
	if err != nil {
		return fmt.Errorf("set state %s: %w", target, err)
	}

	m.transition(target)
	return nil
}

func (m *MPV) CurrentState() State {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.state
}

func (m *MPV) QueryPosition() mo.Option[time.Duration] {
	return m.durationProperty("time-pos")
}

func (m *MPV) QueryDuration() mo.Option[time.Duration] {
	return m.durationProperty("duration")
}

// SeekTo issues an absolute seek. mpv always flushes; SeekKeyUnit selects keyframe snapping over
// an exact (decode-to-target) seek.
func (m *MPV) SeekTo(target time.Duration, flags SeekFlags) error {
	if m.socketPath == "" {
		return ErrNotRunning
	}

	mode := "absolute+exact"
	if flags.Has(SeekKeyUnit) {
		mode = "absolute+keyframes"
	}

	_, err := m.sendCommand("seek", target.Seconds(), mode)
	if err != nil {
		return fmt.Errorf("seek to %s: %w", target, err)
	}
	return nil
}

// Close quits mpv, waits for it to exit (killing it after a timeout) and closes the event channel.
func (m *MPV) Close() error {
	m.closeOnce.Do(func() {
		if m.listener != nil {
			m.listener.Stop()
		}

		if m.socketPath != "" {
			m.transition(StateNull)
			_, _ = m.sendCommand("quit")
		}

		if m.cmd != nil {
			select {
			case <-m.exited:
			case <-time.After(quitTimeout):
				_ = killProcess(m.cmd)
			}
			_ = os.Remove(m.socketPath)
		}

		m.stateMu.Lock()
		m.closed = true
		close(m.events)
		m.stateMu.Unlock()
	})
	return nil
}

// handleEvent translates mpv events into bus messages.
func (m *MPV) handleEvent(name string, payload map[string]any) {
	switch name {
	case "pause":
		if paused, ok := payload["data"].(bool); ok && m.CurrentState() >= StatePaused {
			m.transition(lo.Ternary(paused, StatePaused, StatePlaying))
		}
	case "end-file":
		reason, _ := payload["reason"].(string)
		switch reason {
		case "eof":
			m.post(Event{Kind: EventEndOfStream, Source: MpvID})
		case "error":
			message, _ := payload["file_error"].(string)
			if message == "" {
				message = "playback failed"
			}
			m.post(Event{
				Kind:    EventError,
				Source:  MpvID,
				Message: message,
				Debug:   "end-file reason=error",
			})
		}
	case "file-loaded":
		m.transition(StatePaused)
		if data, err := m.sendCommand("get_property", "pause"); err == nil {
			if paused, ok := data.(bool); ok && !paused {
				m.transition(StatePlaying)
			}
		}
	default:
		log.Tracef("mpv event %s ignored", name)
	}
}

// handleDisconnect reports an mpv that went away on its own, e.g. its window was closed.
func (m *MPV) handleDisconnect(err error) {
	m.post(Event{
		Kind:    EventError,
		Source:  MpvID,
		Message: "mpv exited unexpectedly",
		Debug:   err.Error(),
	})
}

// transition records the new state and posts a StateChanged if it differs from the previous one.
func (m *MPV) transition(next State) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	if m.state == next {
		return
	}
	prev := m.state
	m.state = next
	m.postLocked(Event{Kind: EventStateChanged, Source: MpvID, Old: prev, New: next})
}

func (m *MPV) post(e Event) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.postLocked(e)
}

func (m *MPV) postLocked(e Event) {
	if m.closed {
		return
	}
	select {
	case m.events <- e:
	default:
		log.Warnf("mpv event bus full, dropping %+v", e)
	}
}

func (m *MPV) durationProperty(name string) mo.Option[time.Duration] {
	if m.socketPath == "" {
		return mo.None[time.Duration]()
	}

	data, err := m.sendCommand("get_property", name)
	if err != nil {
		if !strings.Contains(err.Error(), errPropertyUnavailable) {
			log.Debugf("query %s: %v", name, err)
		}
		return mo.None[time.Duration]()
	}

	seconds, ok := data.(float64)
	if !ok || seconds < 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(seconds * float64(time.Second)))
}
