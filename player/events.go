package player

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/vidplay-cli/vidplay/log"
)

// EventCallback receives every event mpv pushes on the listener connection.
// For property changes name is the property; otherwise it is the event name.
type EventCallback func(name string, payload map[string]any)

// observedProperties are subscribed to when the listener starts.
var observedProperties = []string{"pause"}

// EventListener holds a persistent connection to mpv. Property observers are registered on that
// same connection since mpv only notifies the client that asked.
type EventListener struct {
	socketPath string
	conn       net.Conn
	callback   EventCallback
	onClose    func(err error)
	done       chan struct{}
	mu         sync.Mutex
	listening  bool
	stopping   bool
}

// NewEventListener creates a listener for the given socket. onClose is called once when the
// connection ends for any reason other than Stop.
func NewEventListener(socketPath string, callback EventCallback, onClose func(err error)) *EventListener {
	return &EventListener{
		socketPath: socketPath,
		callback:   callback,
		onClose:    onClose,
		done:       make(chan struct{}),
	}
}

// Start subscribes to the observed properties and begins the read loop.
func (el *EventListener) Start() error {
	el.mu.Lock()
	defer el.mu.Unlock()

	if el.listening {
		return nil
	}

	conn, err := net.Dial("unix", el.socketPath)
	if err != nil {
		return fmt.Errorf("event listener connect: %w", err)
	}

	enc := json.NewEncoder(conn)
	for i, name := range observedProperties {
		if err := enc.Encode(ipcCommand{Command: []any{"observe_property", i + 1, name}, RequestID: requestIDs.Add(1)}); err != nil {
			conn.Close()
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}

	el.conn = conn
	el.listening = true
	go el.readLoop()

	log.Infof("mpv event listener started on %s", el.socketPath)
	return nil
}

// Stop closes the connection and waits for the read loop to exit.
func (el *EventListener) Stop() {
	el.mu.Lock()
	if !el.listening {
		el.mu.Unlock()
		return
	}
	el.stopping = true
	_ = el.conn.Close()
	el.mu.Unlock()

	<-el.done
}

// readLoop blocks on the connection; closing it is what unblocks the loop.
func (el *EventListener) readLoop() {
	defer close(el.done)

	scanner := bufio.NewScanner(el.conn)
	for scanner.Scan() {
		el.processEvent(scanner.Bytes())
	}

	el.mu.Lock()
	stopping := el.stopping
	el.listening = false
	el.mu.Unlock()

	if stopping || el.onClose == nil {
		return
	}

	err := scanner.Err()
	if err == nil {
		err = errors.New("connection closed by mpv")
	}
	log.Warnf("mpv event listener ended: %v", err)
	el.onClose(err)
}

// processEvent dispatches a single newline-delimited JSON message. Replies to our own
// observe_property requests carry no "event" field and are dropped.
func (el *EventListener) processEvent(line []byte) {
	var event map[string]any
	if err := json.Unmarshal(line, &event); err != nil {
		return
	}

	eventType, ok := event["event"].(string)
	if !ok || el.callback == nil {
		return
	}

	if eventType == "property-change" {
		if name, _ := event["name"].(string); name != "" {
			el.callback(name, event)
		}
		return
	}

	el.callback(eventType, event)
}
