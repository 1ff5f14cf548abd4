// Package sse streams case directory changes to HTTP clients as Server-Sent Events.
package sse

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types.
const (
	EventEvidenceChanged = "evidence.changed"
	EventArtifactChanged = "artifact.changed"
	EventCatalogStale    = "catalog.stale"
)

// Change kinds.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

const (
	clientBuffer = 64
	keepAlive    = 15 * time.Second
)

// Event is a single message fanned out to every client.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ChangeEvent is the payload of evidence.changed and artifact.changed.
type ChangeEvent struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

type change struct {
	evidence bool
	ChangeEvent
}

// Broker fans case change events out to subscribed clients.
//
// All client bookkeeping lives in the loop goroutine; the exported methods
// only talk to it over channels.
type Broker struct {
	throttle time.Duration

	join    chan chan []byte
	leave   chan chan []byte
	events  chan Event
	changes chan change
	counts  chan chan int

	quit   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// NewBroker starts a broker. Consecutive catalog.stale events are at least
// throttle apart; a non-positive value means two seconds.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}
	b := &Broker{
		throttle: throttle,
		join:     make(chan chan []byte),
		leave:    make(chan chan []byte),
		events:   make(chan Event, 256),
		changes:  make(chan change, 256),
		counts:   make(chan chan int),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go b.loop()
	return b
}

// hub is the state owned by the loop goroutine.
type hub struct {
	clients   map[chan []byte]struct{}
	seq       uint64
	lastStale time.Time
}

func (h *hub) send(ev Event) {
	h.seq++
	frame, err := encode(h.seq, ev)
	if err != nil {
		return
	}
	for ch := range h.clients {
		select {
		case ch <- frame:
		default:
			// slow client, drop
		}
	}
}

func (b *Broker) loop() {
	defer close(b.done)
	h := &hub{clients: make(map[chan []byte]struct{})}

	for {
		select {
		case <-b.quit:
			for ch := range h.clients {
				close(ch)
			}
			return
		case ch := <-b.join:
			h.clients[ch] = struct{}{}
		case ch := <-b.leave:
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}
		case ev := <-b.events:
			h.send(ev)
		case c := <-b.changes:
			if !c.evidence {
				h.send(Event{Type: EventArtifactChanged, Data: c.ChangeEvent})
				continue
			}
			h.send(Event{Type: EventEvidenceChanged, Data: c.ChangeEvent})
			if now := time.Now(); now.Sub(h.lastStale) >= b.throttle {
				h.lastStale = now
				h.send(Event{Type: EventCatalogStale, Data: struct{}{}})
			}
		case reply := <-b.counts:
			reply <- len(h.clients)
		}
	}
}

// encode renders ev as one SSE frame.
func encode(id uint64, ev Event) ([]byte, error) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("id: ")
	buf.WriteString(strconv.FormatUint(id, 10))
	buf.WriteString("\nevent: ")
	buf.WriteString(ev.Type)
	buf.WriteString("\ndata: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

// Close stops the loop and closes every client channel. It is idempotent.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe registers a client. The returned channel is closed when the
// client unsubscribes or the broker shuts down.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.join <- ch:
	case <-b.done:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leave <- ch:
	case <-b.done:
	}
}

// ClientCount reports the number of subscribed clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	reply := make(chan int, 1)
	select {
	case b.counts <- reply:
	case <-b.done:
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-b.done:
		return 0
	}
}

// Publish broadcasts an arbitrary event.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.events <- ev:
	case <-b.done:
	}
}

// PublishChange broadcasts a file change. Evidence changes (manual notes,
// IOC lists, reports) are followed by a throttled catalog.stale event.
func (b *Broker) PublishChange(evidence bool, kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changes <- change{evidence: evidence, ChangeEvent: ChangeEvent{Kind: kind, Path: path}}:
	case <-b.done:
	}
}

// ServeHTTP streams events to one client until it disconnects.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case frame, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
