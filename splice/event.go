package splice

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/cmdstream/logger"
	"github.com/kbukum/cmdstream/process"
)

// EventType identifies an engine notification.
type EventType int

const (
	// EventAdded follows every accepted submission.
	EventAdded EventType = iota + 1
	// EventConsuming marks the start of copying an item into the process.
	EventConsuming
	// EventEnded marks an item whose stream was copied completely.
	EventEnded
	// EventError reports an item that could not be resolved or drained.
	EventError
	// EventSubmissionsEnded follows the single successful EndSubmissions call.
	EventSubmissionsEnded
	// EventClosed is the last event, sent once the process has exited.
	EventClosed
)

// String returns the event name.
func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "added"
	case EventConsuming:
		return "consuming"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	case EventSubmissionsEnded:
		return "submissions_ended"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is a notification about the engine or one of its items.
type Event struct {
	Type EventType
	// Seq is the submission sequence number, starting at 1. Zero for
	// EventSubmissionsEnded and EventClosed.
	Seq uint64
	// Item is the submitted value, when the event concerns one.
	Item Item
	// Err is set for EventError.
	Err error
	// Exit is set for EventClosed.
	Exit process.Exit
	Time time.Time
}

// Observer receives engine events in emission order on a single goroutine.
// Observers may call Submit and EndSubmissions; they must not call Wait or
// Stop, which wait for event delivery to finish.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnEvent calls f(ev).
func (f ObserverFunc) OnEvent(ev Event) { f(ev) }

// dispatcher delivers events in order on its own goroutine so the engine
// loop never waits on an observer.
type dispatcher struct {
	observers []Observer
	log       *logger.Logger

	mu     sync.Mutex
	queue  []Event
	closed bool
	wake   chan struct{}

	out     chan Event
	dropped atomic.Uint64
	done    chan struct{}
}

func newDispatcher(observers []Observer, buffer int, log *logger.Logger) *dispatcher {
	return &dispatcher{
		observers: observers,
		log:       log,
		wake:      make(chan struct{}, 1),
		out:       make(chan Event, buffer),
		done:      make(chan struct{}),
	}
}

func (d *dispatcher) publish(ev Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, ev)
	d.mu.Unlock()
	d.signal()
}

// close stops accepting events. Already queued events are still delivered.
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.signal()
}

func (d *dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run() {
	defer close(d.done)
	defer close(d.out)

	for {
		d.mu.Lock()
		batch, closed := d.queue, d.closed
		d.queue = nil
		d.mu.Unlock()

		for _, ev := range batch {
			d.deliver(ev)
		}
		if closed && len(batch) == 0 {
			return
		}
		if len(batch) == 0 {
			<-d.wake
		}
	}
}

func (d *dispatcher) deliver(ev Event) {
	for _, o := range d.observers {
		d.notify(o, ev)
	}

	select {
	case d.out <- ev:
	default:
		d.dropped.Add(1)
	}
}

func (d *dispatcher) notify(o Observer, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("observer panicked", logger.Fields(
				"event", ev.Type.String(),
				logger.FieldSeq, ev.Seq,
				"panic", r,
			))
		}
	}()
	o.OnEvent(ev)
}
