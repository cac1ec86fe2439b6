package events

import (
	"sync"

	"go.uber.org/zap"

	"github.com/bitfsorg/libmarket-go/storage"
)

// listener owns an unbounded queue drained by one goroutine, so Emit never
// blocks on a slow callback and each listener sees events in Emit order.
type listener struct {
	name string

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []storage.Event
	closed bool
}

func newListener(name string) *listener {
	l := &listener{name: name}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *listener) matches(evt storage.Event) bool {
	return l.name == All || l.name == evt.Name
}

func (l *listener) push(evts []storage.Event) {
	l.mu.Lock()
	l.queue = append(l.queue, evts...)
	l.mu.Unlock()
	l.cond.Signal()
}

func (l *listener) stop() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.cond.Signal()
}

// run delivers queued events until the listener is stopped and drained.
func (l *listener) run(callback func(storage.Event)) {
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		batch := l.queue
		l.queue = nil
		done := l.closed && len(batch) == 0
		l.mu.Unlock()

		if done {
			return
		}
		for _, evt := range batch {
			callback(evt)
		}
	}
}

// Bus fans committed events out to listeners. Each listener runs on its own
// goroutine and sees events in the order they were emitted. Emit does not
// block, so a committer may call it while holding its commit lock.
type Bus struct {
	mu        sync.RWMutex
	listeners []*listener
	closed    bool
	wg        sync.WaitGroup
}

// NewBus creates a bus with no listeners.
func NewBus() *Bus {
	return &Bus{}
}

// AddListener registers callback for events named name, or for every event
// when name is All.
func (b *Bus) AddListener(name string, callback func(storage.Event)) {
	zap.L().With(zap.String("event", name)).Debug("EventBus: AddListener")

	l := newListener(name)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.listeners = append(b.listeners, l)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		l.run(callback)
	}()
}

// Emit queues events for every matching listener.
func (b *Bus) Emit(evts ...storage.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	if len(b.listeners) == 0 {
		zap.L().Debug("EventBus: no listeners available")
		return
	}
	for _, l := range b.listeners {
		var matched []storage.Event
		for _, evt := range evts {
			if l.matches(evt) {
				matched = append(matched, evt)
			}
		}
		if len(matched) == 0 {
			continue
		}
		zap.L().With(zap.String("listener", l.name), zap.Int("events", len(matched))).Debug("EventBus: emitting events")
		l.push(matched)
	}
}

// Close stops accepting events and waits for listeners to drain.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, l := range b.listeners {
		l.stop()
	}
	b.mu.Unlock()
	b.wg.Wait()
}
