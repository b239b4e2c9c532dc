package player

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultTick is how often a playing SimulatedMedia reports its position.
const DefaultTick = 250 * time.Millisecond

// SimulatedMedia is a clock-driven media element with a fixed duration. It
// plays once and stops at the end. Events are delivered on a separate
// goroutine, never from inside a method call, to subscribers in the order
// they subscribed. Loading a source discards events of the previous load
// that have not been delivered yet.
type SimulatedMedia struct {
	clock    clockwork.Clock
	duration float64
	tick     time.Duration

	mu       sync.Mutex
	src      string
	muted    bool
	playing  bool
	position float64
	anchor   time.Time
	stopLoop chan struct{}
	subs     []subscriber
	nextSub  int
	loads    uint64
	queue    []queuedEvent
	closed   bool

	wake chan struct{}
	done chan struct{}
}

// NewSimulatedMedia returns an element of the given length driven by clock.
func NewSimulatedMedia(clock clockwork.Clock, length time.Duration) *SimulatedMedia {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	m := &SimulatedMedia{
		clock:    clock,
		duration: length.Seconds(),
		tick:     DefaultTick,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go m.dispatch()
	return m
}

// Load resets the element to the start of src and announces its duration.
func (m *SimulatedMedia) Load(src string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.haltLocked()
	m.loads++
	m.queue = nil
	m.src = src
	m.position = 0
	m.enqueueLocked(Event{Kind: EventLoadedMetadata, Duration: m.duration})
}

// Play starts or resumes playback. Playing from the end restarts.
func (m *SimulatedMedia) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playing || m.closed {
		return nil
	}
	if m.position >= m.duration {
		m.position = 0
	}
	m.playing = true
	m.anchor = m.clock.Now()
	m.stopLoop = make(chan struct{})
	go m.run(m.clock.NewTicker(m.tick), m.stopLoop)
	return nil
}

// Pause freezes the position.
func (m *SimulatedMedia) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.haltLocked()
}

// SetMuted records the mute flag.
func (m *SimulatedMedia) SetMuted(muted bool) {
	m.mu.Lock()
	m.muted = muted
	m.mu.Unlock()
}

// Muted reports the mute flag.
func (m *SimulatedMedia) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

// Seek moves to seconds, clamped to the element's length.
func (m *SimulatedMedia) Seek(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	if seconds > m.duration {
		seconds = m.duration
	}
	m.position = seconds
	m.anchor = m.clock.Now()
	m.enqueueLocked(Event{Kind: EventTimeUpdate, CurrentTime: seconds, Duration: m.duration})
}

// Position returns the current position in seconds.
func (m *SimulatedMedia) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positionLocked()
}

// Subscribe implements Media.
func (m *SimulatedMedia) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs = append(m.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, sub := range m.subs {
				if sub.id == id {
					m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Close stops playback and event delivery.
func (m *SimulatedMedia) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.haltLocked()
	m.closed = true
	m.mu.Unlock()
	close(m.done)
}

func (m *SimulatedMedia) run(ticker clockwork.Ticker, stop chan struct{}) {
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
		}

		m.mu.Lock()
		select {
		case <-stop:
			m.mu.Unlock()
			return
		default:
		}
		pos := m.positionLocked()
		if pos >= m.duration {
			m.position = m.duration
			m.playing = false
			m.stopLoop = nil
			m.enqueueLocked(Event{Kind: EventTimeUpdate, CurrentTime: m.duration, Duration: m.duration})
			m.enqueueLocked(Event{Kind: EventEnded, CurrentTime: m.duration, Duration: m.duration})
			m.mu.Unlock()
			return
		}
		m.enqueueLocked(Event{Kind: EventTimeUpdate, CurrentTime: pos, Duration: m.duration})
		m.mu.Unlock()
	}
}

func (m *SimulatedMedia) positionLocked() float64 {
	if !m.playing {
		return m.position
	}
	pos := m.position + m.clock.Since(m.anchor).Seconds()
	if pos > m.duration {
		pos = m.duration
	}
	return pos
}

func (m *SimulatedMedia) haltLocked() {
	if !m.playing {
		return
	}
	m.position = m.positionLocked()
	m.playing = false
	if m.stopLoop != nil {
		close(m.stopLoop)
		m.stopLoop = nil
	}
}

func (m *SimulatedMedia) enqueueLocked(ev Event) {
	if m.closed {
		return
	}
	ev.Source = m.src
	m.queue = append(m.queue, queuedEvent{ev: ev, load: m.loads})
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// dispatch delivers queued events in order without holding the lock, so
// subscribers may call back into the element.
func (m *SimulatedMedia) dispatch() {
	for {
		select {
		case <-m.done:
			return
		case <-m.wake:
		}

		for {
			m.mu.Lock()
			if len(m.queue) == 0 || m.closed {
				m.mu.Unlock()
				break
			}
			next := m.queue[0]
			m.queue = m.queue[1:]
			subs := append([]subscriber(nil), m.subs...)
			m.mu.Unlock()

			for _, sub := range subs {
				if !m.current(next.load) {
					break
				}
				sub.fn(next.ev)
			}
		}
	}
}

// current reports whether events stamped with load still belong to the
// loaded source.
func (m *SimulatedMedia) current(load uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return load == m.loads && !m.closed
}

type subscriber struct {
	id int
	fn func(Event)
}

type queuedEvent struct {
	ev   Event
	load uint64
}

var _ Media = (*SimulatedMedia)(nil)
