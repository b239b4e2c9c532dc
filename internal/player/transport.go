package player

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vidfriends/clips/internal/format"
)

// DefaultHideDelay is how long controls stay up without pointer movement
// while playing.
const DefaultHideDelay = 3000 * time.Millisecond

// Status is the transport state.
type Status int

const (
	StatusIdle Status = iota
	StatusPlaying
	StatusPaused
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusEnded:
		return "ended"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// State is a snapshot of one player.
type State struct {
	Source          string
	Status          Status
	IsPlaying       bool
	IsMuted         bool
	IsFullscreen    bool
	CurrentTime     float64
	Duration        float64
	ProgressPercent float64
	ControlsVisible bool
}

// Option configures a Transport.
type Option func(*Transport)

// WithClock drives the hide timer from clock.
func WithClock(clock clockwork.Clock) Option {
	return func(t *Transport) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithAutoplay starts playback as soon as the transport is created.
func WithAutoplay() Option {
	return func(t *Transport) {
		t.autoplay = true
	}
}

// WithHideDelay overrides DefaultHideDelay.
func WithHideDelay(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.hideDelay = d
		}
	}
}

// Transport is the state machine for a single mounted player. Instances
// share nothing with each other.
type Transport struct {
	media     Media
	clock     clockwork.Clock
	hideDelay time.Duration
	autoplay  bool

	mu          sync.Mutex
	state       State
	hideTimer   clockwork.Timer
	hideGen     uint64
	unsubscribe func()
	closed      bool
}

// NewTransport mounts a player on media with src loaded. The player starts
// Idle, muted and with controls visible.
func NewTransport(media Media, src string, opts ...Option) *Transport {
	t := &Transport{
		media:     media,
		clock:     clockwork.NewRealClock(),
		hideDelay: DefaultHideDelay,
		state: State{
			Source:          src,
			Status:          StatusIdle,
			IsMuted:         true,
			ControlsVisible: true,
		},
	}
	for _, opt := range opts {
		opt(t)
	}

	t.unsubscribe = media.Subscribe(t.handleEvent)
	media.SetMuted(true)
	media.Load(src)

	if t.autoplay {
		t.mu.Lock()
		t.playLocked()
		t.mu.Unlock()
	}
	return t
}

// State returns a snapshot of the player.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Label renders the position as "m:ss / m:ss".
func (t *Transport) Label() string {
	s := t.State()
	return format.Clock(s.CurrentTime) + " / " + format.Clock(s.Duration)
}

// TogglePlay pauses a playing player and plays any other.
func (t *Transport) TogglePlay() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return t.state
	}

	if t.state.Status == StatusPlaying {
		t.media.Pause()
		t.setStatus(StatusPaused)
		t.showControlsLocked()
		return t.state
	}
	t.playLocked()
	return t.state
}

// Restart rewinds to the start and plays.
func (t *Transport) Restart() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return t.state
	}

	t.media.Seek(0)
	t.setPosition(0)
	t.playLocked()
	return t.state
}

// Seek jumps to fraction of the duration. fraction is clamped to [0, 1];
// the play state is unchanged.
func (t *Transport) Seek(fraction float64) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return t.state
	}

	fraction = clampUnit(fraction)
	if t.state.Duration <= 0 {
		return t.state
	}
	target := fraction * t.state.Duration
	t.media.Seek(target)
	t.setPosition(target)
	return t.state
}

// SeekAt converts a pointer position on the progress track into a seek.
// left and width describe the track; positions outside it clamp to its
// edges.
func (t *Transport) SeekAt(x, left, width float64) State {
	if width <= 0 {
		return t.State()
	}
	return t.Seek((x - left) / width)
}

// ToggleMute flips the mute flag without touching the play state.
func (t *Transport) ToggleMute() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return t.state
	}

	t.state.IsMuted = !t.state.IsMuted
	t.media.SetMuted(t.state.IsMuted)
	return t.state
}

// ToggleFullscreen flips the fullscreen flag.
func (t *Transport) ToggleFullscreen() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return t.state
	}
	t.state.IsFullscreen = !t.state.IsFullscreen
	return t.state
}

// PointerMove shows the controls and restarts the hide countdown.
func (t *Transport) PointerMove() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return t.state
	}
	t.showControlsLocked()
	return t.state
}

// PointerLeave hides the controls at once while playing. A paused player
// keeps them visible.
func (t *Transport) PointerLeave() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return t.state
	}
	if t.state.Status == StatusPlaying {
		t.cancelHideLocked()
		t.state.ControlsVisible = false
	}
	return t.state
}

// SetSource loads a new source. Position, duration and status reset to
// Idle; the mute preference carries over.
func (t *Transport) SetSource(src string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return t.state
	}

	if t.state.Status == StatusPlaying {
		t.media.Pause()
	}
	t.cancelHideLocked()
	t.media.Load(src)
	t.state = State{
		Source:          src,
		Status:          StatusIdle,
		IsMuted:         t.state.IsMuted,
		IsFullscreen:    t.state.IsFullscreen,
		ControlsVisible: true,
	}
	return t.state
}

// Close detaches from the media element and stops the hide timer. Calls
// after Close leave the state unchanged.
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.cancelHideLocked()
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
}

func (t *Transport) handleEvent(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	// Late events of a replaced source.
	if ev.Source != "" && ev.Source != t.state.Source {
		return
	}

	switch ev.Kind {
	case EventLoadedMetadata:
		t.state.Duration = sanitize(ev.Duration)
		t.setPosition(t.state.CurrentTime)
	case EventTimeUpdate:
		if d := sanitize(ev.Duration); d > 0 {
			t.state.Duration = d
		}
		t.setPosition(ev.CurrentTime)
	case EventEnded:
		if d := sanitize(ev.Duration); d > 0 {
			t.state.Duration = d
		}
		t.setPosition(ev.CurrentTime)
		t.setStatus(StatusEnded)
		t.showControlsLocked()
	}
}

func (t *Transport) playLocked() {
	if err := t.media.Play(); err != nil {
		// Playback was refused; stay where we are with controls up.
		t.showControlsLocked()
		return
	}
	t.setStatus(StatusPlaying)
	t.showControlsLocked()
}

func (t *Transport) setStatus(s Status) {
	t.state.Status = s
	t.state.IsPlaying = s == StatusPlaying
}

func (t *Transport) setPosition(seconds float64) {
	seconds = sanitize(seconds)
	if t.state.Duration > 0 && seconds > t.state.Duration {
		seconds = t.state.Duration
	}
	t.state.CurrentTime = seconds
	if t.state.Duration > 0 {
		t.state.ProgressPercent = seconds / t.state.Duration * 100
	} else {
		t.state.ProgressPercent = 0
	}
}

// showControlsLocked makes the controls visible and, while playing, arms a
// fresh hide timer. Only the most recently armed timer may hide them.
func (t *Transport) showControlsLocked() {
	t.state.ControlsVisible = true
	t.cancelHideLocked()
	if t.state.Status != StatusPlaying {
		return
	}

	gen := t.hideGen
	t.hideTimer = t.clock.AfterFunc(t.hideDelay, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.closed || gen != t.hideGen || t.state.Status != StatusPlaying {
			return
		}
		t.state.ControlsVisible = false
	})
}

func (t *Transport) cancelHideLocked() {
	t.hideGen++
	if t.hideTimer != nil {
		t.hideTimer.Stop()
		t.hideTimer = nil
	}
}

func clampUnit(f float64) float64 {
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

func sanitize(seconds float64) float64 {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0
	}
	return seconds
}
