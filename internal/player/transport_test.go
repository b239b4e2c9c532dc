package player

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

type mediaStub struct {
	mu       sync.Mutex
	calls    []string
	seeks    []float64
	muted    bool
	playErr  error
	handlers map[int]func(Event)
	nextID   int
	loaded   string
}

func newMediaStub() *mediaStub {
	return &mediaStub{handlers: make(map[int]func(Event))}
}

func (m *mediaStub) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *mediaStub) Load(src string) {
	m.record("load")
	m.mu.Lock()
	m.loaded = src
	m.mu.Unlock()
}

func (m *mediaStub) Play() error {
	m.record("play")
	return m.playErr
}

func (m *mediaStub) Pause() { m.record("pause") }

func (m *mediaStub) SetMuted(muted bool) {
	m.mu.Lock()
	m.muted = muted
	m.mu.Unlock()
}

func (m *mediaStub) Seek(seconds float64) {
	m.record("seek")
	m.mu.Lock()
	m.seeks = append(m.seeks, seconds)
	m.mu.Unlock()
}

func (m *mediaStub) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.handlers[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.handlers, id)
		m.mu.Unlock()
	}
}

func (m *mediaStub) emit(ev Event) {
	m.mu.Lock()
	handlers := make([]func(Event), 0, len(m.handlers))
	for _, fn := range m.handlers {
		handlers = append(handlers, fn)
	}
	m.mu.Unlock()
	for _, fn := range handlers {
		fn(ev)
	}
}

func (m *mediaStub) subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

func waitForCondition(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

func newTestTransport(t *testing.T, opts ...Option) (*Transport, *mediaStub, fakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	media := newMediaStub()
	tr := NewTransport(media, "https://cdn.example.com/v1.mp4", append([]Option{WithClock(clock)}, opts...)...)
	t.Cleanup(tr.Close)
	return tr, media, clock
}

func TestTransportInitialState(t *testing.T) {
	tr, media, _ := newTestTransport(t)

	s := tr.State()
	if s.Status != StatusIdle || s.IsPlaying || !s.IsMuted || !s.ControlsVisible {
		t.Fatalf("unexpected initial state %+v", s)
	}
	if s.ProgressPercent != 0 || s.CurrentTime != 0 || s.Duration != 0 {
		t.Fatalf("expected zero position, got %+v", s)
	}
	if !media.muted || media.loaded != "https://cdn.example.com/v1.mp4" {
		t.Fatalf("media not prepared: muted=%v loaded=%q", media.muted, media.loaded)
	}
}

func TestTransportTogglePlay(t *testing.T) {
	tr, media, _ := newTestTransport(t)

	if s := tr.TogglePlay(); !s.IsPlaying || s.Status != StatusPlaying {
		t.Fatalf("expected playing, got %+v", s)
	}
	if s := tr.TogglePlay(); s.IsPlaying || s.Status != StatusPaused {
		t.Fatalf("expected paused, got %+v", s)
	}
	if s := tr.TogglePlay(); !s.IsPlaying {
		t.Fatalf("expected playing again, got %+v", s)
	}

	media.mu.Lock()
	defer media.mu.Unlock()
	want := []string{"load", "play", "pause", "play"}
	if len(media.calls) != len(want) {
		t.Fatalf("unexpected media calls %v", media.calls)
	}
	for i := range want {
		if media.calls[i] != want[i] {
			t.Fatalf("unexpected media calls %v", media.calls)
		}
	}
}

func TestTransportPlayRefused(t *testing.T) {
	tr, media, _ := newTestTransport(t)
	media.playErr = errors.New("autoplay blocked")

	s := tr.TogglePlay()
	if s.IsPlaying || s.Status != StatusIdle || !s.ControlsVisible {
		t.Fatalf("expected to stay idle with controls, got %+v", s)
	}
}

func TestTransportSeek(t *testing.T) {
	tr, media, _ := newTestTransport(t)
	media.emit(Event{Kind: EventLoadedMetadata, Duration: 100})

	s := tr.Seek(0.5)
	if s.CurrentTime != 50 || s.ProgressPercent != 50 {
		t.Fatalf("expected 50s / 50%%, got %+v", s)
	}
	if s.Status != StatusIdle {
		t.Fatalf("seek must not change play state, got %v", s.Status)
	}
	if len(media.seeks) != 1 || media.seeks[0] != 50 {
		t.Fatalf("unexpected media seeks %v", media.seeks)
	}

	tr.TogglePlay()
	if s := tr.Seek(0.25); !s.IsPlaying || s.CurrentTime != 25 {
		t.Fatalf("expected playing at 25s, got %+v", s)
	}
}

func TestTransportSeekClamps(t *testing.T) {
	tr, media, _ := newTestTransport(t)
	media.emit(Event{Kind: EventLoadedMetadata, Duration: 80})

	tests := []struct {
		name string
		x    float64
		want float64
	}{
		{"left of track", 10, 0},
		{"start", 100, 0},
		{"middle", 150, 40},
		{"end", 200, 80},
		{"right of track", 260, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tr.SeekAt(tt.x, 100, 100)
			if s.CurrentTime != tt.want {
				t.Fatalf("SeekAt(%v) = %v, want %v", tt.x, s.CurrentTime, tt.want)
			}
			if s.ProgressPercent < 0 || s.ProgressPercent > 100 {
				t.Fatalf("progress out of range: %v", s.ProgressPercent)
			}
		})
	}

	if s := tr.Seek(math.NaN()); s.CurrentTime != 0 {
		t.Fatalf("expected NaN to clamp to 0, got %v", s.CurrentTime)
	}
}

func TestTransportSeekWithoutDuration(t *testing.T) {
	tr, media, _ := newTestTransport(t)

	s := tr.Seek(0.5)
	if s.CurrentTime != 0 || s.ProgressPercent != 0 {
		t.Fatalf("expected no movement without duration, got %+v", s)
	}
	if len(media.seeks) != 0 {
		t.Fatalf("expected no media seek, got %v", media.seeks)
	}
}

func TestTransportRestart(t *testing.T) {
	tr, media, _ := newTestTransport(t)
	media.emit(Event{Kind: EventLoadedMetadata, Duration: 30})
	media.emit(Event{Kind: EventTimeUpdate, CurrentTime: 30, Duration: 30})
	media.emit(Event{Kind: EventEnded, CurrentTime: 30, Duration: 30})

	if s := tr.State(); s.Status != StatusEnded || s.IsPlaying {
		t.Fatalf("expected ended, got %+v", s)
	}

	s := tr.Restart()
	if s.Status != StatusPlaying || s.CurrentTime != 0 || s.ProgressPercent != 0 {
		t.Fatalf("expected playing from zero, got %+v", s)
	}
	if last := media.seeks[len(media.seeks)-1]; last != 0 {
		t.Fatalf("expected media rewound, got %v", last)
	}
}

func TestTransportToggleMute(t *testing.T) {
	tr, media, _ := newTestTransport(t)
	tr.TogglePlay()

	s := tr.ToggleMute()
	if s.IsMuted || media.muted {
		t.Fatalf("expected unmuted, state=%v media=%v", s.IsMuted, media.muted)
	}
	if !s.IsPlaying {
		t.Fatal("mute must not change play state")
	}
	if s := tr.ToggleMute(); !s.IsMuted {
		t.Fatal("expected muted again")
	}
}

func TestTransportEventsDrivePosition(t *testing.T) {
	tr, media, _ := newTestTransport(t)

	media.emit(Event{Kind: EventTimeUpdate, CurrentTime: 3})
	if s := tr.State(); s.CurrentTime != 3 || s.ProgressPercent != 0 {
		t.Fatalf("expected guarded progress without duration, got %+v", s)
	}

	media.emit(Event{Kind: EventLoadedMetadata, Duration: 12})
	media.emit(Event{Kind: EventTimeUpdate, CurrentTime: 3, Duration: 12})
	s := tr.State()
	if s.Duration != 12 || s.ProgressPercent != 25 {
		t.Fatalf("unexpected state %+v", s)
	}
	if got := tr.Label(); got != "0:03 / 0:12" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestTransportControlsHideAfterQuietPeriod(t *testing.T) {
	tr, _, clock := newTestTransport(t)

	tr.TogglePlay()
	clock.Advance(DefaultHideDelay - time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	if !tr.State().ControlsVisible {
		t.Fatal("controls hidden before the quiet period elapsed")
	}

	clock.Advance(time.Millisecond)
	waitForCondition(t, time.Second, func() bool { return !tr.State().ControlsVisible })
}

func TestTransportPointerMoveRestartsCountdown(t *testing.T) {
	tr, _, clock := newTestTransport(t)

	tr.TogglePlay()
	clock.Advance(2 * time.Second)
	tr.PointerMove()
	clock.Advance(2 * time.Second)
	time.Sleep(10 * time.Millisecond)
	if !tr.State().ControlsVisible {
		t.Fatal("stale timer hid the controls")
	}

	clock.Advance(time.Second)
	waitForCondition(t, time.Second, func() bool { return !tr.State().ControlsVisible })

	tr.PointerMove()
	if !tr.State().ControlsVisible {
		t.Fatal("pointer movement must show controls")
	}
}

func TestTransportPausedKeepsControls(t *testing.T) {
	tr, _, clock := newTestTransport(t)

	tr.TogglePlay()
	tr.TogglePlay()
	clock.Advance(10 * time.Second)
	time.Sleep(10 * time.Millisecond)
	if !tr.State().ControlsVisible {
		t.Fatal("paused player must keep controls visible")
	}
	if s := tr.PointerLeave(); !s.ControlsVisible {
		t.Fatal("pointer leave while paused must keep controls visible")
	}
}

func TestTransportPointerLeaveWhilePlaying(t *testing.T) {
	tr, _, _ := newTestTransport(t)

	tr.TogglePlay()
	if s := tr.PointerLeave(); s.ControlsVisible {
		t.Fatal("expected controls hidden on pointer leave while playing")
	}
}

func TestTransportEndedShowsControls(t *testing.T) {
	tr, media, clock := newTestTransport(t)
	media.emit(Event{Kind: EventLoadedMetadata, Duration: 5})

	tr.TogglePlay()
	clock.Advance(DefaultHideDelay)
	waitForCondition(t, time.Second, func() bool { return !tr.State().ControlsVisible })

	media.emit(Event{Kind: EventEnded, CurrentTime: 5, Duration: 5})
	s := tr.State()
	if s.Status != StatusEnded || !s.ControlsVisible || s.ProgressPercent != 100 {
		t.Fatalf("unexpected ended state %+v", s)
	}
	if s := tr.TogglePlay(); !s.IsPlaying {
		t.Fatal("toggle from ended must play")
	}
}

func TestTransportSetSourceResets(t *testing.T) {
	tr, media, _ := newTestTransport(t)
	media.emit(Event{Kind: EventLoadedMetadata, Duration: 20})
	tr.ToggleMute()
	tr.TogglePlay()
	tr.Seek(0.5)

	s := tr.SetSource("https://cdn.example.com/v2.mp4")
	if s.Status != StatusIdle || s.CurrentTime != 0 || s.Duration != 0 || s.ProgressPercent != 0 {
		t.Fatalf("expected reset state, got %+v", s)
	}
	if s.IsMuted {
		t.Fatal("mute preference must carry over")
	}
	if media.loaded != "https://cdn.example.com/v2.mp4" {
		t.Fatalf("expected new source loaded, got %q", media.loaded)
	}
}

func TestTransportIgnoresEventsOfReplacedSource(t *testing.T) {
	tr, media, _ := newTestTransport(t)
	media.emit(Event{Kind: EventLoadedMetadata, Source: "https://cdn.example.com/v1.mp4", Duration: 10})
	tr.TogglePlay()

	tr.SetSource("https://cdn.example.com/v2.mp4")
	media.emit(Event{Kind: EventTimeUpdate, Source: "https://cdn.example.com/v1.mp4", CurrentTime: 10, Duration: 10})
	media.emit(Event{Kind: EventEnded, Source: "https://cdn.example.com/v1.mp4", CurrentTime: 10, Duration: 10})

	s := tr.State()
	if s.Status != StatusIdle || s.CurrentTime != 0 || s.Duration != 0 || s.ProgressPercent != 0 {
		t.Fatalf("expected late events of the old source ignored, got %+v", s)
	}

	media.emit(Event{Kind: EventLoadedMetadata, Source: "https://cdn.example.com/v2.mp4", Duration: 40})
	if s := tr.State(); s.Duration != 40 {
		t.Fatalf("expected new source metadata applied, got %+v", s)
	}
}

func TestTransportCloseDetaches(t *testing.T) {
	tr, media, clock := newTestTransport(t)
	tr.TogglePlay()

	tr.Close()
	if media.subscribers() != 0 {
		t.Fatalf("expected listeners released, got %d", media.subscribers())
	}

	before := tr.State()
	media.emit(Event{Kind: EventTimeUpdate, CurrentTime: 9, Duration: 10})
	clock.Advance(DefaultHideDelay)
	time.Sleep(10 * time.Millisecond)
	tr.TogglePlay()

	if after := tr.State(); after != before {
		t.Fatalf("closed transport changed state: %+v -> %+v", before, after)
	}
	tr.Close()
}

func TestTransportAutoplay(t *testing.T) {
	tr, _, clock := newTestTransport(t, WithAutoplay())

	if s := tr.State(); !s.IsPlaying || !s.IsMuted {
		t.Fatalf("expected muted autoplay, got %+v", s)
	}
	clock.Advance(DefaultHideDelay)
	waitForCondition(t, time.Second, func() bool { return !tr.State().ControlsVisible })
}

func TestTransportInstancesIsolated(t *testing.T) {
	a, _, _ := newTestTransport(t)
	b, _, _ := newTestTransport(t)

	a.TogglePlay()
	a.ToggleMute()
	if s := b.State(); s.IsPlaying || !s.IsMuted {
		t.Fatalf("second player affected by first: %+v", s)
	}
}
