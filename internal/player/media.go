// Package player implements the transport state of a single video player:
// play and pause, mute, scrubbing and the self-hiding control overlay.
package player

// EventKind identifies a notification emitted by a media element.
type EventKind int

const (
	// EventTimeUpdate reports a new playback position.
	EventTimeUpdate EventKind = iota
	// EventLoadedMetadata reports that the duration is known.
	EventLoadedMetadata
	// EventEnded reports that playback reached the end of the media.
	EventEnded
)

func (k EventKind) String() string {
	switch k {
	case EventTimeUpdate:
		return "timeupdate"
	case EventLoadedMetadata:
		return "loadedmetadata"
	case EventEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Event is a media notification. CurrentTime and Duration are in seconds
// and reflect the element at the time the event was emitted. Source names
// the loaded source when the element knows it.
type Event struct {
	Kind        EventKind
	Source      string
	CurrentTime float64
	Duration    float64
}

// Media is the element being driven. It is the source of truth for the
// position, the duration and the end of playback.
type Media interface {
	Load(src string)
	Play() error
	Pause()
	SetMuted(muted bool)
	Seek(seconds float64)
	// Subscribe registers fn for every event until the returned function is
	// called.
	Subscribe(fn func(Event)) (unsubscribe func())
}
