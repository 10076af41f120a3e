package player

// DeviceEvent names a transport event emitted by the playback device.
type DeviceEvent string

const (
	EventPlay           DeviceEvent = "play"
	EventPause          DeviceEvent = "pause"
	EventWaiting        DeviceEvent = "waiting"
	EventCanPlay        DeviceEvent = "canplay"
	EventEnded          DeviceEvent = "ended"
	EventLoadedMetadata DeviceEvent = "loadedmetadata"
	EventError          DeviceEvent = "error"
)

// EventHandler receives device events. err is non-nil only for EventError.
type EventHandler func(event DeviceEvent, err error)

// Device is the platform audio-rendering capability. One implementation
// exists per host environment; the controller is written against this
// interface and selects a variant at construction time.
type Device interface {
	// Load points the device at a playable URL and begins preparing it.
	Load(url string) error
	// Play starts or resumes playback of the loaded source.
	Play() error
	// Pause pauses playback.
	Pause() error
	// SeekTo moves the playback position.
	SeekTo(positionMs int64) error
	// PositionMs reports the current playback position.
	PositionMs() int64
	// DurationMs reports the loaded source duration, 0 when unknown.
	DurationMs() int64
	// Stop halts playback and resets the loaded source.
	Stop() error
	// SetEventHandler registers the single event handler. Passing nil
	// unregisters it.
	SetEventHandler(handler EventHandler)
	// Close releases the device.
	Close() error
}
