// Package ports defines the narrow collaborator interfaces spec.md §1
// and §4 leave out of scope for the core: audio prompts, a GPIO buzzer,
// scan observation for a UI counter, and device resolution. Each gets a
// null implementation so the core builds and runs without any of the
// real backends, per spec.md §9 DESIGN NOTES.
package ports

import "github.com/ClusterCockpit/scanhub-edge/pkg/log"

// AudioPort enqueues a named audio prompt. Enqueue must never block the
// caller — the core treats it as advisory, not durable (spec.md §5).
// Event names used by the core: "device_ready", "scan_ok", "network_lost".
type AudioPort interface {
	Enqueue(event string)
}

// NullAudioPort discards every event. Selected at startup when
// speaker_enabled is false or no voice_files are configured.
type NullAudioPort struct{}

func (NullAudioPort) Enqueue(string) {}

// ChannelAudioPort fans events out over a bounded channel that a real
// playback backend (out of scope for the core) would drain. Enqueue
// drops the event on a full channel rather than blocking the producer.
type ChannelAudioPort struct {
	events chan string
}

// NewChannelAudioPort creates a ChannelAudioPort with the given backlog.
func NewChannelAudioPort(backlog int) *ChannelAudioPort {
	return &ChannelAudioPort{events: make(chan string, backlog)}
}

func (p *ChannelAudioPort) Enqueue(event string) {
	select {
	case p.events <- event:
	default:
		log.Warnf("audio port queue full, dropping event %q", event)
	}
}

// Events exposes the channel for a playback backend to range over.
func (p *ChannelAudioPort) Events() <-chan string {
	return p.events
}

// BuzzerPort drives an optional GPIO buzzer. Like AudioPort, it is a thin
// side-effect port — no real GPIO driver ships with the core.
type BuzzerPort interface {
	Buzz()
}

// NullBuzzerPort is the default when no buzzer is configured.
type NullBuzzerPort struct{}

func (NullBuzzerPort) Buzz() {}
