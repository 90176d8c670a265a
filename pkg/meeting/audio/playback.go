package audio

import (
	"sync"
	"time"

	"github.com/boardroomlabs/boardroom/pkg/core"
)

// clockUnset marks a playback clock with no scheduled audio. It is a
// dedicated sentinel rather than zero so "schedule from now" can never be
// confused with a genuine zero timestamp.
const clockUnset = time.Duration(-1)

// OutputDevice plays PCM buffers at scheduled positions on a monotonic
// device clock.
type OutputDevice interface {
	// Now returns the current position of the device clock.
	Now() time.Duration
	// Play schedules pcm to start at the given clock position.
	Play(pcm []byte, at time.Duration) (PlaybackHandle, error)
	Close() error
}

// PlaybackHandle controls one scheduled buffer.
type PlaybackHandle interface {
	// Stop cancels the buffer. Stopping a buffer that already finished is
	// not an error the caller needs to care about.
	Stop() error
	// Done is closed when the buffer finishes or is stopped.
	Done() <-chan struct{}
}

// Player schedules inbound audio chunks for gapless playback. Chunks arrive
// over the stream with no timing metadata, so a monotonic clock is the only
// thing guaranteeing non-overlapping, in-order playback.
type Player struct {
	device     OutputDevice
	sampleRate int

	mu        sync.Mutex
	nextStart time.Duration
	units     map[int64]PlaybackHandle
	nextUnit  int64
	closed    bool
}

// NewPlayer creates a playback scheduler over the given device.
func NewPlayer(device OutputDevice, sampleRate int) *Player {
	return &Player{
		device:     device,
		sampleRate: sampleRate,
		nextStart:  clockUnset,
		units:      make(map[int64]PlaybackHandle),
	}
}

// Enqueue schedules one PCM chunk. The start time is the later of the clock's
// current position and the end of the previously scheduled chunk, so chunks
// never overlap and never schedule in the past.
func (p *Player) Enqueue(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return core.NewAudioError("player is closed", nil)
	}
	// No output device: the session is audioless, chunks are dropped.
	if p.device == nil {
		return nil
	}

	start := p.device.Now()
	if p.nextStart != clockUnset && p.nextStart > start {
		start = p.nextStart
	}

	handle, err := p.device.Play(pcm, start)
	if err != nil {
		return core.NewAudioError("schedule playback", err)
	}
	p.nextStart = start + Duration(len(pcm), p.sampleRate)

	id := p.nextUnit
	p.nextUnit++
	p.units[id] = handle

	go func() {
		<-handle.Done()
		p.mu.Lock()
		delete(p.units, id)
		p.mu.Unlock()
	}()
	return nil
}

// Interrupt stops every tracked unit and resets the clock, so the next chunk
// schedules from "now" instead of a stale future time. Errors from units that
// already finished naturally are swallowed.
func (p *Player) Interrupt() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, handle := range p.units {
		_ = handle.Stop()
		delete(p.units, id)
	}
	p.nextStart = clockUnset
}

// Pending reports how many scheduled units have not finished yet.
func (p *Player) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.units)
}

// NextStart returns the clock position the next chunk would extend from, and
// whether any audio has been scheduled since the last interruption.
func (p *Player) NextStart() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.nextStart == clockUnset {
		return 0, false
	}
	return p.nextStart, true
}

// Close interrupts playback and closes the device. Idempotent.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for id, handle := range p.units {
		_ = handle.Stop()
		delete(p.units, id)
	}
	p.nextStart = clockUnset
	p.mu.Unlock()
	if p.device == nil {
		return nil
	}
	if err := p.device.Close(); err != nil {
		return core.NewAudioError("close output device", err)
	}
	return nil
}
