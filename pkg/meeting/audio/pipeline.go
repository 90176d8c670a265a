package audio

import "sync"

// PipelineConfig assembles a full pipeline.
type PipelineConfig struct {
	Input            InputDevice
	Output           OutputDevice
	OutputSampleRate int

	// OnChunk receives encoded microphone PCM. Wire this before the stream
	// opens so no input is dropped; guard the far end against a stream that
	// is not connected yet.
	OnChunk func(pcm []byte)
	// OnLevel receives the microphone volume level per frame.
	OnLevel func(level float64)
}

// Pipeline couples the capture and playback directions of one session.
type Pipeline struct {
	capture *Capture
	player  *Player

	mu       sync.Mutex
	shutDown bool
}

// NewPipeline builds a pipeline from its two devices.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		capture: NewCapture(cfg.Input, cfg.OnChunk, cfg.OnLevel),
		player:  NewPlayer(cfg.Output, cfg.OutputSampleRate),
	}
}

// Start opens the capture side. Playback needs no explicit start; it
// schedules lazily as chunks arrive.
func (p *Pipeline) Start() error {
	return p.capture.Start()
}

// PlayChunk forwards one synthesized audio payload to the scheduler.
func (p *Pipeline) PlayChunk(pcm []byte) error {
	return p.player.Enqueue(pcm)
}

// Interrupt cancels all scheduled playback and resets the playback clock.
func (p *Pipeline) Interrupt() {
	p.player.Interrupt()
}

// SetMuted toggles microphone mute.
func (p *Pipeline) SetMuted(muted bool) {
	p.capture.SetMuted(muted)
}

// Muted reports the microphone mute state.
func (p *Pipeline) Muted() bool {
	return p.capture.Muted()
}

// Player exposes the playback scheduler, mainly for inspection in tests.
func (p *Pipeline) Player() *Player {
	return p.player
}

// Shutdown stops capture, silences in-flight playback and closes the output
// device. Idempotent.
func (p *Pipeline) Shutdown() error {
	p.mu.Lock()
	if p.shutDown {
		p.mu.Unlock()
		return nil
	}
	p.shutDown = true
	p.mu.Unlock()

	stopErr := p.capture.Stop()
	p.player.Interrupt()
	if err := p.player.Close(); err != nil && stopErr == nil {
		stopErr = err
	}
	return stopErr
}
