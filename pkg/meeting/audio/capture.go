package audio

import (
	"sync"
	"sync/atomic"

	"github.com/boardroomlabs/boardroom/pkg/core"
)

// InputDevice is a microphone-like source of fixed-size floating-point
// frames. The frame callback runs on the device's capture deadline and must
// not block.
type InputDevice interface {
	Start(onFrame func(samples []float32)) error
	Stop() error
}

// Capture encodes microphone frames to PCM and meters their level. Muting
// suppresses chunk emission and forces the level to zero without stopping the
// underlying device.
type Capture struct {
	device InputDevice

	onChunk func(pcm []byte)
	onLevel func(level float64)

	muted atomic.Bool

	mu      sync.Mutex
	started bool
}

// NewCapture wires a capture stage. onChunk receives encoded PCM for each
// unmuted frame; onLevel receives the frame's volume level. Either callback
// may be nil.
func NewCapture(device InputDevice, onChunk func([]byte), onLevel func(float64)) *Capture {
	return &Capture{device: device, onChunk: onChunk, onLevel: onLevel}
}

// Start opens the device. A failed open is a configuration-style error.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	// A nil device means an audioless session; there is nothing to open.
	if c.device == nil {
		return nil
	}
	if err := c.device.Start(c.handleFrame); err != nil {
		return core.NewAudioError("open capture device", err)
	}
	c.started = true
	return nil
}

func (c *Capture) handleFrame(samples []float32) {
	if c.muted.Load() {
		if c.onLevel != nil {
			c.onLevel(0)
		}
		return
	}
	if c.onLevel != nil {
		c.onLevel(Level(samples))
	}
	if c.onChunk != nil {
		c.onChunk(EncodePCM16(samples))
	}
}

// SetMuted toggles mute. The device keeps running either way.
func (c *Capture) SetMuted(muted bool) {
	c.muted.Store(muted)
}

// Muted reports the current mute state.
func (c *Capture) Muted() bool {
	return c.muted.Load()
}

// Stop stops the underlying device. Idempotent.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return nil
	}
	c.started = false
	if err := c.device.Stop(); err != nil {
		return core.NewAudioError("stop capture device", err)
	}
	return nil
}
