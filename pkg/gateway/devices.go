package gateway

import (
	"sync"
	"time"

	"github.com/boardroomlabs/boardroom/pkg/meeting/audio"
)

// socketInput adapts inbound websocket audio frames to the pipeline's
// microphone contract. The browser does the actual capture; Feed is called
// from the socket read loop.
type socketInput struct {
	mu      sync.Mutex
	onFrame func(samples []float32)
}

func (d *socketInput) Start(onFrame func(samples []float32)) error {
	d.mu.Lock()
	d.onFrame = onFrame
	d.mu.Unlock()
	return nil
}

func (d *socketInput) Stop() error {
	d.mu.Lock()
	d.onFrame = nil
	d.mu.Unlock()
	return nil
}

// Feed delivers one decoded microphone frame. Frames arriving before Start
// or after Stop are dropped.
func (d *socketInput) Feed(samples []float32) {
	d.mu.Lock()
	onFrame := d.onFrame
	d.mu.Unlock()
	if onFrame != nil {
		onFrame(samples)
	}
}

// socketOutput plays scheduled buffers by sending them down the websocket at
// their scheduled clock position. The device clock starts at zero when the
// session opens.
type socketOutput struct {
	epoch      time.Time
	sampleRate int
	send       func(pcm []byte)

	mu     sync.Mutex
	closed bool
}

func newSocketOutput(sampleRate int, send func(pcm []byte)) *socketOutput {
	return &socketOutput{epoch: time.Now(), sampleRate: sampleRate, send: send}
}

func (d *socketOutput) Now() time.Duration {
	return time.Since(d.epoch)
}

func (d *socketOutput) Play(pcm []byte, at time.Duration) (audio.PlaybackHandle, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()

	handle := &socketHandle{done: make(chan struct{})}
	if closed {
		handle.finish()
		return handle, nil
	}

	delay := at - d.Now()
	if delay < 0 {
		delay = 0
	}
	duration := audio.Duration(len(pcm), d.sampleRate)

	handle.fire = time.AfterFunc(delay, func() {
		handle.mu.Lock()
		if handle.stopped {
			handle.mu.Unlock()
			return
		}
		handle.mu.Unlock()

		d.send(pcm)

		handle.mu.Lock()
		if !handle.stopped {
			handle.complete = time.AfterFunc(duration, handle.finish)
		}
		handle.mu.Unlock()
	})
	return handle, nil
}

func (d *socketOutput) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

type socketHandle struct {
	mu       sync.Mutex
	stopped  bool
	fire     *time.Timer
	complete *time.Timer
	done     chan struct{}
	doneOnce sync.Once
}

func (h *socketHandle) Stop() error {
	h.mu.Lock()
	h.stopped = true
	if h.fire != nil {
		h.fire.Stop()
	}
	if h.complete != nil {
		h.complete.Stop()
	}
	h.mu.Unlock()
	h.finish()
	return nil
}

func (h *socketHandle) Done() <-chan struct{} { return h.done }

func (h *socketHandle) finish() {
	h.doneOnce.Do(func() { close(h.done) })
}
