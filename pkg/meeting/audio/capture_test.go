package audio

import (
	"errors"
	"testing"
)

type fakeInput struct {
	onFrame  func([]float32)
	startErr error
	started  bool
	stopped  bool
}

func (f *fakeInput) Start(onFrame func([]float32)) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.onFrame = onFrame
	f.started = true
	return nil
}

func (f *fakeInput) Stop() error {
	f.stopped = true
	return nil
}

func (f *fakeInput) emit(samples []float32) {
	if f.onFrame != nil {
		f.onFrame(samples)
	}
}

func TestCaptureEmitsChunksAndLevels(t *testing.T) {
	device := &fakeInput{}
	var chunks [][]byte
	var levels []float64
	c := NewCapture(device, func(pcm []byte) { chunks = append(chunks, pcm) }, func(l float64) { levels = append(levels, l) })

	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	device.emit([]float32{0.1, 0.1})

	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
	if len(chunks[0]) != 2*BytesPerSample {
		t.Fatalf("chunk bytes = %d, want %d", len(chunks[0]), 2*BytesPerSample)
	}
	if len(levels) != 1 || levels[0] <= 0 {
		t.Fatalf("levels = %v, want one positive entry", levels)
	}
}

func TestCaptureMuteSuppressesChunksAndZeroesLevel(t *testing.T) {
	device := &fakeInput{}
	var chunks [][]byte
	var levels []float64
	c := NewCapture(device, func(pcm []byte) { chunks = append(chunks, pcm) }, func(l float64) { levels = append(levels, l) })

	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.SetMuted(true)
	device.emit([]float32{0.5, 0.5})

	if len(chunks) != 0 {
		t.Fatalf("muted capture emitted %d chunks", len(chunks))
	}
	if len(levels) != 1 || levels[0] != 0 {
		t.Fatalf("muted levels = %v, want [0]", levels)
	}
	if device.stopped {
		t.Fatal("mute must not stop the device")
	}

	c.SetMuted(false)
	device.emit([]float32{0.5, 0.5})
	if len(chunks) != 1 {
		t.Fatalf("unmuted capture emitted %d chunks, want 1", len(chunks))
	}
}

func TestCaptureStartFailurePropagates(t *testing.T) {
	device := &fakeInput{startErr: errors.New("no mic")}
	c := NewCapture(device, nil, nil)
	if err := c.Start(); err == nil {
		t.Fatal("expected Start to fail")
	}
}

func TestCaptureStartAndStopAreIdempotent(t *testing.T) {
	device := &fakeInput{}
	c := NewCapture(device, nil, nil)

	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
