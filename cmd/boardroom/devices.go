package main

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/boardroomlabs/boardroom/pkg/meeting/audio"
)

const micFrameBytes = 1024

// ffmpegInput captures the default microphone via an ffmpeg subprocess
// emitting raw s16le mono PCM on stdout.
type ffmpegInput struct {
	sampleRate int

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

func newFFmpegInput(sampleRate int) *ffmpegInput {
	return &ffmpegInput{sampleRate: sampleRate}
}

func (d *ffmpegInput) Start(onFrame func(samples []float32)) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return errors.New("ffmpeg is required for mic capture (install ffmpeg and ensure it is in PATH)")
	}
	args, err := micFFmpegArgs(runtime.GOOS, d.sampleRate)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	cmd := exec.Command("ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open ffmpeg stdout: %w", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg mic capture: %w", err)
	}
	d.cmd = cmd
	d.stdout = stdout

	go func() {
		buf := make([]byte, micFrameBytes)
		for {
			n, readErr := stdout.Read(buf)
			if n > 0 {
				frame := make([]byte, n)
				copy(frame, buf[:n])
				onFrame(audio.DecodePCM16(frame))
			}
			if readErr != nil {
				return
			}
		}
	}()
	return nil
}

func (d *ffmpegInput) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd != nil && d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
		_ = d.cmd.Wait()
	}
	d.cmd = nil
	d.stdout = nil
	return nil
}

func micFFmpegArgs(goos string, sampleRate int) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "avfoundation", "-i", ":0",
			"-ac", "1", "-ar", fmt.Sprintf("%d", sampleRate),
			"-f", "s16le", "-",
		}, nil
	case "linux":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "pulse", "-i", "default",
			"-ac", "1", "-ar", fmt.Sprintf("%d", sampleRate),
			"-f", "s16le", "-",
		}, nil
	default:
		return nil, fmt.Errorf("mic capture is not implemented for %s; supported platforms: darwin, linux", goos)
	}
}

// ffplayOutput plays scheduled PCM buffers through an ffplay subprocess.
// Stopping an already-started buffer restarts ffplay, since its pipe buffer
// cannot be drained selectively.
type ffplayOutput struct {
	sampleRate int
	epoch      time.Time

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	closed bool
}

func newFFplayOutput(sampleRate int) (*ffplayOutput, error) {
	if _, err := exec.LookPath("ffplay"); err != nil {
		return nil, errors.New("ffplay is required for playback (install ffmpeg/ffplay and ensure it is in PATH)")
	}
	d := &ffplayOutput{sampleRate: sampleRate, epoch: time.Now()}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.startLocked(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *ffplayOutput) startLocked() error {
	cmd := exec.Command("ffplay",
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", d.sampleRate),
		"-ac", "1",
		"-i", "pipe:0",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open ffplay stdin: %w", err)
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffplay: %w", err)
	}
	d.cmd = cmd
	d.stdin = stdin
	return nil
}

func (d *ffplayOutput) Now() time.Duration {
	return time.Since(d.epoch)
}

func (d *ffplayOutput) Play(pcm []byte, at time.Duration) (audio.PlaybackHandle, error) {
	handle := &ffplayHandle{device: d, done: make(chan struct{})}

	delay := at - d.Now()
	if delay < 0 {
		delay = 0
	}
	duration := audio.Duration(len(pcm), d.sampleRate)

	handle.mu.Lock()
	handle.fire = time.AfterFunc(delay, func() {
		handle.mu.Lock()
		if handle.stopped {
			handle.mu.Unlock()
			return
		}
		handle.fired = true
		handle.mu.Unlock()

		if err := d.write(pcm); err != nil {
			handle.finish()
			return
		}

		handle.mu.Lock()
		if !handle.stopped {
			handle.complete = time.AfterFunc(duration, handle.finish)
		}
		handle.mu.Unlock()
	})
	handle.mu.Unlock()
	return handle, nil
}

func (d *ffplayOutput) write(pcm []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.stdin == nil {
		return errors.New("ffplay is not running")
	}
	_, err := d.stdin.Write(pcm)
	return err
}

// reset kills and restarts ffplay, dropping whatever it had buffered.
func (d *ffplayOutput) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.killLocked()
	if err := d.startLocked(); err != nil {
		d.stdin = nil
	}
}

func (d *ffplayOutput) killLocked() {
	if d.cmd != nil && d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
		_ = d.cmd.Wait()
	}
	d.cmd = nil
	d.stdin = nil
}

func (d *ffplayOutput) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.killLocked()
	return nil
}

type ffplayHandle struct {
	device *ffplayOutput

	mu       sync.Mutex
	stopped  bool
	fired    bool
	fire     *time.Timer
	complete *time.Timer
	done     chan struct{}
	doneOnce sync.Once
}

func (h *ffplayHandle) Stop() error {
	h.mu.Lock()
	alreadyStopped := h.stopped
	h.stopped = true
	fired := h.fired
	if h.fire != nil {
		h.fire.Stop()
	}
	if h.complete != nil {
		h.complete.Stop()
	}
	h.mu.Unlock()

	if fired && !alreadyStopped {
		h.device.reset()
	}
	h.finish()
	return nil
}

func (h *ffplayHandle) Done() <-chan struct{} { return h.done }

func (h *ffplayHandle) finish() {
	h.doneOnce.Do(func() { close(h.done) })
}
