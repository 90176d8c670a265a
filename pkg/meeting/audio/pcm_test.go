package audio

import (
	"math"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 0.25, -0.25}
	out := DecodePCM16(EncodePCM16(in))
	if len(out) != len(in) {
		t.Fatalf("length = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if math.Abs(float64(out[i]-in[i])) > 1.0/32768.0 {
			t.Fatalf("sample %d = %f, want ~%f", i, out[i], in[i])
		}
	}
}

func TestEncodeClampsOutOfRange(t *testing.T) {
	out := DecodePCM16(EncodePCM16([]float32{2.0, -2.0}))
	if out[0] < 0.99 {
		t.Fatalf("positive overflow decoded to %f, want ~1", out[0])
	}
	if out[1] > -0.99 {
		t.Fatalf("negative overflow decoded to %f, want ~-1", out[1])
	}
}

func TestDecodeIgnoresTrailingOddByte(t *testing.T) {
	if got := DecodePCM16([]byte{0, 0, 0x7f}); len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
}

func TestLevelScalesAndClamps(t *testing.T) {
	if got := Level(nil); got != 0 {
		t.Fatalf("Level(nil) = %f, want 0", got)
	}
	if got := Level([]float32{0, 0, 0}); got != 0 {
		t.Fatalf("silent level = %f, want 0", got)
	}

	// RMS of a constant 0.1 frame is 0.1; scaled by 4 it is 0.4.
	got := Level([]float32{0.1, 0.1, 0.1, 0.1})
	if math.Abs(got-0.4) > 1e-6 {
		t.Fatalf("level = %f, want 0.4", got)
	}

	// A full-scale frame clamps at 1.
	if got := Level([]float32{1, -1, 1, -1}); got != 1 {
		t.Fatalf("clamped level = %f, want 1", got)
	}
}

func TestIsSilence(t *testing.T) {
	if !IsSilence([]float32{0.001, -0.001}, 0) {
		t.Fatal("expected near-zero frame to be silent")
	}
	if IsSilence([]float32{0.5, -0.5}, 0) {
		t.Fatal("expected loud frame to be non-silent")
	}
	if !IsSilence([]float32{0.05, -0.05}, 0.9) {
		t.Fatal("expected frame below custom threshold to be silent")
	}
}

func TestDuration(t *testing.T) {
	// One second of 24 kHz 16-bit mono.
	if got := Duration(24000*BytesPerSample, 24000); got != time.Second {
		t.Fatalf("Duration = %v, want 1s", got)
	}
	if got := Duration(0, 24000); got != 0 {
		t.Fatalf("Duration(0) = %v, want 0", got)
	}
	if got := Duration(100, 0); got != 0 {
		t.Fatalf("Duration with zero rate = %v, want 0", got)
	}
}
