// Package audio implements the meeting audio pipeline: microphone capture
// with level metering on one side, gapless interruptible playback scheduling
// on the other. Both directions speak 16-bit signed little-endian mono PCM.
package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// BytesPerSample is the width of one 16-bit PCM sample.
const BytesPerSample = 2

// levelScale boosts typical speech RMS into a useful meter range before
// clamping to [0, 1].
const levelScale = 4.0

// SilenceThreshold is the default level below which a frame counts as silence.
const SilenceThreshold = 0.01

// EncodePCM16 converts floating-point samples in [-1, 1] to 16-bit signed
// little-endian PCM. Out-of-range samples are clamped.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s*32767)))
	}
	return out
}

// DecodePCM16 converts 16-bit signed little-endian PCM back to floating-point
// samples. A trailing odd byte is ignored.
func DecodePCM16(data []byte) []float32 {
	n := len(data) / BytesPerSample
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		out[i] = float32(v) / 32768.0
	}
	return out
}

// Level computes an RMS-based volume level scaled and clamped to [0, 1].
func Level(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	level := rms * levelScale
	if level > 1 {
		level = 1
	}
	return level
}

// IsSilence reports whether the frame's level falls below threshold.
// A non-positive threshold uses SilenceThreshold.
func IsSilence(samples []float32, threshold float64) bool {
	if threshold <= 0 {
		threshold = SilenceThreshold
	}
	return Level(samples) < threshold
}

// Duration returns the playback duration of n PCM bytes at the given sample
// rate.
func Duration(n int, sampleRate int) time.Duration {
	if n <= 0 || sampleRate <= 0 {
		return 0
	}
	samples := n / BytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
