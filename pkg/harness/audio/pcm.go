// Package audio provides PCM16 tooling for the voice-agent suite: decoding
// captured binary frames, judging whether they plausibly contain speech, and
// synthesizing speech-like samples for stub responses.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Samples decodes little-endian PCM16 bytes into int16 samples.
// A trailing odd byte is rejected: agent audio frames are always whole
// samples.
func Samples(pcm []byte) ([]int16, error) {
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("pcm data has odd length %d", len(pcm))
	}
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples, nil
}

// Bytes encodes int16 samples as little-endian PCM16.
func Bytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// SignalStats summarizes a PCM16 buffer for speech-likeness checks.
type SignalStats struct {
	Samples          int
	RMS              float64 // root mean square, normalized to [0,1]
	Peak             float64 // peak amplitude, normalized to [0,1]
	ZeroCrossingRate float64 // crossings per sample, in [0,1]
}

// Stats computes SignalStats over little-endian PCM16 data.
func Stats(pcm []byte) (SignalStats, error) {
	samples, err := Samples(pcm)
	if err != nil {
		return SignalStats{}, err
	}
	if len(samples) == 0 {
		return SignalStats{}, fmt.Errorf("empty pcm data")
	}

	var sumSquares float64
	var peak float64
	crossings := 0
	for i, s := range samples {
		v := float64(s) / 32768.0
		sumSquares += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
		if i > 0 && (samples[i-1] < 0) != (s < 0) {
			crossings++
		}
	}

	return SignalStats{
		Samples:          len(samples),
		RMS:              math.Sqrt(sumSquares / float64(len(samples))),
		Peak:             peak,
		ZeroCrossingRate: float64(crossings) / float64(len(samples)),
	}, nil
}

// Thresholds for LooksLikeSpeech. Voiced speech at 16-24kHz sits well above
// the silence floor and crosses zero far less often than broadband noise.
const (
	speechMinRMS = 0.01
	speechMaxZCR = 0.35
	speechMinZCR = 0.001
)

// LooksLikeSpeech reports whether the stats plausibly describe speech audio
// rather than silence, DC, or noise. This is a coarse gate for captured
// agent audio, not a VAD: it only needs to reject the failure modes seen in
// practice (all-zero frames, JSON bytes misrouted to the binary channel,
// white noise from a broken resampler).
func (s SignalStats) LooksLikeSpeech() bool {
	if s.Samples == 0 {
		return false
	}
	if s.RMS < speechMinRMS {
		return false // silence floor
	}
	if s.ZeroCrossingRate > speechMaxZCR {
		return false // noise-like
	}
	if s.ZeroCrossingRate < speechMinZCR {
		return false // DC or constant signal
	}
	return true
}
