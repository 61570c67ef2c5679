package audio

import (
	"math"
	"math/rand"
	"time"
)

// SynthesizeSpeech generates speech-like PCM16 audio: a harmonic stack on a
// wandering fundamental, shaped by a syllable-rate amplitude envelope. It is
// nowhere near real speech, but it lands inside the energy and
// zero-crossing bands a VAD (and LooksLikeSpeech) accepts, which is all the
// stub backend and the heuristic tests need.
func SynthesizeSpeech(dur time.Duration, sampleRate int) []byte {
	n := int(float64(sampleRate) * dur.Seconds())
	samples := make([]int16, n)

	const (
		f0           = 120.0 // fundamental, male-ish pitch
		syllableRate = 4.0   // envelope cycles per second
	)

	for i := range samples {
		t := float64(i) / float64(sampleRate)

		// Slow vibrato keeps the signal from being perfectly periodic.
		fund := f0 * (1 + 0.03*math.Sin(2*math.Pi*1.5*t))

		v := 0.6 * math.Sin(2*math.Pi*fund*t)
		v += 0.25 * math.Sin(2*math.Pi*2*fund*t)
		v += 0.1 * math.Sin(2*math.Pi*3*fund*t)

		// Syllable envelope: raised cosine, never fully closing.
		env := 0.55 + 0.45*math.Sin(2*math.Pi*syllableRate*t)
		v *= env * 0.5

		samples[i] = int16(v * 32767)
	}
	return Bytes(samples)
}

// Silence returns all-zero PCM16 of the given duration.
func Silence(dur time.Duration, sampleRate int) []byte {
	n := int(float64(sampleRate) * dur.Seconds())
	return make([]byte, n*2)
}

// WhiteNoise returns uniform noise PCM16 at the given amplitude in [0,1].
// Deterministic: the generator is seeded per call.
func WhiteNoise(dur time.Duration, sampleRate int, amplitude float64) []byte {
	rng := rand.New(rand.NewSource(1))
	n := int(float64(sampleRate) * dur.Seconds())
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16((rng.Float64()*2 - 1) * amplitude * 32767)
	}
	return Bytes(samples)
}
