// Package synth renders challenge melodies as waveforms.
//
// The synthesis is deliberately primitive: one sawtooth oscillator, a linear
// attack/decay envelope and a uniform noise floor that masks the exact tone
// boundaries. Given the same melody, parameters and noise source, the output
// is bit-reproducible.
package synth

import (
	"math"
	"math/rand"
	"time"

	"github.com/notegate/notegate/lib/music"
)

// Params holds every constant that shapes a rendered challenge.
type Params struct {
	SampleRate      int
	NoteDuration    time.Duration
	GapDuration     time.Duration
	PaddingDuration time.Duration
	AttackDuration  time.Duration
	PeakAmplitude   float64
	NoiseAmplitude  float64
}

// DefaultParams returns the parameters used when the tuning document does not
// override them.
func DefaultParams() Params {
	return Params{
		SampleRate:      44100,
		NoteDuration:    500 * time.Millisecond,
		GapDuration:     250 * time.Millisecond,
		PaddingDuration: 400 * time.Millisecond,
		AttackDuration:  20 * time.Millisecond,
		PeakAmplitude:   0.8,
		NoiseAmplitude:  0.015,
	}
}

// Samples converts a duration to a sample count at the configured rate.
func (p Params) Samples(d time.Duration) int {
	return int(int64(p.SampleRate) * int64(d) / int64(time.Second))
}

// TotalSamples is the exact length of an assembled waveform for an n-note
// melody: leading and trailing padding plus one tone and one gap per note.
func (p Params) TotalSamples(n int) int {
	return 2*p.Samples(p.PaddingDuration) + n*(p.Samples(p.NoteDuration)+p.Samples(p.GapDuration))
}

// Tone renders n samples of a sawtooth at freq under the attack/decay
// envelope. The envelope starts and ends at zero so tone segments splice into
// silence without clicks. A non-positive frequency renders as silence, which
// is how unknown notes degrade instead of failing the whole artifact.
func (p Params) Tone(freq float64, n int) []float64 {
	out := make([]float64, n)
	if freq <= 0 || n < 2 {
		return out
	}

	attack := p.Samples(p.AttackDuration)
	if attack < 1 {
		attack = 1
	}
	if attack > n-1 {
		attack = n - 1
	}

	period := 1 / freq

	for i := range out {
		t := float64(i) / float64(p.SampleRate)
		raw := 2 * (t/period - math.Floor(0.5+t/period))
		out[i] = raw * math.Max(0, p.envelope(i, n, attack))
	}

	return out
}

// envelope ramps 0 to peak over the attack window, then peak back to 0 over
// the remainder of the segment.
func (p Params) envelope(i, n, attack int) float64 {
	if i < attack {
		return p.PeakAmplitude * float64(i) / float64(attack)
	}

	return p.PeakAmplitude * float64(n-1-i) / float64(n-1-attack+1)
}

// Assembler lays out full challenge waveforms from melodies.
type Assembler struct {
	Params Params
	Scale  *music.Scale
}

// Assemble renders seq into a single sample buffer:
//
//	[padding][tone 1][gap][tone 2][gap]...[tone n][gap][padding]
//
// and overlays uniform noise in ±NoiseAmplitude over every sample, padding
// included. Passing a nil rng disables the noise term, which makes the
// output a pure function of the melody and parameters.
func (a *Assembler) Assemble(seq music.Sequence, rng *rand.Rand) []float64 {
	noteSamples := a.Params.Samples(a.Params.NoteDuration)
	gapSamples := a.Params.Samples(a.Params.GapDuration)

	buf := make([]float64, a.Params.TotalSamples(len(seq)))

	pos := a.Params.Samples(a.Params.PaddingDuration)
	for _, n := range seq {
		copy(buf[pos:], a.Params.Tone(a.Scale.Frequency(n), noteSamples))
		pos += noteSamples + gapSamples
	}

	if rng != nil && a.Params.NoiseAmplitude > 0 {
		for i := range buf {
			buf[i] += (rng.Float64()*2 - 1) * a.Params.NoiseAmplitude
		}
	}

	return buf
}
