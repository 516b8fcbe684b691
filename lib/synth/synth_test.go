package synth

import (
	"math"
	"math/rand"
	"testing"

	"github.com/notegate/notegate/lib/music"
)

func TestTotalSamples(t *testing.T) {
	p := DefaultParams()

	noteSamples := p.Samples(p.NoteDuration)
	gapSamples := p.Samples(p.GapDuration)
	padSamples := p.Samples(p.PaddingDuration)

	for _, n := range []int{0, 1, 5, 12} {
		want := 2*padSamples + n*(noteSamples+gapSamples)
		if got := p.TotalSamples(n); got != want {
			t.Errorf("TotalSamples(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestAssembleLength(t *testing.T) {
	a := &Assembler{Params: DefaultParams(), Scale: music.DefaultScale()}

	for _, seq := range []music.Sequence{
		{},
		{"C4"},
		{"C4", "D4", "E4", "F4", "G4"},
	} {
		buf := a.Assemble(seq, rand.New(rand.NewSource(1)))
		if len(buf) != a.Params.TotalSamples(len(seq)) {
			t.Errorf("assembled %d notes into %d samples, want %d", len(seq), len(buf), a.Params.TotalSamples(len(seq)))
		}
	}
}

func TestToneEnvelope(t *testing.T) {
	p := DefaultParams()
	n := p.Samples(p.NoteDuration)

	tone := p.Tone(440, n)

	if len(tone) != n {
		t.Fatalf("wanted %d samples, got: %d", n, len(tone))
	}

	if math.Abs(tone[0]) > 1e-9 {
		t.Errorf("first sample is %f, want 0", tone[0])
	}
	if math.Abs(tone[n-1]) > 1e-9 {
		t.Errorf("last sample is %f, want 0", tone[n-1])
	}

	for i, sample := range tone {
		if math.Abs(sample) > p.PeakAmplitude {
			t.Fatalf("sample %d is %f, beyond the configured peak %f", i, sample, p.PeakAmplitude)
		}
	}
}

func TestToneSilenceForBadFrequency(t *testing.T) {
	p := DefaultParams()
	n := p.Samples(p.NoteDuration)

	for _, freq := range []float64{0, -261.63} {
		for i, sample := range p.Tone(freq, n) {
			if sample != 0 {
				t.Fatalf("freq %f: sample %d is %f, want silence", freq, i, sample)
			}
		}
	}
}

func TestAssembleUnknownNoteIsSilent(t *testing.T) {
	a := &Assembler{Params: DefaultParams(), Scale: music.DefaultScale()}

	// noise disabled so silence is exact
	buf := a.Assemble(music.Sequence{"Z9"}, nil)

	for i, sample := range buf {
		if sample != 0 {
			t.Fatalf("sample %d is %f, want an all-silent artifact for an unknown note", i, sample)
		}
	}
}

func TestAssembleReproducible(t *testing.T) {
	a := &Assembler{Params: DefaultParams(), Scale: music.DefaultScale()}
	seq := music.Sequence{"C4", "E4", "G4", "E4", "C4"}

	one := a.Assemble(seq, rand.New(rand.NewSource(1337)))
	two := a.Assemble(seq, rand.New(rand.NewSource(1337)))

	if len(one) != len(two) {
		t.Fatalf("lengths differ: %d vs %d", len(one), len(two))
	}

	for i := range one {
		if one[i] != two[i] {
			t.Fatalf("sample %d differs: %f vs %f", i, one[i], two[i])
		}
	}
}

func TestAssembleNoiseBounded(t *testing.T) {
	a := &Assembler{Params: DefaultParams(), Scale: music.DefaultScale()}

	withNoise := a.Assemble(music.Sequence{"C4"}, rand.New(rand.NewSource(7)))
	silent := a.Assemble(music.Sequence{"C4"}, nil)

	for i := range withNoise {
		if diff := math.Abs(withNoise[i] - silent[i]); diff > a.Params.NoiseAmplitude {
			t.Fatalf("noise term at sample %d is %f, beyond ±%f", i, diff, a.Params.NoiseAmplitude)
		}
	}
}
