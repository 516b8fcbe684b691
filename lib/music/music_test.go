package music

import (
	"math/rand"
	"testing"
)

func TestDefaultScaleFrequencies(t *testing.T) {
	scale := DefaultScale()

	seen := map[float64]Note{}

	for _, n := range scale.Notes() {
		freq := scale.Frequency(n)

		if freq <= 0 {
			t.Errorf("note %s has non-positive frequency %f", n, freq)
		}

		if other, ok := seen[freq]; ok {
			t.Errorf("notes %s and %s share frequency %f", n, other, freq)
		}
		seen[freq] = n
	}

	if scale.Len() != 7 {
		t.Errorf("wanted 7 notes in the default scale, got: %d", scale.Len())
	}
}

func TestUnknownNoteIsSilent(t *testing.T) {
	scale := DefaultScale()

	if freq := scale.Frequency("H9"); freq != 0 {
		t.Errorf("wanted unknown note to map to 0 Hz, got: %f", freq)
	}
}

func TestDraw(t *testing.T) {
	scale := DefaultScale()
	rng := rand.New(rand.NewSource(42))

	seq := scale.Draw(rng, 5)

	if len(seq) != 5 {
		t.Fatalf("wanted 5 notes, got: %d", len(seq))
	}

	for i, n := range seq {
		if scale.Frequency(n) == 0 {
			t.Errorf("drawn note %d (%s) is not in the palette", i, n)
		}
	}

	// same seed, same melody
	other := scale.Draw(rand.New(rand.NewSource(42)), 5)
	if !seq.Equal(other) {
		t.Errorf("wanted identical draws for identical seeds: %v vs %v", seq, other)
	}
}

func TestSequenceEqual(t *testing.T) {
	for _, tt := range []struct {
		name string
		a, b Sequence
		want bool
	}{
		{name: "identical", a: Sequence{"C4", "D4", "E4", "F4", "G4"}, b: Sequence{"C4", "D4", "E4", "F4", "G4"}, want: true},
		{name: "last note differs", a: Sequence{"C4", "D4", "E4", "F4", "G4"}, b: Sequence{"C4", "D4", "E4", "F4", "A4"}, want: false},
		{name: "length mismatch", a: Sequence{"C4", "D4", "E4", "F4", "G4"}, b: Sequence{"C4", "D4", "E4"}, want: false},
		{name: "case sensitive", a: Sequence{"C4"}, b: Sequence{"c4"}, want: false},
		{name: "both empty", a: Sequence{}, b: Sequence{}, want: true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
