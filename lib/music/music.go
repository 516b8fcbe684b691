// Package music models the note palette a challenge melody is drawn from.
package music

import "math/rand"

// Note is a symbolic pitch name such as "C4".
type Note string

// Sequence is an ordered melody of notes.
type Sequence []Note

// Equal reports whether two sequences match element-wise. Comparison is
// case-sensitive, exactly like verification.
func (s Sequence) Equal(other Sequence) bool {
	if len(s) != len(other) {
		return false
	}

	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}

	return true
}

// Strings converts a sequence to its wire representation.
func (s Sequence) Strings() []string {
	result := make([]string, len(s))
	for i, n := range s {
		result[i] = string(n)
	}
	return result
}

// SequenceFromStrings converts a wire representation back to a sequence. No
// validation happens here: unknown names synthesize as silence and never
// match a stored solution.
func SequenceFromStrings(raw []string) Sequence {
	result := make(Sequence, len(raw))
	for i, n := range raw {
		result[i] = Note(n)
	}
	return result
}

// Scale is a fixed palette of notes with their fundamental frequencies. The
// mapping is injective: no two names share a frequency.
type Scale struct {
	names []Note
	freqs map[Note]float64
}

// NewScale builds a scale from notes in palette order. Order matters only for
// presentation, random draws are uniform regardless.
func NewScale(names []Note, freqs map[Note]float64) *Scale {
	return &Scale{names: names, freqs: freqs}
}

// DefaultScale is the diatonic C major scale in one octave, in twelve-tone
// equal temperament at A4 = 440 Hz.
func DefaultScale() *Scale {
	return NewScale(
		[]Note{"C4", "D4", "E4", "F4", "G4", "A4", "B4"},
		map[Note]float64{
			"C4": 261.63,
			"D4": 293.66,
			"E4": 329.63,
			"F4": 349.23,
			"G4": 392.00,
			"A4": 440.00,
			"B4": 493.88,
		},
	)
}

// Notes returns the palette in order. Callers must not mutate the result.
func (s *Scale) Notes() []Note {
	return s.names
}

// Len returns the size of the palette.
func (s *Scale) Len() int {
	return len(s.names)
}

// Frequency returns the fundamental frequency of a note in Hz, or 0 when the
// note is not in the palette. A zero frequency synthesizes as silence.
func (s *Scale) Frequency(n Note) float64 {
	return s.freqs[n]
}

// Draw picks n independent uniform notes from the palette, repeats allowed.
func (s *Scale) Draw(rng *rand.Rand, n int) Sequence {
	result := make(Sequence, n)
	for i := range result {
		result[i] = s.names[rng.Intn(len(s.names))]
	}
	return result
}
