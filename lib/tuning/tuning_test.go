package tuning

import (
	"errors"
	"strings"
	"testing"

	"github.com/notegate/notegate"
)

func validDoc() string {
	return `
notes:
  - name: C4
    frequency: 261.63
  - name: D4
    frequency: 293.66
sequenceLength: 5
sampleRate: 44100
noteMs: 500
gapMs: 250
paddingMs: 400
attackMs: 20
peakAmplitude: 0.8
noiseAmplitude: 0.015
`
}

func TestLoad(t *testing.T) {
	c, err := Load(strings.NewReader(validDoc()), t.Name())
	if err != nil {
		t.Fatal(err)
	}

	scale := c.Scale()
	if scale.Len() != 2 {
		t.Errorf("wanted 2 notes, got: %d", scale.Len())
	}
	if freq := scale.Frequency("C4"); freq != 261.63 {
		t.Errorf("C4 is %f Hz, want 261.63", freq)
	}

	params := c.Synthesis()
	if params.SampleRate != 44100 {
		t.Errorf("sample rate is %d, want 44100", params.SampleRate)
	}
	if got := params.Samples(params.NoteDuration); got != 22050 {
		t.Errorf("note segment is %d samples, want 22050", got)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	// sampleRate and sequenceLength left out on purpose
	doc := `
notes:
  - name: C4
    frequency: 261.63
noteMs: 500
gapMs: 250
paddingMs: 400
attackMs: 20
peakAmplitude: 0.8
noiseAmplitude: 0.015
`

	c, err := Load(strings.NewReader(doc), t.Name())
	if err != nil {
		t.Fatal(err)
	}

	if c.SampleRate != notegate.DefaultSampleRate {
		t.Errorf("sample rate is %d, want the default %d", c.SampleRate, notegate.DefaultSampleRate)
	}
	if c.SequenceLength != notegate.DefaultSequenceLength {
		t.Errorf("sequence length is %d, want the default %d", c.SequenceLength, notegate.DefaultSequenceLength)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	doc := validDoc() + "\nbogusKey: true\n"
	if _, err := Load(strings.NewReader(doc), t.Name()); err == nil {
		t.Error("wanted unknown field to be rejected, but it was accepted")
	}
}

func TestValid(t *testing.T) {
	for _, tt := range []struct {
		name   string
		mangle func(c *Config)
		err    error
	}{
		{
			name:   "no notes",
			mangle: func(c *Config) { c.Notes = nil },
			err:    ErrNoNotes,
		},
		{
			name:   "duplicate name",
			mangle: func(c *Config) { c.Notes = append(c.Notes, NoteSpec{Name: "C4", Frequency: 111}) },
			err:    ErrDuplicateNote,
		},
		{
			name:   "duplicate frequency",
			mangle: func(c *Config) { c.Notes = append(c.Notes, NoteSpec{Name: "X4", Frequency: 261.63}) },
			err:    ErrDuplicateFrequency,
		},
		{
			name:   "negative frequency",
			mangle: func(c *Config) { c.Notes[0].Frequency = -1 },
			err:    ErrBadFrequency,
		},
		{
			name:   "zero sample rate",
			mangle: func(c *Config) { c.SampleRate = 0 },
			err:    ErrBadSampleRate,
		},
		{
			name:   "zero sequence length",
			mangle: func(c *Config) { c.SequenceLength = 0 },
			err:    ErrBadSequenceLength,
		},
		{
			name:   "attack longer than note",
			mangle: func(c *Config) { c.AttackMs = c.NoteMs },
			err:    ErrBadAttack,
		},
		{
			name:   "peak amplitude above one",
			mangle: func(c *Config) { c.PeakAmplitude = 1.5 },
			err:    ErrBadAmplitude,
		},
		{
			name:   "negative noise",
			mangle: func(c *Config) { c.NoiseAmplitude = -0.1 },
			err:    ErrBadNoise,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load(strings.NewReader(validDoc()), t.Name())
			if err != nil {
				t.Fatal(err)
			}

			tt.mangle(c)

			if err := c.Valid(); !errors.Is(err, tt.err) {
				t.Logf("want: %v", tt.err)
				t.Logf("got:  %v", err)
				t.Error("wrong validation error")
			}
		})
	}
}
