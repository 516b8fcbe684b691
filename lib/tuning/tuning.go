// Package tuning loads the tuning document: the note palette and synthesis
// constants a deployment renders its challenges with.
package tuning

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/notegate/notegate"
	"github.com/notegate/notegate/lib/music"
	"github.com/notegate/notegate/lib/synth"
)

var (
	ErrNoNotes            = errors.New("tuning: no notes defined")
	ErrDuplicateNote      = errors.New("tuning: duplicate note name")
	ErrDuplicateFrequency = errors.New("tuning: two notes share a frequency")
	ErrBadFrequency       = errors.New("tuning: note frequency must be positive")
	ErrBadSampleRate      = errors.New("tuning: sample rate must be positive")
	ErrBadSequenceLength  = errors.New("tuning: sequence length must be positive")
	ErrBadDuration        = errors.New("tuning: durations must be positive")
	ErrBadAttack          = errors.New("tuning: attack must be shorter than the note")
	ErrBadAmplitude       = errors.New("tuning: peak amplitude must be in (0, 1]")
	ErrBadNoise           = errors.New("tuning: noise amplitude must be in [0, 1)")
)

// NoteSpec is one palette entry in the tuning document.
type NoteSpec struct {
	Name      string  `yaml:"name"`
	Frequency float64 `yaml:"frequency"`
}

// Config is the parsed tuning document. Durations are given in milliseconds
// in the document.
type Config struct {
	Notes          []NoteSpec `yaml:"notes"`
	SequenceLength int        `yaml:"sequenceLength"`
	SampleRate     int        `yaml:"sampleRate"`
	NoteMs         int        `yaml:"noteMs"`
	GapMs          int        `yaml:"gapMs"`
	PaddingMs      int        `yaml:"paddingMs"`
	AttackMs       int        `yaml:"attackMs"`
	PeakAmplitude  float64    `yaml:"peakAmplitude"`
	NoiseAmplitude float64    `yaml:"noiseAmplitude"`
}

// Load parses and validates a tuning document.
func Load(fin io.Reader, fname string) (*Config, error) {
	var c Config

	dec := yaml.NewDecoder(fin)
	dec.KnownFields(true)

	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("tuning: can't parse %s: %w", fname, err)
	}

	// a document may omit these, the service-wide defaults apply
	if c.SampleRate == 0 {
		c.SampleRate = notegate.DefaultSampleRate
	}
	if c.SequenceLength == 0 {
		c.SequenceLength = notegate.DefaultSequenceLength
	}

	if err := c.Valid(); err != nil {
		return nil, fmt.Errorf("tuning: %s is invalid: %w", fname, err)
	}

	return &c, nil
}

// Valid checks the document for internal consistency, collecting every
// problem instead of stopping at the first.
func (c *Config) Valid() error {
	var errs []error

	if len(c.Notes) == 0 {
		errs = append(errs, ErrNoNotes)
	}

	names := map[string]bool{}
	freqs := map[float64]string{}
	for _, n := range c.Notes {
		if names[n.Name] {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateNote, n.Name))
		}
		names[n.Name] = true

		if n.Frequency <= 0 {
			errs = append(errs, fmt.Errorf("%w: %q is %f Hz", ErrBadFrequency, n.Name, n.Frequency))
			continue
		}

		if other, ok := freqs[n.Frequency]; ok {
			errs = append(errs, fmt.Errorf("%w: %q and %q are both %f Hz", ErrDuplicateFrequency, n.Name, other, n.Frequency))
		}
		freqs[n.Frequency] = n.Name
	}

	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrBadSampleRate, c.SampleRate))
	}

	if c.SequenceLength <= 0 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrBadSequenceLength, c.SequenceLength))
	}

	if c.NoteMs <= 0 || c.GapMs <= 0 || c.PaddingMs <= 0 || c.AttackMs <= 0 {
		errs = append(errs, ErrBadDuration)
	} else if c.AttackMs >= c.NoteMs {
		errs = append(errs, fmt.Errorf("%w: attack %dms, note %dms", ErrBadAttack, c.AttackMs, c.NoteMs))
	}

	if c.PeakAmplitude <= 0 || c.PeakAmplitude > 1 {
		errs = append(errs, fmt.Errorf("%w: got %f", ErrBadAmplitude, c.PeakAmplitude))
	}

	if c.NoiseAmplitude < 0 || c.NoiseAmplitude >= 1 {
		errs = append(errs, fmt.Errorf("%w: got %f", ErrBadNoise, c.NoiseAmplitude))
	}

	if len(errs) != 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Scale builds the note palette from the document, in document order.
func (c *Config) Scale() *music.Scale {
	names := make([]music.Note, len(c.Notes))
	freqs := make(map[music.Note]float64, len(c.Notes))

	for i, n := range c.Notes {
		names[i] = music.Note(n.Name)
		freqs[music.Note(n.Name)] = n.Frequency
	}

	return music.NewScale(names, freqs)
}

// Synthesis converts the document constants into synthesizer parameters.
func (c *Config) Synthesis() synth.Params {
	return synth.Params{
		SampleRate:      c.SampleRate,
		NoteDuration:    time.Duration(c.NoteMs) * time.Millisecond,
		GapDuration:     time.Duration(c.GapMs) * time.Millisecond,
		PaddingDuration: time.Duration(c.PaddingMs) * time.Millisecond,
		AttackDuration:  time.Duration(c.AttackMs) * time.Millisecond,
		PeakAmplitude:   c.PeakAmplitude,
		NoiseAmplitude:  c.NoiseAmplitude,
	}
}
