package synth

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"

	"github.com/notegate/notegate/lib/music"
)

func TestEncodeWAVRoundTrip(t *testing.T) {
	a := &Assembler{Params: DefaultParams(), Scale: music.DefaultScale()}
	buf := a.Assemble(music.Sequence{"C4", "D4", "E4"}, rand.New(rand.NewSource(99)))

	var out bytes.Buffer
	if err := EncodeWAV(&out, buf, a.Params.SampleRate); err != nil {
		t.Fatal(err)
	}

	if out.Len() != WAVSize(len(buf)) {
		t.Errorf("encoded %d bytes, want %d", out.Len(), WAVSize(len(buf)))
	}

	stream, format, err := wav.Decode(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("container does not decode: %v", err)
	}
	defer stream.Close()

	if format.SampleRate != beep.SampleRate(a.Params.SampleRate) {
		t.Errorf("declared sample rate is %d, want %d", format.SampleRate, a.Params.SampleRate)
	}
	if format.NumChannels != 1 {
		t.Errorf("declared %d channels, want 1", format.NumChannels)
	}

	if stream.Len() != len(buf) {
		t.Errorf("container holds %d samples, want %d", stream.Len(), len(buf))
	}

	// 16-bit quantization plus decoder rounding
	const tolerance = 2.0 / math.MaxInt16

	decoded := make([][2]float64, 512)
	pos := 0
	for {
		n, ok := stream.Stream(decoded)
		for i := 0; i < n; i++ {
			if diff := math.Abs(decoded[i][0] - buf[pos]); diff > tolerance {
				t.Fatalf("sample %d decodes to %f, want %f", pos, decoded[i][0], buf[pos])
			}
			pos++
		}
		if !ok {
			break
		}
	}

	if pos != len(buf) {
		t.Errorf("decoded %d samples, want %d", pos, len(buf))
	}
}

func TestEncodeWAVClampsSamples(t *testing.T) {
	var out bytes.Buffer
	if err := EncodeWAV(&out, []float64{2, -2, 0}, 44100); err != nil {
		t.Fatal(err)
	}

	stream, _, err := wav.Decode(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	decoded := make([][2]float64, 3)
	if n, _ := stream.Stream(decoded); n != 3 {
		t.Fatalf("wanted 3 samples, got: %d", n)
	}

	for i, want := range []float64{1, -1, 0} {
		if diff := math.Abs(decoded[i][0] - want); diff > 2.0/math.MaxInt16 {
			t.Errorf("sample %d decodes to %f, want %f", i, decoded[i][0], want)
		}
	}
}
