// Package audio delivers challenges as rendered WAV files. This is the
// default variant and the only one that does not reveal the answer to anyone
// watching the wire.
package audio

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	chall "github.com/notegate/notegate/lib/challenge"
	"github.com/notegate/notegate/lib/synth"
)

func init() {
	chall.Register("audio", Impl{})
}

type Impl struct{}

func (Impl) Setup(mux *http.ServeMux) {
	/* no implementation required */
}

func (Impl) Deliver(w http.ResponseWriter, r *http.Request, lg *slog.Logger, in *chall.IssueInput) error {
	start := time.Now()

	asm := &synth.Assembler{Params: in.Params, Scale: in.Scale}
	buf := asm.Assemble(in.Solution.Notes, in.NewNoise())

	chall.SynthesisDuration.WithLabelValues("audio").Observe(time.Since(start).Seconds())

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(synth.WAVSize(len(buf))))
	w.WriteHeader(http.StatusOK)

	if err := synth.EncodeWAV(w, buf, in.Params.SampleRate); err != nil {
		// headers are out the door already, all we can do is log
		return fmt.Errorf("audio: can't stream waveform: %w", err)
	}

	lg.Debug("delivered audio challenge", "challenge_id", in.Solution.ID, "samples", len(buf))

	return nil
}
