// Package notes delivers challenges as a JSON note list for client-side
// synthesis.
//
// This variant sends the answer in cleartext: anyone inspecting network
// traffic can read the melody without listening to anything. Deployments that
// actually want to gate on a human ear should use the audio variant; this one
// exists for clients that must synthesize locally, e.g. through the Web Audio
// API.
package notes

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	chall "github.com/notegate/notegate/lib/challenge"
)

func init() {
	chall.Register("notes", Impl{})
}

type Impl struct{}

func (Impl) Setup(mux *http.ServeMux) {
	/* no implementation required */
}

func (Impl) Deliver(w http.ResponseWriter, r *http.Request, lg *slog.Logger, in *chall.IssueInput) error {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(struct {
		Challenge []string `json:"challenge"`
	}{
		Challenge: in.Solution.Notes.Strings(),
	}); err != nil {
		return fmt.Errorf("notes: can't encode challenge: %w", err)
	}

	lg.Debug("delivered notes challenge", "challenge_id", in.Solution.ID)

	return nil
}
