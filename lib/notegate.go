package lib

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/notegate/notegate/internal"
	"github.com/notegate/notegate/lib/challenge"
	"github.com/notegate/notegate/lib/localization"
	"github.com/notegate/notegate/lib/music"
	"github.com/notegate/notegate/lib/store"
	"github.com/notegate/notegate/lib/synth"

	// challenge delivery variants
	_ "github.com/notegate/notegate/lib/challenge/audio"
	_ "github.com/notegate/notegate/lib/challenge/notes"
)

var (
	challengesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notegate_challenges_issued",
		Help: "The total number of challenges issued",
	}, []string{"variant", "reissued"})

	verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notegate_verifications",
		Help: "The total number of verification attempts by outcome",
	}, []string{"outcome"})
)

// Server is the challenge/verify core. It owns the melody RNG and the typed
// view of the solution store; everything else comes in per request.
type Server struct {
	mux       *http.ServeMux
	solutions *store.JSON[challenge.Solution]
	impl      challenge.Impl
	scale     *music.Scale
	params    synth.Params
	priv      ed25519.PrivateKey
	pub       ed25519.PublicKey
	opts      Options

	// melodyRand is not safe for concurrent use, drawMelody serializes it.
	melodyRand *rand.Rand
	melodyLock sync.Mutex
}

func (s *Server) drawMelody() music.Sequence {
	s.melodyLock.Lock()
	defer s.melodyLock.Unlock()

	return s.scale.Draw(s.melodyRand, s.opts.SequenceLength)
}

// solutionKey derives the store key for a session. Hashing keeps raw cookie
// material out of backend key spaces and bounds the key length.
func solutionKey(sid string) string {
	return internal.FastHash(sid)
}

// CreateChallenge handles GET /api/challenge. If the session already has a
// pending unexpired solution it is re-issued as-is, so a client that lost the
// response to a network hiccup can fetch the same melody again without
// burning a fresh challenge. Otherwise a new melody is drawn and stored
// against the session with a TTL.
func (s *Server) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	lg := internal.GetRequestLogger(r)

	sid, err := s.establishSession(w, r)
	if err != nil {
		lg.Error("can't establish session", "err", err)
		s.respondWithError(w, r, http.StatusInternalServerError)
		return
	}

	reissued := "false"

	sol, err := s.solutions.Get(r.Context(), solutionKey(sid))
	switch {
	case err == nil:
		reissued = "true"
		lg.Debug("re-issuing pending challenge", "challenge_id", sol.ID)
	case errors.Is(err, store.ErrNotFound):
		sol = challenge.Solution{
			ID:       uuid.NewString(),
			Notes:    s.drawMelody(),
			IssuedAt: time.Now(),
		}

		if err := s.solutions.Set(r.Context(), solutionKey(sid), sol, s.opts.SolutionTTL); err != nil {
			lg.Error("can't store solution", "err", err)
			s.respondWithError(w, r, http.StatusInternalServerError)
			return
		}

		lg.Debug("issued challenge", "challenge_id", sol.ID)
	default:
		lg.Error("can't read solution store", "err", err)
		s.respondWithError(w, r, http.StatusInternalServerError)
		return
	}

	in := &challenge.IssueInput{
		Solution: &sol,
		Scale:    s.scale,
		Params:   s.params,
		NewNoise: s.opts.NewNoise,
	}

	if err := s.impl.Deliver(w, r, lg, in); err != nil {
		lg.Error("challenge delivery failed", "variant", s.opts.Variant, "err", err)
		return
	}

	challengesIssued.WithLabelValues(s.opts.Variant, reissued).Inc()
}

// VerifyRequest is the body of POST /api/verify.
type VerifyRequest struct {
	UserAnswer []string `json:"userAnswer"`
}

// VerifyResponse is the reply to POST /api/verify.
type VerifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// VerifyAnswer handles POST /api/verify. The stored solution is destroyed by
// the first verify call that reaches it, correct or not, so an answer can
// never be brute-forced against one melody. Every malformed case (no session,
// no pending challenge, missing answer, length mismatch) collapses into the
// same generic failure so probing clients learn nothing about server state.
func (s *Server) VerifyAnswer(w http.ResponseWriter, r *http.Request) {
	lg := internal.GetRequestLogger(r)
	loc := localization.GetLocalizer(r)

	fail := func(outcome, messageID string) {
		verifications.WithLabelValues(outcome).Inc()
		s.respondJSON(w, http.StatusOK, VerifyResponse{
			Success: false,
			Message: loc.T(messageID),
		})
	}

	sid, err := s.sessionID(r)
	if err != nil {
		lg.Debug("verify without a usable session", "err", err)
		fail("invalid", "verify_invalid")
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		lg.Debug("verify body does not decode", "err", err)
		fail("invalid", "verify_invalid")
		return
	}

	sol, err := s.solutions.Get(r.Context(), solutionKey(sid))
	if errors.Is(err, store.ErrNotFound) {
		fail("invalid", "verify_invalid")
		return
	} else if err != nil {
		lg.Error("can't read solution store", "err", err)
		s.respondWithError(w, r, http.StatusInternalServerError)
		return
	}

	// single use: the solution dies before the comparison result is known
	if err := s.solutions.Delete(r.Context(), solutionKey(sid)); err != nil {
		lg.Error("can't clear solution", "challenge_id", sol.ID, "err", err)
	}

	answer := music.SequenceFromStrings(req.UserAnswer)
	if len(answer) == 0 || len(answer) != len(sol.Notes) {
		fail("invalid", "verify_invalid")
		return
	}

	if !answer.Equal(sol.Notes) {
		lg.Debug("verification failed", "challenge_id", sol.ID)
		fail("failed", "verify_incorrect")
		return
	}

	lg.Debug("verification passed", "challenge_id", sol.ID)
	verifications.WithLabelValues("ok").Inc()
	s.respondJSON(w, http.StatusOK, VerifyResponse{
		Success: true,
		Message: loc.T("verify_correct"),
	})
}
