package lib

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	mathrand "math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/notegate/notegate"
	"github.com/notegate/notegate/data"
	"github.com/notegate/notegate/internal"
	"github.com/notegate/notegate/lib/challenge"
	"github.com/notegate/notegate/lib/store"
	"github.com/notegate/notegate/lib/tuning"
	"github.com/notegate/notegate/web"
)

type Options struct {
	Variant             string
	Store               store.Interface
	Tuning              *tuning.Config
	SequenceLength      int
	SolutionTTL         time.Duration
	CookieDomain        string
	CookieDynamicDomain bool
	CookieExpiration    time.Duration
	CookiePartitioned   bool
	CookieSecure        bool
	BasePrefix          string
	ED25519PrivateKey   ed25519.PrivateKey
	HS512Secret         []byte

	// Rand seeds melody selection. Leave nil outside of tests.
	Rand *mathrand.Rand

	// NewNoise builds the per-request noise source. Leave nil outside of
	// tests; returning nil from it renders clean audio.
	NewNoise func() *mathrand.Rand
}

// LoadTuningOrDefault reads and validates a tuning file, falling back to the
// embedded default when fname is empty.
func LoadTuningOrDefault(fname string) (*tuning.Config, error) {
	var fin io.ReadCloser
	var err error

	if fname != "" {
		fin, err = os.Open(fname)
		if err != nil {
			return nil, fmt.Errorf("can't open tuning file %s: %w", fname, err)
		}
	} else {
		fname = "(data)/tuning.yaml"
		fin, err = data.Tuning.Open("tuning.yaml")
		if err != nil {
			return nil, fmt.Errorf("[unexpected] can't open builtin tuning file %s: %w", fname, err)
		}
	}

	defer func(fin io.ReadCloser) {
		err := fin.Close()
		if err != nil {
			slog.Error("failed to close tuning file", "file", fname, "err", err)
		}
	}(fin)

	cfg, err := tuning.Load(fin, fname)
	if err != nil {
		return nil, fmt.Errorf("can't parse tuning file %s: %w", fname, err)
	}

	return cfg, nil
}

func New(opts Options) (*Server, error) {
	if opts.ED25519PrivateKey == nil && len(opts.HS512Secret) == 0 {
		slog.Debug("opts.ED25519PrivateKey not set, generating a new one")
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("lib: can't generate private key: %v", err)
		}
		opts.ED25519PrivateKey = priv
	}

	if opts.Tuning == nil {
		cfg, err := LoadTuningOrDefault("")
		if err != nil {
			return nil, err
		}
		opts.Tuning = cfg
	}

	if opts.Variant == "" {
		opts.Variant = notegate.DefaultVariant
	}

	if opts.SequenceLength == 0 {
		opts.SequenceLength = opts.Tuning.SequenceLength
	}

	if opts.SolutionTTL == 0 {
		opts.SolutionTTL = notegate.SolutionDefaultTTL
	}

	if opts.CookieExpiration == 0 {
		opts.CookieExpiration = notegate.CookieDefaultExpirationTime
	}

	if opts.Rand == nil {
		opts.Rand = mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	}

	if opts.NewNoise == nil {
		opts.NewNoise = func() *mathrand.Rand {
			return mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
		}
	}

	impl, ok := challenge.Get(opts.Variant)
	if !ok {
		return nil, fmt.Errorf("lib: no such challenge variant %q, have: %s", opts.Variant, strings.Join(challenge.Methods(), ", "))
	}

	notegate.BasePrefix = opts.BasePrefix

	result := &Server{
		solutions: &store.JSON[challenge.Solution]{
			Underlying: opts.Store,
			Prefix:     "solution:",
		},
		impl:       impl,
		scale:      opts.Tuning.Scale(),
		params:     opts.Tuning.Synthesis(),
		priv:       opts.ED25519PrivateKey,
		pub:        publicKeyFor(opts.ED25519PrivateKey),
		opts:       opts,
		melodyRand: opts.Rand,
	}

	mux := http.NewServeMux()

	// Helper to add global prefix
	registerWithPrefix := func(pattern string, handler http.Handler, method string) {
		if method != "" {
			method = method + " " // methods must end with a space to register with them
		}

		// Ensure there's no double slash when concatenating BasePrefix and pattern
		basePrefix := strings.TrimSuffix(notegate.BasePrefix, "/")
		prefix := method + basePrefix

		// If pattern doesn't start with a slash, add one
		if !strings.HasPrefix(pattern, "/") {
			pattern = "/" + pattern
		}

		mux.Handle(prefix+pattern, handler)
	}

	// Strip only the base prefix so /static/foo maps to static/foo in the
	// embedded filesystem
	stripPrefix := strings.TrimSuffix(notegate.BasePrefix, "/")
	registerWithPrefix(notegate.StaticPath, internal.UnchangingCache(internal.NoBrowsing(http.StripPrefix(stripPrefix, http.FileServerFS(web.Static)))), "")

	registerWithPrefix(notegate.APIPrefix+"challenge", internal.NoStoreCache(http.HandlerFunc(result.CreateChallenge)), "GET")
	registerWithPrefix(notegate.APIPrefix+"verify", internal.NoStoreCache(http.HandlerFunc(result.VerifyAnswer)), "POST")

	registerWithPrefix("/{$}", internal.GzipMiddleware(1, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, web.Static, "static/index.html")
	})), "GET")

	impl.Setup(mux)

	result.mux = mux

	return result, nil
}

func publicKeyFor(priv ed25519.PrivateKey) ed25519.PublicKey {
	if priv == nil {
		return nil
	}

	return priv.Public().(ed25519.PublicKey)
}
