// Package notegate contains service-wide constants and defaults for notegate,
// a musical CAPTCHA: the server plays a short random melody and the user must
// repeat it on an on-screen piano.
package notegate

import "time"

var (
	// Version is stamped at build time via -ldflags.
	Version = "devel"

	// BasePrefix is the root URL prefix the service is mounted under, set
	// once at startup from the base-prefix flag.
	BasePrefix = ""

	// CookieName is the name of the session cookie binding a browser to its
	// outstanding challenge.
	CookieName = "notegate-session"

	// ForcedLanguage overrides the Accept-Language header for localized
	// responses when set.
	ForcedLanguage = ""
)

const (
	// APIPrefix is where the challenge and verify endpoints are mounted.
	APIPrefix = "/api/"

	// StaticPath is where the embedded demo page assets are mounted.
	StaticPath = "/static/"

	// DefaultSequenceLength is the number of notes in a challenge melody.
	DefaultSequenceLength = 5

	// DefaultSampleRate is the sample rate of synthesized challenge audio.
	DefaultSampleRate = 44100

	// SolutionDefaultTTL bounds how long an unanswered challenge is kept in
	// the store before the session has to request a new one.
	SolutionDefaultTTL = 10 * time.Minute

	// CookieDefaultExpirationTime is how long the session cookie is valid.
	CookieDefaultExpirationTime = 30 * time.Minute

	// DefaultStoreBackend is the storage backend used when none is
	// configured.
	DefaultStoreBackend = "memory"

	// DefaultVariant is the challenge delivery method used when none is
	// configured. The audio variant is the only one that does not reveal
	// the answer on the wire.
	DefaultVariant = "audio"
)
