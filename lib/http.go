package lib

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/notegate/notegate"
	"github.com/notegate/notegate/lib/localization"
)

var domainMatchRegexp = regexp.MustCompile(`^((xn--)?[a-z0-9]+(-[a-z0-9]+)*\.)+[a-z]{2,}$`)

// ErrNoSession is returned when a request carries no usable session cookie.
var ErrNoSession = errors.New("lib: request has no valid session")

type CookieOpts struct {
	Value  string
	Host   string
	Path   string
	Name   string
	Expiry time.Duration
}

func cookiePath() string {
	if notegate.BasePrefix == "" {
		return "/"
	}

	return strings.TrimSuffix(notegate.BasePrefix, "/") + "/"
}

func (s *Server) SetCookie(w http.ResponseWriter, cookieOpts CookieOpts) {
	var domain = s.opts.CookieDomain
	var name = notegate.CookieName
	var path = cookiePath()
	if cookieOpts.Name != "" {
		name = cookieOpts.Name
	}
	if cookieOpts.Path != "" {
		path = cookieOpts.Path
	}
	if s.opts.CookieDynamicDomain && domainMatchRegexp.MatchString(cookieOpts.Host) {
		if etld, err := publicsuffix.EffectiveTLDPlusOne(cookieOpts.Host); err == nil {
			domain = etld
		}
	}

	if cookieOpts.Expiry == 0 {
		cookieOpts.Expiry = s.opts.CookieExpiration
	}

	http.SetCookie(w, &http.Cookie{
		Name:        name,
		Value:       cookieOpts.Value,
		Expires:     time.Now().Add(cookieOpts.Expiry),
		SameSite:    http.SameSiteLaxMode,
		Domain:      domain,
		Secure:      s.opts.CookieSecure,
		Partitioned: s.opts.CookiePartitioned,
		HttpOnly:    true,
		Path:        path,
	})
}

func (s *Server) ClearCookie(w http.ResponseWriter, cookieOpts CookieOpts) {
	var domain = s.opts.CookieDomain
	var name = notegate.CookieName
	var path = cookiePath()
	if cookieOpts.Name != "" {
		name = cookieOpts.Name
	}
	if cookieOpts.Path != "" {
		path = cookieOpts.Path
	}
	if s.opts.CookieDynamicDomain && domainMatchRegexp.MatchString(cookieOpts.Host) {
		if etld, err := publicsuffix.EffectiveTLDPlusOne(cookieOpts.Host); err == nil {
			domain = etld
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:        name,
		Value:       "",
		MaxAge:      -1,
		Expires:     time.Now().Add(-1 * time.Minute),
		SameSite:    http.SameSiteLaxMode,
		Partitioned: s.opts.CookiePartitioned,
		Domain:      domain,
		Secure:      s.opts.CookieSecure,
		HttpOnly:    true,
		Path:        path,
	})
}

// sessionID extracts and authenticates the session identifier from the
// request's cookie.
func (s *Server) sessionID(r *http.Request) (string, error) {
	ckie, err := r.Cookie(notegate.CookieName)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoSession, err)
	}

	if err := ckie.Valid(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoSession, err)
	}

	token, err := jwt.ParseWithClaims(ckie.Value, jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if len(s.opts.HS512Secret) != 0 {
			return s.opts.HS512Secret, nil
		}
		return s.pub, nil
	}, jwt.WithExpirationRequired(), jwt.WithStrictDecoding())

	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: token does not validate: %w", ErrNoSession, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: wrong claims type", ErrNoSession)
	}

	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return "", fmt.Errorf("%w: sid claim missing", ErrNoSession)
	}

	return sid, nil
}

// establishSession returns the request's session ID, minting a fresh identity
// and setting its cookie when the request has none. Tampered cookies are
// silently replaced rather than rejected: the worst a forged session gets is
// its own fresh challenge.
func (s *Server) establishSession(w http.ResponseWriter, r *http.Request) (string, error) {
	if sid, err := s.sessionID(r); err == nil {
		return sid, nil
	}

	sid := uuid.NewString()

	token, err := s.signJWT(jwt.MapClaims{"sid": sid})
	if err != nil {
		return "", fmt.Errorf("lib: can't sign session token: %w", err)
	}

	s.SetCookie(w, CookieOpts{
		Value: token,
		Host:  r.Host,
	})

	return sid, nil
}

func (s *Server) signJWT(claims jwt.MapClaims) (string, error) {
	claims["iat"] = time.Now().Unix()
	claims["nbf"] = time.Now().Add(-1 * time.Minute).Unix()
	claims["exp"] = time.Now().Add(s.opts.CookieExpiration).Unix()

	if len(s.opts.HS512Secret) == 0 {
		return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(s.priv)
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.opts.HS512Secret)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		// headers are already written, nothing left to salvage
		return
	}
}

func (s *Server) respondWithError(w http.ResponseWriter, r *http.Request, status int) {
	loc := localization.GetLocalizer(r)

	s.respondJSON(w, status, struct {
		Error string `json:"error"`
	}{
		Error: loc.T("internal_server_error"),
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
