package internal

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/sebest/xff"
)

// RemoteXRealIP sets the X-Real-Ip header from the socket's remote address.
// Used when notegate runs directly on the network edge instead of behind a
// reverse proxy.
func RemoteXRealIP(useRemoteAddress bool, bindNetwork string, next http.Handler) http.Handler {
	if !useRemoteAddress {
		return next
	}

	if bindNetwork == "unix" {
		// unix sockets have no meaningful remote address
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Header.Set("X-Real-Ip", "127.0.0.1")
			next.ServeHTTP(w, r)
		})
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			slog.Debug("can't split host/port", "remoteAddr", r.RemoteAddr, "err", err)
			next.ServeHTTP(w, r)
			return
		}

		r.Header.Set("X-Real-Ip", host)
		next.ServeHTTP(w, r)
	})
}

// XForwardedForToXRealIP resolves the client address out of X-Forwarded-For
// chains and folds it into X-Real-Ip so that request logging sees one
// canonical header.
func XForwardedForToXRealIP(next http.Handler) http.Handler {
	xffmw, err := xff.Default()
	if err != nil {
		// xff.Default only fails on invalid built-in subnet masks, which
		// would be a bug in the library itself.
		slog.Error("can't construct XFF middleware, X-Forwarded-For will be ignored", "err", err)
		return next
	}

	return xffmw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Real-Ip") == "" {
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				r.Header.Set("X-Real-Ip", host)
			}
		}

		next.ServeHTTP(w, r)
	}))
}
