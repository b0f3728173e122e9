// Package middleware carries the HTTP middleware chain: request id, request
// time, client metadata, panic recovery, and delegate authentication.
package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"membergate/pkg/requestcontext"
)

// RequestID assigns each request an id, honoring one supplied upstream.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), reqID)))
	})
}

// RequestTime pins a single observation of "now" for the whole request so
// expiry decisions inside one request are consistent.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), time.Now())))
	})
}

// ClientMetadata records the caller's IP and a normalized User-Agent
// description for audit events.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.Header.Get("X-Forwarded-For")
		if ip == "" {
			ip, _, _ = net.SplitHostPort(r.RemoteAddr)
		}

		ua := useragent.New(r.UserAgent())
		name, version := ua.Browser()
		desc := name
		if version != "" {
			desc = name + "/" + version
		}
		if os := ua.OS(); os != "" {
			desc = desc + " (" + os + ")"
		}

		next.ServeHTTP(w, r.WithContext(requestcontext.WithClientMetadata(r.Context(), ip, desc)))
	})
}

// Recoverer converts panics into 500 responses without leaking internals.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.ErrorContext(r.Context(), "panic recovered",
						"panic", rec,
						"path", r.URL.Path,
						"request_id", requestcontext.RequestID(r.Context()),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"internal"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// DelegateAuth marks requests carrying a valid X-Delegate-Token as coming
// from a trusted delegate. A request with no token proceeds as self-service;
// a request with a wrong token is rejected outright rather than silently
// downgraded, so misconfigured consoles fail loudly.
func DelegateAuth(tokens []string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get("X-Delegate-Token")
			if presented == "" {
				next.ServeHTTP(w, r)
				return
			}

			for _, tok := range tokens {
				if subtle.ConstantTimeCompare([]byte(presented), []byte(tok)) == 1 {
					next.ServeHTTP(w, r.WithContext(requestcontext.WithDelegate(r.Context(), true)))
					return
				}
			}

			logger.WarnContext(r.Context(), "invalid delegate token",
				"request_id", requestcontext.RequestID(r.Context()),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
		})
	}
}
