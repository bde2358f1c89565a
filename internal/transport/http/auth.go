package http

import (
	"net/http"
	"strings"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/auth"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
)

// TokenParser turns a bearer token into a principal.
type TokenParser interface {
	Parse(raw string) (auth.Principal, error)
}

// Authenticate resolves the bearer token once per request and stores the
// principal in the request context. Requests without a valid token get a 401.
func Authenticate(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeDomainError(w, domain.ErrUnauthenticated)
				return
			}
			p, err := tokens.Parse(raw)
			if err != nil {
				writeDomainError(w, domain.ErrUnauthenticated)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// principalFrom returns the caller. Handlers behind Authenticate always have one.
func principalFrom(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}
