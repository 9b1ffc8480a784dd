package routers

import (
	"errors"
	"net/http"

	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/auth"
)

const adminKeyHeader = "X-Admin-Key"

type Authenticator struct {
	Verifier    *auth.Verifier
	OperatorKey *auth.OperatorKey
}

func NewAuthenticator(jwtSecret, adminKeyHash string) *Authenticator {
	return &Authenticator{
		Verifier:    auth.NewVerifier(jwtSecret),
		OperatorKey: auth.NewOperatorKey(adminKeyHash),
	}
}

// Middleware кладёт в контекст личность из Bearer-токена. Операторы выплат
// вместо токена могут передать X-Admin-Key.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get(adminKeyHeader); key != "" && a.OperatorKey.Enabled() {
			if id, ok := a.OperatorKey.Check(key); ok {
				next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
				return
			}
		}

		id, err := a.Verifier.Verify(auth.BearerToken(r.Header.Get("Authorization")))
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrNoToken):
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
			case errors.Is(err, auth.ErrExpiredToken):
				writeError(w, http.StatusUnauthorized, codeTokenExpired, "token expired")
			default:
				writeError(w, http.StatusUnauthorized, codeInvalidToken, "invalid token")
			}
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok || !id.Admin {
			writeError(w, http.StatusForbidden, codeForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
