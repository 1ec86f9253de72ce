package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/forecastlabs/commentd/internal/domain"
)

// Credential identifies the authenticated caller and how they authenticated.
type Credential struct {
	UserID string
	Kind   domain.CredentialKind
}

type credentialKey struct{}

// Authenticator resolves raw tokens into user ids.
type Authenticator interface {
	// ResolveSession maps a bearer session token to a user id.
	ResolveSession(ctx context.Context, token string) (string, error)
	// ResolveAPIKey maps an API key to a user id.
	ResolveAPIKey(ctx context.Context, key string) (string, error)
}

// Auth returns middleware that resolves request credentials into the request
// context. A Bearer token in the Authorization header authenticates a browser
// session; an X-API-Key header authenticates a programmatic caller. Requests
// without credentials pass through unauthenticated; handlers that require a
// credential reject them.
func Auth(auth Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
				userID, err := auth.ResolveAPIKey(r.Context(), key)
				if err != nil {
					rejectOrFail(w, r, logger, err, "invalid api key")
					return
				}
				r = withCredential(r, Credential{UserID: userID, Kind: domain.CredentialAPIKey})
				next.ServeHTTP(w, r)
				return
			}

			if token := bearerToken(r); token != "" {
				userID, err := auth.ResolveSession(r.Context(), token)
				if err != nil {
					rejectOrFail(w, r, logger, err, "invalid session token")
					return
				}
				r = withCredential(r, Credential{UserID: userID, Kind: domain.CredentialUser})
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CredentialFrom extracts the resolved credential from the request context.
func CredentialFrom(ctx context.Context) (Credential, bool) {
	cred, ok := ctx.Value(credentialKey{}).(Credential)
	return cred, ok
}

func withCredential(r *http.Request, cred Credential) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), credentialKey{}, cred))
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func rejectOrFail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, msg string) {
	if errors.Is(err, domain.ErrUnauthorized) {
		writeJSONError(w, http.StatusUnauthorized, msg)
		return
	}
	logger.ErrorContext(r.Context(), "auth resolution failed",
		slog.String("error", err.Error()),
	)
	writeJSONError(w, http.StatusInternalServerError, "authentication unavailable")
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
