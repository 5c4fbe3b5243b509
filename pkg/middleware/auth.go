package middleware

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/platinummonkey/docsapi/pkg/api"
	"github.com/platinummonkey/docsapi/pkg/contextkeys"
	"github.com/platinummonkey/docsapi/pkg/httputil"
	"github.com/platinummonkey/docsapi/pkg/observability"
)

// Realm is sent in the Basic auth challenge
const Realm = "docsapi"

// CredentialStore looks up users for authentication
type CredentialStore interface {
	GetUser(ctx context.Context, username string) (*api.User, error)
}

// HashPassword returns the bcrypt hash stored for a user
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// PostAuthentication lets safe methods through anonymously and requires HTTP
// Basic credentials for everything else. The authenticated username is
// stored in the request context. Any authenticated user may write.
func PostAuthentication(store CredentialStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			username, password, ok := r.BasicAuth()
			if !ok || username == "" {
				httputil.WriteUnauthorized(w, Realm, "authentication required")
				return
			}

			user, err := store.GetUser(r.Context(), username)
			if err != nil {
				if !errors.Is(err, api.ErrNotFound) {
					observability.FromContext(r.Context()).WithError(err).Error("Credential lookup failed")
				}
				httputil.WriteUnauthorized(w, Realm, "invalid credentials")
				return
			}
			if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
				httputil.WriteUnauthorized(w, Realm, "invalid credentials")
				return
			}

			ctx := contextkeys.WithUsername(r.Context(), user.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
