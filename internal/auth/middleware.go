package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"

	"ms-eventgrid/internal/logger"
	"ms-eventgrid/internal/utils"
)

type contextKey string

const organizationIDKey contextKey = "organization_id"

const InternalTokenHeader = "X-Internal-Token"

// Middleware admits requests carrying a valid organizer token and stores the
// organization id in the request context. Tokens with a role other than
// ORGANIZER are refused.
func Middleware(verifier Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.New(nil)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteUnauthorized(w, err.Error())
				return
			}

			claims, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("INVALID_TOKEN", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteUnauthorized(w, "invalid token")
				return
			}
			if claims.Role != "" && claims.Role != RoleOrganizer {
				log.LogSecurity("FORBIDDEN", fmt.Sprintf("%s token for %s used on %s", claims.Role, claims.ID, r.URL.Path))
				resp := utils.ErrorResponse("Organizer access required", "token does not belong to an organization")
				resp.Code = "FORBIDDEN"
				utils.WriteJSON(w, http.StatusForbidden, resp)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOrganizationID(r.Context(), claims.ID)))
		})
	}
}

// InternalTokenMiddleware admits service-to-service calls carrying the shared
// token. An empty token disables the routes entirely.
func InternalTokenMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(InternalTokenHeader)
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				utils.WriteUnauthorized(w, "missing or invalid internal token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithOrganizationID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, organizationIDKey, orgID)
}

// OrganizationID returns the caller's organization, or "" outside Middleware.
func OrganizationID(ctx context.Context) string {
	if id, ok := ctx.Value(organizationIDKey).(string); ok {
		return id
	}
	return ""
}
