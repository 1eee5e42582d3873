package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/httplog/v3"

	"staffledger/internal/domain/auth"
	"staffledger/internal/platform/requestctx"
	"staffledger/internal/transport/http/api"
)

// Auth attaches the bearer token's actor to the context. Requests without a
// valid token pass through anonymous; RequireAuth rejects them.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := auth.ParseToken(secret, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := requestctx.WithActor(r.Context(), requestctx.Actor{
				UserID:     claims.UserID,
				Role:       claims.Role,
				EmployeeID: claims.EmployeeID,
			})
			httplog.SetAttrs(ctx, slog.String("user.id", claims.UserID), slog.String("user.roles", claims.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func GetUser(ctx context.Context) (requestctx.Actor, bool) {
	return requestctx.GetActor(ctx)
}

func RequireAuth(next http.Handler) http.Handler {
	return RequireRole()(next)
}

// RequireRole answers 401 without an actor and 403 when the actor's role is
// not listed. An empty list admits any authenticated actor.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := GetRequestID(r.Context())
			actor, ok := GetUser(r.Context())
			switch {
			case !ok:
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
			case len(roles) > 0 && !slices.Contains(roles, actor.Role):
				api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", reqID)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
