package middleware

import (
	"context"
	"net/http"

	"github.com/pmorozov/vidhub/internal/handlers/render"
	"github.com/pmorozov/vidhub/internal/handlers/userctx"
	"github.com/pmorozov/vidhub/internal/models"
)

type authService interface {
	Auth(ctx context.Context, r *http.Request) (models.User, error)
}

// AuthMiddleware resolves the access token from the request and stores the
// authenticated user in the request context. Requests without a valid token
// are rejected before the handler runs.
func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := as.Auth(r.Context(), r)
			if err != nil {
				render.Error(w, err)
				return
			}
			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
