package handlers

import (
	"context"
	"net/http"

	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
	"gitlab.com/judge-dispatch.net/internal/gateway/defs"
	"gitlab.com/judge-dispatch.net/internal/handlers/response"
)

// AdminRole is the role claim an admin bearer token must carry
const AdminRole = "admin"

type claimsKey struct{}

type MiddlewareProvider struct {
	JWT    primary.JWTService
	Logger primary.Logger
}

func New(jwt primary.JWTService, logger primary.Logger) *MiddlewareProvider {
	return &MiddlewareProvider{
		JWT:    jwt,
		Logger: logger,
	}
}

// JWTMiddleware admits requests carrying a valid admin bearer token
func (m *MiddlewareProvider) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := defs.ParseCredential(r.Header.Get("Authorization"))
		if tokenString == "" {
			response.WriteError(w, response.ErrorMessage{Message: "Authorization header missing", StatusCode: http.StatusUnauthorized})
			return
		}

		claims, err := m.JWT.VerifyTokenHMAC(r.Context(), tokenString)
		if err != nil {
			m.Logger.Debug("Rejected admin token", "error", err)
			response.WriteError(w, response.ErrorMessage{Message: "Invalid token", StatusCode: http.StatusUnauthorized})
			return
		}
		if role, _ := claims["role"].(string); role != AdminRole {
			response.WriteError(w, response.ErrorMessage{Message: "Forbidden", StatusCode: http.StatusForbidden})
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// ClaimsFromContext returns the verified token claims of an admin request
func ClaimsFromContext(ctx context.Context) (map[string]interface{}, bool) {
	claims, ok := ctx.Value(claimsKey{}).(map[string]interface{})
	return claims, ok
}
