package primary

import (
	"context"
	"time"
)

type JWTService interface {
	// GenerateTokenHMAC signs claims with the service secret. ttl <= 0 keeps an "exp" already present in claims.
	GenerateTokenHMAC(ctx context.Context, claims map[string]interface{}, ttl time.Duration) (string, error)
	// VerifyTokenHMAC validates signature and expiry and returns the claims.
	VerifyTokenHMAC(ctx context.Context, token string) (map[string]interface{}, error)
}
