package crypto

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/judge-dispatch.net/internal/config"
	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
)

var _ primary.JWTService = (*JWTServiceImpl)(nil)

var (
	ErrInvalidToken = fmt.Errorf("invalid token")
	ErrEmptySecret  = fmt.Errorf("jwt secret is not configured")
)

type JWTServiceImpl struct {
	HMACSecretKey string
	method        jwt.SigningMethod
}

func NewJWTService(jwtConfig *config.JwtConfig) *JWTServiceImpl {
	return &JWTServiceImpl{
		HMACSecretKey: jwtConfig.Secret,
		method:        jwt.SigningMethodHS256,
	}
}

func (j *JWTServiceImpl) GenerateTokenHMAC(ctx context.Context, claims map[string]interface{}, ttl time.Duration) (string, error) {
	if j.HMACSecretKey == "" {
		return "", ErrEmptySecret
	}

	mapClaims := jwt.MapClaims{}
	for k, v := range claims {
		mapClaims[k] = v
	}
	now := time.Now()
	if ttl > 0 {
		mapClaims["exp"] = now.Add(ttl).Unix()
	} else if _, exists := mapClaims["exp"]; !exists {
		mapClaims["exp"] = now.Add(time.Hour).Unix()
	}
	mapClaims["iat"] = now.Unix()

	tok := jwt.NewWithClaims(j.method, mapClaims)
	return tok.SignedString([]byte(j.HMACSecretKey))
}

func (j *JWTServiceImpl) VerifyTokenHMAC(ctx context.Context, token string) (map[string]interface{}, error) {
	if j.HMACSecretKey == "" {
		return nil, ErrEmptySecret
	}

	claims := jwt.MapClaims{}
	parsedToken, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(j.HMACSecretKey), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsedToken.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
