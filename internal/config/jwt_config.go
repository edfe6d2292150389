package config

import "time"

type JwtConfig struct {
	Secret        string
	AdminTokenTTL time.Duration
}

func NewJwtConfig() *JwtConfig {
	return &JwtConfig{
		Secret:        getEnv("JWT_SECRET", ""),
		AdminTokenTTL: time.Duration(getIntEnv("ADMIN_TOKEN_TTL_MIN", 60)) * time.Minute,
	}
}
