package config

import "time"

type HttpCfg struct {
	Port int
}

func NewHttpCfg() *HttpCfg {
	return &HttpCfg{
		Port: getIntEnv("HTTP_PORT", 8082),
	}
}

type GatewayCfg struct {
	Address             string
	Path                string
	AuthFailureGrace    time.Duration
	EnforceAllowedHosts bool
	MaxMessageBytes     int64
	PingInterval        time.Duration
}

func NewGatewayCfg() *GatewayCfg {
	return &GatewayCfg{
		Address:             getEnv("GATEWAY_ADDR", ":8080"),
		Path:                getEnv("GATEWAY_PATH", "/socket/judge"),
		AuthFailureGrace:    time.Duration(getIntEnv("AUTH_FAILURE_GRACE_MS", 500)) * time.Millisecond,
		EnforceAllowedHosts: getBoolEnv("GATEWAY_ENFORCE_ALLOWED_HOSTS", false),
		MaxMessageBytes:     int64(getIntEnv("GATEWAY_MAX_MESSAGE_BYTES", 4<<20)),
		PingInterval:        time.Duration(getIntEnv("GATEWAY_PING_INTERVAL_SEC", 25)) * time.Second,
	}
}
