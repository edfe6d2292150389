package config

import (
	"os"
	"strconv"
)

// getEnv gets an environment variable with a fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an environment variable as an integer with a fallback
func getIntEnv(key string, fallback int) int {
	varInt, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return varInt
}

func getBoolEnv(key string, fallback bool) bool {
	varBool, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return varBool
}
