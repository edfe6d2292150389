// Command admintoken prints a bearer token for the admin HTTP API.
//
//	admintoken <env> [subject]
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"gitlab.com/judge-dispatch.net/internal/adapter/crypto"
	"gitlab.com/judge-dispatch.net/internal/config"
	"gitlab.com/judge-dispatch.net/internal/handlers"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("Env not supplied in argument")
	}
	if err := godotenv.Load(os.Args[1] + ".env"); err != nil {
		log.Fatalf("Error loading %s.env file", os.Args[1])
	}

	subject := "admin"
	if len(os.Args) > 2 {
		subject = os.Args[2]
	}

	jwtCfg := config.NewJwtConfig()
	token, err := crypto.NewJWTService(jwtCfg).GenerateTokenHMAC(context.Background(), map[string]interface{}{
		"sub":  subject,
		"role": handlers.AdminRole,
	}, jwtCfg.AdminTokenTTL)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Println(token)
}
