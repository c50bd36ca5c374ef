// Command token prints a personal access token signed with JWT_SECRET_KEY.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"tudu/pkg/auth"
	"tudu/pkg/config"
)

func main() {
	subject := flag.String("subject", "owner", "label stored in the token subject")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to JWT_EXPIRATION_HOURS")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.JWT.Enabled() {
		log.Fatal("JWT_SECRET_KEY is not set")
	}

	lifetime := cfg.JWT.Expiration
	if *ttl > 0 {
		lifetime = *ttl
	}
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}

	token, err := auth.NewJWTManager(cfg.JWT.SecretKey, lifetime).GenerateToken(*subject)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}
	fmt.Println(token)
}
