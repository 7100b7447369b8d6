package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/kkkppp/p2proto/internal/config"
	"github.com/kkkppp/p2proto/pkg/auth"
)

// token prints a bearer token for the API, signed with JWT_SECRET
func main() {
	name := flag.String("name", "", "display name stored in the token")
	email := flag.String("email", "", "email stored in the token")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("Usage: token [-name N] [-email E] <user_id>")
	}
	userID, err := strconv.ParseInt(flag.Arg(0), 10, 64)
	if err != nil {
		log.Fatalf("Invalid user id %q: %v", flag.Arg(0), err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret)
	token, err := tokens.GenerateToken(auth.UserSession{ID: userID, Name: *name, Email: *email})
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := tokens.ValidateToken(token)
	if err != nil {
		log.Fatalf("Generated token does not validate: %v", err)
	}
	log.Printf("🔐 Token for user %d expires at %s", userID, claims.ExpiresAt.Time.Format("2006-01-02 15:04:05"))
	fmt.Println(token)
}
