// Command devtoken prints a bearer token for local calls to the API.  It
// signs with JWT_SECRET, the same variable the server verifies with.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/building-management/internal/utils"
)

func main() {
	sub := flag.String("sub", "dev-user", "subject (caller identity) of the token")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	tok, err := utils.NewAccessToken(secret, *sub, *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(tok.Token)
}
