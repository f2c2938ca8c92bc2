// Command token mints bearer tokens for the write API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/garyjia/school-finance/internal/config"
	"github.com/garyjia/school-finance/internal/infrastructure/auth"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	subject := flag.String("subject", "", "user the token is issued to (recorded as postedBy)")
	role := flag.Int("role", 1, "role number; must not exceed auth.max_write_role to write")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "-subject is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	lifetime := cfg.Auth.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	if *role > cfg.Auth.MaxWriteRole {
		fmt.Fprintf(os.Stderr, "warning: role %d exceeds max_write_role %d; token can only read\n",
			*role, cfg.Auth.MaxWriteRole)
	}

	token, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, lifetime).Issue(*subject, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", time.Now().Add(lifetime).Format(time.RFC3339))
}
