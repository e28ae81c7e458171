// Command admin-token mints a bearer token for the catalog admin endpoints.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/johnrirwin/devicedesk/internal/auth"
	"github.com/johnrirwin/devicedesk/internal/config"
	"github.com/johnrirwin/devicedesk/internal/logging"
)

func main() {
	// Registered before config.Load, which owns flag.Parse
	subject := flag.String("subject", "admin", "token subject")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to AUTH_TOKEN_TTL)")

	cfg := config.Load()
	if *ttl > 0 {
		cfg.Auth.TokenTTL = *ttl
	}

	svc, err := auth.NewService(cfg.Auth, logging.New(logging.LevelWarn))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid auth config: %v\n", err)
		os.Exit(1)
	}
	if svc == nil {
		fmt.Fprintln(os.Stderr, "AUTH_JWT_SECRET is not set; admin auth is disabled")
		os.Exit(1)
	}

	token, expiresAt, err := svc.IssueToken(*subject)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
}
