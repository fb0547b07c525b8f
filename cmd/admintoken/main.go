package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/yanqian/clinic-assistant/internal/domain/auth"
	"github.com/yanqian/clinic-assistant/internal/infra/config"
	"github.com/yanqian/clinic-assistant/pkg/logger"
)

// admintoken mints a bearer token for the admin API using the service's
// configured secret.
func main() {
	subject := flag.String("subject", "", "who the token is issued to (required)")
	ttl := flag.Duration("ttl", 0, "token lifetime; defaults to admin.tokenTtl")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *ttl > 0 {
		cfg.Admin.TokenTTL = *ttl
	}

	svc, err := auth.NewService(auth.Config{
		Secret:   cfg.Admin.JWTSecret,
		TokenTTL: cfg.Admin.TokenTTL,
		Issuer:   cfg.Admin.Issuer,
	}, nil, logger.New())
	if err != nil {
		log.Fatalf("admin auth: %v (set ADMIN_JWT_SECRET)", err)
	}
	issued, err := svc.IssueToken(*subject)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		auth.IssuedToken
		TTL string `json:"ttl"`
	}{issued, cfg.Admin.TokenTTL.Round(time.Second).String()}); err != nil {
		log.Fatalf("write token: %v", err)
	}
}
