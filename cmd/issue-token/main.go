// Command issue-token mints HS256 tokens for local testing of the tracking
// service, signed with the configured auth.jwt_secret.
package main

import (
	"flag"
	"fmt"
	"time"

	"vendor-tracking/internal/shared/config"
	"vendor-tracking/internal/shared/jwt"
	"vendor-tracking/internal/shared/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	subject := flag.String("sub", "", "token subject (vendor id for vendors)")
	role := flag.String("role", jwt.RoleVendor, "vendor|user|admin|service")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	log := util.New()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("Config", "Failed to load configuration", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("Config", "auth.jwt_secret is empty, nothing to sign with", nil)
	}
	if *subject == "" {
		log.Fatal("IssueToken", "-sub is required", nil)
	}

	switch *role {
	case jwt.RoleVendor, jwt.RoleUser, jwt.RoleAdmin, jwt.RoleService:
	default:
		log.Fatal("IssueToken", fmt.Sprintf("unknown role %q", *role), nil)
	}

	token, err := jwt.GenerateJWT([]byte(cfg.Auth.JWTSecret), *subject, *role, *ttl)
	if err != nil {
		log.Fatal("IssueToken", "Failed to sign token", err)
	}
	fmt.Println(token)
}
