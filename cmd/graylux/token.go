package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/nerrad567/gray-logic-lux/internal/auth"
	"github.com/nerrad567/gray-logic-lux/internal/infrastructure/config"
)

// tokenUsage is printed when the token subcommand is misused.
const tokenUsage = "usage: graylux token <operator>"

// issueToken prints a control token for the operator named in args, signed
// with the configured api.auth.jwt_secret.
func issueToken(w io.Writer, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New(tokenUsage)
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.API.Auth.JWTSecret == "" {
		return errors.New("api.auth.jwt_secret is not set")
	}

	token, err := auth.IssueToken(cfg.API.Auth.JWTSecret, args[0], cfg.GetTokenTTL())
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	if !cfg.API.Auth.Enabled {
		fmt.Fprintln(w, "# api.auth.enabled is false; the API will not ask for this token")
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
