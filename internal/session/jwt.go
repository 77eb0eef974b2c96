package session

import (
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"golang.org/x/oauth2"
)

// TokenFromJWT wraps a JWT access token, copying its expiry. The signature is
// not verified: the backend does that, the client only needs to know when the
// token stops being worth sending.
func TokenFromJWT(raw string) (*oauth2.Token, error) {
	parsed, err := jwt.ParseString(raw, jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	tok := &oauth2.Token{
		AccessToken: raw,
		TokenType:   "Bearer",
		Expiry:      parsed.Expiration(),
	}
	if sub := parsed.Subject(); sub != "" {
		tok = tok.WithExtra(map[string]any{"sub": sub})
	}
	return tok, nil
}

// Subject returns the sub claim recorded by TokenFromJWT, if any
func Subject(tok *oauth2.Token) string {
	if tok == nil {
		return ""
	}
	if sub, ok := tok.Extra("sub").(string); ok {
		return sub
	}
	return ""
}
