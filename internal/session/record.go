package session

import (
	"time"

	"golang.org/x/oauth2"
)

// record is the serialized form shared by the file and redis stores.
// oauth2.Token drops its extra fields when marshalled, so the subject is kept
// alongside.
type record struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	Expiry      time.Time `json:"expiry,omitempty"`
	Subject     string    `json:"sub,omitempty"`
}

func newRecord(tok *oauth2.Token) record {
	return record{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Expiry:      tok.Expiry,
		Subject:     Subject(tok),
	}
}

func (r record) token() *oauth2.Token {
	if r.AccessToken == "" {
		return nil
	}
	tok := &oauth2.Token{AccessToken: r.AccessToken, TokenType: r.TokenType, Expiry: r.Expiry}
	if r.Subject != "" {
		tok = tok.WithExtra(map[string]any{"sub": r.Subject})
	}
	return tok
}
