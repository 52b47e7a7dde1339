package client

import (
	"errors"

	"github.com/courtside/clubapp/internal/tokenstore"
)

var (
	// ErrIncompleteTokenPair is returned when only one half of a token pair is
	// supplied. Every tokenstore backend returns it from SaveTokens.
	ErrIncompleteTokenPair = tokenstore.ErrIncompletePair

	// ErrNotLoggedIn is returned by operations that need a stored session
	ErrNotLoggedIn = errors.New("not logged in")
)

// TokenPair is the access/refresh credential pair issued by the API
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Complete reports whether both halves of the pair are present
func (p TokenPair) Complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// TokenStore persists the current session's token pair. The file, redis and
// memory backends live in package tokenstore.
type TokenStore = tokenstore.Store
