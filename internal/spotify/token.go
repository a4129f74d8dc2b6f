package spotify

import (
	"context"
	"fmt"
	"sync"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenGuard manages the client-credentials access token. A refresh triggered
// by one in-flight resolution is visible to all concurrent ones. Refreshing
// is idempotent and simply overwrites any stale value, so a check-then-refresh
// race at worst costs one extra token request.
type TokenGuard struct {
	conf  *clientcredentials.Config
	mutex sync.RWMutex
	token *oauth2.Token
}

func NewTokenGuard(clientID, clientSecret string) *TokenGuard {
	return &TokenGuard{
		conf: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     spotifyauth.TokenURL,
		},
	}
}

// Expired reports whether the guard holds no usable token.
func (tg *TokenGuard) Expired() bool {
	tg.mutex.RLock()
	defer tg.mutex.RUnlock()

	return tg.token == nil || !tg.token.Valid()
}

// Refresh obtains a fresh access token and swaps it in.
func (tg *TokenGuard) Refresh(ctx context.Context) error {
	token, err := tg.conf.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh access token: %w", err)
	}

	tg.mutex.Lock()
	tg.token = token
	tg.mutex.Unlock()
	return nil
}

// Token implements oauth2.TokenSource, refreshing lazily when the held token
// is missing or expired.
func (tg *TokenGuard) Token() (*oauth2.Token, error) {
	tg.mutex.RLock()
	token := tg.token
	tg.mutex.RUnlock()

	if token != nil && token.Valid() {
		return token, nil
	}

	if err := tg.Refresh(context.Background()); err != nil {
		return nil, err
	}

	tg.mutex.RLock()
	defer tg.mutex.RUnlock()
	return tg.token, nil
}
