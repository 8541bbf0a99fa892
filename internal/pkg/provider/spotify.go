package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/markbates/goth/providers/spotify"

	"github.com/varweave/varweave/internal/pkg/catalog"
	"github.com/varweave/varweave/internal/pkg/rules"
)

const (
	spotifyAPIBase = "https://api.spotify.com"
	spotifyPageCap = 10
)

type spotifyClient struct{}

func init() { Register(&spotifyClient{}) }

func (c *spotifyClient) Name() string { return "spotify" }

func (c *spotifyClient) gothProvider(conn Conn) *spotify.Provider {
	return spotify.New(conn.ClientID, conn.ClientSecret, conn.CallbackURL, catalog.MustGet("spotify").Scopes...)
}

func (c *spotifyClient) AuthorizeURL(conn Conn, state string) (string, error) {
	sess, err := c.gothProvider(conn).BeginAuth(state)
	if err != nil {
		return "", permanent(c.Name(), err)
	}
	return sess.GetAuthURL()
}

func (c *spotifyClient) ExchangeCode(ctx context.Context, conn Conn, code string) (*Identity, error) {
	p := c.gothProvider(conn)
	sess := &spotify.Session{}
	if _, err := sess.Authorize(p, callbackParams{"code": code}); err != nil {
		return nil, permanent(c.Name(), fmt.Errorf("code exchange failed: %w", err))
	}
	// Spotify's token response has no user id; resolve it via the profile.
	user, err := p.FetchUser(sess)
	if err != nil {
		return nil, permanent(c.Name(), fmt.Errorf("profile fetch failed: %w", err))
	}
	return &Identity{
		Provider:     c.Name(),
		UserID:       user.UserID,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		IssuedAt:     time.Now(),
	}, nil
}

func (c *spotifyClient) FetchCategory(ctx context.Context, conn Conn, token Token, cat *catalog.Category, attrs []string) ([]rules.Record, error) {
	base := spotifyAPIBase
	if conn.BaseURL != "" {
		base = conn.BaseURL
	}
	required := catalog.MustGet("spotify").Scopes

	next := fmt.Sprintf("%s%s?limit=50&offset=0", base, cat.Endpoint)
	var records []rules.Record
	for page := 0; next != "" && page < spotifyPageCap; page++ {
		body, err := fetchJSON(ctx, c.Name(), token.AccessToken, next, required)
		if err != nil {
			return nil, err
		}
		records = append(records, mapRecords(cat, attrs, body)...)
		next = body.Get("next").String()
		if next != "" && conn.BaseURL != "" && !strings.HasPrefix(next, conn.BaseURL) {
			next = ""
		}
	}
	return records, nil
}
