package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/markbates/goth/providers/strava"

	"github.com/varweave/varweave/internal/pkg/catalog"
	"github.com/varweave/varweave/internal/pkg/rules"
)

const (
	stravaAPIBase      = "https://www.strava.com"
	stravaDeauthPath   = "/oauth/deauthorize"
	stravaPageCap      = 10
	stravaRecordsPerPg = 100
)

type stravaClient struct{}

func init() { Register(&stravaClient{}) }

func (c *stravaClient) Name() string { return "strava" }

func (c *stravaClient) gothProvider(conn Conn) *strava.Provider {
	return strava.New(conn.ClientID, conn.ClientSecret, conn.CallbackURL, catalog.MustGet("strava").Scopes...)
}

func (c *stravaClient) AuthorizeURL(conn Conn, state string) (string, error) {
	sess, err := c.gothProvider(conn).BeginAuth(state)
	if err != nil {
		return "", permanent(c.Name(), err)
	}
	return sess.GetAuthURL()
}

func (c *stravaClient) ExchangeCode(ctx context.Context, conn Conn, code string) (*Identity, error) {
	p := c.gothProvider(conn)
	sess := &strava.Session{}
	if _, err := sess.Authorize(p, callbackParams{"code": code}); err != nil {
		return nil, permanent(c.Name(), fmt.Errorf("code exchange failed: %w", err))
	}
	user, err := p.FetchUser(sess)
	if err != nil {
		return nil, permanent(c.Name(), fmt.Errorf("athlete fetch failed: %w", err))
	}
	return &Identity{
		Provider:     c.Name(),
		UserID:       user.UserID,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		IssuedAt:     time.Now(),
	}, nil
}

func (c *stravaClient) FetchCategory(ctx context.Context, conn Conn, token Token, cat *catalog.Category, attrs []string) ([]rules.Record, error) {
	base := stravaAPIBase
	if conn.BaseURL != "" {
		base = conn.BaseURL
	}
	required := catalog.MustGet("strava").Scopes

	// Strava pages with page/per_page and returns a bare JSON array; a
	// short page means we reached the end.
	var records []rules.Record
	for page := 1; page <= stravaPageCap; page++ {
		u := fmt.Sprintf("%s%s?per_page=%d&page=%d", base, cat.Endpoint, stravaRecordsPerPg, page)
		body, err := fetchJSON(ctx, c.Name(), token.AccessToken, u, required)
		if err != nil {
			return nil, err
		}
		pageRecords := mapRecords(cat, attrs, body)
		records = append(records, pageRecords...)
		if len(body.Get(cat.RecordsPath).Array()) < stravaRecordsPerPg {
			break
		}
	}
	return records, nil
}

// Revoke deauthorizes the application for this athlete at Strava.
func (c *stravaClient) Revoke(ctx context.Context, conn Conn, token Token) error {
	base := stravaAPIBase
	if conn.BaseURL != "" {
		base = conn.BaseURL
	}
	form := url.Values{"access_token": {token.AccessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+stravaDeauthPath, nil)
	if err != nil {
		return permanent(c.Name(), err)
	}
	req.URL.RawQuery = form.Encode()

	resp, err := httpClient.Do(req)
	if err != nil {
		return transient(c.Name(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return permanent(c.Name(), fmt.Errorf("deauthorize failed with status %d", resp.StatusCode))
	}
	return nil
}
