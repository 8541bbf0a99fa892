package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varweave/varweave/internal/pkg/catalog"
	"github.com/varweave/varweave/internal/pkg/rules"
)

func fitbitCategory(t *testing.T) *catalog.Category {
	t.Helper()
	cat, ok := catalog.MustGet("fitbit").Category("activities")
	require.True(t, ok)
	return cat
}

func TestRegistryContainsOAuthProviders(t *testing.T) {
	assert.Equal(t, []string{"fitbit", "spotify", "strava"}, Names())

	for _, name := range Names() {
		c, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())
	}

	_, err := Lookup("frontend")
	assert.Error(t, err, "the frontend provider has no network client")
}

func TestFitbitFetchCategoryMapsTypedRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{
			"activities": [
				{"activityName": "Walk", "calories": 80, "distance": 5, "startTime": "2026-02-01T08:00:00.000"},
				{"activityName": "Run", "calories": 150, "distance": 10, "startTime": "2026-02-02T08:00:00.000"}
			],
			"pagination": {"next": ""}
		}`)
	}))
	defer srv.Close()

	client, err := Lookup("fitbit")
	require.NoError(t, err)

	records, err := client.FetchCategory(context.Background(),
		Conn{Provider: "fitbit", BaseURL: srv.URL},
		Token{AccessToken: "token-abc"},
		fitbitCategory(t),
		[]string{"name", "calories", "distance", "date"})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, rules.Text("Walk"), records[0]["name"])
	assert.Equal(t, rules.Number(80), records[0]["calories"])
	assert.Equal(t, rules.KindDate, records[0]["date"].Kind)
	assert.Equal(t, rules.Number(10), records[1]["distance"])
}

func TestFitbitFetchCategoryFollowsPagination(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"activities": [{"activityName": "Swim", "calories": 300}], "pagination": {"next": ""}}`)
			return
		}
		fmt.Fprintf(w, `{"activities": [{"activityName": "Run", "calories": 150}], "pagination": {"next": "%s/1/user/-/activities/list.json?page=2"}}`, srv.URL)
	}))
	defer srv.Close()

	client, _ := Lookup("fitbit")
	records, err := client.FetchCategory(context.Background(),
		Conn{Provider: "fitbit", BaseURL: srv.URL},
		Token{AccessToken: "t"},
		fitbitCategory(t),
		[]string{"name", "calories"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Run", records[0]["name"].Text)
	assert.Equal(t, "Swim", records[1]["name"].Text)
}

func TestStravaFetchCategoryReadsBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"name": "Morning Ride", "type": "Ride", "distance": 24500.5, "start_date": "2026-03-10T06:30:00Z"},
			{"name": "Evening Run", "type": "Run", "distance": 8000, "start_date": "2026-03-11T18:00:00Z"}
		]`)
	}))
	defer srv.Close()

	cat, ok := catalog.MustGet("strava").Category("activities")
	require.True(t, ok)

	client, _ := Lookup("strava")
	records, err := client.FetchCategory(context.Background(),
		Conn{Provider: "strava", BaseURL: srv.URL},
		Token{AccessToken: "t"},
		cat,
		[]string{"name", "type", "distance", "date"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, rules.Number(24500.5), records[0]["distance"])
	assert.Equal(t, "Run", records[1]["type"].Text)
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"activities": [{"activityName": "Run", "calories": 1}], "pagination": {"next": ""}}`)
	}))
	defer srv.Close()

	client, _ := Lookup("fitbit")
	records, err := client.FetchCategory(context.Background(),
		Conn{Provider: "fitbit", BaseURL: srv.URL},
		Token{AccessToken: "t"},
		fitbitCategory(t),
		[]string{"name"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchSurfacesTransientAfterRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, _ := Lookup("fitbit")
	_, err := client.FetchCategory(context.Background(),
		Conn{Provider: "fitbit", BaseURL: srv.URL},
		Token{AccessToken: "t"},
		fitbitCategory(t),
		[]string{"name"})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
}

func TestFetchInvalidTokenIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, _ := Lookup("fitbit")
	_, err := client.FetchCategory(context.Background(),
		Conn{Provider: "fitbit", BaseURL: srv.URL},
		Token{AccessToken: "t"},
		fitbitCategory(t),
		[]string{"name"})
	require.Error(t, err)

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ErrPermanent, pe.Kind)
	assert.Equal(t, "fitbit", pe.Provider)
	assert.Equal(t, int32(1), calls.Load(), "permanent failures are not retried")
}

func TestFetchScopeMismatchCarriesScopeSets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"errors": [{"errorType": "insufficient_scope"}], "scope": "profile sleep"}`)
	}))
	defer srv.Close()

	client, _ := Lookup("fitbit")
	_, err := client.FetchCategory(context.Background(),
		Conn{Provider: "fitbit", BaseURL: srv.URL},
		Token{AccessToken: "t"},
		fitbitCategory(t),
		[]string{"name"})
	require.Error(t, err)

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ErrScopeMismatch, pe.Kind)
	assert.Equal(t, []string{"activity", "sleep", "profile"}, pe.Required)
	assert.Equal(t, []string{"profile", "sleep"}, pe.Accepted)
}

func TestFitbitRevokePostsToConfiguredHost(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/oauth2/revoke", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "cid", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "token-abc", r.PostFormValue("token"))
	}))
	defer srv.Close()

	client, _ := Lookup("fitbit")
	revoker, ok := client.(Revoker)
	require.True(t, ok)

	err := revoker.Revoke(context.Background(),
		Conn{Provider: "fitbit", ClientID: "cid", ClientSecret: "secret", BaseURL: srv.URL},
		Token{AccessToken: "token-abc"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestStravaRevokeDeauthorizesAtConfiguredHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/deauthorize", r.URL.Path)
		assert.Equal(t, "token-xyz", r.URL.Query().Get("access_token"))
	}))
	defer srv.Close()

	client, _ := Lookup("strava")
	revoker, ok := client.(Revoker)
	require.True(t, ok)

	err := revoker.Revoke(context.Background(),
		Conn{Provider: "strava", BaseURL: srv.URL},
		Token{AccessToken: "token-xyz"})
	require.NoError(t, err)
}

func TestRevokeFailureStatusIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client, _ := Lookup("fitbit")
	revoker := client.(Revoker)

	err := revoker.Revoke(context.Background(),
		Conn{Provider: "fitbit", BaseURL: srv.URL},
		Token{AccessToken: "t"})
	require.Error(t, err)

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ErrPermanent, pe.Kind)
}

func TestAuthorizeURLCarriesStateAndCallback(t *testing.T) {
	conn := Conn{
		Provider:     "fitbit",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		CallbackURL:  "https://app.example.org/oauth/fitbit/callback",
	}
	client, _ := Lookup("fitbit")

	u, err := client.AuthorizeURL(conn, "state-nonce-1")
	require.NoError(t, err)
	assert.Contains(t, u, "state=state-nonce-1")
	assert.Contains(t, u, "client_id=client-id")
}
