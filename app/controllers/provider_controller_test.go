package controllers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varweave/varweave/app/models"
	"github.com/varweave/varweave/internal/pkg/catalog"
)

func TestProviderEntriesSurfaceAuthorizeFailures(t *testing.T) {
	connections := []models.DataConnection{
		{Provider: "fitbit"},
		{Provider: "spotify"},
	}

	entries := providerEntries(connections, func(dc *models.DataConnection) (string, error) {
		if dc.Provider == "spotify" {
			return "", errors.New("open spotify client secret: message authentication failed")
		}
		return "https://fitbit.example.org/authorize?state=s1", nil
	})
	require.Len(t, entries, 2)

	assert.Equal(t, "https://fitbit.example.org/authorize?state=s1", entries[0]["authorize_url"])
	assert.NotContains(t, entries[0], "error")
	assert.Equal(t, catalog.KindOAuth, entries[0]["kind"])

	assert.Equal(t, "open spotify client secret: message authentication failed", entries[1]["error"])
	assert.NotContains(t, entries[1], "authorize_url")
}
