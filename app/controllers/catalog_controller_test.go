package controllers

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func catalogApp() *fiber.App {
	app := fiber.New()
	app.Get("/catalog", HandleGetCatalog)
	app.Get("/catalog/:provider", HandleGetCatalogProvider)
	return app
}

func catalogGet(t *testing.T, app *fiber.App, path string) (int, gjson.Result) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, gjson.ParseBytes(body)
}

func TestGetCatalogListsAllProviders(t *testing.T) {
	status, body := catalogGet(t, catalogApp(), "/catalog")
	require.Equal(t, fiber.StatusOK, status)

	var names []string
	for _, p := range body.Get("providers").Array() {
		names = append(names, p.Get("name").String())
	}
	assert.Equal(t, []string{"fitbit", "frontend", "spotify", "strava"}, names)
}

func TestGetCatalogProviderReturnsSingleEntry(t *testing.T) {
	status, body := catalogGet(t, catalogApp(), "/catalog/fitbit")
	require.Equal(t, fiber.StatusOK, status)

	assert.Equal(t, "fitbit", body.Get("name").String())
	assert.Equal(t, "oauth", body.Get("kind").String())
	require.NotEmpty(t, body.Get("categories").Array())
	// Attributes carry the operators registered for their type.
	ops := body.Get("categories.0.attributes.0.operators").Array()
	assert.NotEmpty(t, ops)
}

func TestGetCatalogProviderUnknownIs404(t *testing.T) {
	status, body := catalogGet(t, catalogApp(), "/catalog/garmin")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "not_found", body.Get("error").String())
}
