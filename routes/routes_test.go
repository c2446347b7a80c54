package routes

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupRoutesKeepsEarlierRoutesReachable(t *testing.T) {
	app := fiber.New()
	// The status route is registered before SetupRoutes, the way main does
	// it; the trailing 404 handler must not swallow it.
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "running"})
	})
	SetupRoutes(app, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSetupRoutesUnknownPathReturns404(t *testing.T) {
	app := fiber.New()
	SetupRoutes(app, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/no-such-path", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
