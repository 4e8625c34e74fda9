package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockToggle is a mock implementation of Toggle
type MockToggle struct {
	mock.Mock
}

func (m *MockToggle) SetEnabled(ctx context.Context, enabled bool) {
	m.Called(ctx, enabled)
}

func (m *MockToggle) IsEnabled() bool {
	args := m.Called()
	return args.Bool(0)
}

func setupApp(toggle *MockToggle) *fiber.App {
	app := fiber.New()
	app.Use(requestid.New(requestid.Config{Header: "X-Ray-ID"}))
	NewStatisticsHandler(toggle).RegisterRoutes(app)
	return app
}

func TestGetStatus(t *testing.T) {
	toggle := new(MockToggle)
	toggle.On("IsEnabled").Return(true).Once()

	resp, err := setupApp(toggle).Test(httptest.NewRequest(http.MethodGet, "/statistics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var status StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.True(t, status.Enabled)
	toggle.AssertExpectations(t)
}

func TestSetStatus(t *testing.T) {
	t.Run("Disable", func(t *testing.T) {
		toggle := new(MockToggle)
		toggle.On("SetEnabled", mock.Anything, false).Once()

		req := httptest.NewRequest(http.MethodPut, "/statistics", strings.NewReader(`{"enabled":false}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := setupApp(toggle).Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var status StatusResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
		assert.False(t, status.Enabled)
		toggle.AssertExpectations(t)
	})

	t.Run("MissingEnabled", func(t *testing.T) {
		toggle := new(MockToggle)

		req := httptest.NewRequest(http.MethodPut, "/statistics", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := setupApp(toggle).Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(body, &errResp))
		assert.Equal(t, "enabled is required", errResp.Message)
		assert.NotEmpty(t, errResp.RayID)
		toggle.AssertNotCalled(t, "SetEnabled", mock.Anything, mock.Anything)
	})
}
