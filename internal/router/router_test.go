package router

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/enrollwatch/internal/analytics/anomaly"
	"github.com/soltixdb/enrollwatch/internal/analytics/forecast"
	"github.com/soltixdb/enrollwatch/internal/config"
	"github.com/soltixdb/enrollwatch/internal/dataset"
	"github.com/soltixdb/enrollwatch/internal/events"
	"github.com/soltixdb/enrollwatch/internal/logging"
	"github.com/soltixdb/enrollwatch/internal/metrics"
	"github.com/soltixdb/enrollwatch/internal/model"
	"github.com/soltixdb/enrollwatch/internal/services"
)

const (
	testAPIKey = "0123456789abcdef0123456789abcdef"

	testCSV = `Date,State,District,Total_Enrollment
2024-01-01,Kerala,Ernakulam,100
2024-02-01,Kerala,Ernakulam,110
2024-01-01,Goa,North Goa,40
`
	testEncoder = `{"classes": ["Ernakulam", "North Goa"]}`
	testForest  = `{"n_features": 3, "trees": [{
		"children_left": [1, -1, -1],
		"children_right": [2, -1, -1],
		"feature": [0, -2, -2],
		"threshold": [100, -2, -2],
		"value": [145, 90, 200]
	}]}`
)

func newTestApp(t *testing.T, mutate func(*config.Config)) (*fiber.App, *events.MemoryPublisher) {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}

	table, err := dataset.Read(strings.NewReader(testCSV), dataset.Options{})
	require.NoError(t, err)
	enc, err := model.ReadEncoder(strings.NewReader(testEncoder))
	require.NoError(t, err)
	forest, err := model.ReadForest(strings.NewReader(testForest))
	require.NoError(t, err)
	adapter, err := model.NewAdapter(enc, forest)
	require.NoError(t, err)
	engine, err := forecast.NewEngine(adapter, services.EngineConfig(cfg.Forecast))
	require.NoError(t, err)

	pub := events.NewMemoryPublisher()
	m := metrics.New()
	logger := logging.NewNop()
	svc, err := services.NewDashboardService(services.Dependencies{
		Logger:    logger,
		Table:     table,
		Adapter:   adapter,
		Engine:    engine,
		Detector:  anomaly.NewIQRDetector(cfg.Anomaly.Multiplier),
		Publisher: pub,
		Metrics:   m,
		Events:    cfg.Events,
		Anomaly:   cfg.Anomaly,
		Export:    cfg.Export,
	})
	require.NoError(t, err)

	return New(logger, svc, m, *cfg), pub
}

func do(t *testing.T, app *fiber.App, path string, headers map[string]string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestRouter_HealthAndNotFound(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, body := do(t, app, "/health", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `"status":"healthy"`)

	status, body = do(t, app, "/v2/overview", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Contains(t, body, `"NOT_FOUND"`)
}

func TestRouter_RequestID(t *testing.T) {
	app, _ := newTestApp(t, nil)

	req := httptest.NewRequest("GET", "/v1/overview", nil)
	req.Header.Set(logging.HeaderRequestID, "req-42")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "req-42", resp.Header.Get(logging.HeaderRequestID))

	resp, err = app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.NotEmpty(t, resp.Header.Get(logging.HeaderRequestID))
}

func TestRouter_Auth(t *testing.T) {
	app, _ := newTestApp(t, func(c *config.Config) {
		c.Auth.Enabled = true
		c.Auth.APIKeys = []string{testAPIKey}
	})

	status, _ := do(t, app, "/v1/overview", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = do(t, app, "/v1/overview", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = do(t, app, "/v1/overview", map[string]string{"X-API-Key": testAPIKey})
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = do(t, app, "/v1/overview", map[string]string{"Authorization": "Bearer " + testAPIKey})
	assert.Equal(t, fiber.StatusOK, status)

	// Health stays public
	status, _ = do(t, app, "/health", nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestRouter_ForecastPublishesEvent(t *testing.T) {
	app, pub := newTestApp(t, nil)

	status, body := do(t, app, "/v1/districts/Ernakulam/forecast", nil)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Contains(t, body, `"predicted":200`)

	msgs := pub.Messages("enrollwatch." + events.SubjectForecastGenerated)
	require.Len(t, msgs, 1)
	assert.Contains(t, string(msgs[0]), `"district":"Ernakulam"`)

	// Export does not publish
	status, _ = do(t, app, "/v1/districts/Ernakulam/forecast/export", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, pub.Messages("enrollwatch."+events.SubjectForecastGenerated), 1)
}

func TestRouter_Metrics(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, _ := do(t, app, "/v1/districts/North%20Goa/forecast", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, body := do(t, app, "/metrics", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "enrollwatch_http_requests_total")
	assert.Contains(t, body, "enrollwatch_forecasts_generated_total 1")

	disabled, _ := newTestApp(t, func(c *config.Config) { c.Metrics.Enabled = false })
	status, _ = do(t, disabled, "/metrics", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}
