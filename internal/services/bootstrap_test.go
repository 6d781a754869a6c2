package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/enrollwatch/internal/config"
	"github.com/soltixdb/enrollwatch/internal/events"
	"github.com/soltixdb/enrollwatch/internal/logging"
)

func writeArtifacts(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"enrollment.csv": "date;state;district;total_enrollment\n" +
			"01-01-2024;Kerala;Ernakulam;100\n" +
			"01-02-2024;Kerala;Ernakulam;110\n" +
			"01-01-2024;Goa;North Goa;40\n",
		"encoder.json": `{"classes": ["Ernakulam"]}`,
		"forest.json": `{"feature_names": ["lag_1", "month", "district"], "trees": [{
			"children_left": [-1], "children_right": [-1], "feature": [-2],
			"threshold": [-2], "value": [120]}]}`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	cfg := config.DefaultConfig()
	cfg.Data.Path = filepath.Join(dir, "enrollment.csv")
	cfg.Data.Delimiter = ";"
	cfg.Data.DateLayouts = []string{"02-01-2006"}
	cfg.Model.ForestPath = filepath.Join(dir, "forest.json")
	cfg.Model.EncoderPath = filepath.Join(dir, "encoder.json")
	cfg.Events.Type = "memory"
	return cfg
}

func TestDataOptions(t *testing.T) {
	opts := DataOptions(config.DataConfig{Delimiter: "|", DateLayouts: []string{"2006/01/02"}})
	assert.Equal(t, '|', opts.Comma)
	assert.Equal(t, []string{"2006/01/02"}, opts.DateLayouts)

	assert.Equal(t, rune(0), DataOptions(config.DataConfig{}).Comma)
}

func TestNewFromConfig(t *testing.T) {
	cfg := writeArtifacts(t)

	svc, pub, err := NewFromConfig(cfg, logging.NewNop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })
	assert.IsType(t, &events.MemoryPublisher{}, pub)

	assert.Equal(t, 3, svc.Table().Len())
	assert.Equal(t, []string{"Ernakulam"}, svc.Districts())

	resp, err := svc.Forecast(context.Background(), "Ernakulam")
	require.NoError(t, err)
	assert.Equal(t, 120.0, resp.Predicted)
	assert.Equal(t, 1, pub.(*events.MemoryPublisher).Count(cfg.Events.Subject(events.SubjectForecastGenerated)))
}

func TestNewFromConfig_Errors(t *testing.T) {
	t.Run("missing dataset", func(t *testing.T) {
		cfg := writeArtifacts(t)
		cfg.Data.Path = filepath.Join(t.TempDir(), "missing.csv")
		_, _, err := NewFromConfig(cfg, logging.NewNop(), nil)
		assert.Error(t, err)
	})

	t.Run("missing model", func(t *testing.T) {
		cfg := writeArtifacts(t)
		cfg.Model.EncoderPath = filepath.Join(t.TempDir(), "missing.json")
		_, _, err := NewFromConfig(cfg, logging.NewNop(), nil)
		assert.Error(t, err)
	})

	t.Run("unsupported events type", func(t *testing.T) {
		cfg := writeArtifacts(t)
		cfg.Events.Type = "sqs"
		_, _, err := NewFromConfig(cfg, logging.NewNop(), nil)
		assert.Error(t, err)
	})
}
