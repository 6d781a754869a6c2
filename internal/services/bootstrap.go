package services

import (
	"fmt"
	"unicode/utf8"

	"github.com/soltixdb/enrollwatch/internal/analytics/anomaly"
	"github.com/soltixdb/enrollwatch/internal/analytics/forecast"
	"github.com/soltixdb/enrollwatch/internal/config"
	"github.com/soltixdb/enrollwatch/internal/dataset"
	"github.com/soltixdb/enrollwatch/internal/events"
	"github.com/soltixdb/enrollwatch/internal/logging"
	"github.com/soltixdb/enrollwatch/internal/metrics"
	"github.com/soltixdb/enrollwatch/internal/model"
)

// DataOptions converts the data section of the configuration
func DataOptions(cfg config.DataConfig) dataset.Options {
	opts := dataset.Options{DateLayouts: cfg.DateLayouts}
	if cfg.Delimiter != "" {
		opts.Comma, _ = utf8.DecodeRuneInString(cfg.Delimiter)
	}
	return opts
}

// NewFromConfig loads the dataset and model artifacts and connects the event
// publisher. The caller owns the returned publisher and must close it.
func NewFromConfig(cfg *config.Config, logger *logging.Logger, m *metrics.Metrics) (*DashboardService, events.Publisher, error) {
	logger.Info("Loading dataset", "path", cfg.Data.Path)
	table, err := dataset.Load(cfg.Data.Path, DataOptions(cfg.Data))
	if err != nil {
		return nil, nil, fmt.Errorf("load dataset: %w", err)
	}
	sum := table.Summary()
	logger.Info("Dataset loaded",
		"records", sum.Records,
		"states", sum.States,
		"districts", sum.Districts,
		"total_enrollment", sum.TotalEnrollment)

	logger.Info("Loading model", "forest", cfg.Model.ForestPath, "encoder", cfg.Model.EncoderPath)
	adapter, err := model.LoadAdapter(cfg.Model.ForestPath, cfg.Model.EncoderPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load model: %w", err)
	}

	var unknown int
	for _, d := range table.Districts() {
		if _, err := adapter.Encode(d); err != nil {
			unknown++
		}
	}
	if unknown > 0 {
		logger.Warn("Districts in dataset without a model encoding", "count", unknown)
	}

	engine, err := forecast.NewEngine(adapter, EngineConfig(cfg.Forecast))
	if err != nil {
		return nil, nil, fmt.Errorf("forecast engine: %w", err)
	}

	logger.Info("Connecting event publisher", "type", cfg.Events.Type)
	pub, err := events.NewPublisher(cfg.Events)
	if err != nil {
		return nil, nil, fmt.Errorf("event publisher: %w", err)
	}

	svc, err := NewDashboardService(Dependencies{
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
	if err != nil {
		_ = pub.Close()
		return nil, nil, err
	}
	return svc, pub, nil
}
