package services

import (
	"bytes"
	"context"
	"time"

	"github.com/soltixdb/enrollwatch/internal/analytics/anomaly"
	"github.com/soltixdb/enrollwatch/internal/analytics/forecast"
	"github.com/soltixdb/enrollwatch/internal/dataset"
	"github.com/soltixdb/enrollwatch/internal/events"
	"github.com/soltixdb/enrollwatch/internal/export"
	"github.com/soltixdb/enrollwatch/internal/logging"
	"github.com/soltixdb/enrollwatch/internal/models"
	"github.com/soltixdb/enrollwatch/internal/utils"
)

// ForecastEvent is published on forecast.generated
type ForecastEvent struct {
	District     string           `json:"district"`
	State        string           `json:"state"`
	LatestValue  float64          `json:"latest_value"`
	Predicted    float64          `json:"predicted"`
	Lower        float64          `json:"lower"`
	Upper        float64          `json:"upper"`
	ChangePct    forecast.Percent `json:"change_pct"`
	ForecastDate string           `json:"forecast_date"`
	RequestID    string           `json:"request_id,omitempty"`
	GeneratedAt  time.Time        `json:"generated_at"`
}

// AnomalyScanEvent is published on anomaly.scan
type AnomalyScanEvent struct {
	Scope     anomaly.Scope   `json:"scope"`
	District  string          `json:"district,omitempty"`
	Records   int             `json:"records"`
	Flagged   int             `json:"flagged"`
	Fences    *anomaly.Fences `json:"fences,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	ScannedAt time.Time       `json:"scanned_at"`
}

// ExportFile is a rendered forecast export
type ExportFile struct {
	Filename    string
	ContentType string
	Format      export.Format
	Data        []byte
}

// Forecast predicts the next period of a district and publishes forecast.generated
func (s *DashboardService) Forecast(ctx context.Context, district string) (*models.ForecastResponse, error) {
	resp, err := s.forecast(ctx, district)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.SubjectForecastGenerated, ForecastEvent{
		District:     resp.District,
		State:        resp.State,
		LatestValue:  resp.LatestValue,
		Predicted:    resp.Predicted,
		Lower:        resp.Lower,
		Upper:        resp.Upper,
		ChangePct:    resp.Change,
		ForecastDate: resp.ForecastDate.Format(dataset.DateFormat),
		RequestID:    logging.RequestID(ctx),
		GeneratedAt:  time.Now().UTC(),
	})
	return resp, nil
}

func (s *DashboardService) forecast(ctx context.Context, district string) (*models.ForecastResponse, error) {
	logger := logging.FromContext(ctx).With("district", district)

	code, err := s.adapter.Encode(district)
	if err != nil {
		s.metrics.ForecastFailed(CodeUnknownDistrict)
		return nil, unknownDistrict(district)
	}

	res, err := s.engine.Forecast(district, code, s.table.History(district))
	if err != nil {
		svcErr := forecastError(district, err)
		s.metrics.ForecastFailed(svcErr.Code)
		logger.Warn("Forecast failed", "code", svcErr.Code, "error", err)
		return nil, svcErr
	}

	s.metrics.ForecastGenerated()
	logger.Debug("Forecast computed",
		"latest", res.LatestValue,
		"predicted", res.Predicted,
		"monotonic", res.Scenarios.Monotonic)

	state, _ := s.table.StateOf(district)
	return &models.ForecastResponse{
		Result:      res,
		State:       state,
		Importances: s.adapter.FeatureImportances(),
	}, nil
}

// Backtest replays the district history through the model
func (s *DashboardService) Backtest(ctx context.Context, district string) (*models.BacktestResponse, error) {
	code, err := s.adapter.Encode(district)
	if err != nil {
		return nil, unknownDistrict(district)
	}

	info, err := s.engine.Backtest(code, s.table.History(district))
	if err != nil {
		logging.FromContext(ctx).Warn("Backtest failed", "district", district, "error", err)
		return nil, forecastError(district, err)
	}
	return &models.BacktestResponse{District: district, ModelInfo: info}, nil
}

// Anomalies runs the IQR scan and publishes anomaly.scan.
// An empty scope selects the configured default; an empty district scans every record.
func (s *DashboardService) Anomalies(ctx context.Context, scope, district string, limit int) (*models.AnomalyResponse, error) {
	sc := s.defaultScope
	if scope != "" {
		parsed, err := anomaly.ParseScope(scope)
		if err != nil {
			return nil, invalidArgument("scope", scope, err.Error())
		}
		sc = parsed
	}

	limit, err := s.listSize("limit", limit, s.defaultLimit)
	if err != nil {
		return nil, err
	}

	if district != "" {
		if _, ok := s.table.StateOf(district); !ok {
			return nil, unknownDistrict(district)
		}
	}

	res := s.detector.DetectScoped(s.table.Filter("", district).Records(), sc)
	flagged := len(res.Anomalies)
	if flagged > limit {
		res.Anomalies = res.Anomalies[:limit]
	}

	s.metrics.AnomalyScan(string(sc), flagged)
	logging.FromContext(ctx).Debug("Anomaly scan completed",
		"scope", sc, "records", res.Records, "flagged", flagged)

	s.publish(ctx, events.SubjectAnomalyScan, AnomalyScanEvent{
		Scope:     sc,
		District:  district,
		Records:   res.Records,
		Flagged:   flagged,
		Fences:    res.Fences,
		RequestID: logging.RequestID(ctx),
		ScannedAt: time.Now().UTC(),
	})

	return &models.AnomalyResponse{
		Result:   res,
		District: district,
		Flagged:  flagged,
		Limit:    limit,
	}, nil
}

// Export renders the district forecast as a one-row CSV or XLSX file.
// An empty format selects the configured default.
func (s *DashboardService) Export(ctx context.Context, district, format string) (*ExportFile, error) {
	f := s.defaultFormat
	if format != "" {
		parsed, err := export.ParseFormat(format)
		if err != nil {
			return nil, invalidArgument("format", format, err.Error())
		}
		f = parsed
	}

	resp, err := s.forecast(ctx, district)
	if err != nil {
		return nil, err
	}

	row := export.FormatResult(resp.Result)
	var buf bytes.Buffer
	switch f {
	case export.FormatXLSX:
		err = export.WriteXLSX(&buf, row)
	default:
		err = export.WriteCSV(&buf, row)
	}
	if err != nil {
		logging.FromContext(ctx).Error("Export failed", "district", district, "format", f, "error", err)
		return nil, NewServiceErrorWithDetails(CodeExportFailed, "failed to render export",
			map[string]interface{}{"district": district, "format": string(f), "error": err.Error()})
	}

	s.metrics.Exported(string(f))
	return &ExportFile{
		Filename:    export.Filename(district, resp.ForecastDate, f),
		ContentType: f.ContentType(),
		Format:      f,
		Data:        buf.Bytes(),
	}, nil
}

// publish sends an event without failing the request
func (s *DashboardService) publish(ctx context.Context, name string, payload interface{}) {
	subject := s.events.Subject(name)

	timeout := s.events.Timeout
	if timeout <= 0 {
		timeout = utils.EventPublishTimeout
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	err := events.PublishJSON(pubCtx, s.publisher, subject, payload)
	s.metrics.EventPublished(name, err)
	if err != nil {
		logging.FromContext(ctx).Warn("Failed to publish event", "subject", subject, "error", err)
	}
}
