package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/cbamflow/cbamflow/internal/jobs"
)

const (
	// TaskEmissionsAnomalyScan inspects monthly emission totals for
	// significant deltas.
	TaskEmissionsAnomalyScan = "emissions:anomaly_scan"
)

// AnomalyScanPayload configures the scan window and threshold.
type AnomalyScanPayload struct {
	WindowMonths int     `json:"window_months"`
	Z            float64 `json:"z_threshold"`
}

// NewAnomalyScanTask constructs an Asynq task for the emissions scan.
func NewAnomalyScanTask(windowMonths int, z float64) (*asynq.Task, error) {
	body, err := json.Marshal(AnomalyScanPayload{WindowMonths: windowMonths, Z: z})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEmissionsAnomalyScan, body, asynq.Queue(QueueDefault)), nil
}

// AnomalyScanJob flags installations whose latest monthly CO2e total
// deviates from their own history. A spike usually means a data-entry
// slip in a measurement period; a sustained drop can mean missing rows.
type AnomalyScanJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewAnomalyScanJob initialises the anomaly scan handler.
func NewAnomalyScanJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *AnomalyScanJob {
	return &AnomalyScanJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the anomaly scan logic.
func (j *AnomalyScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("anomaly scan: handler not configured")
	}
	var payload AnomalyScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WindowMonths <= 0 {
		payload.WindowMonths = 12
	}
	if payload.Z <= 0 {
		payload.Z = 2.5
	}

	start := j.now()
	tracker := j.metrics().Track(TaskEmissionsAnomalyScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.Int("window_months", payload.WindowMonths),
		slog.Float64("z_threshold", payload.Z),
	)
	logger.Info("starting emissions anomaly scan")

	scopes, anomalies, err := j.scan(ctx, payload, start)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}

	for _, a := range anomalies {
		logger.Warn("emission anomaly detected",
			slog.String("tenant_id", a.TenantID),
			slog.String("installation_id", a.InstallationID),
			slog.String("period", a.Period),
			slog.String("severity", a.Severity),
			slog.Float64("z_score", a.ZScore),
			slog.Float64("delta_tco2e", a.Delta),
		)
		j.metrics().AddAnomalies(a.Severity, a.TenantID, a.InstallationID, 1)
	}

	logger.Info("completed emissions anomaly scan",
		slog.Int("installations", scopes),
		slog.Int("anomalies", len(anomalies)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *AnomalyScanJob) scan(ctx context.Context, payload AnomalyScanPayload, now time.Time) (int, []scanAnomaly, error) {
	if j.Pool == nil {
		return 0, nil, errors.New("anomaly scan: pool not configured")
	}
	from := now.AddDate(0, -payload.WindowMonths+1, 0).Format("2006-01")
	rows, err := j.Pool.Query(ctx, `SELECT tenant_id, installation_id, period, tco2e::double precision FROM mv_emissions_monthly WHERE period >= $1 ORDER BY tenant_id, installation_id, period`, from)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	series := make(map[string]*timeSeries)
	for rows.Next() {
		var tenantID, installationID, period string
		var tco2e float64
		if err := rows.Scan(&tenantID, &installationID, &period, &tco2e); err != nil {
			return 0, nil, err
		}
		key := fmt.Sprintf("%s:%s", tenantID, installationID)
		entry, ok := series[key]
		if !ok {
			entry = &timeSeries{TenantID: tenantID, InstallationID: installationID}
			series[key] = entry
		}
		entry.Periods = append(entry.Periods, period)
		entry.Values = append(entry.Values, tco2e)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}

	anomalies := make([]scanAnomaly, 0)
	for _, entry := range series {
		if a, ok := classify(entry, payload.Z); ok {
			anomalies = append(anomalies, a)
		}
	}

	return len(series), anomalies, nil
}

// classify scores the latest value of a series against its own history.
// Series shorter than three periods carry too little signal.
func classify(entry *timeSeries, threshold float64) (scanAnomaly, bool) {
	if len(entry.Values) < 3 {
		return scanAnomaly{}, false
	}
	mean := average(entry.Values)
	stddev := std(entry.Values, mean)
	if stddev == 0 {
		return scanAnomaly{}, false
	}
	last := entry.Values[len(entry.Values)-1]
	zscore := math.Abs((last - mean) / stddev)
	severity := ""
	switch {
	case zscore >= threshold:
		severity = "HIGH"
	case zscore >= threshold*0.6:
		severity = "MEDIUM"
	default:
		return scanAnomaly{}, false
	}
	return scanAnomaly{
		TenantID:       entry.TenantID,
		InstallationID: entry.InstallationID,
		Period:         entry.Periods[len(entry.Periods)-1],
		Severity:       severity,
		ZScore:         zscore,
		Delta:          last - mean,
	}, true
}

func (j *AnomalyScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskEmissionsAnomalyScan))
	}
	return slog.Default().With(slog.String("job", TaskEmissionsAnomalyScan))
}

func (j *AnomalyScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AnomalyScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

type timeSeries struct {
	TenantID       string
	InstallationID string
	Periods        []string
	Values         []float64
}

type scanAnomaly struct {
	TenantID       string
	InstallationID string
	Period         string
	Severity       string
	ZScore         float64
	Delta          float64
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func std(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var variance float64
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}
