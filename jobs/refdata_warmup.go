package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/cbamflow/cbamflow/internal/jobs"
	"github.com/cbamflow/cbamflow/internal/refdata"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const (
	// TaskRefdataWarmup pre-populates the reference data cache.
	TaskRefdataWarmup = "refdata:warmup"
)

// RefdataWarmupPayload configures the warmup scope.
type RefdataWarmupPayload struct {
	IncludeCities bool `json:"include_cities"`
}

// NewRefdataWarmupTask constructs an Asynq task for the warmup.
func NewRefdataWarmupTask(includeCities bool) (*asynq.Task, error) {
	body, err := json.Marshal(RefdataWarmupPayload{IncludeCities: includeCities})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRefdataWarmup, body, asynq.Queue(QueueDefault)), nil
}

// RefdataWarmupJob loads reference data through the cached service so
// the first interactive request after a deploy hits a warm cache.
type RefdataWarmupJob struct {
	Refdata *refdata.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewRefdataWarmupJob wires dependencies for the warmup handler.
func NewRefdataWarmupJob(service *refdata.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *RefdataWarmupJob {
	return &RefdataWarmupJob{Refdata: service, Logger: logger, Metrics: metrics}
}

// Handle processes refdata warmup tasks.
func (j *RefdataWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Refdata == nil {
		return errors.New("refdata warmup: handler not configured")
	}
	var payload RefdataWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskRefdataWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := time.Now()
	logger := j.logger()
	logger.Info("starting refdata warmup")

	countries, err := j.Refdata.Countries(ctx)
	if err != nil {
		resultErr = err
		logger.Error("warm countries", slog.Any("error", err))
		return resultErr
	}
	if _, err := j.Refdata.TaxOffices(ctx); err != nil {
		resultErr = err
		logger.Error("warm tax offices", slog.Any("error", err))
		return resultErr
	}

	warmedCities := 0
	if payload.IncludeCities {
		for _, country := range countries {
			id, _ := country["id"].(string)
			if id == "" {
				continue
			}
			if _, err := j.Refdata.Cities(ctx, id); err != nil {
				resultErr = err
				logger.Error("warm cities", slog.String("country_id", id), slog.Any("error", err))
				return resultErr
			}
			warmedCities++
		}
	}

	logger.Info("completed refdata warmup",
		slog.Int("countries", len(countries)),
		slog.Int("city_lists", warmedCities),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *RefdataWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRefdataWarmup))
	}
	return slog.Default().With(slog.String("job", TaskRefdataWarmup))
}

func (j *RefdataWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
