package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/cbamflow/cbamflow/internal/jobs"
)

const (
	// TaskDeclarationReminder nudges tenants that have not submitted an
	// annual declaration for the reporting year.
	TaskDeclarationReminder = "declarations:reminder"
)

// DeclarationReminderPayload selects the reporting year. Zero means the
// previous calendar year, which is the year a declaration covers.
type DeclarationReminderPayload struct {
	Year int `json:"year"`
}

// NewDeclarationReminderTask constructs an Asynq task for the reminder.
func NewDeclarationReminderTask(year int) (*asynq.Task, error) {
	body, err := json.Marshal(DeclarationReminderPayload{Year: year})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDeclarationReminder, body, asynq.Queue(QueueDefault)), nil
}

// ReminderSender enqueues outbound reminder mail.
type ReminderSender interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error)
}

// DeclarationRepository provides the lookups the reminder needs.
type DeclarationRepository interface {
	// TenantsWithoutSubmission lists tenant ids lacking a submitted
	// declaration for the year.
	TenantsWithoutSubmission(ctx context.Context, year int) ([]string, error)
	// AdminEmails lists the addresses of the tenant's administrators.
	AdminEmails(ctx context.Context, tenantID string) ([]string, error)
}

// DeclarationReminderJob coordinates the reminder workflow.
type DeclarationReminderJob struct {
	Repo    DeclarationRepository
	Mail    ReminderSender
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewDeclarationReminderJob constructs the job handler.
func NewDeclarationReminderJob(repo DeclarationRepository, mail ReminderSender, logger *slog.Logger, metrics *jobmetrics.Metrics) *DeclarationReminderJob {
	return &DeclarationReminderJob{
		Repo:    repo,
		Mail:    mail,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the reminder job.
func (j *DeclarationReminderJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Repo == nil || j.Mail == nil {
		return errors.New("declaration reminder: dependencies not configured")
	}
	var payload DeclarationReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	year := payload.Year
	if year == 0 {
		year = j.now().Year() - 1
	}

	tracker := j.metrics().Track(TaskDeclarationReminder)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.log().With(slog.Int("year", year))

	tenants, err := j.Repo.TenantsWithoutSubmission(ctx, year)
	if err != nil {
		resultErr = err
		logger.Error("list tenants", slog.Any("error", err))
		return resultErr
	}
	if len(tenants) == 0 {
		logger.Info("all tenants submitted")
		return resultErr
	}

	sent := 0
	for _, tenantID := range tenants {
		emails, err := j.Repo.AdminEmails(ctx, tenantID)
		if err != nil {
			resultErr = err
			logger.Error("list admins", slog.String("tenant_id", tenantID), slog.Any("error", err))
			return resultErr
		}
		for _, email := range emails {
			_, err := j.Mail.EnqueueSendEmail(ctx, SendEmailPayload{
				To:      email,
				Subject: fmt.Sprintf("CBAM declaration for %d is still pending", year),
				Body: fmt.Sprintf(
					"Your annual CBAM declaration for reporting year %d has not been submitted yet.\r\nPlease review and submit it before the deadline.\r\n",
					year,
				),
			})
			if err != nil {
				resultErr = err
				logger.Error("enqueue reminder", slog.String("tenant_id", tenantID), slog.Any("error", err))
				return resultErr
			}
			sent++
		}
	}

	logger.Info("sent declaration reminders", slog.Int("tenants", len(tenants)), slog.Int("emails", sent))
	return resultErr
}

func (j *DeclarationReminderJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DeclarationReminderJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDeclarationReminder))
	}
	return slog.Default().With(slog.String("job", TaskDeclarationReminder))
}

func (j *DeclarationReminderJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *DeclarationReminderJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}

// PGDeclarationRepository reads reminder scopes straight from Postgres.
type PGDeclarationRepository struct {
	Pool *pgxpool.Pool
}

// TenantsWithoutSubmission lists active tenants lacking a submitted
// declaration for the year.
func (r *PGDeclarationRepository) TenantsWithoutSubmission(ctx context.Context, year int) ([]string, error) {
	if r.Pool == nil {
		return nil, errors.New("declaration reminder: pool not configured")
	}
	rows, err := r.Pool.Query(ctx, `
		SELECT t.id FROM tenants t
		WHERE t.is_active
		  AND NOT EXISTS (
			SELECT 1 FROM annual_declarations d
			WHERE d.tenant_id = t.id AND d.year = $1 AND d.status IN ('SUBMITTED', 'VERIFIED', 'CLOSED')
		  )
		ORDER BY t.id`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AdminEmails lists the active company administrators of a tenant.
func (r *PGDeclarationRepository) AdminEmails(ctx context.Context, tenantID string) ([]string, error) {
	if r.Pool == nil {
		return nil, errors.New("declaration reminder: pool not configured")
	}
	rows, err := r.Pool.Query(ctx,
		`SELECT email FROM users WHERE tenant_id = $1 AND role = 'COMPANY_ADMIN' AND is_active ORDER BY email`,
		tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
