package e2e

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/cbamflow/cbamflow/internal/jobs"
	"github.com/cbamflow/cbamflow/jobs"
)

type stubReminderRepo struct {
	tenants []string
	admins  map[string][]string
}

func (s *stubReminderRepo) TenantsWithoutSubmission(_ context.Context, _ int) ([]string, error) {
	return append([]string(nil), s.tenants...), nil
}

func (s *stubReminderRepo) AdminEmails(_ context.Context, tenantID string) ([]string, error) {
	return s.admins[tenantID], nil
}

type reminderMailRecorder struct {
	sent []jobs.SendEmailPayload
}

func (m *reminderMailRecorder) EnqueueSendEmail(_ context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error) {
	m.sent = append(m.sent, payload)
	return &asynq.TaskInfo{}, nil
}

func TestDeclarationReminderJobRecordsMetrics(t *testing.T) {
	repo := &stubReminderRepo{
		tenants: []string{"t-alpha", "t-beta", "t-gamma"},
		admins: map[string][]string{
			"t-alpha": {"admin@alpha.example"},
			"t-beta":  {"admin@beta.example"},
			"t-gamma": {"admin@gamma.example"},
		},
	}
	mail := &reminderMailRecorder{}
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)

	job := jobs.NewDeclarationReminderJob(repo, mail, nil, metrics)
	task, err := jobs.NewDeclarationReminderTask(2025)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err := job.Handle(context.Background(), task); err != nil {
		t.Fatalf("job handle: %v", err)
	}
	if len(mail.sent) != 3 {
		t.Fatalf("expected 3 reminder mails, got %d", len(mail.sent))
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if !assertCounter(t, families, "cbamflow_jobs_total", map[string]string{"job": jobs.TaskDeclarationReminder, "status": "success"}, 1) {
		t.Fatalf("expected cbamflow_jobs_total increment for declaration reminder")
	}
	if !metricExists(families, "cbamflow_job_duration_seconds") {
		t.Fatalf("expected cbamflow_job_duration_seconds to be recorded")
	}
}

func assertCounter(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string, expected float64) bool {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if matchLabels(metric.GetLabel(), labels) {
				if metric.GetCounter() == nil {
					return false
				}
				if metric.GetCounter().GetValue() == expected {
					return true
				}
			}
		}
	}
	return false
}

func metricExists(families []*dto.MetricFamily, name string) bool {
	for _, fam := range families {
		if fam.GetName() == name {
			return true
		}
	}
	return false
}

func matchLabels(pairs []*dto.LabelPair, expected map[string]string) bool {
	if len(expected) == 0 {
		return true
	}
	seen := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		seen[pair.GetName()] = pair.GetValue()
	}
	for k, v := range expected {
		if seen[k] != v {
			return false
		}
	}
	return true
}
