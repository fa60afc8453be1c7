package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

const autoCloseJob = "inspection-auto-close"

func TestCronJobMetricsTracksAutoCloseRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	before := time.Now().Unix()
	m.ObserveDuration(autoCloseJob, 250*time.Millisecond)
	m.IncSuccess(autoCloseJob)
	m.ObserveDuration(autoCloseJob, 50*time.Millisecond)
	m.IncFailure(autoCloseJob)

	ok := sample(t, reg, "quartermaster_cron_job_runs_total", map[string]string{"job": autoCloseJob, "outcome": "success"})
	assert.EqualValues(t, 1, ok.GetCounter().GetValue())
	failed := sample(t, reg, "quartermaster_cron_job_runs_total", map[string]string{"job": autoCloseJob, "outcome": "failure"})
	assert.EqualValues(t, 1, failed.GetCounter().GetValue())

	hist := sample(t, reg, "quartermaster_cron_job_duration_seconds", map[string]string{"job": autoCloseJob})
	assert.EqualValues(t, 2, hist.GetHistogram().GetSampleCount())
	assert.InDelta(t, 0.3, hist.GetHistogram().GetSampleSum(), 1e-9)

	stamp := sample(t, reg, "quartermaster_cron_job_last_success_timestamp_seconds", map[string]string{"job": autoCloseJob})
	assert.GreaterOrEqual(t, stamp.GetGauge().GetValue(), float64(before))
}

func TestCronJobMetricsLabelsUnnamedJobUnknown(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCronJobMetrics(reg).IncFailure("")

	unnamed := sample(t, reg, "quartermaster_cron_job_runs_total", map[string]string{"job": "unknown", "outcome": "failure"})
	assert.EqualValues(t, 1, unnamed.GetCounter().GetValue())
}

func TestCronJobMetricsWithoutRegistryIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		m := NewCronJobMetrics(nil)
		m.ObserveDuration(autoCloseJob, time.Second)
		m.IncSuccess(autoCloseJob)
		m.IncFailure(autoCloseJob)

		var unset *CronJobMetrics
		unset.IncSuccess(autoCloseJob)
	})
}
