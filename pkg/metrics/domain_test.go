package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestDomainMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDomainMetrics(reg)

	m.LedgerOperation("issue", "conflict")
	m.Conflict("already_issued")
	m.Conflict("already_issued")
	m.OrderingMutation("size", "reorder")
	m.InspectionSubmitted(true)

	conflicts := sample(t, reg, "quartermaster_assignment_conflicts_total", map[string]string{"kind": "already_issued"})
	assert.EqualValues(t, 2, conflicts.GetCounter().GetValue())
	ledger := sample(t, reg, "quartermaster_ledger_operations_total", map[string]string{"operation": "issue"})
	assert.EqualValues(t, 1, ledger.GetCounter().GetValue())
	submissions := sample(t, reg, "quartermaster_inspection_submissions_total", map[string]string{"uniform_complete": "true"})
	assert.EqualValues(t, 1, submissions.GetCounter().GetValue())
}

func TestNilDomainMetricsIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		var m *DomainMetrics
		m.LedgerOperation("issue", "ok")
		m.Conflict("inactive")
		m.OrderingMutation("size", "append")
		m.InspectionSubmitted(false)

		NewDomainMetrics(nil).Conflict("not_found")
	})
}
