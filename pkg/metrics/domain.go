package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric exported by the service.
const Namespace = "quartermaster"

// DomainMetrics counts ledger, ordering and inspection outcomes. A nil
// *DomainMetrics is valid and records nothing.
type DomainMetrics struct {
	ledger      *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
	ordering    *prometheus.CounterVec
	submissions *prometheus.CounterVec
}

// NewDomainMetrics registers the domain counters on the provided registerer.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	ledger := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "ledger_operations_total",
		Help:      "Assignment ledger operations by operation and outcome.",
	}, []string{"operation", "outcome"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "assignment_conflicts_total",
		Help:      "Issue conflicts surfaced to callers by kind.",
	}, []string{"kind"})
	ordering := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "ordering_mutations_total",
		Help:      "Ordered list mutations by catalog kind and operation.",
	}, []string{"kind", "operation"})
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "inspection_submissions_total",
		Help:      "Cadet inspection submissions by derived completeness.",
	}, []string{"uniform_complete"})
	reg.MustRegister(ledger, conflicts, ordering, submissions)
	return &DomainMetrics{
		ledger:      ledger,
		conflicts:   conflicts,
		ordering:    ordering,
		submissions: submissions,
	}
}

// LedgerOperation counts one ledger call; outcome is "ok", "conflict" or "error".
func (m *DomainMetrics) LedgerOperation(operation, outcome string) {
	if m == nil || m.ledger == nil {
		return
	}
	m.ledger.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

func (m *DomainMetrics) Conflict(kind string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *DomainMetrics) OrderingMutation(kind, operation string) {
	if m == nil || m.ordering == nil {
		return
	}
	m.ordering.WithLabelValues(normalizeLabel(kind), normalizeLabel(operation)).Inc()
}

func (m *DomainMetrics) InspectionSubmitted(uniformComplete bool) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(strconv.FormatBool(uniformComplete)).Inc()
}
