// Package metrics provides Prometheus metrics for the Fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MappingAssignmentsTotal tracks row mapping assignments by statement type
	MappingAssignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "mapping",
			Name:      "assignments_total",
			Help:      "Total number of row mapping assignments by statement type and source",
		},
		[]string{"tenant_id", "statement_type", "source"},
	)

	// MappingEvictionsTotal tracks mappings evicted by conflict resolution
	MappingEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "mapping",
			Name:      "evictions_total",
			Help:      "Total number of mappings evicted by hierarchy conflict resolution",
		},
		[]string{"tenant_id", "statement_type"},
	)

	// ColumnAssignmentsTotal tracks column role assignments
	ColumnAssignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "mapping",
			Name:      "column_assignments_total",
			Help:      "Total number of column role assignments",
		},
		[]string{"tenant_id", "statement_type", "role"},
	)

	// ConfigSavesTotal tracks persistence saves by status
	ConfigSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "persistence",
			Name:      "saves_total",
			Help:      "Total number of mapping configuration saves by status",
		},
		[]string{"tenant_id", "statement_type", "status"},
	)

	// ConfigRestoresTotal tracks persistence restores by status
	ConfigRestoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "persistence",
			Name:      "restores_total",
			Help:      "Total number of mapping configuration restores by status",
		},
		[]string{"tenant_id", "statement_type", "status"},
	)

	// SaveDuration tracks persistence save duration
	SaveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "persistence",
			Name:      "save_duration_seconds",
			Help:      "Duration of mapping configuration saves in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"statement_type"},
	)

	// SuggestionRecordsTotal tracks suggestion records by outcome
	SuggestionRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "suggestion",
			Name:      "records_total",
			Help:      "Total number of AI suggestion records by outcome",
		},
		[]string{"tenant_id", "statement_type", "outcome"},
	)

	// OrphanEntitiesGauge tracks entities whose parent never resolved
	OrphanEntitiesGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fern",
			Subsystem: "hierarchy",
			Name:      "orphan_entities",
			Help:      "Number of entities excluded from the tree because their parent is missing",
		},
		[]string{"tenant_id", "company_id"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// DatabaseQueryDuration tracks database query duration
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	// RedisOperationDuration tracks Redis operation duration
	RedisOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "redis",
			Name:      "operation_duration_seconds",
			Help:      "Duration of Redis operations in seconds",
			Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
		[]string{"operation"},
	)
)

// RecordAssignment records a row mapping assignment and any evictions it
// caused. Source is "user" or "suggestion".
func RecordAssignment(tenantID, statementType, source string, evicted int) {
	MappingAssignmentsTotal.WithLabelValues(tenantID, statementType, source).Inc()
	if evicted > 0 {
		MappingEvictionsTotal.WithLabelValues(tenantID, statementType).Add(float64(evicted))
	}
}

// RecordSave records a persistence save
func RecordSave(tenantID, statementType, status string, durationSeconds float64) {
	ConfigSavesTotal.WithLabelValues(tenantID, statementType, status).Inc()
	SaveDuration.WithLabelValues(statementType).Observe(durationSeconds)
}

// RecordRestore records a persistence restore
func RecordRestore(tenantID, statementType, status string) {
	ConfigRestoresTotal.WithLabelValues(tenantID, statementType, status).Inc()
}

// RecordSuggestionRecords records the outcome counts of a suggestion batch
func RecordSuggestionRecords(tenantID, statementType string, applied, skipped int) {
	SuggestionRecordsTotal.WithLabelValues(tenantID, statementType, "applied").Add(float64(applied))
	SuggestionRecordsTotal.WithLabelValues(tenantID, statementType, "skipped").Add(float64(skipped))
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}
