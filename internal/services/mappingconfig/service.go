package mappingconfig

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/internal/repositories/mappingconfig"
	"github.com/Ramsey-B/fern/internal/repositories/stagedfile"
	"github.com/Ramsey-B/fern/internal/repositories/template"
	sessionsvc "github.com/Ramsey-B/fern/internal/services/session"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	sessionpkg "github.com/Ramsey-B/fern/pkg/session"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// EventPublisher publishes mapping lifecycle events. Satisfied by the Kafka
// producer; faked in tests.
type EventPublisher interface {
	Publish(ctx context.Context, msg *kafka.MappingEventMessage) error
}

// RestoreResult reports the outcome of restoring one statement surface.
type RestoreResult struct {
	StatementType models.StatementType `json:"statement_type"`
	Status        string               `json:"status"` // restored, no_config, no_template, stale, error
	MappingCount  int                  `json:"mapping_count"`
	FileMissing   bool                 `json:"file_missing,omitempty"`
}

// Service persists and rehydrates mapping surfaces.
type Service struct {
	configs     mappingconfig.MappingConfigRepository
	templates   template.TemplateRepository
	stagedFiles stagedfile.StagedFileRepository
	sessions    *sessionsvc.Manager
	publisher   EventPublisher
	logger      ectologger.Logger
}

// NewService creates a new mapping config service
func NewService(
	configs mappingconfig.MappingConfigRepository,
	templates template.TemplateRepository,
	stagedFiles stagedfile.StagedFileRepository,
	sessions *sessionsvc.Manager,
	publisher EventPublisher,
	logger ectologger.Logger,
) *Service {
	return &Service{
		configs:     configs,
		templates:   templates,
		stagedFiles: stagedFiles,
		sessions:    sessions,
		publisher:   publisher,
		logger:      logger,
	}
}

// Save snapshots the session's surface and upserts it. Callers must hold the
// session, i.e. run inside Manager.WithSession. Publishing the saved event is
// best effort; a broker outage must not fail the save.
func (s *Service) Save(ctx context.Context, sess *sessionpkg.Session) error {
	return s.persist(ctx, sess.Snapshot())
}

// SaveIfCurrent snapshots the surface under the session lock and persists it,
// unless the session generation moved past the one captured when the save was
// queued. Returns false when the save was discarded as stale. The snapshot is
// taken under the lock; the database write happens outside it.
func (s *Service) SaveIfCurrent(ctx context.Context, tenantID, companyID string, statementType models.StatementType, generation uint64) (bool, error) {
	var config models.MappingConfig
	current := false
	err := s.sessions.WithSession(ctx, tenantID, companyID, statementType, func(sess *sessionpkg.Session) error {
		if sess.Generation() != generation {
			return nil
		}
		current = true
		config = sess.Snapshot()
		return nil
	})
	if err != nil {
		return false, err
	}
	if !current {
		return false, nil
	}
	return true, s.persist(ctx, config)
}

func (s *Service) persist(ctx context.Context, config models.MappingConfig) error {
	ctx, span := tracing.StartSpan(ctx, "MappingConfigService.Save")
	defer span.End()

	start := time.Now()

	err := s.configs.Upsert(ctx, config)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordSave(config.TenantID, string(config.StatementType), status, time.Since(start).Seconds())
	if err != nil {
		return err
	}

	if s.publisher != nil {
		event := &kafka.MappingEventMessage{
			Event:         kafka.EventMappingSaved,
			TenantID:      config.TenantID,
			CompanyID:     config.CompanyID,
			StatementType: config.StatementType,
			TemplateCode:  config.TemplateCode,
			MappingCount:  len(config.Mappings),
			Timestamp:     time.Now().UTC(),
			TraceID:       tracing.GetTraceID(ctx),
		}
		if pubErr := s.publisher.Publish(ctx, event); pubErr != nil {
			s.logger.WithContext(ctx).WithError(pubErr).Warn("failed to publish mapping saved event")
			metrics.RecordKafkaPublish(kafka.EventMappingSaved, "error")
		} else {
			metrics.RecordKafkaPublish(kafka.EventMappingSaved, "success")
		}
	}

	return nil
}

// RestoreCompany rehydrates every statement surface for a company, one
// statement type at a time in a fixed order. Surfaces run independently: a
// missing config, a retired template, or an expired staged file downgrades
// that surface's result instead of failing the whole restore.
func (s *Service) RestoreCompany(ctx context.Context, tenantID, companyID string) ([]RestoreResult, error) {
	ctx, span := tracing.StartSpan(ctx, "MappingConfigService.RestoreCompany")
	defer span.End()

	results := make([]RestoreResult, 0, len(models.AllStatementTypes))
	for _, statementType := range models.AllStatementTypes {
		result := s.restoreOne(ctx, tenantID, companyID, statementType)
		metrics.RecordRestore(tenantID, string(statementType), result.Status)
		results = append(results, result)
	}

	if s.publisher != nil {
		total := 0
		for _, r := range results {
			total += r.MappingCount
		}
		event := &kafka.MappingEventMessage{
			Event:        kafka.EventMappingRestored,
			TenantID:     tenantID,
			CompanyID:    companyID,
			MappingCount: total,
			Timestamp:    time.Now().UTC(),
			TraceID:      tracing.GetTraceID(ctx),
		}
		if pubErr := s.publisher.Publish(ctx, event); pubErr != nil {
			s.logger.WithContext(ctx).WithError(pubErr).Warn("failed to publish mapping restored event")
		}
	}

	return results, nil
}

// PublishEvent emits a mapping lifecycle event best-effort. Publish failures
// are logged and counted, never returned.
func (s *Service) PublishEvent(ctx context.Context, event *kafka.MappingEventMessage) {
	if s.publisher == nil {
		return
	}
	if event.TraceID == "" {
		event.TraceID = tracing.GetTraceID(ctx)
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event": event.Event,
		}).Warn("failed to publish mapping event")
		metrics.RecordKafkaPublish(event.Event, "error")
		return
	}
	metrics.RecordKafkaPublish(event.Event, "success")
}

func (s *Service) restoreOne(ctx context.Context, tenantID, companyID string, statementType models.StatementType) RestoreResult {
	result := RestoreResult{StatementType: statementType}

	config, err := s.configs.Get(ctx, tenantID, companyID, statementType)
	if err != nil {
		if httperror.GetStatusCode(err) == http.StatusNotFound {
			result.Status = "no_config"
			return result
		}
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":      tenantID,
			"company_id":     companyID,
			"statement_type": statementType,
		}).Error("error loading mapping config")
		result.Status = "error"
		return result
	}

	// Capture the surface generation before the remaining fetches. A file
	// switch or template change landing while the template/file loads are in
	// flight supersedes this restore; it must be discarded, not applied over
	// the newer state.
	var generation uint64
	err = s.sessions.WithSession(ctx, tenantID, companyID, statementType, func(sess *sessionpkg.Session) error {
		generation = sess.Generation()
		return nil
	})
	if err != nil {
		result.Status = "error"
		return result
	}

	// The saved template may have been retired since the save
	if _, err := s.templates.GetByCode(ctx, tenantID, config.TemplateCode); err != nil {
		if httperror.GetStatusCode(err) == http.StatusNotFound {
			s.logger.WithContext(ctx).WithFields(map[string]any{
				"tenant_id":     tenantID,
				"company_id":    companyID,
				"template_code": config.TemplateCode,
			}).Warn("saved template no longer exists, skipping restore")
			result.Status = "no_template"
			return result
		}
		result.Status = "error"
		return result
	}

	// The staged file may have expired; the mappings still restore
	var dataset *models.SourceDataset
	if config.SourceFileName != "" {
		dataset, err = s.stagedFiles.Get(ctx, tenantID, companyID, config.SourceFileName)
		if err != nil {
			if httperror.GetStatusCode(err) != http.StatusNotFound {
				result.Status = "error"
				return result
			}
			dataset = nil
			result.FileMissing = true
		}
	}

	stale := false
	err = s.sessions.WithSession(ctx, tenantID, companyID, statementType, func(sess *sessionpkg.Session) error {
		if sess.Generation() != generation {
			stale = true
			return nil
		}
		result.MappingCount = sess.Restore(config, dataset)
		return nil
	})
	if err != nil {
		result.Status = "error"
		return result
	}
	if stale {
		s.logger.WithContext(ctx).WithFields(map[string]any{
			"tenant_id":      tenantID,
			"company_id":     companyID,
			"statement_type": statementType,
		}).Info("discarding stale restore")
		result.Status = "stale"
		return result
	}

	result.Status = "restored"
	return result
}
