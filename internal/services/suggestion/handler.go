// Package suggestion consumes assistant-produced mapping suggestions from
// Kafka and applies them to live mapping sessions.
package suggestion

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	mappingconfigsvc "github.com/Ramsey-B/fern/internal/services/mappingconfig"
	sessionsvc "github.com/Ramsey-B/fern/internal/services/session"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	sessionpkg "github.com/Ramsey-B/fern/pkg/session"
	suggestionpkg "github.com/Ramsey-B/fern/pkg/suggestion"
)

// Handler applies suggestion messages from the assistant topic. Suggestion
// batches are advisory: a record that no longer fits the session is skipped
// and the rest of the batch still lands. The message itself is only rejected
// when it cannot be parsed or addressed.
type Handler struct {
	sessions *sessionsvc.Manager
	importer *suggestionpkg.Importer
	saver    *mappingconfigsvc.DebouncedSaver
	service  *mappingconfigsvc.Service
	logger   ectologger.Logger
}

func NewHandler(
	sessions *sessionsvc.Manager,
	importer *suggestionpkg.Importer,
	saver *mappingconfigsvc.DebouncedSaver,
	service *mappingconfigsvc.Service,
	logger ectologger.Logger,
) *Handler {
	return &Handler{
		sessions: sessions,
		importer: importer,
		saver:    saver,
		service:  service,
		logger:   logger,
	}
}

// Handle is the kafka.MessageHandler for the suggestion topic. Parse and
// validation failures are already rejected by the consumer before this runs,
// so msg.Suggestion is always populated here.
func (h *Handler) Handle(ctx context.Context, msg *kafka.ReceivedMessage) error {
	suggestion := msg.Suggestion
	statementType := suggestion.StatementType

	var report suggestionpkg.ImportReport
	err := h.sessions.WithSession(ctx, suggestion.TenantID, suggestion.CompanyID, statementType, func(sess *sessionpkg.Session) error {
		report = h.importer.Apply(ctx, sess, models.EntityPath(suggestion.EntityPath), suggestion.Suggestion)
		if report.RowsApplied+report.ColumnsApplied > 0 {
			h.saver.Request(sess)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.RecordSuggestionRecords(suggestion.TenantID, string(statementType),
		report.RowsApplied+report.ColumnsApplied, len(report.Skipped))

	h.service.PublishEvent(ctx, &kafka.MappingEventMessage{
		Event:         kafka.EventSuggestionApplied,
		TenantID:      suggestion.TenantID,
		CompanyID:     suggestion.CompanyID,
		StatementType: statementType,
		MappingCount:  report.RowsApplied,
		EvictedCount:  report.Evicted,
		SkippedCount:  len(report.Skipped),
		Timestamp:     time.Now().UTC(),
		TraceID:       suggestion.TraceID,
	})

	return nil
}
