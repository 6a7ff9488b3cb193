package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/internal/repositories/entity"
	"github.com/Ramsey-B/fern/internal/repositories/template"
	"github.com/Ramsey-B/fern/pkg/hierarchy"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	sessionpkg "github.com/Ramsey-B/fern/pkg/session"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Manager owns the live mapping sessions, one per
// (tenant, company, statement type). Sessions are created lazily on first
// touch: the active template and the company's entities are loaded once and
// the forest is built from them. All access to a session goes through
// WithSession so mutations stay serialized.
type Manager struct {
	templates template.TemplateRepository
	entities  entity.EntityRepository
	logger    ectologger.Logger

	mu       sync.Mutex
	sessions map[string]*sessionpkg.Session
}

// NewManager creates a new session manager
func NewManager(templates template.TemplateRepository, entities entity.EntityRepository, logger ectologger.Logger) *Manager {
	return &Manager{
		templates: templates,
		entities:  entities,
		logger:    logger,
		sessions:  make(map[string]*sessionpkg.Session),
	}
}

func sessionKey(tenantID, companyID string, statementType models.StatementType) string {
	return fmt.Sprintf("%s:%s:%s", tenantID, companyID, statementType)
}

// WithSession runs fn while holding the manager lock, creating the session
// on first use. fn must not block on external calls longer than it has to;
// every mutation of a session happens inside this window.
func (m *Manager) WithSession(ctx context.Context, tenantID, companyID string, statementType models.StatementType, fn func(sess *sessionpkg.Session) error) error {
	ctx, span := tracing.StartSpan(ctx, "SessionManager.WithSession")
	defer span.End()

	if !statementType.IsValid() {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid statement type")
	}

	sess, err := m.getOrCreate(ctx, tenantID, companyID, statementType)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(sess)
}

// Evict drops the sessions for a company, forcing the next touch to reload
// template and hierarchy. Called when the company's entities or templates
// change.
func (m *Manager) Evict(tenantID, companyID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, statementType := range models.AllStatementTypes {
		delete(m.sessions, sessionKey(tenantID, companyID, statementType))
	}
}

func (m *Manager) getOrCreate(ctx context.Context, tenantID, companyID string, statementType models.StatementType) (*sessionpkg.Session, error) {
	key := sessionKey(tenantID, companyID, statementType)

	m.mu.Lock()
	if sess, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		return sess, nil
	}
	m.mu.Unlock()

	// Load outside the lock; a concurrent loader for the same key is
	// harmless, first store wins.
	tmpl, err := m.templates.GetActiveForStatementType(ctx, tenantID, statementType)
	if err != nil {
		return nil, err
	}

	entities, err := m.entities.GetForCompany(ctx, tenantID, companyID)
	if err != nil {
		return nil, err
	}

	forest := hierarchy.BuildForest(entities)
	if len(forest.Orphans) > 0 {
		orphanCodes := make([]string, 0, len(forest.Orphans))
		for _, o := range forest.Orphans {
			orphanCodes = append(orphanCodes, o.Code)
		}
		m.logger.WithContext(ctx).WithFields(map[string]any{
			"tenant_id":  tenantID,
			"company_id": companyID,
			"orphans":    orphanCodes,
		}).Warn("entities excluded from hierarchy due to missing parents")
	}
	metrics.OrphanEntitiesGauge.WithLabelValues(tenantID, companyID).Set(float64(len(forest.Orphans)))

	sess := sessionpkg.New(tenantID, companyID, statementType, &tmpl, forest)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[key]; ok {
		return existing, nil
	}
	m.sessions[key] = sess

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":      tenantID,
		"company_id":     companyID,
		"statement_type": statementType,
		"template_code":  tmpl.Code,
		"entities":       len(entities),
	}).Info("created mapping session")

	return sess, nil
}
