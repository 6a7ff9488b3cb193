package suggestion

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mappingconfigsvc "github.com/Ramsey-B/fern/internal/services/mappingconfig"
	sessionsvc "github.com/Ramsey-B/fern/internal/services/session"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	sessionpkg "github.com/Ramsey-B/fern/pkg/session"
	suggestionpkg "github.com/Ramsey-B/fern/pkg/suggestion"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

type fakeTemplateRepo struct {
	templates map[string]models.Template
}

func (f *fakeTemplateRepo) Upsert(ctx context.Context, template models.Template) error {
	f.templates[template.Code] = template
	return nil
}

func (f *fakeTemplateRepo) GetByCode(ctx context.Context, tenantID, code string) (models.Template, error) {
	t, ok := f.templates[code]
	if !ok {
		return models.Template{}, httperror.NewHTTPError(http.StatusNotFound, "template not found")
	}
	return t, nil
}

func (f *fakeTemplateRepo) GetActiveForStatementType(ctx context.Context, tenantID string, statementType models.StatementType) (models.Template, error) {
	for _, t := range f.templates {
		if t.StatementType == statementType && t.IsActive {
			return t, nil
		}
	}
	return models.Template{}, httperror.NewHTTPError(http.StatusNotFound, "no active template for statement type")
}

func (f *fakeTemplateRepo) List(ctx context.Context, tenantID string) ([]models.Template, error) {
	out := make([]models.Template, 0, len(f.templates))
	for _, t := range f.templates {
		out = append(out, t)
	}
	return out, nil
}

type fakeEntityRepo struct {
	entities []*models.Entity
}

func (f *fakeEntityRepo) GetForCompany(ctx context.Context, tenantID, companyID string) ([]*models.Entity, error) {
	return f.entities, nil
}

func (f *fakeEntityRepo) Create(ctx context.Context, tenantID, companyID string, entity *models.Entity) (*models.Entity, error) {
	f.entities = append(f.entities, entity)
	return entity, nil
}

type fakeConfigRepo struct {
	configs map[string]models.MappingConfig
}

func (f *fakeConfigRepo) Upsert(ctx context.Context, config models.MappingConfig) error {
	f.configs[config.CompanyID+":"+string(config.StatementType)] = config
	return nil
}

func (f *fakeConfigRepo) Get(ctx context.Context, tenantID, companyID string, statementType models.StatementType) (models.MappingConfig, error) {
	c, ok := f.configs[companyID+":"+string(statementType)]
	if !ok {
		return models.MappingConfig{}, httperror.NewHTTPError(http.StatusNotFound, "mapping config not found")
	}
	return c, nil
}

func (f *fakeConfigRepo) GetAllForStatementType(ctx context.Context, tenantID string, statementType models.StatementType) ([]models.MappingConfig, error) {
	return nil, nil
}

func (f *fakeConfigRepo) Delete(ctx context.Context, tenantID, companyID string, statementType models.StatementType) error {
	delete(f.configs, companyID+":"+string(statementType))
	return nil
}

type fakeStagedFileRepo struct {
	files map[string]*models.SourceDataset
}

func (f *fakeStagedFileRepo) Put(ctx context.Context, tenantID, companyID string, dataset *models.SourceDataset) error {
	f.files[companyID+":"+dataset.FileName] = dataset
	return nil
}

func (f *fakeStagedFileRepo) Get(ctx context.Context, tenantID, companyID, fileName string) (*models.SourceDataset, error) {
	d, ok := f.files[companyID+":"+fileName]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "staged file not found")
	}
	return d, nil
}

func (f *fakeStagedFileRepo) Delete(ctx context.Context, tenantID, companyID, fileName string) error {
	delete(f.files, companyID+":"+fileName)
	return nil
}

func (f *fakeStagedFileRepo) ListNames(ctx context.Context, tenantID, companyID string) ([]string, error) {
	return nil, nil
}

type fakePublisher struct {
	events []*kafka.MappingEventMessage
}

func (f *fakePublisher) Publish(ctx context.Context, msg *kafka.MappingEventMessage) error {
	f.events = append(f.events, msg)
	return nil
}

func strPtr(s string) *string { return &s }

func newTestHandler(t *testing.T) (*Handler, *sessionsvc.Manager, *fakePublisher) {
	t.Helper()
	logger := getTestLogger()

	templates := &fakeTemplateRepo{templates: map[string]models.Template{
		"ifrs-pl": {
			Code:          "ifrs-pl",
			TenantID:      "t1",
			Name:          "IFRS P&L",
			StatementType: models.StatementTypePL,
			IsActive:      true,
			LineItems: []models.LineItem{
				{Code: "revenue", DisplayName: "Revenue"},
				{Code: "cogs", DisplayName: "Cost of Goods Sold"},
			},
		},
	}}
	entities := &fakeEntityRepo{entities: []*models.Entity{
		{ID: "e1", Code: "GROUP", Name: "Group"},
		{ID: "e2", Code: "EU", Name: "Europe", ParentID: strPtr("e1")},
	}}

	sessions := sessionsvc.NewManager(templates, entities, logger)
	publisher := &fakePublisher{}
	service := mappingconfigsvc.NewService(
		&fakeConfigRepo{configs: map[string]models.MappingConfig{}},
		templates,
		&fakeStagedFileRepo{files: map[string]*models.SourceDataset{}},
		sessions,
		publisher,
		logger,
	)
	// long delay so the debounced save never fires mid-test
	saver := mappingconfigsvc.NewDebouncedSaver(service, time.Hour, logger)
	handler := NewHandler(sessions, suggestionpkg.NewImporter(logger), saver, service, logger)
	return handler, sessions, publisher
}

func TestHandle_AppliesValidRecords(t *testing.T) {
	handler, sessions, publisher := newTestHandler(t)
	ctx := context.Background()

	err := sessions.WithSession(ctx, "t1", "c1", models.StatementTypePL, func(sess *sessionpkg.Session) error {
		sess.SetDataset(&models.SourceDataset{
			FileName: "upload.csv",
			Headers:  []string{"Account", "2023", "2024"},
			Rows:     [][]string{{"Revenue", "100", "110"}, {"COGS", "40", "45"}},
		})
		return nil
	})
	require.NoError(t, err)

	msg := &kafka.ReceivedMessage{
		Suggestion: &kafka.SuggestionMessage{
			TenantID:      "t1",
			CompanyID:     "c1",
			StatementType: models.StatementTypePL,
			EntityPath:    []string{"GROUP", "EU"},
			Suggestion: models.Suggestion{
				RowSuggestions: []models.RowSuggestion{
					{RowIndex: 0, LineItemCode: "revenue"},
					{RowIndex: 5, LineItemCode: "revenue"}, // out of range
					{RowIndex: 1, LineItemCode: "ebitda"},  // not in template
				},
				ColumnSuggestions: []models.ColumnSuggestion{
					{ColumnName: "Account", Role: models.ColumnRoleLineItem},
				},
			},
		},
	}

	err = handler.Handle(ctx, msg)
	require.NoError(t, err)

	err = sessions.WithSession(ctx, "t1", "c1", models.StatementTypePL, func(sess *sessionpkg.Session) error {
		_, ok := sess.Store().Lookup(models.EntityPath{"GROUP", "EU"}, "revenue")
		assert.True(t, ok)
		assert.Equal(t, 1, sess.Store().Len())
		assert.Equal(t, "Account", sess.Assigner().Column(models.ColumnRoleLineItem))
		return nil
	})
	require.NoError(t, err)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, kafka.EventSuggestionApplied, publisher.events[0].Event)
	assert.Equal(t, models.StatementTypePL, publisher.events[0].StatementType)
	assert.Equal(t, 1, publisher.events[0].MappingCount)
	assert.Equal(t, 2, publisher.events[0].SkippedCount)
}

func TestHandle_UnknownCompanyStillCreatesSession(t *testing.T) {
	handler, sessions, _ := newTestHandler(t)
	ctx := context.Background()

	// No dataset staged for this company: every row suggestion is skipped,
	// but the message itself is accepted.
	msg := &kafka.ReceivedMessage{
		Suggestion: &kafka.SuggestionMessage{
			TenantID:      "t1",
			CompanyID:     "c2",
			StatementType: models.StatementTypePL,
			EntityPath:    []string{"GROUP"},
			Suggestion: models.Suggestion{
				RowSuggestions: []models.RowSuggestion{{RowIndex: 0, LineItemCode: "revenue"}},
			},
		},
	}

	err := handler.Handle(ctx, msg)
	require.NoError(t, err)

	err = sessions.WithSession(ctx, "t1", "c2", models.StatementTypePL, func(sess *sessionpkg.Session) error {
		assert.Equal(t, 0, sess.Store().Len())
		return nil
	})
	require.NoError(t, err)
}
