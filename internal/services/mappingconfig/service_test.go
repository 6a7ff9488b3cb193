package mappingconfig

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

	sessionsvc "github.com/Ramsey-B/fern/internal/services/session"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	sessionpkg "github.com/Ramsey-B/fern/pkg/session"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

type fakeConfigRepo struct {
	configs map[string]models.MappingConfig
	failing bool
}

func newFakeConfigRepo() *fakeConfigRepo {
	return &fakeConfigRepo{configs: make(map[string]models.MappingConfig)}
}

func configKey(tenantID, companyID string, statementType models.StatementType) string {
	return tenantID + ":" + companyID + ":" + string(statementType)
}

func (f *fakeConfigRepo) Upsert(_ context.Context, config models.MappingConfig) error {
	if f.failing {
		return httperror.NewHTTPError(http.StatusInternalServerError, "boom")
	}
	f.configs[configKey(config.TenantID, config.CompanyID, config.StatementType)] = config
	return nil
}

func (f *fakeConfigRepo) Get(_ context.Context, tenantID, companyID string, statementType models.StatementType) (models.MappingConfig, error) {
	config, ok := f.configs[configKey(tenantID, companyID, statementType)]
	if !ok {
		return models.MappingConfig{}, httperror.NewHTTPError(http.StatusNotFound, "mapping config not found")
	}
	return config, nil
}

func (f *fakeConfigRepo) GetAllForStatementType(_ context.Context, tenantID string, statementType models.StatementType) ([]models.MappingConfig, error) {
	var out []models.MappingConfig
	for _, c := range f.configs {
		if c.TenantID == tenantID && c.StatementType == statementType {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeConfigRepo) Delete(_ context.Context, tenantID, companyID string, statementType models.StatementType) error {
	delete(f.configs, configKey(tenantID, companyID, statementType))
	return nil
}

type fakeTemplateRepo struct {
	templates map[string]models.Template
}

func newFakeTemplateRepo(templates ...models.Template) *fakeTemplateRepo {
	f := &fakeTemplateRepo{templates: make(map[string]models.Template)}
	for _, t := range templates {
		f.templates[t.Code] = t
	}
	return f
}

func (f *fakeTemplateRepo) Upsert(_ context.Context, template models.Template) error {
	f.templates[template.Code] = template
	return nil
}

func (f *fakeTemplateRepo) GetByCode(_ context.Context, _, code string) (models.Template, error) {
	t, ok := f.templates[code]
	if !ok {
		return models.Template{}, httperror.NewHTTPError(http.StatusNotFound, "template not found")
	}
	return t, nil
}

func (f *fakeTemplateRepo) GetActiveForStatementType(_ context.Context, _ string, statementType models.StatementType) (models.Template, error) {
	for _, t := range f.templates {
		if t.StatementType == statementType && t.IsActive {
			return t, nil
		}
	}
	return models.Template{}, httperror.NewHTTPError(http.StatusNotFound, "no active template for statement type")
}

func (f *fakeTemplateRepo) List(_ context.Context, _ string) ([]models.Template, error) {
	var out []models.Template
	for _, t := range f.templates {
		out = append(out, t)
	}
	return out, nil
}

type fakeEntityRepo struct {
	entities []*models.Entity
}

func (f *fakeEntityRepo) GetForCompany(_ context.Context, _, _ string) ([]*models.Entity, error) {
	return f.entities, nil
}

func (f *fakeEntityRepo) Create(_ context.Context, _, _ string, e *models.Entity) (*models.Entity, error) {
	f.entities = append(f.entities, e)
	return e, nil
}

type fakeStagedFileRepo struct {
	files map[string]*models.SourceDataset
	onGet func()
}

func newFakeStagedFileRepo() *fakeStagedFileRepo {
	return &fakeStagedFileRepo{files: make(map[string]*models.SourceDataset)}
}

func (f *fakeStagedFileRepo) Put(_ context.Context, _, _ string, dataset *models.SourceDataset) error {
	f.files[dataset.FileName] = dataset
	return nil
}

func (f *fakeStagedFileRepo) Get(_ context.Context, _, _, fileName string) (*models.SourceDataset, error) {
	if f.onGet != nil {
		f.onGet()
	}
	dataset, ok := f.files[fileName]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "staged file not found")
	}
	return dataset, nil
}

func (f *fakeStagedFileRepo) Delete(_ context.Context, _, _, fileName string) error {
	delete(f.files, fileName)
	return nil
}

func (f *fakeStagedFileRepo) ListNames(_ context.Context, _, _ string) ([]string, error) {
	names := make([]string, 0, len(f.files))
	for name := range f.files {
		names = append(names, name)
	}
	return names, nil
}

type fakePublisher struct {
	events []*kafka.MappingEventMessage
}

func (f *fakePublisher) Publish(_ context.Context, msg *kafka.MappingEventMessage) error {
	f.events = append(f.events, msg)
	return nil
}

func strPtr(s string) *string { return &s }

func testFixtures() (*fakeConfigRepo, *fakeTemplateRepo, *fakeEntityRepo, *fakeStagedFileRepo, *fakePublisher, *sessionsvc.Manager) {
	configs := newFakeConfigRepo()
	templates := newFakeTemplateRepo(models.Template{
		Code:          "ifrs-pl",
		StatementType: models.StatementTypePL,
		IsActive:      true,
		LineItems: []models.LineItem{
			{Code: "revenue", DisplayName: "Revenue"},
			{Code: "cogs", DisplayName: "Cost of Goods Sold"},
		},
	})
	entities := &fakeEntityRepo{entities: []*models.Entity{
		{ID: "1", Code: "GROUP"},
		{ID: "2", Code: "EU", ParentID: strPtr("1")},
	}}
	staged := newFakeStagedFileRepo()
	publisher := &fakePublisher{}
	manager := sessionsvc.NewManager(templates, entities, getTestLogger())
	return configs, templates, entities, staged, publisher, manager
}

func TestSaveAndRestore(t *testing.T) {
	configs, templates, _, staged, publisher, manager := testFixtures()
	svc := NewService(configs, templates, staged, manager, publisher, getTestLogger())
	ctx := context.Background()

	dataset := &models.SourceDataset{
		FileName: "upload.csv",
		Headers:  []string{"Account", "2024"},
		Rows:     [][]string{{"Revenue", "100"}, {"COGS", "40"}},
	}
	require.NoError(t, staged.Put(ctx, "tenant-1", "company-1", dataset))

	err := manager.WithSession(ctx, "tenant-1", "company-1", models.StatementTypePL, func(sess *sessionpkg.Session) error {
		sess.SetDataset(dataset)
		_, err := sess.AssignRow(models.EntityPath{"GROUP", "EU"}, "revenue", 0)
		require.NoError(t, err)
		return svc.Save(ctx, sess)
	})
	require.NoError(t, err)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, kafka.EventMappingSaved, publisher.events[0].Event)
	assert.Equal(t, 1, publisher.events[0].MappingCount)

	// drop the live session and restore from the persisted config
	manager.Evict("tenant-1", "company-1")

	results, err := svc.RestoreCompany(ctx, "tenant-1", "company-1")
	require.NoError(t, err)
	require.Len(t, results, len(models.AllStatementTypes))

	assert.Equal(t, models.StatementTypePL, results[0].StatementType)
	assert.Equal(t, "restored", results[0].Status)
	assert.Equal(t, 1, results[0].MappingCount)
	assert.False(t, results[0].FileMissing)

	// the other statement types were never configured but restore anyway
	for _, r := range results[1:] {
		assert.Equal(t, "no_config", r.Status)
	}
}

func TestRestore_MissingStagedFile(t *testing.T) {
	configs, templates, _, staged, publisher, manager := testFixtures()
	svc := NewService(configs, templates, staged, manager, publisher, getTestLogger())
	ctx := context.Background()

	configs.configs[configKey("tenant-1", "company-1", models.StatementTypePL)] = models.MappingConfig{
		TenantID:       "tenant-1",
		CompanyID:      "company-1",
		StatementType:  models.StatementTypePL,
		TemplateCode:   "ifrs-pl",
		SourceFileName: "expired.csv",
		Mappings: []models.HierarchicalMapping{
			{EntityPath: models.EntityPath{"GROUP"}, LineItemCode: "revenue", SourceRowIndex: 0},
		},
	}

	results, err := svc.RestoreCompany(ctx, "tenant-1", "company-1")

	require.NoError(t, err)
	assert.Equal(t, "restored", results[0].Status)
	assert.True(t, results[0].FileMissing)
	assert.Equal(t, 1, results[0].MappingCount)
}

func TestRestore_RetiredTemplate(t *testing.T) {
	configs, templates, _, staged, publisher, manager := testFixtures()
	svc := NewService(configs, templates, staged, manager, publisher, getTestLogger())
	ctx := context.Background()

	configs.configs[configKey("tenant-1", "company-1", models.StatementTypePL)] = models.MappingConfig{
		TenantID:      "tenant-1",
		CompanyID:     "company-1",
		StatementType: models.StatementTypePL,
		TemplateCode:  "retired-template",
	}

	results, err := svc.RestoreCompany(ctx, "tenant-1", "company-1")

	require.NoError(t, err)
	assert.Equal(t, "no_template", results[0].Status)
	assert.Equal(t, 0, results[0].MappingCount)
}

func TestDebouncedSaver_CoalescesRequests(t *testing.T) {
	configs, templates, _, staged, publisher, manager := testFixtures()
	svc := NewService(configs, templates, staged, manager, publisher, getTestLogger())
	saver := NewDebouncedSaver(svc, 30*time.Millisecond, getTestLogger())
	ctx := context.Background()

	dataset := &models.SourceDataset{
		FileName: "upload.csv",
		Headers:  []string{"Account", "2024"},
		Rows:     [][]string{{"Revenue", "100"}},
	}

	err := manager.WithSession(ctx, "tenant-1", "company-1", models.StatementTypePL, func(sess *sessionpkg.Session) error {
		sess.SetDataset(dataset)
		_, err := sess.AssignRow(models.EntityPath{"GROUP"}, "revenue", 0)
		require.NoError(t, err)
		saver.Request(sess)
		saver.Request(sess)
		saver.Request(sess)
		return nil
	})
	require.NoError(t, err)

	saver.Close()

	assert.Len(t, publisher.events, 1, "three requests in one window coalesce to one save")
	_, ok := configs.configs[configKey("tenant-1", "company-1", models.StatementTypePL)]
	assert.True(t, ok)
}

func TestDebouncedSaver_SnapshotsAtFlushTime(t *testing.T) {
	configs, templates, _, staged, publisher, manager := testFixtures()
	svc := NewService(configs, templates, staged, manager, publisher, getTestLogger())
	saver := NewDebouncedSaver(svc, time.Hour, getTestLogger())
	ctx := context.Background()

	dataset := &models.SourceDataset{
		FileName: "upload.csv",
		Headers:  []string{"Account", "2024"},
		Rows:     [][]string{{"Revenue", "100"}, {"COGS", "40"}},
	}

	err := manager.WithSession(ctx, "tenant-1", "company-1", models.StatementTypePL, func(sess *sessionpkg.Session) error {
		sess.SetDataset(dataset)
		_, err := sess.AssignRow(models.EntityPath{"GROUP"}, "revenue", 0)
		require.NoError(t, err)
		saver.Request(sess)
		// edits after the request don't bump the generation; the flush
		// re-enters the session and snapshots whatever is current
		_, err = sess.AssignRow(models.EntityPath{"GROUP"}, "cogs", 1)
		require.NoError(t, err)
		return nil
	})
	require.NoError(t, err)

	saver.Close()

	saved, ok := configs.configs[configKey("tenant-1", "company-1", models.StatementTypePL)]
	require.True(t, ok)
	assert.Len(t, saved.Mappings, 2)
}

func TestDebouncedSaver_DiscardsStaleGeneration(t *testing.T) {
	configs, templates, _, staged, publisher, manager := testFixtures()
	svc := NewService(configs, templates, staged, manager, publisher, getTestLogger())
	saver := NewDebouncedSaver(svc, time.Hour, getTestLogger())
	ctx := context.Background()

	dataset := &models.SourceDataset{
		FileName: "upload.csv",
		Headers:  []string{"Account"},
		Rows:     [][]string{{"Revenue"}},
	}

	err := manager.WithSession(ctx, "tenant-1", "company-1", models.StatementTypePL, func(sess *sessionpkg.Session) error {
		sess.SetDataset(dataset)
		saver.Request(sess)
		// the file switch bumps the generation; the queued save is stale
		sess.SetDataset(&models.SourceDataset{FileName: "other.csv"})
		return nil
	})
	require.NoError(t, err)

	saver.Close()

	assert.Empty(t, publisher.events)
	assert.Empty(t, configs.configs)
}

func TestRestore_DiscardedWhenSurfaceChangesMidFlight(t *testing.T) {
	configs, templates, _, staged, publisher, manager := testFixtures()
	svc := NewService(configs, templates, staged, manager, publisher, getTestLogger())
	ctx := context.Background()

	configs.configs[configKey("tenant-1", "company-1", models.StatementTypePL)] = models.MappingConfig{
		TenantID:       "tenant-1",
		CompanyID:      "company-1",
		StatementType:  models.StatementTypePL,
		TemplateCode:   "ifrs-pl",
		SourceFileName: "upload.csv",
		Mappings: []models.HierarchicalMapping{
			{EntityPath: models.EntityPath{"GROUP"}, LineItemCode: "revenue", SourceRowIndex: 0},
		},
	}
	staged.files["upload.csv"] = &models.SourceDataset{
		FileName: "upload.csv",
		Headers:  []string{"Account"},
		Rows:     [][]string{{"Revenue"}},
	}

	// A file selection lands while the restore is fetching the staged file;
	// the restore must not overwrite the newer surface.
	staged.onGet = func() {
		err := manager.WithSession(ctx, "tenant-1", "company-1", models.StatementTypePL, func(sess *sessionpkg.Session) error {
			sess.SetDataset(&models.SourceDataset{FileName: "newer.csv"})
			return nil
		})
		require.NoError(t, err)
	}

	results, err := svc.RestoreCompany(ctx, "tenant-1", "company-1")

	require.NoError(t, err)
	assert.Equal(t, "stale", results[0].Status)
	assert.Equal(t, 0, results[0].MappingCount)

	err = manager.WithSession(ctx, "tenant-1", "company-1", models.StatementTypePL, func(sess *sessionpkg.Session) error {
		assert.Equal(t, 0, sess.Store().Len())
		assert.Equal(t, "newer.csv", sess.Dataset().FileName)
		return nil
	})
	require.NoError(t, err)
}
