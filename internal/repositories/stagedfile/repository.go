package stagedfile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// StagedFileRepository stores parsed uploads in Redis while the user works
// on a mapping. Files are scratch state: they expire on a TTL and a restore
// must tolerate the referenced file being gone.
type StagedFileRepository interface {
	Put(ctx context.Context, tenantID, companyID string, dataset *models.SourceDataset) error
	Get(ctx context.Context, tenantID, companyID, fileName string) (*models.SourceDataset, error)
	Delete(ctx context.Context, tenantID, companyID, fileName string) error
	ListNames(ctx context.Context, tenantID, companyID string) ([]string, error)
}

type Repository struct {
	client *redis.Client
	ttl    time.Duration
	logger ectologger.Logger
}

// NewRepository creates a new staged file repository
func NewRepository(client *redis.Client, ttl time.Duration, logger ectologger.Logger) *Repository {
	return &Repository{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func fileKey(tenantID, companyID, fileName string) string {
	return fmt.Sprintf("fern:staged:%s:%s:%s", tenantID, companyID, fileName)
}

func namesKey(tenantID, companyID string) string {
	return fmt.Sprintf("fern:staged-names:%s:%s", tenantID, companyID)
}

func (r *Repository) Put(ctx context.Context, tenantID, companyID string, dataset *models.SourceDataset) error {
	ctx, span := tracing.StartSpan(ctx, "StagedFileRepository.Put")
	defer span.End()

	if dataset == nil || dataset.FileName == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "staged file requires a file name")
	}

	data, err := json.Marshal(dataset)
	if err != nil {
		return httperror.WrapError(http.StatusInternalServerError, err)
	}

	key := fileKey(tenantID, companyID, dataset.FileName)
	if err := r.client.Set(ctx, key, data, r.ttl); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":  tenantID,
			"company_id": companyID,
			"file_name":  dataset.FileName,
		}).Error("error storing staged file")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error storing staged file")
	}

	// Track the name set with the same TTL so it cannot outlive the files
	nk := namesKey(tenantID, companyID)
	if err := r.client.SAdd(ctx, nk, dataset.FileName); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "error tracking staged file name")
	}
	if err := r.client.Expire(ctx, nk, r.ttl); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "error setting staged file expiry")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":  tenantID,
		"company_id": companyID,
		"file_name":  dataset.FileName,
		"rows":       dataset.RowCount(),
	}).Info("staged source file")

	return nil
}

func (r *Repository) Get(ctx context.Context, tenantID, companyID, fileName string) (*models.SourceDataset, error) {
	ctx, span := tracing.StartSpan(ctx, "StagedFileRepository.Get")
	defer span.End()

	data, err := r.client.Get(ctx, fileKey(tenantID, companyID, fileName))
	if err != nil {
		if redis.IsNil(err) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "staged file not found")
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":  tenantID,
			"company_id": companyID,
			"file_name":  fileName,
		}).Error("error reading staged file")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "error reading staged file")
	}

	var dataset models.SourceDataset
	if err := json.Unmarshal([]byte(data), &dataset); err != nil {
		return nil, httperror.WrapError(http.StatusInternalServerError, err)
	}
	return &dataset, nil
}

func (r *Repository) Delete(ctx context.Context, tenantID, companyID, fileName string) error {
	ctx, span := tracing.StartSpan(ctx, "StagedFileRepository.Delete")
	defer span.End()

	if err := r.client.Del(ctx, fileKey(tenantID, companyID, fileName)); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "error deleting staged file")
	}
	if err := r.client.SRem(ctx, namesKey(tenantID, companyID), fileName); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "error untracking staged file name")
	}
	return nil
}

func (r *Repository) ListNames(ctx context.Context, tenantID, companyID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "StagedFileRepository.ListNames")
	defer span.End()

	names, err := r.client.SMembers(ctx, namesKey(tenantID, companyID))
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "error listing staged files")
	}
	return names, nil
}
