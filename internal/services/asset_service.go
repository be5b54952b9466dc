package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"asset-uploader/internal/metrics"
	"asset-uploader/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RecordStore persists asset identity and status. It is the source of truth
// for whether an asset exists and which state it is in.
type RecordStore interface {
	InsertAsset(ctx context.Context, id uuid.UUID, status models.AssetStatus) error
	// GetAssetStatus reports found=false with a nil error when no row exists.
	GetAssetStatus(ctx context.Context, id uuid.UUID) (status models.AssetStatus, found bool, err error)
	// UpdateAssetStatus moves the row from one status to another and returns
	// the number of rows affected.
	UpdateAssetStatus(ctx context.Context, id uuid.UUID, from, to models.AssetStatus) (int64, error)
	DeleteAsset(ctx context.Context, id uuid.UUID) error
}

// ObjectStore holds the asset bytes, addressed by bucket and key.
type ObjectStore interface {
	Exists(ctx context.Context, bucket, key string) (bool, error)
	// Delete must not fail when the key is absent.
	Delete(ctx context.Context, bucket, key string) error
	// PresignURL returns a URL granting method (GET or PUT) on the key until expiry elapses.
	PresignURL(ctx context.Context, bucket, key, method string, expiry time.Duration) (string, error)
}

// AssetService enforces the asset lifecycle: an asset becomes uploaded only
// when its bytes are present in the object store, and only once.
type AssetService struct {
	records RecordStore
	objects ObjectStore
	bucket  string
	log     zerolog.Logger
}

func NewAssetService(records RecordStore, objects ObjectStore, bucket string, log zerolog.Logger) *AssetService {
	return &AssetService{
		records: records,
		objects: objects,
		bucket:  bucket,
		log:     log.With().Str("component", "asset-service").Logger(),
	}
}

func (s *AssetService) GetAsset(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	status, found, err := s.records.GetAssetStatus(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get asset %s: %w", id, err)
	}
	if !found {
		return nil, fmt.Errorf("asset %s %w", id, ErrNotFound)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("asset %s has unknown status %q", id, status)
	}

	return &models.Asset{ID: id, Status: status}, nil
}

func (s *AssetService) CreateAsset(ctx context.Context) (uuid.UUID, error) {
	// Random ids keep clients from guessing neighbouring assets.
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to generate asset id: %w", err)
	}

	if err := s.records.InsertAsset(ctx, id, models.AssetStatusCreated); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create asset: %w", err)
	}

	metrics.RecordTransition(string(models.AssetStatusCreated))
	s.log.Debug().Str("asset_id", id.String()).Msg("asset created")
	return id, nil
}

// CompleteAsset marks an asset previously read with GetAsset as uploaded.
// The object store is checked first, so completion is refused whenever the
// bytes are missing, whatever the record says.
func (s *AssetService) CompleteAsset(ctx context.Context, asset models.Asset) error {
	exists, err := s.objects.Exists(ctx, s.bucket, asset.Key())
	if err != nil {
		return fmt.Errorf("failed to verify upload of asset %s: %w", asset.ID, err)
	}
	if !exists {
		return fmt.Errorf("asset %s %w", asset.ID, ErrUploadNotVerified)
	}

	if asset.Status == models.AssetStatusUploaded {
		return fmt.Errorf("asset %s %w", asset.ID, ErrAlreadyCompleted)
	}

	rows, err := s.records.UpdateAssetStatus(ctx, asset.ID, models.AssetStatusCreated, models.AssetStatusUploaded)
	if err != nil {
		return fmt.Errorf("failed to complete asset %s: %w", asset.ID, err)
	}
	if rows == 0 {
		// Either the row was deleted or a concurrent completion got there first.
		_, found, err := s.records.GetAssetStatus(ctx, asset.ID)
		if err != nil {
			return fmt.Errorf("failed to get asset %s: %w", asset.ID, err)
		}
		if !found {
			return fmt.Errorf("asset %s %w", asset.ID, ErrNotFound)
		}
		return fmt.Errorf("asset %s %w", asset.ID, ErrAlreadyCompleted)
	}

	metrics.RecordTransition(string(models.AssetStatusUploaded))
	s.log.Debug().Str("asset_id", asset.ID.String()).Msg("asset upload completed")
	return nil
}

// DeleteAsset removes the object and then the record. It never fails: absence
// in either store is expected, and store errors are logged and skipped.
func (s *AssetService) DeleteAsset(ctx context.Context, id uuid.UUID) {
	key := id.String()

	if err := s.objects.Delete(ctx, s.bucket, key); err != nil {
		s.log.Warn().Err(err).
			Str("asset_id", key).
			Str("operation", "delete_object").
			Msg("failed to delete asset object")
	}

	if err := s.records.DeleteAsset(ctx, id); err != nil {
		s.log.Warn().Err(err).
			Str("asset_id", key).
			Str("operation", "delete_record").
			Msg("failed to delete asset record")
	}

	metrics.RecordTransition("deleted")
	s.log.Debug().Str("asset_id", key).Msg("asset deleted")
}

// GetUploadURL returns a signed PUT URL for the asset key. No record is consulted.
func (s *AssetService) GetUploadURL(ctx context.Context, id uuid.UUID, expiry time.Duration) (string, error) {
	return s.presign(ctx, id, http.MethodPut, expiry)
}

// GetDownloadURL returns a signed GET URL for the asset key. Callers check
// that the asset is uploaded before handing the URL out.
func (s *AssetService) GetDownloadURL(ctx context.Context, id uuid.UUID, expiry time.Duration) (string, error) {
	return s.presign(ctx, id, http.MethodGet, expiry)
}

func (s *AssetService) presign(ctx context.Context, id uuid.UUID, method string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		return "", fmt.Errorf("expiry must be positive: %w", ErrInvalidRequest)
	}

	url, err := s.objects.PresignURL(ctx, s.bucket, id.String(), method, expiry)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s url for asset %s: %w", method, id, err)
	}
	return url, nil
}
