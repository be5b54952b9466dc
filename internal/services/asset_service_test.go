package services_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"asset-uploader/internal/models"
	"asset-uploader/internal/services"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecords struct {
	mu   sync.Mutex
	rows map[uuid.UUID]models.AssetStatus

	insertErr error
	getErr    error
	updateErr error
	deleteErr error

	// beforeUpdate runs ahead of the conditional update, outside the lock.
	beforeUpdate func(id uuid.UUID)
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{rows: make(map[uuid.UUID]models.AssetStatus)}
}

func (f *fakeRecords) InsertAsset(_ context.Context, id uuid.UUID, status models.AssetStatus) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id] = status
	return nil
}

func (f *fakeRecords) GetAssetStatus(_ context.Context, id uuid.UUID) (models.AssetStatus, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.rows[id]
	return status, ok, nil
}

func (f *fakeRecords) UpdateAssetStatus(_ context.Context, id uuid.UUID, from, to models.AssetStatus) (int64, error) {
	if f.beforeUpdate != nil {
		f.beforeUpdate(id)
	}
	if f.updateErr != nil {
		return 0, f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if status, ok := f.rows[id]; !ok || status != from {
		return 0, nil
	}
	f.rows[id] = to
	return 1, nil
}

func (f *fakeRecords) DeleteAsset(_ context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakeRecords) status(id uuid.UUID) models.AssetStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id]
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string]bool
	deleted []string

	existsErr  error
	deleteErr  error
	presignErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string]bool)}
}

func (f *fakeObjects) put(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = true
}

func (f *fakeObjects) Exists(_ context.Context, bucket, key string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key], nil
}

func (f *fakeObjects) Delete(_ context.Context, bucket, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjects) PresignURL(_ context.Context, bucket, key, method string, expiry time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return fmt.Sprintf("https://objects.test/%s/%s?method=%s&expires=%d", bucket, key, method, int(expiry.Seconds())), nil
}

func newService(t *testing.T) (*services.AssetService, *fakeRecords, *fakeObjects) {
	t.Helper()
	records := newFakeRecords()
	objects := newFakeObjects()
	return services.NewAssetService(records, objects, "assets", zerolog.Nop()), records, objects
}

func TestCreateAsset_ThenGetReturnsCreated(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	id, err := svc.CreateAsset(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, uuid.Version(4), id.Version())

	asset, err := svc.GetAsset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, asset.ID)
	assert.Equal(t, models.AssetStatusCreated, asset.Status)
}

func TestCreateAsset_GeneratesDistinctIDs(t *testing.T) {
	svc, _, _ := newService(t)

	first, err := svc.CreateAsset(context.Background())
	require.NoError(t, err)
	second, err := svc.CreateAsset(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCreateAsset_PropagatesStoreError(t *testing.T) {
	svc, records, _ := newService(t)
	records.insertErr = errors.New("connection refused")

	id, err := svc.CreateAsset(context.Background())
	require.Error(t, err)
	assert.Equal(t, uuid.Nil, id)
	assert.ErrorIs(t, err, records.insertErr)
}

func TestGetAsset_NotFound(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.GetAsset(context.Background(), uuid.New())
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestGetAsset_StoreErrorIsNotNotFound(t *testing.T) {
	svc, records, _ := newService(t)
	records.getErr = errors.New("timeout")

	_, err := svc.GetAsset(context.Background(), uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrNotFound)
	assert.ErrorIs(t, err, records.getErr)
}

func TestCompleteAsset_Succeeds(t *testing.T) {
	svc, records, objects := newService(t)
	ctx := context.Background()

	id, err := svc.CreateAsset(ctx)
	require.NoError(t, err)
	objects.put(id.String())

	asset, err := svc.GetAsset(ctx, id)
	require.NoError(t, err)
	require.NoError(t, svc.CompleteAsset(ctx, *asset))

	assert.Equal(t, models.AssetStatusUploaded, records.status(id))
}

func TestCompleteAsset_UploadNotVerified(t *testing.T) {
	for _, status := range []models.AssetStatus{models.AssetStatusCreated, models.AssetStatusUploaded} {
		t.Run(string(status), func(t *testing.T) {
			svc, records, _ := newService(t)
			id := uuid.New()
			records.rows[id] = status

			err := svc.CompleteAsset(context.Background(), models.Asset{ID: id, Status: status})
			assert.ErrorIs(t, err, services.ErrUploadNotVerified)
			assert.Contains(t, err.Error(), id.String())
			assert.Equal(t, status, records.status(id))
		})
	}
}

func TestCompleteAsset_AlreadyCompleted(t *testing.T) {
	svc, records, objects := newService(t)
	id := uuid.New()
	records.rows[id] = models.AssetStatusUploaded
	objects.put(id.String())

	err := svc.CompleteAsset(context.Background(), models.Asset{ID: id, Status: models.AssetStatusUploaded})
	assert.ErrorIs(t, err, services.ErrAlreadyCompleted)
}

func TestCompleteAsset_RowVanishedBeforeUpdate(t *testing.T) {
	svc, records, objects := newService(t)
	id := uuid.New()
	records.rows[id] = models.AssetStatusCreated
	objects.put(id.String())
	records.beforeUpdate = func(id uuid.UUID) {
		records.mu.Lock()
		delete(records.rows, id)
		records.mu.Unlock()
	}

	err := svc.CompleteAsset(context.Background(), models.Asset{ID: id, Status: models.AssetStatusCreated})
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestCompleteAsset_StaleCallerLosesRace(t *testing.T) {
	svc, records, objects := newService(t)
	id := uuid.New()
	records.rows[id] = models.AssetStatusUploaded
	objects.put(id.String())

	// The caller read the asset before another completion landed.
	err := svc.CompleteAsset(context.Background(), models.Asset{ID: id, Status: models.AssetStatusCreated})
	assert.ErrorIs(t, err, services.ErrAlreadyCompleted)
}

func TestCompleteAsset_ConcurrentCompletionsSucceedOnce(t *testing.T) {
	svc, records, objects := newService(t)
	id := uuid.New()
	records.rows[id] = models.AssetStatusCreated
	objects.put(id.String())

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.CompleteAsset(context.Background(), models.Asset{ID: id, Status: models.AssetStatusCreated})
		}()
	}
	wg.Wait()
	close(errs)

	successes := 0
	for err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, services.ErrAlreadyCompleted)
	}
	assert.Equal(t, 1, successes)
}

func TestCompleteAsset_ObjectStoreErrorPropagates(t *testing.T) {
	svc, records, objects := newService(t)
	id := uuid.New()
	records.rows[id] = models.AssetStatusCreated
	objects.existsErr = errors.New("s3 unavailable")

	err := svc.CompleteAsset(context.Background(), models.Asset{ID: id, Status: models.AssetStatusCreated})
	require.Error(t, err)
	assert.ErrorIs(t, err, objects.existsErr)
	assert.NotErrorIs(t, err, services.ErrUploadNotVerified)
	assert.Equal(t, models.AssetStatusCreated, records.status(id))
}

func TestCompleteAsset_UpdateErrorPropagates(t *testing.T) {
	svc, records, objects := newService(t)
	id := uuid.New()
	records.rows[id] = models.AssetStatusCreated
	objects.put(id.String())
	records.updateErr = errors.New("deadlock detected")

	err := svc.CompleteAsset(context.Background(), models.Asset{ID: id, Status: models.AssetStatusCreated})
	assert.ErrorIs(t, err, records.updateErr)
}

func TestDeleteAsset_RemovesBothStores(t *testing.T) {
	svc, _, objects := newService(t)
	ctx := context.Background()

	id, err := svc.CreateAsset(ctx)
	require.NoError(t, err)
	objects.put(id.String())

	svc.DeleteAsset(ctx, id)

	_, err = svc.GetAsset(ctx, id)
	assert.ErrorIs(t, err, services.ErrNotFound)
	exists, err := objects.Exists(ctx, "assets", id.String())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteAsset_UnknownIDIsSilent(t *testing.T) {
	svc, _, objects := newService(t)
	id := uuid.New()

	assert.NotPanics(t, func() { svc.DeleteAsset(context.Background(), id) })
	assert.Equal(t, []string{id.String()}, objects.deleted)

	_, err := svc.GetAsset(context.Background(), id)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestDeleteAsset_ObjectStoreFailureStillDeletesRecord(t *testing.T) {
	svc, records, objects := newService(t)
	id := uuid.New()
	records.rows[id] = models.AssetStatusUploaded
	objects.deleteErr = errors.New("access denied")

	svc.DeleteAsset(context.Background(), id)

	_, err := svc.GetAsset(context.Background(), id)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestPresignedURLs_ReflectExpiryWithoutRecord(t *testing.T) {
	svc, _, _ := newService(t)
	id := uuid.New()

	upload, err := svc.GetUploadURL(context.Background(), id, 900*time.Second)
	require.NoError(t, err)
	assert.Contains(t, upload, "method="+http.MethodPut)
	assert.Contains(t, upload, "expires=900")
	assert.Contains(t, upload, "/assets/"+id.String())

	download, err := svc.GetDownloadURL(context.Background(), id, 5*time.Second)
	require.NoError(t, err)
	assert.Contains(t, download, "method="+http.MethodGet)
	assert.Contains(t, download, "expires=5")
}

func TestPresignedURLs_RejectNonPositiveExpiry(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.GetDownloadURL(context.Background(), uuid.New(), 0)
	assert.ErrorIs(t, err, services.ErrInvalidRequest)
}

func TestPresignedURLs_PropagateStoreError(t *testing.T) {
	svc, _, objects := newService(t)
	objects.presignErr = errors.New("no credentials")

	_, err := svc.GetUploadURL(context.Background(), uuid.New(), time.Minute)
	assert.ErrorIs(t, err, objects.presignErr)
}
