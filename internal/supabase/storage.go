package supabase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	storage "github.com/supabase-community/storage-go"

	"asset-uploader/internal/metrics"
)

const backendSupabase = "supabase"

// probeExpiry is the lifetime of the throwaway signed URL used to probe existence.
const probeExpiry = 60

// StorageClient serves asset objects from Supabase Storage. The storage API
// takes no context, so ctx is only honoured before a request is sent.
type StorageClient struct {
	client     *storage.Client
	storageURL string
	log        zerolog.Logger
}

func NewStorageClient(c *Client, log zerolog.Logger) *StorageClient {
	return &StorageClient{
		client:     c.Supabase.Storage,
		storageURL: c.storageURL,
		log:        log.With().Str("component", "supabase-storage").Logger(),
	}
}

// Exists asks the storage API to sign a download URL; signing fails with
// "Object not found" when the key is absent.
func (s *StorageClient) Exists(ctx context.Context, bucket, key string) (exists bool, err error) {
	defer observe("exists", time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err = s.client.CreateSignedUrl(bucket, key, probeExpiry)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object: %w", err)
	}
	return true, nil
}

func (s *StorageClient) Delete(ctx context.Context, bucket, key string) (err error) {
	defer observe("delete", time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err = s.client.RemoveFile(bucket, []string{key}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// PresignURL signs GET URLs for the requested expiry. Signed upload URLs have
// a lifetime fixed by the storage server (two hours), so expiry is ignored for PUT.
func (s *StorageClient) PresignURL(ctx context.Context, bucket, key, method string, expiry time.Duration) (url string, err error) {
	defer observe("presign_"+method, time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch method {
	case http.MethodGet:
		resp, err := s.client.CreateSignedUrl(bucket, key, expirySeconds(expiry))
		if err != nil {
			return "", fmt.Errorf("failed to create signed url: %w", err)
		}
		return resp.SignedURL, nil
	case http.MethodPut:
		resp, err := s.client.CreateSignedUploadUrl(bucket, key)
		if err != nil {
			return "", fmt.Errorf("failed to create signed upload url: %w", err)
		}
		s.log.Debug().
			Str("key", key).
			Dur("requested_expiry", expiry).
			Msg("signed upload url uses server default lifetime")
		return s.storageURL + resp.Url, nil
	default:
		return "", fmt.Errorf("unsupported presign method %q", method)
	}
}

func (s *StorageClient) Health(ctx context.Context, bucket string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.client.GetBucket(bucket)
	return err
}

// expirySeconds rounds up so sub-second expiries still produce a usable URL.
func expirySeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

func isNotFound(err error) bool {
	var storageErr *storage.StorageError
	if !errors.As(err, &storageErr) {
		return false
	}
	return storageErr.Status == http.StatusNotFound ||
		strings.Contains(strings.ToLower(storageErr.Message), "not found")
}

func observe(operation string, start time.Time, err *error) {
	metrics.RecordObjectStoreOperation(backendSupabase, operation, *err, time.Since(start).Seconds())
}
