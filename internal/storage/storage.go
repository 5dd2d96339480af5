// Package storage uploads audio blobs to object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	storage_go "github.com/supabase-community/storage-go"
)

// Object locates an uploaded blob. Key is what Delete expects.
type Object struct {
	Key string
	URL string
}

type ObjectStore interface {
	Upload(ctx context.Context, data []byte, filename, contentType string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// SupabaseStore keeps objects in a public Supabase Storage bucket.
type SupabaseStore struct {
	client  *storage_go.Client
	baseURL string
	bucket  string
}

func NewSupabaseStore(baseURL, apiKey, bucket string) *SupabaseStore {
	baseURL = strings.TrimRight(baseURL, "/")
	return &SupabaseStore{
		client:  storage_go.NewClient(baseURL+"/storage/v1", apiKey, nil),
		baseURL: baseURL,
		bucket:  bucket,
	}
}

func (s *SupabaseStore) Upload(ctx context.Context, data []byte, filename, contentType string) (*Object, error) {
	key := ObjectKey(filename)
	upsert := false
	options := storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}

	if _, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(data), options); err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return &Object{
		Key: key,
		URL: fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, key),
	}, nil
}

func (s *SupabaseStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if _, err := s.client.RemoveFile(s.bucket, []string{key}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// ObjectKey builds a collision-free key that keeps a readable file name,
// e.g. "audio/chapter-one-3f2a9c1e.mp3".
func ObjectKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := slug.Make(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "track"
	}
	return fmt.Sprintf("audio/%s-%s%s", base, uuid.NewString()[:8], ext)
}

// IsAudioContentType reports whether an upload may be stored as audio.
func IsAudioContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return strings.HasPrefix(ct, "audio/") || ct == "application/octet-stream"
}

// Discard is an ObjectStore for deployments without object storage: uploads
// fail and deletes are no-ops.
type Discard struct{}

func (Discard) Upload(context.Context, []byte, string, string) (*Object, error) {
	return nil, fmt.Errorf("object storage is not configured")
}

func (Discard) Delete(context.Context, string) error { return nil }
