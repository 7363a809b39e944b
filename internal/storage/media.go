package storage

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	storage_go "github.com/supabase-community/storage-go"

	apperrors "curated/internal/errors"
	"curated/internal/models"
)

const maxUploadBytes = 50 << 20

type objectStore interface {
	UploadFile(bucketID, relativePath string, data io.Reader, opts ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
	GetPublicUrl(bucketID, filePath string, opts ...storage_go.UrlOptions) storage_go.SignedUrlResponse
}

// MediaStore загружает фото и видео впечатлений в Supabase Storage
type MediaStore struct {
	objects objectStore
	bucket  string
}

func NewMediaStore(supabaseURL, serviceKey, bucket string) *MediaStore {
	client := storage_go.NewClient(strings.TrimRight(supabaseURL, "/")+"/storage/v1", serviceKey, nil)
	return &MediaStore{objects: client, bucket: bucket}
}

// Upload stores the file under the creator's prefix and returns its public URL
func (s *MediaStore) Upload(creatorID, filename, contentType string, size int64, data io.Reader) (*models.MediaUploadResponse, error) {
	if !strings.HasPrefix(contentType, "image/") && !strings.HasPrefix(contentType, "video/") {
		return nil, apperrors.Validation("only image and video uploads are allowed")
	}
	if size > maxUploadBytes {
		return nil, apperrors.Validation("file is too large")
	}

	objectPath := path.Join(creatorID, uuid.New().String()+strings.ToLower(path.Ext(filename)))
	upsert := false
	if _, err := s.objects.UploadFile(s.bucket, objectPath, data, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}); err != nil {
		return nil, fmt.Errorf("failed to upload media: %w", err)
	}

	public := s.objects.GetPublicUrl(s.bucket, objectPath)
	return &models.MediaUploadResponse{URL: public.SignedURL, Path: objectPath}, nil
}

// MediaType maps a content type to the experience_media.type value
func MediaType(contentType string) string {
	if strings.HasPrefix(contentType, "video/") {
		return "video"
	}
	return "image"
}
