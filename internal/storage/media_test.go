package storage

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	storage_go "github.com/supabase-community/storage-go"

	apperrors "curated/internal/errors"
)

type fakeObjects struct {
	bucket string
	path   string
	opts   storage_go.FileOptions
	body   string
}

func (f *fakeObjects) UploadFile(bucketID, relativePath string, data io.Reader, opts ...storage_go.FileOptions) (storage_go.FileUploadResponse, error) {
	f.bucket = bucketID
	f.path = relativePath
	if len(opts) > 0 {
		f.opts = opts[0]
	}
	b, _ := io.ReadAll(data)
	f.body = string(b)
	return storage_go.FileUploadResponse{}, nil
}

func (f *fakeObjects) GetPublicUrl(bucketID, filePath string, opts ...storage_go.UrlOptions) storage_go.SignedUrlResponse {
	return storage_go.SignedUrlResponse{SignedURL: "https://cdn.test/" + bucketID + "/" + filePath}
}

func TestUploadStoresUnderCreatorPrefix(t *testing.T) {
	fake := &fakeObjects{}
	s := &MediaStore{objects: fake, bucket: "experience-media"}

	res, err := s.Upload("creator-1", "Sunset.JPG", "image/jpeg", 3, strings.NewReader("img"))
	require.NoError(t, err)

	assert.Equal(t, "experience-media", fake.bucket)
	assert.True(t, strings.HasPrefix(fake.path, "creator-1/"))
	assert.True(t, strings.HasSuffix(fake.path, ".jpg"))
	assert.Equal(t, "image/jpeg", *fake.opts.ContentType)
	assert.Equal(t, "img", fake.body)
	assert.Equal(t, "https://cdn.test/experience-media/"+fake.path, res.URL)
}

func TestUploadRejectsOtherContentTypes(t *testing.T) {
	s := &MediaStore{objects: &fakeObjects{}, bucket: "b"}
	_, err := s.Upload("c", "doc.pdf", "application/pdf", 10, strings.NewReader("x"))
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = s.Upload("c", "big.mp4", "video/mp4", maxUploadBytes+1, strings.NewReader("x"))
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestMediaType(t *testing.T) {
	assert.Equal(t, "video", MediaType("video/mp4"))
	assert.Equal(t, "image", MediaType("image/png"))
}
