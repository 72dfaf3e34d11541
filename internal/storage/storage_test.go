package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shop-api/internal/config"
)

func pngUpload(name string, body []byte) Upload {
	return Upload{FieldName: "image", Filename: name, MimeType: "image/png", Size: int64(len(body)), Data: bytes.NewReader(body)}
}

func newLocal(t *testing.T) *LocalBackend {
	t.Helper()
	lb, err := NewLocalBackend(t.TempDir(), "http://localhost:5000/")
	require.NoError(t, err)
	lb.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return lb
}

func TestLocalPutAndDelete(t *testing.T) {
	lb := newLocal(t)
	ref, err := lb.Put(context.Background(), pngUpload("photo.png", []byte("png-bytes")))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/uploads/image-1700000000123.png", ref.URL)
	assert.Empty(t, ref.PublicID)
	got, err := os.ReadFile(ref.Handle)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(got))

	require.NoError(t, lb.Delete(context.Background(), ref))
	_, err = os.Stat(ref.Handle)
	assert.True(t, os.IsNotExist(err))

	// second delete of a missing file is fine
	assert.NoError(t, lb.Delete(context.Background(), ref))
}

func TestLocalExtensionFallsBackToMimeType(t *testing.T) {
	lb := newLocal(t)
	up := pngUpload("noext", []byte("x"))
	up.MimeType = "image/jpeg"
	ref, err := lb.Put(context.Background(), up)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref.URL, ".jpg"), ref.URL)
}

func TestLocalDeleteRefusesOutsideDir(t *testing.T) {
	lb := newLocal(t)
	outside := filepath.Join(t.TempDir(), "keep.png")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	err := lb.Delete(context.Background(), ImageRef{Handle: outside})
	assert.Error(t, err)
	_, statErr := os.Stat(outside)
	assert.NoError(t, statErr)
}

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
	putErr  error
	delErr  error
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.StringValue(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	if f.delErr != nil {
		return nil, f.delErr
	}
	delete(f.objects, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestCloudPutAndDelete(t *testing.T) {
	api := &fakeS3{objects: map[string][]byte{}}
	cb := NewCloudBackend(api, "shop", "/products/", "https://cdn.example.com/")

	ref, err := cb.Put(context.Background(), pngUpload("Red Shoe.PNG", []byte("data")))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref.PublicID, "products/red-shoe-"), ref.PublicID)
	assert.True(t, strings.HasSuffix(ref.PublicID, ".png"), ref.PublicID)
	assert.Equal(t, ref.PublicID, ref.Handle)
	assert.Equal(t, "https://cdn.example.com/"+ref.PublicID, ref.URL)
	assert.Equal(t, []byte("data"), api.objects[ref.PublicID])

	require.NoError(t, cb.Delete(context.Background(), ref))
	assert.Empty(t, api.objects)
}

func TestCloudDeleteMissingKeyIsNotAnError(t *testing.T) {
	api := &fakeS3{objects: map[string][]byte{}, delErr: awserr.New(s3.ErrCodeNoSuchKey, "gone", nil)}
	cb := NewCloudBackend(api, "shop", "products", "https://cdn.example.com")
	assert.NoError(t, cb.Delete(context.Background(), ImageRef{Handle: "products/x.png"}))
}

func TestPublicBaseURL(t *testing.T) {
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com",
		publicBaseURL(config.CloudConfig{Bucket: "b", Region: "eu-west-1"}))
	assert.Equal(t, "http://minio:9000/b",
		publicBaseURL(config.CloudConfig{Bucket: "b", Endpoint: "http://minio:9000/"}))
	assert.Equal(t, "https://cdn",
		publicBaseURL(config.CloudConfig{Bucket: "b", PublicURL: "https://cdn"}))
}

func TestNewBackendLocal(t *testing.T) {
	b, err := NewBackend(config.StorageConfig{Backend: config.StorageLocal, UploadDir: t.TempDir(), PublicBaseURL: "http://h"})
	require.NoError(t, err)
	assert.Equal(t, "local", b.Name())

	_, err = NewBackend(config.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)
}

func TestPipelineValidate(t *testing.T) {
	p := NewPipeline(newLocal(t), 10, nil)

	assert.NoError(t, p.Validate(pngUpload("a.png", []byte("0123456789"))))

	up := pngUpload("a.png", []byte("01234567890"))
	assert.ErrorIs(t, p.Validate(up), ErrTooLarge)

	up = pngUpload("a.gif", []byte("x"))
	up.MimeType = "image/gif"
	assert.ErrorIs(t, p.Validate(up), ErrUnsupportedType)

	up = pngUpload("a.jpg", []byte("x"))
	up.MimeType = "IMAGE/JPEG; charset=binary"
	assert.NoError(t, p.Validate(up))
}

func TestPipelineRejectsBeforeStoring(t *testing.T) {
	lb := newLocal(t)
	p := NewPipeline(lb, 4, nil)

	_, err := p.Accept(context.Background(), pngUpload("big.png", []byte("too big")))
	require.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(lb.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPipelineReplaceRemovesPrevious(t *testing.T) {
	api := &fakeS3{objects: map[string][]byte{}}
	p := NewPipeline(NewCloudBackend(api, "shop", "products", "https://cdn"), 0, nil)

	first, err := p.Accept(context.Background(), pngUpload("a.png", []byte("one")))
	require.NoError(t, err)
	second, err := p.Replace(context.Background(), first, pngUpload("b.png", []byte("two")))
	require.NoError(t, err)

	assert.NotEqual(t, first.PublicID, second.PublicID)
	assert.NotContains(t, api.objects, first.PublicID)
	assert.Contains(t, api.objects, second.PublicID)
}

func TestPipelineReplaceSurvivesCleanupFailure(t *testing.T) {
	api := &fakeS3{objects: map[string][]byte{}}
	logger, hook := test.NewNullLogger()
	p := NewPipeline(NewCloudBackend(api, "shop", "products", "https://cdn"), 0, logger)

	var reported []ImageRef
	p.OnCleanupFailure = func(_ context.Context, backend string, ref ImageRef, err error) {
		assert.Equal(t, "cloud", backend)
		assert.Error(t, err)
		reported = append(reported, ref)
	}

	first, err := p.Accept(context.Background(), pngUpload("a.png", []byte("one")))
	require.NoError(t, err)

	api.delErr = errors.New("network down")
	second, err := p.Replace(context.Background(), first, pngUpload("b.png", []byte("two")))
	require.NoError(t, err)
	assert.NotEmpty(t, second.URL)

	require.Len(t, reported, 1)
	assert.Equal(t, first.PublicID, reported[0].PublicID)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestPipelineStoreFailure(t *testing.T) {
	api := &fakeS3{objects: map[string][]byte{}, putErr: errors.New("boom")}
	p := NewPipeline(NewCloudBackend(api, "shop", "products", "https://cdn"), 0, nil)

	_, err := p.Accept(context.Background(), pngUpload("a.png", []byte("x")))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTooLarge)
}

func TestPipelineDeleteEmptyRef(t *testing.T) {
	p := NewPipeline(newLocal(t), 0, nil)
	assert.NoError(t, p.Delete(context.Background(), ImageRef{}))
}

func TestLocalPutSameMillisecondGetsDistinctFiles(t *testing.T) {
	lb := newLocal(t)
	a, err := lb.Put(context.Background(), pngUpload("a.png", []byte("a")))
	require.NoError(t, err)
	b, err := lb.Put(context.Background(), pngUpload("b.png", []byte("b")))
	require.NoError(t, err)

	assert.NotEqual(t, a.Handle, b.Handle)
	assert.Equal(t, "http://localhost:5000/uploads/image-1700000000124.png", b.URL)

	require.NoError(t, lb.Delete(context.Background(), a))
	got, err := os.ReadFile(b.Handle)
	require.NoError(t, err)
	assert.Equal(t, "b", string(got))
}
