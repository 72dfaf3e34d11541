package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// CloudBackend stores images on an S3-compatible host.  The object key
// doubles as the public id.
type CloudBackend struct {
	api       s3iface.S3API
	bucket    string
	folder    string
	publicURL string
}

// NewCloudBackend wraps an S3 client.  publicURL is the prefix clients use
// to fetch objects; the key is appended to it.
func NewCloudBackend(api s3iface.S3API, bucket, folder, publicURL string) *CloudBackend {
	return &CloudBackend{
		api:       api,
		bucket:    bucket,
		folder:    strings.Trim(folder, "/"),
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (c *CloudBackend) Name() string { return "cloud" }

func (c *CloudBackend) Put(ctx context.Context, up Upload) (ImageRef, error) {
	key := c.objectKey(up)
	if _, err := up.Data.Seek(0, io.SeekStart); err != nil {
		return ImageRef{}, err
	}
	_, err := c.api.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(c.bucket),
		Key:          aws.String(key),
		Body:         up.Data,
		ContentType:  aws.String(up.MimeType),
		CacheControl: aws.String("public, max-age=31536000"),
	})
	if err != nil {
		return ImageRef{}, fmt.Errorf("put %s: %w", key, err)
	}
	return ImageRef{URL: c.publicURL + "/" + key, PublicID: key, Handle: key}, nil
}

func (c *CloudBackend) Delete(ctx context.Context, ref ImageRef) error {
	key := ref.Handle
	if key == "" {
		key = ref.PublicID
	}
	if key == "" {
		return nil
	}
	_, err := c.api.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
		return nil
	}
	return err
}

// objectKey is {folder}/{slugified name}-{uuid}{ext}.
func (c *CloudBackend) objectKey(up Upload) string {
	ext := strings.ToLower(extensionFor(up))
	base := slug.Make(strings.TrimSuffix(filepath.Base(up.Filename), filepath.Ext(up.Filename)))
	if base == "" {
		base = "image"
	}
	name := base + "-" + uuid.NewString() + ext
	if c.folder == "" {
		return name
	}
	return c.folder + "/" + name
}
