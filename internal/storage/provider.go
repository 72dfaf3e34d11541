package storage

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/iliyamo/shop-api/internal/config"
)

// NewBackend picks the backend named by cfg.Backend.
func NewBackend(cfg config.StorageConfig) (Backend, error) {
	switch cfg.Backend {
	case config.StorageLocal, "":
		return NewLocalBackend(cfg.UploadDir, cfg.PublicBaseURL)
	case config.StorageCloud:
		cc := cfg.Cloud
		awsCfg := &aws.Config{
			Credentials: credentials.NewStaticCredentials(cc.KeyID, cc.Secret, ""),
			Region:      aws.String(cc.Region),
		}
		if cc.Endpoint != "" {
			awsCfg.Endpoint = aws.String(cc.Endpoint)
			awsCfg.S3ForcePathStyle = aws.Bool(true)
		}
		sess, err := session.NewSession(awsCfg)
		if err != nil {
			return nil, fmt.Errorf("cloud session: %w", err)
		}
		return NewCloudBackend(s3.New(sess), cc.Bucket, cc.Folder, publicBaseURL(cc)), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// publicBaseURL derives where objects are served from when not configured.
// Custom endpoints use path style, AWS uses virtual-hosted style.
func publicBaseURL(cc config.CloudConfig) string {
	if cc.PublicURL != "" {
		return cc.PublicURL
	}
	if cc.Endpoint != "" {
		return strings.TrimRight(cc.Endpoint, "/") + "/" + cc.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cc.Bucket, cc.Region)
}
