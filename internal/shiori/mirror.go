package shiori

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MirrorClient uploads published packages to an S3 compatible bucket.
type MirrorClient struct {
	Client *s3.Client
	Bucket string
	Prefix string
}

// NewMirrorClient configures the mirror from mirror_* config keys. It
// returns nil when no bucket is configured.
func NewMirrorClient(ctx context.Context, cfg *Config, disp *Display) (*MirrorClient, error) {
	bucket := cfg.String("mirror_bucket", "")
	if bucket == "" {
		return nil, nil
	}
	endpoint := cfg.String("mirror_endpoint", "")
	accessKey := cfg.String("mirror_access_key", "")
	secretKey := cfg.String("mirror_secret_key", "")

	options := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.String("mirror_region", "auto")),
	}
	if accessKey != "" || secretKey != "" {
		if accessKey == "" || secretKey == "" {
			return nil, fmt.Errorf("mirror credentials incomplete in configuration (mirror_access_key, mirror_secret_key)")
		}
		options = append(options, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	if disp.Verbosity >= Debug {
		options = append(options, config.WithClientLogMode(aws.LogRetries|aws.LogRequest|aws.LogResponse))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load mirror config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	})
	return &MirrorClient{
		Client: client,
		Bucket: bucket,
		Prefix: strings.Trim(cfg.String("mirror_prefix", ""), "/"),
	}, nil
}

// Key is the object key of a file name under the mirror prefix.
func (m *MirrorClient) Key(name string) string {
	if m.Prefix == "" {
		return name
	}
	return path.Join(m.Prefix, name)
}

// UploadFile uploads a file from disk under key.
func (m *MirrorClient) UploadFile(ctx context.Context, key, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}

	contentType := "application/octet-stream"
	switch {
	case strings.HasSuffix(key, ".json"):
		contentType = "application/json"
	case strings.HasSuffix(key, ".zst"):
		contentType = "application/zstd"
	}

	_, err = m.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.Bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(stat.Size()),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
