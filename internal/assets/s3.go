package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type Config struct {
	// Endpoint is host:port or a full URL of an S3 compatible service
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string

	// Region defaults to us-east-1, which S3 compatible stores accept
	Region string

	// PublicBaseURL is the prefix of URLs returned after upload. If empty
	// the path-style endpoint URL is used.
	PublicBaseURL string

	DisableTLS bool
}

// Store uploads user media to an S3 compatible bucket and hands back
// public URLs. Self-hosted stores (MinIO and friends) work through the
// path-style addressing mode.
type Store struct {
	api     *s3.Client
	bucket  string
	baseURL string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("asset store endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("asset store credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("asset store bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	scheme := "https"
	if cfg.DisableTLS {
		scheme = "http"
	}

	endpoint := cfg.Endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("error while loading s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(endpoint)
	})

	baseURL := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("%s/%s", endpoint, cfg.Bucket)
	}

	return &Store{
		api:     client,
		bucket:  cfg.Bucket,
		baseURL: baseURL,
	}, nil
}

// Upload stores the object under a collision-free key derived from name
// and returns the public URL of the stored asset.
func (s *Store) Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	key := ObjectKey(name)

	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          r,
		ContentLength: &size,
		ContentType:   &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("error while uploading %q: %w", name, err)
	}

	return s.baseURL + "/" + key, nil
}

// ObjectKey prefixes the sanitized file name with a random id so repeated
// uploads of the same file never clash.
func ObjectKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
	if name == "" || name == "." {
		name = "file"
	}

	return uuid.NewString() + "/" + name
}
