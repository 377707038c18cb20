// Package payload loads the client image and its offsets and streams them
// to a freshly logged-in client.
package payload

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Source fetches the object at location.
type Source interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// FileSource reads from the local filesystem.
type FileSource struct{}

func (FileSource) Fetch(_ context.Context, location string) ([]byte, error) {
	b, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return b, nil
}

type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads s3://bucket/key locations.
type S3Source struct {
	client objectGetter
}

type S3Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// NewS3Source builds a client from cfg. Static credentials are used when
// given; otherwise the default AWS chain applies. A custom endpoint
// (MinIO and friends) switches to path-style addressing.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Source{client: client}, nil
}

func (s *S3Source) Fetch(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := ParseS3Location(location)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", location, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return b, nil
}

// IsS3Location reports whether location uses the s3:// scheme.
func IsS3Location(location string) bool {
	return strings.HasPrefix(location, "s3://")
}

// ParseS3Location splits s3://bucket/key.
func ParseS3Location(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 location: %q", location)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 location needs bucket and key: %q", location)
	}
	return bucket, key, nil
}

// Router sends s3:// locations to S3 and everything else to the
// filesystem. S3 may be nil when no location needs it.
type Router struct {
	File Source
	S3   Source
}

func (r Router) Fetch(ctx context.Context, location string) ([]byte, error) {
	if IsS3Location(location) {
		if r.S3 == nil {
			return nil, fmt.Errorf("no s3 source configured for %s", location)
		}
		return r.S3.Fetch(ctx, location)
	}
	if r.File == nil {
		return FileSource{}.Fetch(ctx, location)
	}
	return r.File.Fetch(ctx, location)
}
