package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type R2ArchiveConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicBaseURL   string
	// Endpoint переопределяет адрес R2 (например, MinIO в dev-окружении).
	Endpoint string
}

// Enabled reports whether enough settings are present to build the archive.
func (c R2ArchiveConfig) Enabled() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != "" && c.BucketName != "" && (c.AccountID != "" || c.Endpoint != "")
}

func (c R2ArchiveConfig) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
}

type R2Archive struct {
	s3Client      *s3.Client
	bucketName    string
	publicBaseURL string
}

func NewR2Archive(ctx context.Context, cfg R2ArchiveConfig) (*R2Archive, error) {
	if !cfg.Enabled() {
		return nil, errors.New("invalid R2 archive configuration: credentials, bucket and account or endpoint are required")
	}

	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config for R2: %w", err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.endpoint())
		o.UsePathStyle = cfg.Endpoint != ""
	})

	return &R2Archive{
		s3Client:      client,
		bucketName:    cfg.BucketName,
		publicBaseURL: cfg.PublicBaseURL,
	}, nil
}

func (a *R2Archive) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object to R2 (key: %s): %w", key, err)
	}
	return nil
}

func (a *R2Archive) GetObject(ctx context.Context, key string) ([]byte, error) {
	out, err := a.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to read object from R2 (key: %s): %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// PublicURL returns the public address of an archived object, or "" if no public base is set.
func (a *R2Archive) PublicURL(key string) string {
	return joinPublicURL(a.publicBaseURL, key)
}

func joinPublicURL(base, key string) string {
	if base == "" || key == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return baseURL.JoinPath(strings.TrimPrefix(key, "/")).String()
}
