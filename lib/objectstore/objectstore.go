// Package objectstore copies exported files to an S3 compatible bucket.
package objectstore

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the optional overrides on top of the standard AWS
// config/credential chain.
type S3Config struct {
	// Region, ex. "us-east-1".
	Region string
	// Profile selects a named shared config/credentials profile.
	Profile string
	// Endpoint points the client at an S3 compatible service (ex. minio).
	Endpoint string
	// UsePathStyle forces path-style addressing.
	UsePathStyle bool
}

// Bucket puts objects into a single bucket.
type Bucket struct {
	client *s3.Client
	name   string
}

func NewBucket(ctx context.Context, name string, cfg S3Config) (*Bucket, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Bucket{client: client, name: name}, nil
}

func (b *Bucket) Name() string {
	return b.name
}

// Upload puts the local file at `localPath` under `key`, the content type is
// guessed from the file extension.
func (b *Bucket) Upload(ctx context.Context, key, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer file.Close()

	in := &s3.PutObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
		Body:   file,
	}
	contentType := ContentType(localPath)
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	_, err = b.client.PutObject(ctx, in)
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Key is the object key of an exported file: <prefix>/<date>/<file name>,
// an empty prefix is left out.
func Key(prefix, date, localPath string) string {
	prefix = strings.Trim(prefix, "/")
	name := filepath.Base(localPath)
	if prefix == "" {
		return path.Join(date, name)
	}
	return path.Join(prefix, date, name)
}

var contentTypes = map[string]string{
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".csv":  "text/csv; charset=utf-8",
	".json": "application/json",
	".db":   "application/vnd.sqlite3",
}

// ContentType returns the MIME type stored with an uploaded file.
func ContentType(localPath string) string {
	ext := strings.ToLower(filepath.Ext(localPath))
	if known, ok := contentTypes[ext]; ok {
		return known
	}
	return mime.TypeByExtension(ext)
}
