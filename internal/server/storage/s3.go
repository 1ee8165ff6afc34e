// Package storage uploads plant images to an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/plantapi/internal/common"
	sc "github.com/dmitrijs2005/plantapi/internal/server/config"
)

const keyPrefix = "plant-images/"

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

type S3Uploader struct {
	bucket        string
	publicBaseURL string
	client        *s3.Client
	now           func() time.Time
}

// NewS3Uploader builds the S3 client once from static credentials. Path-style
// addressing keeps MinIO endpoints working.
func NewS3Uploader(ctx context.Context, c *sc.Config) (*S3Uploader, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Uploader{
		bucket:        c.S3Bucket,
		publicBaseURL: strings.TrimRight(c.S3PublicBaseURL, "/"),
		client:        client,
		now:           time.Now,
	}, nil
}

// ObjectKey names an upload plant-images/<unix-ms>-<filename>.
func ObjectKey(filename string, at time.Time) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	name = strings.ReplaceAll(name, " ", "_")
	return fmt.Sprintf("%s%d-%s", keyPrefix, at.UnixMilli(), name)
}

// Upload stores body under a fresh key and returns its public URL.
func (u *S3Uploader) Upload(ctx context.Context, filename string, body io.Reader, size int64, contentType string) (string, error) {
	key := ObjectKey(filename, u.now())

	in := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := putObject(u.client, ctx, in); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrUploadFailed, err)
	}

	return u.publicBaseURL + "/" + key, nil
}
