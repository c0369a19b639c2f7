package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ProgressFunc receives the fraction of bytes transferred so far (0.0-1.0).
type ProgressFunc func(fraction float64)

// S3Store wraps the S3 clients used for dashboard image storage.
type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	uploader  *manager.Uploader
	bucket    string
	endpoint  string
	cdnDomain string
}

func NewS3Store(client *s3.Client, bucket, endpoint, cdnDomain string) *S3Store {
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		// Single-part stream so byte progress stays monotonic.
		u.Concurrency = 1
	})
	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		uploader:  uploader,
		bucket:    bucket,
		endpoint:  endpoint,
		cdnDomain: cdnDomain,
	}
}

// progressReader reports the transferred fraction as the uploader consumes it.
type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.fn != nil && p.total > 0 {
		p.read += int64(n)
		frac := float64(p.read) / float64(p.total)
		if frac > 1 {
			frac = 1
		}
		p.fn(frac)
	}
	return n, err
}

// Upload streams body to bucket/key and returns the public URL. The progress
// callback is best-effort; pass nil when no feedback is needed.
func (s *S3Store) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64, progress ProgressFunc) (string, error) {
	pr := &progressReader{r: body, total: size, fn: progress}
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        pr,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	if progress != nil {
		progress(1)
	}
	return s.PublicURL(key), nil
}

// PresignPut returns a presigned PUT URL for direct browser upload.
func (s *S3Store) PresignPut(ctx context.Context, key, contentType string, expiresSeconds int64) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}
	presigned, err := s.presigner.PresignPutObject(ctx, input, func(opts *s3.PresignOptions) {
		opts.Expires = time.Duration(expiresSeconds) * time.Second
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign put object: %w", err)
	}
	return presigned.URL, nil
}

// Delete removes an object by key. Image removal in the dashboard does not
// call this; orphaned objects are left in place.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}

// PublicURL builds the fetchable URL for a stored object.
func (s *S3Store) PublicURL(key string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", strings.TrimRight(s.cdnDomain, "/"), key)
	}
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.endpoint, "/"), s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
}
