// Package storage puts prescription files into S3 and keeps a local-disk copy when S3 is unreachable.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

const (
	DefaultSignedURLTTL = time.Hour
	UploadURLTTL        = 300 * time.Second
	PrescriptionFolder  = "prescriptions"
)

type Options struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Bucket          string
	// Endpoint overrides the S3 endpoint (path-style). Empty means AWS.
	Endpoint string
}

type UploadResult struct {
	URL    string `json:"url"`
	Key    string `json:"key"`
	Bucket string `json:"bucket"`
}

// Gateway talks to a single S3 bucket. It never falls back; callers decide what to do on error.
type Gateway struct {
	s3     *s3.Client
	presig *s3.PresignClient
	bucket string
	now    func() time.Time
}

func New(ctx context.Context, opts Options) (*Gateway, error) {
	loaders := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loaders = append(loaders, awscfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			opts.SessionToken,
		)))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("s3: load config: %w", err)
	}

	cli := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Gateway{
		s3:     cli,
		presig: s3.NewPresignClient(cli),
		bucket: opts.Bucket,
		now:    time.Now,
	}, nil
}

func (g *Gateway) Bucket() string { return g.bucket }

// ObjectKey builds "{folder}/{unixMillis}-{originalName}".
func ObjectKey(folder, originalName string, now time.Time) string {
	return fmt.Sprintf("%s/%d-%s", folder, now.UnixMilli(), originalName)
}

// ObjectURL is the public-style URL recorded for an object.
func ObjectURL(bucket, key string) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
}

func (g *Gateway) Upload(ctx context.Context, data []byte, contentType, originalName, folder string) (UploadResult, error) {
	if err := g.ready("upload"); err != nil {
		return UploadResult{}, err
	}
	if folder == "" {
		folder = PrescriptionFolder
	}
	key := ObjectKey(folder, originalName, g.now())
	_, err := g.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(g.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return UploadResult{}, wrap("upload", key, err)
	}
	return UploadResult{URL: ObjectURL(g.bucket, key), Key: key, Bucket: g.bucket}, nil
}

// SignedURL returns a presigned GET URL; ttl <= 0 means one hour.
func (g *Gateway) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := g.ready("presign"); err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	req, err := g.presig.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", wrap("presign", key, err)
	}
	return req.URL, nil
}

// PresignUpload returns a presigned PUT URL locked to contentType.
func (g *Gateway) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if err := g.ready("presign-upload"); err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = UploadURLTTL
	}
	req, err := g.presig.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", wrap("presign-upload", key, err)
	}
	return req.URL, nil
}

func (g *Gateway) Delete(ctx context.Context, key string) error {
	if err := g.ready("delete"); err != nil {
		return err
	}
	_, err := g.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return wrap("delete", key, err)
	}
	return nil
}

func (g *Gateway) ready(op string) error {
	if g == nil || g.bucket == "" {
		return &Error{Op: op, Code: CodeNotConfigured, Message: "s3 bucket is not configured"}
	}
	return nil
}

const CodeNotConfigured = "NotConfigured"

// Error carries the provider's error code and message for a failed storage call.
type Error struct {
	Op      string
	Key     string
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("s3 %s %q: %s: %s", e.Op, e.Key, e.Code, e.Message)
	}
	return fmt.Sprintf("s3 %s: %s: %s", e.Op, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(op, key string, err error) error {
	se := &Error{Op: op, Key: key, Code: "Unknown", Message: err.Error(), Err: err}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		se.Code = apiErr.ErrorCode()
		se.Message = apiErr.ErrorMessage()
	}
	return se
}
