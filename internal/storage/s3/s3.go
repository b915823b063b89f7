// Package s3 keeps blobs in an S3 compatible bucket (AWS, MinIO).
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
)

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// PublicURL is the base that object keys are appended to in links,
	// e.g. https://cdn.example.com or http://localhost:9000/visa-docs.
	PublicURL string
}

// objectAPI is the part of the S3 client the store uses.
type objectAPI interface {
	PutObjectWithContext(ctx aws.Context, in *awss3.PutObjectInput, opts ...request.Option) (*awss3.PutObjectOutput, error)
	HeadObjectWithContext(ctx aws.Context, in *awss3.HeadObjectInput, opts ...request.Option) (*awss3.HeadObjectOutput, error)
	DeleteObjectWithContext(ctx aws.Context, in *awss3.DeleteObjectInput, opts ...request.Option) (*awss3.DeleteObjectOutput, error)
}

type Store struct {
	client    objectAPI
	bucket    string
	publicURL string
}

func New(cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	awsCfg := &aws.Config{
		Region:           aws.String(cfg.Region),
		DisableSSL:       aws.Bool(!cfg.UseSSL),
		S3ForcePathStyle: aws.Bool(true),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	return newStore(awss3.New(sess), cfg.Bucket, cfg.PublicURL), nil
}

func newStore(client objectAPI, bucket, publicURL string) *Store {
	return &Store{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if key == "" {
		return "", errors.New("empty object key")
	}

	// The v1 signer needs a seekable body.
	body, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("buffer object %s: %w", key, err)
		}
		body = bytes.NewReader(data)
	}

	in := &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObjectWithContext(ctx, in); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObjectWithContext(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("head object %s: %w", key, err)
}

// Delete is idempotent: S3 does not report missing keys on delete.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (s *Store) URL(key string) string {
	if key == "" {
		return ""
	}
	u := url.URL{Path: "/" + key}
	return s.publicURL + u.EscapedPath()
}

func isNotFound(err error) bool {
	var rf awserr.RequestFailure
	if errors.As(err, &rf) && rf.StatusCode() == http.StatusNotFound {
		return true
	}
	var ae awserr.Error
	if errors.As(err, &ae) {
		switch ae.Code() {
		case "NotFound", awss3.ErrCodeNoSuchKey:
			return true
		}
	}
	return false
}
