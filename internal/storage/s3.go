package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/google/uuid"

	"github.com/yourorg/index-compare/internal/config"
	"github.com/yourorg/index-compare/internal/model"
)

// S3Storage implements the Storage interface for Amazon S3
type S3Storage struct {
	bucket     string
	baseURL    string
	prefix     string
	s3Client   s3iface.S3API
	s3Uploader s3manageriface.UploaderAPI
}

// NewS3Storage creates a new S3Storage, creating the bucket when it is missing
func NewS3Storage(cfg *config.S3StorageConfig) (*S3Storage, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	s3Client := s3.New(sess)

	if _, err = s3Client.HeadBucket(&s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		if _, err = s3Client.CreateBucket(&s3.CreateBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
			return nil, fmt.Errorf("failed to create S3 bucket: %w", err)
		}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return newS3Storage(cfg.Bucket, baseURL, cfg.Prefix, s3Client, s3manager.NewUploaderWithClient(s3Client)), nil
}

func newS3Storage(bucket, baseURL, prefix string, client s3iface.S3API, uploader s3manageriface.UploaderAPI) *S3Storage {
	return &S3Storage{
		bucket:     bucket,
		baseURL:    strings.TrimRight(baseURL, "/"),
		prefix:     strings.Trim(prefix, "/"),
		s3Client:   client,
		s3Uploader: uploader,
	}
}

func (s *S3Storage) key(id string) string {
	if s.prefix == "" {
		return id + pngExt
	}
	return s.prefix + "/" + id + pngExt
}

// Store uploads the image under a new id
func (s *S3Storage) Store(ctx context.Context, data []byte) (*model.ChartSnapshot, error) {
	id := uuid.New().String()
	key := s.key(id)

	_, err := s.s3Uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/png"),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload snapshot to S3: %w", err)
	}

	return &model.ChartSnapshot{
		ID:          id,
		URL:         fmt.Sprintf("%s/%s", s.baseURL, key),
		StoragePath: key,
		StorageType: "s3",
		Size:        int64(len(data)),
		CreatedAt:   time.Now(),
	}, nil
}

// Get downloads a snapshot by id
func (s *S3Storage) Get(ctx context.Context, id string) (io.ReadCloser, *model.ChartSnapshot, error) {
	if err := validID(id); err != nil {
		return nil, nil, err
	}
	key := s.key(id)

	resp, err := s.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, nil, fmt.Errorf("failed to get object from S3: %w", err)
	}

	snapshot := &model.ChartSnapshot{
		ID:          id,
		URL:         fmt.Sprintf("%s/%s", s.baseURL, key),
		StoragePath: key,
		StorageType: "s3",
		Size:        aws.Int64Value(resp.ContentLength),
		CreatedAt:   aws.TimeValue(resp.LastModified),
	}
	return resp.Body, snapshot, nil
}

// Delete removes a snapshot from S3
func (s *S3Storage) Delete(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}
