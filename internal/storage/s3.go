package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/emmayusufu/googledriveclone/internal/config"
	"github.com/emmayusufu/googledriveclone/pkg/logger"
)

// deleteBatchSize is the DeleteObjects limit imposed by S3.
const deleteBatchSize = 1000

type S3Store struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	publicURL string
}

func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	endpoint := ""
	if cfg.Endpoint != "" && !strings.Contains(cfg.Endpoint, "amazonaws.com") {
		endpoint = cfg.Endpoint
		if !strings.HasPrefix(endpoint, "http") {
			scheme := "http://"
			if cfg.UseSSL {
				scheme = "https://"
			}
			endpoint = scheme + endpoint
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = endpoint
	}

	return &S3Store{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		publicURL: publicURL,
	}, nil
}

func (s *S3Store) objectURL(key string) string {
	if s.publicURL == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
	}
	return publicObjectURL(s.publicURL, s.bucket, key)
}

func (s *S3Store) Upload(ctx context.Context, in UploadInput) (UploadResult, error) {
	key := objectKey(in.Folder, in.Name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          in.Body,
		ContentLength: aws.Int64(in.Size),
		ContentType:   aws.String(in.MimeType),
	})
	if err != nil {
		logger.Error("s3_upload_failed", err, map[string]interface{}{
			"object_id":    key,
			"size":         in.Size,
			"content_type": in.MimeType,
			"bucket":       s.bucket,
		})
		return UploadResult{}, err
	}

	logger.Info("s3_upload_success", map[string]interface{}{
		"object_id":    key,
		"size":         in.Size,
		"content_type": in.MimeType,
		"bucket":       s.bucket,
	})
	return UploadResult{URL: s.objectURL(key), ObjectID: key}, nil
}

func (s *S3Store) Delete(ctx context.Context, objectID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectID),
	})
	if err != nil && !isS3NotFound(err) {
		logger.Error("s3_delete_failed", err, map[string]interface{}{
			"object_id": objectID,
			"bucket":    s.bucket,
		})
		return err
	}

	logger.Info("s3_delete_success", map[string]interface{}{
		"object_id":       objectID,
		"bucket":          s.bucket,
		"already_deleted": err != nil,
	})
	return nil
}

func (s *S3Store) CreateFolderPath(ctx context.Context, path string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(folderMarker(path)),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
		ContentType:   aws.String("application/x-directory"),
	})
	if err != nil {
		logger.Error("s3_create_folder_failed", err, map[string]interface{}{
			"path":   path,
			"bucket": s.bucket,
		})
		return err
	}

	logger.Info("s3_create_folder_success", map[string]interface{}{
		"path":   path,
		"bucket": s.bucket,
	})
	return nil
}

func (s *S3Store) DeleteFolderPath(ctx context.Context, path string) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(folderMarker(path)),
	})

	batch := make([]types.ObjectIdentifier, 0, deleteBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return err
		}
		for _, failed := range out.Errors {
			if aws.ToString(failed.Code) != "NoSuchKey" {
				return fmt.Errorf("removing %s: %s", aws.ToString(failed.Key), aws.ToString(failed.Message))
			}
		}
		batch = batch[:0]
		return nil
	}

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isS3NotFound(err) {
				break
			}
			logger.Error("s3_delete_folder_failed", err, map[string]interface{}{
				"path":   path,
				"bucket": s.bucket,
			})
			return err
		}
		for _, obj := range page.Contents {
			batch = append(batch, types.ObjectIdentifier{Key: obj.Key})
			if len(batch) == deleteBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	if err := flush(); err != nil {
		logger.Error("s3_delete_folder_failed", err, map[string]interface{}{
			"path":   path,
			"bucket": s.bucket,
		})
		return err
	}

	logger.Info("s3_delete_folder_success", map[string]interface{}{
		"path":   path,
		"bucket": s.bucket,
	})
	return nil
}

func (s *S3Store) PresignedURL(ctx context.Context, objectID string, expiry time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectID),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *S3Store) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return err
	}
	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("failed creating bucket %s: %w", s.bucket, err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
