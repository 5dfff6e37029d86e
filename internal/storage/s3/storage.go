package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/interfaces"
)

// ObjectAPI is the subset of the S3 client used by Storage
type ObjectAPI interface {
	awss3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *awss3.HeadObjectInput, optFns ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
}

// Storage implements interfaces.FileStorage on an S3 bucket
type Storage struct {
	client ObjectAPI
	bucket string
	logger arbor.ILogger
}

// NewStorage creates a Storage for bucket
func NewStorage(client ObjectAPI, bucket string, logger arbor.ILogger) *Storage {
	return &Storage{
		client: client,
		bucket: bucket,
		logger: logger,
	}
}

func objectKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return strings.TrimSuffix(prefix, "/") + "/" + name
}

// List returns the base names of the objects under prefix/, sorted
func (s *Storage) List(ctx context.Context, prefix string) ([]string, error) {
	folder := strings.TrimSuffix(prefix, "/") + "/"
	paginator := awss3.NewListObjectsV2Paginator(s.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(folder),
	})

	names := []string{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", s.bucket, folder, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			rel := strings.TrimPrefix(key, folder)
			// Objects in nested folders are not part of this listing
			if rel == "" || strings.Contains(rel, "/") {
				continue
			}
			names = append(names, path.Base(rel))
		}
	}

	sort.Strings(names)
	return names, nil
}

// FileExists issues a HEAD request for prefix/name
func (s *Storage) FileExists(ctx context.Context, prefix, name string) (bool, error) {
	key := objectKey(prefix, name)
	_, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to head s3://%s/%s: %w", s.bucket, key, err)
}

// ReadFile returns the object body as text
func (s *Storage) ReadFile(ctx context.Context, prefix, name string) (string, error) {
	key := objectKey(prefix, name)
	data, err := s.get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteFile puts the object, replacing any previous content
func (s *Storage) WriteFile(ctx context.Context, prefix, name, content string) error {
	return s.put(ctx, objectKey(prefix, name), strings.NewReader(content))
}

// AppendToFile reads the object, appends "\n" + content and writes it back.
// S3 has no append primitive, so concurrent appenders can lose lines.
func (s *Storage) AppendToFile(ctx context.Context, prefix, name, content string) error {
	key := objectKey(prefix, name)
	existing, err := s.get(ctx, key)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return err
	}

	body := content
	if len(existing) > 0 {
		body = string(existing) + "\n" + content
	}
	return s.put(ctx, key, strings.NewReader(body))
}

// DownloadObject stores the object at key into localPath
func (s *Storage) DownloadObject(ctx context.Context, key, localPath string) error {
	data, err := s.get(ctx, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create folder for %s: %w", localPath, err)
	}
	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", localPath, err)
	}
	return nil
}

// UploadObject puts the content of localPath at key
func (s *Storage) UploadObject(ctx context.Context, localPath, key string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	if err := s.put(ctx, key, bytes.NewReader(data)); err != nil {
		return err
	}
	s.logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("Uploaded object")
	return nil
}

func (s *Storage) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}

func (s *Storage) put(ctx context.Context, key string, body io.Reader) error {
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("failed to put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
