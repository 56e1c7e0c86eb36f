// Package storage stages remote chain sources from S3 into the local work
// directory before they are attached to a device.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bootchain/loopbackx/pkg/errors"
)

// Scheme prefixes a remote chain source: s3://bucket/key.
const Scheme = "s3://"

// IsRemote reports whether a chain source names an S3 object rather than
// a local file.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, Scheme)
}

// SplitURI splits "s3://bucket/key" into bucket and key.
func SplitURI(source string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(source, Scheme)
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// Client provides S3 staging operations.
type Client struct {
	s3Client *s3.Client
}

// NewClient creates an S3 client for anonymous access in the given region.
func NewClient(ctx context.Context, region string) (*Client, error) {
	slog.Info("s3_client_init", "region", region)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		slog.Error("aws_config_load_failed", "error", err)
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	return &Client{s3Client: s3.NewFromConfig(cfg)}, nil
}

// DownloadResult contains staging metadata.
type DownloadResult struct {
	LocalPath string
	SHA256    string
	Size      int64
}

// Download downloads an object to localPath and computes its SHA256.
func (c *Client) Download(ctx context.Context, bucket, key, localPath string) (*DownloadResult, error) {
	slog.Info("s3_download_start", "bucket", bucket, "key", key)

	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Error("s3_get_object_failed", "bucket", bucket, "key", key, "error", err)
		return nil, errors.Wrap(err, "failed to get object from S3")
	}
	defer result.Body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		slog.Error("local_file_creation_failed", "path", localPath, "error", err)
		return nil, errors.Wrap(err, "failed to create local file")
	}
	defer f.Close()

	hash := sha256.New()
	writer := io.MultiWriter(f, hash)

	size, err := io.Copy(writer, result.Body)
	if err != nil {
		slog.Error("s3_download_failed", "bucket", bucket, "key", key, "error", err)
		return nil, errors.Wrap(err, "failed to download object")
	}

	checksum := hex.EncodeToString(hash.Sum(nil))

	slog.Info("s3_download_complete",
		"bucket", bucket,
		"key", key,
		"size", size,
		"local_path", localPath,
		"sha256", checksum[:16]+"...",
	)

	return &DownloadResult{
		LocalPath: localPath,
		SHA256:    checksum,
		Size:      size,
	}, nil
}

// Exists checks whether an object exists.
func (c *Client) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") {
			slog.Info("s3_object_not_found", "bucket", bucket, "key", key)
			return false, nil
		}
		slog.Error("s3_head_object_failed", "bucket", bucket, "key", key, "error", err)
		return false, errors.Wrap(err, "failed to check object existence")
	}
	return true, nil
}
