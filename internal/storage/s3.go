package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/OFFIS-RIT/ris/internal/util"
	"github.com/OFFIS-RIT/ris/pkg/loader"
	ioloader "github.com/OFFIS-RIT/ris/pkg/loader/io"
	s3loader "github.com/OFFIS-RIT/ris/pkg/loader/s3"
	"github.com/OFFIS-RIT/ris/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Configured reports whether the AWS_* variables needed for an S3 client
// are present.
func S3Configured() bool {
	return util.GetEnv("AWS_ENDPOINT") != "" || util.GetEnv("AWS_ACCESS_KEY") != ""
}

func NewS3Client(ctx context.Context) (*s3.Client, error) {
	region := util.GetEnvString("AWS_REGION", "us-east-1")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(endpoint))
	}
	if accessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client, nil
}

// NewResolver returns an input resolver for local paths and, when client is
// not nil, s3:// locations.
func NewResolver(client *s3.Client) *loader.Resolver {
	local := ioloader.NewIOFileLoader()
	if client == nil {
		return loader.NewResolver(local, nil)
	}
	return loader.NewResolver(local, func(bucket string) loader.FileLoader {
		return s3loader.NewS3FileLoaderWithClient(bucket, client)
	})
}

// ObjectPutter is the subset of *s3.Client needed to upload output.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func PutFile(ctx context.Context, client ObjectPutter, bucket string, key string, file io.ReadSeeker) error {
	mimeType := mime.TypeByExtension(filepath.Ext(key))
	if mimeType == "" {
		mimeType = "text/tab-separated-values"
	}
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload file to S3: %w", err)
	}
	return nil
}

// WriteOutput stores data at dest, a local path or an s3://bucket/key
// location. client may be nil when dest is local.
func WriteOutput(ctx context.Context, client ObjectPutter, dest string, data []byte) error {
	loc, err := loader.ParseLocation(dest)
	if err != nil {
		return err
	}
	switch loc.Scheme {
	case loader.SchemeS3:
		if client == nil {
			return fmt.Errorf("%w: s3 is not configured", loader.ErrUnsupportedPath)
		}
		if err := PutFile(ctx, client, loc.Bucket, loc.Key, bytes.NewReader(data)); err != nil {
			return err
		}
	default:
		if dir := filepath.Dir(loc.Key); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
		}
		if err := os.WriteFile(loc.Key, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", loc.Key, err)
		}
	}
	logger.Debug("[Storage] Wrote output", "dest", loc.String(), "bytes", len(data))
	return nil
}
