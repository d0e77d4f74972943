package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/carbocation/pfx"
)

// S3 is a Client backed by Amazon S3. Credentials and region come from the
// usual AWS environment, shared config files or the instance role.
type S3 struct {
	client     *s3.Client
	downloader *manager.Downloader
	uploader   *manager.Uploader
}

func NewS3(ctx context.Context, maxAttempts int) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(maxAttempts))
	if err != nil {
		return nil, pfx.Err(err)
	}

	return NewS3FromConfig(cfg), nil
}

func NewS3FromConfig(cfg aws.Config) *S3 {
	client := s3.NewFromConfig(cfg)

	return &S3{
		client:     client,
		downloader: manager.NewDownloader(client),
		uploader:   manager.NewUploader(client),
	}
}

func (c *S3) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	var out []Object

	p := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("s3://%s/%s: %w", bucket, prefix, err))
		}

		for _, obj := range page.Contents {
			out = append(out, Object{
				Bucket:       bucket,
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	return out, nil
}

func (c *S3) Stat(ctx context.Context, bucket, key string) (Object, error) {
	head, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if isS3NotFound(err) {
		return Object{}, fmt.Errorf("s3://%s/%s: %w", bucket, key, ErrNotExist)
	} else if err != nil {
		return Object{}, pfx.Err(err)
	}

	return Object{
		Bucket:       bucket,
		Key:          key,
		Size:         aws.ToInt64(head.ContentLength),
		LastModified: aws.ToTime(head.LastModified),
	}, nil
}

func (c *S3) Download(ctx context.Context, bucket, key, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return pfx.Err(err)
	}

	f, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pfx.Err(err)
	}

	_, err = c.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		f.Close()
		os.Remove(localPath)
		return pfx.Err(fmt.Errorf("s3://%s/%s: %w", bucket, key, err))
	}

	return f.Close()
}

func (c *S3) Upload(ctx context.Context, localPath, bucket, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	_, err = c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return pfx.Err(fmt.Errorf("s3://%s/%s: %w", bucket, key, err))
	}

	return nil
}

// HeadObject carries no error body, so a missing key can surface either as
// the modeled NotFound or as a bare 404 API error.
func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}

	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return true
	}

	return false
}
