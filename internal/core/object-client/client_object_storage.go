package objectclient

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	cfg "github.com/markdave123-py/ivyready/internal/config"
	"github.com/markdave123-py/ivyready/internal/core"
)

type S3Client struct {
	client *s3.Client
	region string
	bucket string
	now    func() time.Time
}

func NewS3Client(ctx context.Context, cfg *cfg.Config) (*S3Client, error) {
	if cfg.AwsRegion == "" {
		return nil, errors.New("AWS_REGION not set")
	}
	if cfg.BucketName == "" {
		return nil, errors.New("S3 bucket name not set")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.AwsRegion)}
	if cfg.AwsAccessKey != "" && cfg.AwsSecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AwsAccessKey, cfg.AwsSecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	log.Info().Str("bucket", cfg.BucketName).Str("region", cfg.AwsRegion).Msg("S3 attachment client configured")

	return &S3Client{
		client: s3.NewFromConfig(awsCfg),
		region: cfg.AwsRegion,
		bucket: cfg.BucketName,
		now:    time.Now,
	}, nil
}

// Save uploads data under <subfolder>/<unix-millis>-<sanitized name> and returns the object URL.
func (c *S3Client) Save(ctx context.Context, data io.Reader, originalName string, size int64, subfolder string) (*core.SavedFile, error) {
	name := StoredFileName(c.now(), originalName)
	key := path.Join(subfolder, name)

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctxUpload, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	uploader := manager.NewUploader(c.client)
	_, err := uploader.Upload(ctxUpload, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, errors.Wrap(err, "s3 upload failed")
	}

	return &core.SavedFile{
		Reference:  c.objectURL(key),
		StoredName: name,
		SizeLabel:  FormatSize(size),
	}, nil
}

func (c *S3Client) Delete(ctx context.Context, reference string) error {
	key, ok := c.keyFromURL(reference)
	if !ok {
		return errors.Errorf("reference %q is not in bucket %s", reference, c.bucket)
	}

	ctxDel, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := c.client.DeleteObject(ctxDel, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Wrap(err, "s3 delete failed")
	}
	return nil
}

func (c *S3Client) objectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, key)
}

// keyFromURL reverses objectURL for this client's bucket.
func (c *S3Client) keyFromURL(u string) (string, bool) {
	key, ok := strings.CutPrefix(u, c.objectURL(""))
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

var _ core.ObjectClient = (*S3Client)(nil)
