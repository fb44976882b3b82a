package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const presignTTL = 15 * time.Minute

// S3Options configures an S3Bucket. AccessKey, SecretKey and BaseEndpoint
// are optional; when BaseEndpoint is set path-style addressing is used so
// S3-compatible stores such as MinIO work unchanged.
type S3Options struct {
	Bucket       string
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
}

// S3Bucket uploads objects to an S3 bucket and resolves presigned GET URLs.
type S3Bucket struct {
	client   *s3.Client
	presign  *s3.PresignClient
	bucket   string
	endpoint string
	region   string
}

// NewS3Bucket loads the default AWS configuration, overlaid with opts.
func NewS3Bucket(ctx context.Context, opts S3Options) (*S3Bucket, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage: S3 bucket name must not be empty")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
		config.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Bucket{
		client:   client,
		presign:  s3.NewPresignClient(client),
		bucket:   opts.Bucket,
		endpoint: opts.BaseEndpoint,
		region:   opts.Region,
	}, nil
}

// Put uploads content with a single PutObject call.
func (b *S3Bucket) Put(ctx context.Context, req *PutRequest) (*Object, error) {
	counter := &countingReader{r: req.Content}
	var body io.Reader = counter
	if rs, ok := req.Content.(io.ReadSeeker); ok {
		body = &countingReadSeeker{countingReader: counter, s: rs}
	}

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(req.ObjectName),
		Body:        body,
		ContentType: aws.String(req.ContentType),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: put object failed for %q: %w", req.ObjectName, err)
	}
	return &Object{Name: req.ObjectName, Size: counter.n}, nil
}

// DownloadURL presigns a GET request for objectName.
func (b *S3Bucket) DownloadURL(ctx context.Context, objectName string) (string, error) {
	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectName),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return "", fmt.Errorf("storage: failed to presign URL for %q: %w", objectName, err)
	}
	return req.URL, nil
}

func (b *S3Bucket) ConsoleURL() string {
	if b.endpoint != "" {
		return strings.TrimSuffix(b.endpoint, "/") + "/" + b.bucket
	}
	return fmt.Sprintf("https://s3.console.aws.amazon.com/s3/buckets/%s?region=%s", b.bucket, b.region)
}

// countingReader records how many bytes the SDK consumed from the body.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// countingReadSeeker keeps seekable content seekable so the SDK can rewind
// it for signing.
type countingReadSeeker struct {
	*countingReader
	s io.Seeker
}

func (c *countingReadSeeker) Seek(offset int64, whence int) (int64, error) {
	pos, err := c.s.Seek(offset, whence)
	if err == nil {
		c.n = pos
	}
	return pos, err
}
