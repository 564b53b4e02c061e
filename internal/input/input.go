// Package input opens analysis input files from the local filesystem,
// standard input, or S3-compatible object storage.
package input

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the connection settings used for s3:// paths.
type S3Config struct {
	Region    string
	Endpoint  string // optional; set for MinIO or other S3-compatible stores
	PathStyle bool
}

// GetObjectAPI is the subset of the S3 client used to fetch objects.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Opener resolves input paths to readers.
type Opener struct {
	cfg    S3Config
	client GetObjectAPI
}

// NewOpener creates an Opener. The S3 client is created lazily on the
// first s3:// path.
func NewOpener(cfg S3Config) *Opener {
	return &Opener{cfg: cfg}
}

// NewOpenerWithClient creates an Opener that uses the given S3 client.
func NewOpenerWithClient(client GetObjectAPI) *Opener {
	return &Opener{client: client}
}

// Open opens path for reading. "-" is standard input, "s3://bucket/key" is
// fetched from object storage, anything else is a local file.
func (o *Opener) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	switch {
	case path == "-":
		return io.NopCloser(os.Stdin), nil
	case strings.HasPrefix(path, "s3://"):
		return o.openS3(ctx, path)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return f, nil
	}
}

func (o *Opener) openS3(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}
	if o.client == nil {
		client, err := newS3Client(ctx, o.cfg)
		if err != nil {
			return nil, fmt.Errorf("create s3 client: %w", err)
		}
		o.client = client
	}

	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", uri, err)
	}
	return out.Body, nil
}

func newS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// ParseS3URI splits "s3://bucket/path/to/key" into bucket and key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri must be s3://bucket/key: %q", uri)
	}
	return bucket, key, nil
}
