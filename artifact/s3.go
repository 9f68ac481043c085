package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options configures an S3Store.
type S3Options struct {
	Bucket string
	Prefix string
	Region string

	// Endpoint overrides the service endpoint, e.g. for MinIO. Path-style
	// addressing is used when set.
	Endpoint string

	// Static credentials. When empty the default credential chain applies.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// Client replaces the SDK client.
	Client S3API
}

// S3Store keeps artifacts as objects named <prefix>/<digest>.hbc.
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Store creates a store for the configured bucket.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 store requires a bucket")
	}
	client := opts.Client
	if client == nil {
		var loadOpts []func(*config.LoadOptions) error
		if opts.Region != "" {
			loadOpts = append(loadOpts, config.WithRegion(opts.Region))
		}
		if opts.AccessKeyID != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)))
		}
		cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("loading aws config: %w", err)
		}
		client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			if opts.Endpoint != "" {
				o.EndpointResolver = s3.EndpointResolverFromURL(opts.Endpoint)
				o.UsePathStyle = true
			}
		})
	}
	return &S3Store{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

func (s *S3Store) key(digest string) string {
	return path.Join(s.prefix, digest+".hbc")
}

// Put uploads data. Objects are immutable, so re-uploading a digest
// rewrites identical content.
func (s *S3Store) Put(ctx context.Context, name string, data []byte) (Ref, error) {
	digest := Digest(data)
	key := s.key(digest)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	}
	if name != "" {
		input.Metadata = map[string]string{"name": name}
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return Ref{}, fmt.Errorf("uploading %s: %w", key, err)
	}
	return Ref{Digest: digest, Size: len(data), Location: "s3://" + s.bucket + "/" + key}, nil
}

// Get downloads and verifies the object for digest.
func (s *S3Store) Get(ctx context.Context, digest string) ([]byte, error) {
	if err := validDigest(digest); err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(digest)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, digest)
		}
		return nil, err
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	return verify(digest, data)
}
