package moderation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"gopkg.in/yaml.v3"
)

// S3API is the subset of the S3 client S3Store depends on, so tests can
// inject a fake instead of talking to a real bucket.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store backs the moderation document with a single object in an
// S3-compatible bucket, letting several hub instances share one ban list.
// Each Save is a full-object overwrite with no locking; running more than
// one hub against the same key concurrently risks lost updates, so that
// is the caller's responsibility to avoid (e.g. one hub per key).
type S3Store struct {
	client S3API
	bucket string
	key    string
}

// NewS3Store creates an S3Store. When accessKeyID and secretAccessKey are
// both set, they are used as static credentials; otherwise the default AWS
// credential chain and region resolution apply, same as running on an
// instance role.
func NewS3Store(ctx context.Context, bucket, key, accessKeyID, secretAccessKey string) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewS3StoreWithClient(s3.NewFromConfig(cfg), bucket, key), nil
}

// NewS3StoreWithClient creates an S3Store with an injected client.
func NewS3StoreWithClient(client S3API, bucket, key string) *S3Store {
	return &S3Store{client: client, bucket: bucket, key: key}
}

// Load fetches and parses the moderation document. A missing object is not
// an error, matching FileStore's "missing file = empty sets" behavior.
func (s *S3Store) Load() (*State, error) {
	out, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	var nf *types.NoSuchKey
	if errors.As(err, &nf) {
		return NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get moderation object s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read moderation object body: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse moderation object: %w", err)
	}
	return stateFromDocument(doc), nil
}

// Save overwrites the moderation object in full. S3's per-object PUT is
// already atomic from a reader's perspective: a GetObject racing a PutObject
// observes either the whole old object or the whole new one, never a mix.
func (s *S3Store) Save(st *State) error {
	data, err := yaml.Marshal(st.toDocument())
	if err != nil {
		return fmt.Errorf("marshal moderation document: %w", err)
	}

	_, err = s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("put moderation object s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}
