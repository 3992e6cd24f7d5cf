package state

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
	"github.com/aws/smithy-go"
)

// S3Store persists state in an S3-compatible object store, one object per
// stack. A PUT replaces the whole object, which gives the atomic
// write-after-apply the engine requires.
type S3Store struct {
	s3     *s3.Client
	bucket string
}

// S3Config holds the connection parameters for the object store.
// Works with AWS S3 and S3-compatible endpoints such as Hetzner Object
// Storage when Endpoint is set.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// NewS3Store creates an S3-backed state store.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("state bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &S3Store{s3: client, bucket: cfg.Bucket}, nil
}

// Load implements Store.
func (s *S3Store) Load(ctx context.Context, stack string) (*State, error) {
	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(stack)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to load state for stack %s: %w", stack, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read state object: %w", err)
	}
	return Decode(data)
}

// Save implements Store.
func (s *S3Store) Save(ctx context.Context, stack string, st *State) error {
	data, err := st.Encode()
	if err != nil {
		return err
	}
	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(stack)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to save state for stack %s: %w", stack, err)
	}
	return nil
}

func objectKey(stack string) string {
	return stack + "/state.json"
}

// isNoSuchKey checks for a missing object, falling back to API error codes
// for S3-compatible services that do not return the exact SDK error types.
func isNoSuchKey(err error) bool {
	if err == nil {
		return false
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}

	return false
}
