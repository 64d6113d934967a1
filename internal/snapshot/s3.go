package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store keeps snapshots as PNG objects under prefix. Metadata travels as
// object metadata.
//
// Example usage:
//
//	client := snapshot.NewS3Client("us-east-1", "")
//	store := snapshot.NewS3Store(client, "my-bucket", "frames/")
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Store creates a store writing to bucket under prefix.
func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// NewS3Client builds an S3 client for region. A non-empty endpoint selects
// an S3-compatible server with path-style addressing. Credentials come from
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN.
func NewS3Client(region, endpoint string) *s3.Client {
	opts := s3.Options{
		Region: region,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
			if id == "" || secret == "" {
				return aws.Credentials{}, errors.New("snapshot: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are required")
			}
			return aws.Credentials{
				AccessKeyID:     id,
				SecretAccessKey: secret,
				SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
				Source:          "environment",
			}, nil
		})),
	}
	if endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

func (s *S3Store) key(name string) string {
	return s.prefix + name + ".png"
}

// Put uploads the image with its metadata.
func (s *S3Store) Put(ctx context.Context, name string, png []byte, meta Meta) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        bytes.NewReader(png),
		ContentType: aws.String("image/png"),
		Metadata:    encodeMeta(meta),
	})
	if err != nil {
		return fmt.Errorf("snapshot: s3 put %s: %w", name, err)
	}
	return nil
}

// Get downloads a snapshot.
func (s *S3Store) Get(ctx context.Context, name string) ([]byte, Meta, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, Meta{}, ErrNotFound
		}
		return nil, Meta{}, fmt.Errorf("snapshot: s3 get %s: %w", name, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, Meta{}, err
	}
	meta, err := decodeMeta(out.Metadata)
	return data, meta, err
}

// List returns the names under the store's prefix.
func (s *S3Store) List(ctx context.Context) ([]string, error) {
	var names []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("snapshot: s3 list: %w", err)
		}
		for _, obj := range page.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if name, ok := strings.CutSuffix(key, ".png"); ok {
				names = append(names, name)
			}
		}
	}
	slices.Sort(names)
	return names, nil
}

func encodeMeta(m Meta) map[string]string {
	return map[string]string{
		"seq":     strconv.FormatUint(m.Seq, 10),
		"hash":    m.Hash,
		"width":   strconv.Itoa(m.Width),
		"height":  strconv.Itoa(m.Height),
		"drawn":   strconv.Itoa(m.Drawn),
		"reused":  strconv.Itoa(m.Reused),
		"created": m.CreatedAt.Format(time.RFC3339Nano),
	}
}

func decodeMeta(md map[string]string) (Meta, error) {
	var m Meta
	var errs []error
	atoi := func(k string) int {
		n, err := strconv.Atoi(md[k])
		if err != nil {
			errs = append(errs, fmt.Errorf("metadata %s: %w", k, err))
		}
		return n
	}
	seq, err := strconv.ParseUint(md["seq"], 10, 64)
	if err != nil {
		errs = append(errs, fmt.Errorf("metadata seq: %w", err))
	}
	m.Seq = seq
	m.Hash = md["hash"]
	m.Width, m.Height = atoi("width"), atoi("height")
	m.Drawn, m.Reused = atoi("drawn"), atoi("reused")
	if created, ok := md["created"]; ok {
		t, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			errs = append(errs, fmt.Errorf("metadata created: %w", err))
		}
		m.CreatedAt = t
	}
	return m, errors.Join(errs...)
}
