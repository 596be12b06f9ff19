// Package s3 registers the "s3" sink kind: a destination is an
// s3://bucket/prefix/ "directory" holding exactly one CSV part object.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"reviewetl/internal/csvio"
	"reviewetl/internal/s3util"
	"reviewetl/internal/storage"
	"reviewetl/internal/storage/file"
	"reviewetl/internal/table"
)

// API is the subset of *s3.Client the sink uses.
type API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// newClient is a test hook.
var newClient = func(ctx context.Context, cfg s3util.Config) (API, error) {
	return s3util.NewClient(ctx, cfg)
}

func init() {
	storage.Register("s3", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		api, err := newClient(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return New(api, cfg.Logger), nil
	})
}

// Sink uploads CSV part objects.
type Sink struct {
	api      API
	uploader *manager.Uploader
	logger   *zap.Logger
	newID    func() string
}

var _ storage.Sink = (*Sink)(nil)

// New wraps an S3 client.
func New(api API, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		api:      api,
		uploader: manager.NewUploader(api),
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// Save uploads t as a new part object under destination, then deletes the
// part objects that were there before. Objects under deeper prefixes are
// left alone.
func (s *Sink) Save(ctx context.Context, t *table.Table, destination string, opt storage.SaveOptions) error {
	if err := storage.CheckFormat(opt); err != nil {
		return err
	}
	bucket, key, err := s3util.ParseURI(destination)
	if err != nil {
		return err
	}
	prefix := s3util.DirPrefix(key)

	var buf bytes.Buffer
	if err := csvio.Write(&buf, t); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	partKey := prefix + file.PartName(s.newID())
	if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(partKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/csv"),
	}); err != nil {
		return fmt.Errorf("upload %s: %w", s3util.URI(bucket, partKey), err)
	}

	stale, err := s.staleParts(ctx, bucket, prefix, partKey)
	if err != nil {
		return err
	}
	if err := s.delete(ctx, bucket, stale); err != nil {
		return err
	}
	s.logger.Debug("part object written",
		zap.String("uri", s3util.URI(bucket, partKey)),
		zap.Int("rows", t.Len()),
		zap.Int("bytes", buf.Len()),
		zap.Int("replaced", len(stale)),
	)
	return nil
}

// Close is a no-op.
func (s *Sink) Close() error { return nil }

func (s *Sink) staleParts(ctx context.Context, bucket, prefix, keep string) ([]string, error) {
	var out []string
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", s3util.URI(bucket, prefix), err)
		}
		for _, o := range page.Contents {
			k := aws.ToString(o.Key)
			if k != keep && strings.HasPrefix(path.Base(k), file.PartPrefix) {
				out = append(out, k)
			}
		}
	}
	return out, nil
}

// delete removes keys in batches of 1000, the DeleteObjects maximum.
func (s *Sink) delete(ctx context.Context, bucket string, keys []string) error {
	for lo := 0; lo < len(keys); lo += 1000 {
		batch := keys[lo:min(lo+1000, len(keys))]
		ids := make([]types.ObjectIdentifier, len(batch))
		for i, k := range batch {
			ids[i] = types.ObjectIdentifier{Key: aws.String(k)}
		}
		out, err := s.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete stale parts: %w", err)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("delete %s: %s", aws.ToString(e.Key), aws.ToString(e.Message))
		}
	}
	return nil
}
