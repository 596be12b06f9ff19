// Package s3 implements the Amazon S3 Store. Locations are s3://bucket/prefix
// URIs; a prefix is listed recursively.
package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"reviewetl/internal/datasource"
	"reviewetl/internal/s3util"
)

// API is the subset of *s3.Client the store uses.
type API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store is a datasource.Store over S3.
type Store struct{ api API }

var _ datasource.Store = (*Store)(nil)

// NewStore wraps an S3 client.
func NewStore(api API) *Store { return &Store{api: api} }

// List returns the objects under location. A location that names an exact
// object returns that object. Keys inside hidden "directories" are skipped,
// as are zero-byte directory markers. Nothing found is reported as an error
// so that a mistyped prefix behaves like a missing path.
func (s *Store) List(ctx context.Context, location string) ([]string, error) {
	bucket, key, err := s3util.ParseURI(location)
	if err != nil {
		return nil, err
	}

	var out []string
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(key),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", location, err)
		}
		for _, obj := range page.Contents {
			k := aws.ToString(obj.Key)
			if strings.HasSuffix(k, "/") || !underPrefix(key, k) || hiddenBelow(key, k) {
				continue
			}
			out = append(out, s3util.URI(bucket, k))
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("list %s: no objects", location)
	}
	return out, nil
}

// Open streams the object named by an s3:// URI.
func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	bucket, key, err := s3util.ParseURI(name)
	if err != nil {
		return nil, err
	}
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	return out.Body, nil
}

// underPrefix rejects sibling matches: prefix "raw/reviews" must not pick up
// "raw/reviews_old/x.csv".
func underPrefix(prefix, key string) bool {
	if prefix == "" || strings.HasSuffix(prefix, "/") || key == prefix {
		return true
	}
	return strings.HasPrefix(key, prefix+"/")
}

// hiddenBelow reports whether any path segment of key below prefix is hidden.
func hiddenBelow(prefix, key string) bool {
	rest := strings.TrimPrefix(key, prefix)
	for _, seg := range strings.Split(strings.Trim(rest, "/"), "/") {
		if seg != "" && datasource.Hidden(seg) {
			return true
		}
	}
	return false
}
