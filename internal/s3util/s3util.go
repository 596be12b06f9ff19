// Package s3util holds the S3 client construction and URI handling shared by
// the S3 source store and the S3 sink.
package s3util

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config selects the region and, for S3-compatible stores such as MinIO, a
// custom endpoint. Credentials come from the default AWS chain.
type Config struct {
	Region    string `koanf:"region" json:"region,omitempty"`
	Endpoint  string `koanf:"endpoint" json:"endpoint,omitempty"`
	PathStyle bool   `koanf:"path_style" json:"path_style,omitempty"`
}

// NewClient loads the default AWS configuration and applies cfg on top.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	}), nil
}

// ParseURI splits "s3://bucket/some/key" into bucket and key. The key is
// taken verbatim: it may be empty, keeps any trailing slash and may contain
// '?', '#' or '%' like any other S3 key character.
func ParseURI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		if rest, ok = strings.CutPrefix(uri, "s3a://"); !ok {
			return "", "", fmt.Errorf("%q: scheme must be s3", uri)
		}
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%q: missing bucket", uri)
	}
	return bucket, key, nil
}

// URI is the inverse of ParseURI.
func URI(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}

// DirPrefix returns key as a directory prefix: empty stays empty, otherwise
// it ends with exactly one "/".
func DirPrefix(key string) string {
	key = strings.Trim(key, "/")
	if key == "" {
		return ""
	}
	return key + "/"
}
