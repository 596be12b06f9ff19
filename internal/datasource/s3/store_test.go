package s3

import (
	"context"
	"errors"
	"io"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeAPI serves a fixed key set, two keys per page.
type fakeAPI struct {
	objects map[string]string
	keys    []string
}

func (f *fakeAPI) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var matched []string
	for _, k := range f.keys {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			matched = append(matched, k)
		}
	}
	start := 0
	if in.ContinuationToken != nil {
		for i, k := range matched {
			if k == *in.ContinuationToken {
				start = i
			}
		}
	}
	end := min(start+2, len(matched))
	out := &s3.ListObjectsV2Output{}
	for _, k := range matched[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(matched) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(matched[end])
	}
	return out, nil
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func newFake() *fakeAPI {
	f := &fakeAPI{objects: map[string]string{
		"raw/reviews/":                "",
		"raw/reviews/2024/a.csv":      "product_id\np1\n",
		"raw/reviews/2024/_tmp/b.csv": "x",
		"raw/reviews/_SUCCESS":        "",
		"raw/reviews/c.csv":           "product_id\np2\n",
		"raw/reviews/d.csv":           "product_id\np3\n",
		"raw/reviews_old/e.csv":       "product_id\np4\n",
	}}
	for k := range f.objects {
		f.keys = append(f.keys, k)
	}
	// S3 lists keys in UTF-8 binary order.
	slices.Sort(f.keys)
	return f
}

func TestStoreList(t *testing.T) {
	t.Parallel()

	s := NewStore(newFake())
	got, err := s.List(context.Background(), "s3://bucket/raw/reviews")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{
		"s3://bucket/raw/reviews/2024/a.csv",
		"s3://bucket/raw/reviews/c.csv",
		"s3://bucket/raw/reviews/d.csv",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
}

func TestStoreList_EmptyPrefixIsError(t *testing.T) {
	t.Parallel()

	if _, err := NewStore(newFake()).List(context.Background(), "s3://bucket/missing/"); err == nil {
		t.Fatal("List(missing) = nil error")
	}
}

func TestStoreOpen(t *testing.T) {
	t.Parallel()

	rc, err := NewStore(newFake()).Open(context.Background(), "s3://bucket/raw/reviews/c.csv")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "product_id\np2\n" {
		t.Fatalf("body = %q", b)
	}
}
