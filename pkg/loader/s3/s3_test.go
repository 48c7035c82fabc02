package s3

import (
	"context"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeGetter struct {
	calls   atomic.Int32
	objects map[string]string
}

func (f *fakeGetter) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.calls.Add(1)
	body := f.objects[*params.Bucket+"/"+*params.Key]
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestGetFileCachesByKey(t *testing.T) {
	getter := &fakeGetter{objects: map[string]string{"runs/pairs.tsv": "a\tb\t0\n"}}
	l := NewS3FileLoaderWithClient("runs", getter)

	for i := 0; i < 3; i++ {
		data, err := l.GetFile(context.Background(), "pairs.tsv")
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if string(data) != "a\tb\t0\n" {
			t.Fatalf("unexpected content %q", data)
		}
	}
	if n := getter.calls.Load(); n != 1 {
		t.Fatalf("expected 1 GetObject call, got %d", n)
	}
}
