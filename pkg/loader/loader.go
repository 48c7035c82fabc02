package loader

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// ErrUnsupportedPath is returned for input locations with an unknown scheme.
var ErrUnsupportedPath = errors.New("unsupported input path")

const (
	SchemeFile = "file"
	SchemeS3   = "s3"
)

// FileLoader reads the raw bytes behind a key. For the local loader the key
// is a filesystem path, for the S3 loader an object key.
type FileLoader interface {
	GetFile(ctx context.Context, key string) ([]byte, error)
}

// Location is a parsed input reference such as "rules.tsv",
// "file:///data/rules.tsv" or "s3://bucket/runs/rules.tsv".
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

func (l Location) String() string {
	if l.Scheme == SchemeS3 {
		return fmt.Sprintf("s3://%s/%s", l.Bucket, l.Key)
	}
	return l.Key
}

// ParseLocation splits raw into scheme, bucket and key. Paths without a
// scheme are local files.
func ParseLocation(raw string) (Location, error) {
	if raw == "" {
		return Location{}, fmt.Errorf("%w: empty path", ErrUnsupportedPath)
	}
	if !strings.Contains(raw, "://") {
		return Location{Scheme: SchemeFile, Key: raw}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %s: %v", ErrUnsupportedPath, raw, err)
	}
	switch u.Scheme {
	case SchemeFile:
		return Location{Scheme: SchemeFile, Key: u.Path}, nil
	case SchemeS3:
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("%w: %s: need s3://bucket/key", ErrUnsupportedPath, raw)
		}
		return Location{Scheme: SchemeS3, Bucket: u.Host, Key: key}, nil
	default:
		return Location{}, fmt.Errorf("%w: %s", ErrUnsupportedPath, raw)
	}
}

// Resolver dispatches reads to the local loader or to a per-bucket S3
// loader. S3 loaders are created lazily and reused.
type Resolver struct {
	local     FileLoader
	s3Factory func(bucket string) FileLoader

	mu      sync.Mutex
	buckets map[string]FileLoader
}

// NewResolver creates a Resolver. s3Factory may be nil, in which case
// s3:// locations fail with ErrUnsupportedPath.
func NewResolver(local FileLoader, s3Factory func(bucket string) FileLoader) *Resolver {
	return &Resolver{
		local:     local,
		s3Factory: s3Factory,
		buckets:   make(map[string]FileLoader),
	}
}

func (r *Resolver) loaderFor(loc Location) (FileLoader, error) {
	switch loc.Scheme {
	case SchemeFile:
		if r.local == nil {
			return nil, fmt.Errorf("%w: no local loader", ErrUnsupportedPath)
		}
		return r.local, nil
	case SchemeS3:
		if r.s3Factory == nil {
			return nil, fmt.Errorf("%w: s3 is not configured", ErrUnsupportedPath)
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		l, ok := r.buckets[loc.Bucket]
		if !ok {
			l = r.s3Factory(loc.Bucket)
			r.buckets[loc.Bucket] = l
		}
		return l, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedPath, loc.Scheme)
}

// Read returns the content behind raw.
func (r *Resolver) Read(ctx context.Context, raw string) ([]byte, error) {
	loc, err := ParseLocation(raw)
	if err != nil {
		return nil, err
	}
	l, err := r.loaderFor(loc)
	if err != nil {
		return nil, err
	}
	data, err := l.GetFile(ctx, loc.Key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", loc, err)
	}
	return data, nil
}
