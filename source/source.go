// Package source resolves user-supplied file locations into candidate file
// descriptors. Local paths and s3://bucket/key URIs are supported.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/justapithecus/sheetdrop/types"
)

// S3Scheme is the URI scheme for object storage locations.
const S3Scheme = "s3://"

// ObjectStore is the subset of the S3 API used to read candidate files.
// *s3.Client satisfies it.
type ObjectStore interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Resolver turns locations into file descriptors.
type Resolver struct {
	store ObjectStore
}

// NewResolver creates a Resolver. store may be nil, in which case s3://
// locations are rejected.
func NewResolver(store ObjectStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the descriptor for a local path or s3:// URI. The
// descriptor's Open reads the content lazily; for objects it uses ctx.
func (r *Resolver) Resolve(ctx context.Context, location string) (types.FileDescriptor, error) {
	if IsS3URI(location) {
		return r.resolveObject(ctx, location)
	}
	return Local(location)
}

// IsS3URI reports whether location uses the s3:// scheme.
func IsS3URI(location string) bool {
	return strings.HasPrefix(location, S3Scheme)
}

// ParseS3URI splits s3://bucket/key into its bucket and key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !IsS3URI(uri) {
		return "", "", fmt.Errorf("not an s3 URI: %q", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, S3Scheme), "/", 2)
	bucket = parts[0]
	if len(parts) > 1 {
		key = parts[1]
	}
	if bucket == "" {
		return "", "", fmt.Errorf("s3 URI %q has no bucket", uri)
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("s3 URI %q does not name an object", uri)
	}
	return bucket, key, nil
}

// Local describes a file on the local filesystem.
func Local(p string) (types.FileDescriptor, error) {
	info, err := os.Stat(p)
	if err != nil {
		return types.FileDescriptor{}, fmt.Errorf("stat %s: %w", p, err)
	}
	if info.IsDir() {
		return types.FileDescriptor{}, fmt.Errorf("%s is a directory", p)
	}
	return types.FileDescriptor{
		Name:      filepath.Base(p),
		Size:      info.Size(),
		MediaType: mediaType(mime.TypeByExtension(filepath.Ext(p))),
		Location:  p,
		Open: func() (io.ReadCloser, error) {
			return os.Open(p)
		},
	}, nil
}

func (r *Resolver) resolveObject(ctx context.Context, uri string) (types.FileDescriptor, error) {
	if r.store == nil {
		return types.FileDescriptor{}, errors.New("s3 locations require storage configuration")
	}
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return types.FileDescriptor{}, err
	}

	head, err := r.store.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return types.FileDescriptor{}, fmt.Errorf("head %s: %w", uri, err)
	}

	size := int64(-1)
	if head.ContentLength != nil {
		size = aws.ToInt64(head.ContentLength)
	}

	store := r.store
	return types.FileDescriptor{
		Name:      path.Base(key),
		Size:      size,
		MediaType: mediaType(aws.ToString(head.ContentType)),
		Location:  uri,
		Open: func() (io.ReadCloser, error) {
			out, err := store.GetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				return nil, fmt.Errorf("get %s: %w", uri, err)
			}
			return out.Body, nil
		},
	}, nil
}

// mediaType strips parameters such as charset from a content type.
func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	return mt
}
