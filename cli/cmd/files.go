package cmd

import (
	"context"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/sheetdrop/cli/config"
	"github.com/justapithecus/sheetdrop/source"
	"github.com/justapithecus/sheetdrop/types"
)

// StorageFlags returns the flags for reading candidate files from S3.
func StorageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "s3-region",
			Usage: "AWS region for s3:// files (optional, uses default chain)",
		},
		&cli.StringFlag{
			Name:  "s3-endpoint",
			Usage: "Custom S3 endpoint URL for S3-compatible providers",
		},
		&cli.BoolFlag{
			Name:  "s3-path-style",
			Usage: "Force path-style S3 addressing",
		},
	}
}

// fileResolver resolves candidate file locations. The S3 client is only
// built the first time an s3:// location is resolved.
type fileResolver struct {
	s3 source.S3Config

	once     sync.Once
	resolver *source.Resolver
	err      error
}

func newFileResolver(c *cli.Context, cfg *config.Config) *fileResolver {
	return &fileResolver{s3: source.S3Config{
		Region:       resolveString(c, "s3-region", configVal(cfg, func(c *config.Config) string { return c.Storage.Region })),
		Endpoint:     resolveString(c, "s3-endpoint", configVal(cfg, func(c *config.Config) string { return c.Storage.Endpoint })),
		UsePathStyle: resolveBool(c, "s3-path-style", configVal(cfg, func(c *config.Config) bool { return c.Storage.S3PathStyle })),
	}}
}

// Resolve returns the descriptor for a local path or s3:// URI.
func (f *fileResolver) Resolve(ctx context.Context, location string) (types.FileDescriptor, error) {
	if !source.IsS3URI(location) {
		return source.Local(location)
	}
	f.once.Do(func() {
		store, err := source.NewS3Store(ctx, f.s3)
		if err != nil {
			f.err = err
			return
		}
		f.resolver = source.NewResolver(store)
	})
	if f.err != nil {
		return types.FileDescriptor{}, f.err
	}
	return f.resolver.Resolve(ctx, location)
}
