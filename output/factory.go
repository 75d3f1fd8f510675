package output

import (
	"context"
	"fmt"
)

// Options 选择输出后端
type Options struct {
	Driver Driver
	Root   string // fs
	S3     S3Config
}

// Open 根据 Options 构造 Sink，默认写本地文件
func Open(ctx context.Context, opts Options) (Sink, error) {
	switch opts.Driver {
	case "", DriverFilesystem:
		return NewFileSink(opts.Root)
	case DriverMemory:
		return NewMemorySink(), nil
	case DriverS3:
		return NewS3Sink(ctx, opts.S3)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, opts.Driver)
	}
}
