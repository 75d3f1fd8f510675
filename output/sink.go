// Package output 输出会话与输出目的地
//
// 会话（Session）把若干命名列写成以空格分隔的纯文本表格，第一行为列名。
// 目的地（Sink）按名字创建可写对象：本地文件、内存或 S3 兼容的对象存储。
package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Driver 输出后端标识
type Driver string

const (
	DriverFilesystem Driver = "fs"     // 本地文件（默认）
	DriverMemory     Driver = "memory" // 内存（测试用）
	DriverS3         Driver = "s3"     // S3 / MinIO
)

var ErrUnknownDriver = errors.New("output: unknown driver")

// Sink 按名字创建输出目的地，Close 之后内容才保证可见
type Sink interface {
	Create(ctx context.Context, name string) (io.WriteCloser, error)
	Driver() Driver
}

// sanitizeName 禁止绝对路径和 ..
func sanitizeName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("output: empty name")
	}
	if strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("output: absolute name %q", name)
	}
	clean := filepath.ToSlash(filepath.Clean(name))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("output: name %q escapes root", name)
	}
	return clean, nil
}
