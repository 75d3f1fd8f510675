package output

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// FileSink 把输出写到 root 目录下的文件
type FileSink struct {
	root string
}

// NewFileSink root 为空时使用当前目录，目录不存在则创建
func NewFileSink(root string) (*FileSink, error) {
	if root == "" {
		root = "."
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FileSink{root: root}, nil
}

func (s *FileSink) Driver() Driver { return DriverFilesystem }

func (s *FileSink) Root() string { return s.root }

// Create 覆盖同名文件
func (s *FileSink) Create(_ context.Context, name string) (io.WriteCloser, error) {
	clean, err := sanitizeName(name)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(s.root, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}
