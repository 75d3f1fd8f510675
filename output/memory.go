package output

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// MemorySink 内存中的输出，主要用于测试
type MemorySink struct {
	mu   sync.RWMutex
	objs map[string][]byte
}

func NewMemorySink() *MemorySink {
	return &MemorySink{objs: make(map[string][]byte)}
}

func (s *MemorySink) Driver() Driver { return DriverMemory }

func (s *MemorySink) Create(_ context.Context, name string) (io.WriteCloser, error) {
	clean, err := sanitizeName(name)
	if err != nil {
		return nil, err
	}
	return &memoryWriter{sink: s, name: clean}, nil
}

// Get 返回已经 Close 的输出内容
func (s *MemorySink) Get(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.objs[name]
	if !ok {
		return nil, fmt.Errorf("output: %s not found", name)
	}
	res := make([]byte, len(b))
	copy(res, b)
	return res, nil
}

// Names 已写入的名字，按字典序
func (s *MemorySink) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.objs))
	for k := range s.objs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

type memoryWriter struct {
	sink   *MemorySink
	name   string
	buf    bytes.Buffer
	closed bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("output: write to closed %s", w.name)
	}
	return w.buf.Write(p)
}

func (w *memoryWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.sink.mu.Lock()
	w.sink.objs[w.name] = w.buf.Bytes()
	w.sink.mu.Unlock()
	return nil
}
