package output

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"

	"heatstore/mesh"
)

// Precision 默认有效数字位数
const Precision = 20

// EntryField 按单元取值的列
type EntryField struct {
	Name string
	Fn   func(c mesh.IdxCell) float64
}

// EntryScalar 标量列
type EntryScalar struct {
	Name string
	Fn   func() float64
}

func appendFloat(b []byte, v float64, prec int) []byte {
	return strconv.AppendFloat(b, v, 'g', prec, 64)
}

// SessionPlain 场输出：每次 Write 写一帧，表头加每个单元一行，帧之间空一行
type SessionPlain struct {
	content   []EntryField
	mesh      *mesh.Mesh
	name      string
	w         io.WriteCloser
	bw        *bufio.Writer
	frames    int
	closed    bool
	Precision int
}

// NewSessionPlain 打开目的地失败时直接返回错误
func NewSessionPlain(ctx context.Context, sink Sink, name string, content []EntryField, m *mesh.Mesh) (*SessionPlain, error) {
	w, err := sink.Create(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("output: open %s: %w", name, err)
	}
	return &SessionPlain{
		content:   content,
		mesh:      m,
		name:      name,
		w:         w,
		bw:        bufio.NewWriter(w),
		Precision: Precision,
	}, nil
}

// Write t 与 title 只用于日志和帧分隔，不写入表格
func (s *SessionPlain) Write(t float64, title string) error {
	if s.frames > 0 {
		if err := s.bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	s.frames++

	line := make([]byte, 0, 32*len(s.content))
	for i, e := range s.content {
		if i > 0 {
			line = append(line, ' ')
		}
		line = append(line, e.Name...)
	}
	line = append(line, '\n')
	if _, err := s.bw.Write(line); err != nil {
		return fmt.Errorf("output: write %s (%s t=%g): %w", s.name, title, t, err)
	}
	for _, c := range s.mesh.Cells() {
		line = line[:0]
		for i, e := range s.content {
			if i > 0 {
				line = append(line, ' ')
			}
			line = appendFloat(line, e.Fn(c), s.Precision)
		}
		line = append(line, '\n')
		if _, err := s.bw.Write(line); err != nil {
			return fmt.Errorf("output: write %s (%s t=%g): %w", s.name, title, t, err)
		}
	}
	return s.bw.Flush()
}

func (s *SessionPlain) Frames() int { return s.frames }

// Close 可以重复调用
func (s *SessionPlain) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.bw.Flush(); err != nil {
		_ = s.w.Close()
		return err
	}
	return s.w.Close()
}

// SessionPlainScalar 标量输出：第一次 Write 时写表头，之后每次一行
type SessionPlainScalar struct {
	content   []EntryScalar
	name      string
	w         io.WriteCloser
	bw        *bufio.Writer
	rows      int
	closed    bool
	Precision int
}

func NewSessionPlainScalar(ctx context.Context, sink Sink, name string, content []EntryScalar) (*SessionPlainScalar, error) {
	w, err := sink.Create(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("output: open %s: %w", name, err)
	}
	return &SessionPlainScalar{
		content:   content,
		name:      name,
		w:         w,
		bw:        bufio.NewWriter(w),
		Precision: Precision,
	}, nil
}

func (s *SessionPlainScalar) Write() error {
	line := make([]byte, 0, 32*len(s.content))
	if s.rows == 0 {
		for i, e := range s.content {
			if i > 0 {
				line = append(line, ' ')
			}
			line = append(line, e.Name...)
		}
		line = append(line, '\n')
	}
	for i, e := range s.content {
		if i > 0 {
			line = append(line, ' ')
		}
		line = appendFloat(line, e.Fn(), s.Precision)
	}
	line = append(line, '\n')
	s.rows++
	if _, err := s.bw.Write(line); err != nil {
		return fmt.Errorf("output: write %s: %w", s.name, err)
	}
	return s.bw.Flush()
}

func (s *SessionPlainScalar) Rows() int { return s.rows }

func (s *SessionPlainScalar) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.bw.Flush(); err != nil {
		_ = s.w.Close()
		return err
	}
	return s.w.Close()
}
