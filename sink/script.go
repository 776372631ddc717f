package sink

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
)

// StdoutPath 输出到标准输出的路径
const StdoutPath = "-"

var ErrClosed = errors.New("sink already closed")

type ScriptSinkOptions struct {
	// Path 输出文件路径，- 表示标准输出
	Path string `cfg:"path" validate:"required"`

	// Atomic 先写临时文件，Close 时再替换目标文件，默认 true
	// 为 false 时直接截断目标文件写入
	Atomic *bool `cfg:"atomic"`
}

// ScriptSink 将语句写成 SQL 脚本文件
type ScriptSink struct {
	path string
	w    *bufio.Writer

	pending *renameio.PendingFile
	file    *os.File

	closed bool
	err    error
}

func NewScriptSinkWithOptions(options *ScriptSinkOptions) (*ScriptSink, error) {
	if options == nil || options.Path == "" {
		return nil, errors.New("script path is required")
	}

	s := &ScriptSink{path: options.Path}

	switch {
	case options.Path == StdoutPath:
		s.w = bufio.NewWriter(os.Stdout)
	case options.Atomic == nil || *options.Atomic:
		// 临时文件放在目标目录下，保证 rename 不跨文件系统
		pending, err := renameio.NewPendingFile(options.Path,
			renameio.WithTempDir(filepath.Dir(options.Path)),
			renameio.WithPermissions(0644),
			renameio.WithExistingPermissions(),
		)
		if err != nil {
			return nil, errors.Wrapf(err, "create pending file for %s", options.Path)
		}
		s.pending = pending
		s.w = bufio.NewWriter(pending)
	default:
		f, err := os.Create(options.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "create %s", options.Path)
		}
		s.file = f
		s.w = bufio.NewWriter(f)
	}

	return s, nil
}

func (s *ScriptSink) Path() string {
	return s.path
}

func (s *ScriptSink) Comment(text string) error {
	return s.write("-- " + text + "\n")
}

func (s *ScriptSink) Statement(stmt string) error {
	return s.write(stmt + "\n")
}

func (s *ScriptSink) Blank() error {
	return s.write("\n")
}

func (s *ScriptSink) write(str string) error {
	if s.closed {
		return ErrClosed
	}
	// 第一次写失败后不再继续写
	if s.err != nil {
		return s.err
	}
	if _, err := s.w.WriteString(str); err != nil {
		s.err = errors.Wrapf(err, "write %s", s.path)
	}
	return s.err
}

// Close 刷新缓冲区；原子模式下用临时文件替换目标文件
func (s *ScriptSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.err != nil {
		s.release()
		return s.err
	}

	if err := s.w.Flush(); err != nil {
		s.release()
		return errors.Wrapf(err, "flush %s", s.path)
	}

	switch {
	case s.pending != nil:
		if err := s.pending.CloseAtomicallyReplace(); err != nil {
			s.pending.Cleanup()
			return errors.Wrapf(err, "replace %s", s.path)
		}
	case s.file != nil:
		if err := s.file.Close(); err != nil {
			return errors.Wrapf(err, "close %s", s.path)
		}
	}
	return nil
}

// Abort 丢弃未提交的内容；原子模式下目标文件保持原样
func (s *ScriptSink) Abort() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.w.Reset(io.Discard)
	return s.release()
}

func (s *ScriptSink) release() error {
	switch {
	case s.pending != nil:
		return s.pending.Cleanup()
	case s.file != nil:
		return s.file.Close()
	}
	return nil
}
