package stream

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"glacium/internal/domain"
	"glacium/internal/infra/fsx"
)

const defaultBufSize = 64 * 1024

// FS 是本地文件系统的 Reader/Writer 实现（默认介质）。
type FS struct {
	bufSize int
}

// NewFS 创建文件系统实现；bufSize<=0 使用默认 64KiB。
func NewFS(bufSize int) *FS {
	if bufSize <= 0 {
		bufSize = defaultBufSize
	}
	return &FS{bufSize: bufSize}
}

var (
	_ Reader = (*FS)(nil)
	_ Writer = (*FS)(nil)
)

// Open 打开 meta.AbsPath 并包上读缓冲。
func (f *FS) Open(ctx context.Context, meta domain.FileMeta) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	file, err := os.Open(meta.AbsPath)
	if err != nil {
		return nil, err
	}
	return newBufferedCloser(file, f.bufSize), nil
}

// Write 把 r 流式写入 meta.AbsPath：同目录临时文件 + rename，父目录按需创建。
func (f *FS) Write(ctx context.Context, meta domain.FileMeta, r io.Reader) error {
	dest := meta.AbsPath
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	bw := bufio.NewWriterSize(tmp, f.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := fsx.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	// 目录 fsync：best-effort（不同平台/文件系统的语义差异很大）。
	_ = syncDirBestEffort(dir)
	return nil
}

func syncDirBestEffort(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// bufferedCloser 把 bufio.Reader 与底层 Closer 组合为 ReadCloser。
type bufferedCloser struct {
	*bufio.Reader
	c io.Closer
}

func newBufferedCloser(c io.ReadCloser, bufSize int) *bufferedCloser {
	return &bufferedCloser{Reader: bufio.NewReaderSize(c, bufSize), c: c}
}

func (b *bufferedCloser) Close() error { return b.c.Close() }

// readerWithCtx: 在每次 Read 前检查 ctx 是否已取消。
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
	}
	return cr.r.Read(p)
}
