package stream

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"glacium/internal/domain"
)

func TestFS_OpenReadsContent(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "config.drop")
	require.NoError(t, os.WriteFile(src, []byte("KEY v\n"), 0o644))

	fs := NewFS(0)
	rc, err := fs.Open(context.Background(), domain.FileMeta{AbsPath: src})
	require.NoError(t, err)
	defer rc.Close()

	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "KEY v\n", string(b))
}

func TestFS_WriteCreatesParentsAndReplaces(t *testing.T) {
	root := t.TempDir()
	dst := filepath.Join(root, "out", "nested", "converg.drop.converted.000001")
	meta := domain.FileMeta{AbsPath: dst}

	fs := NewFS(0)
	require.NoError(t, fs.Write(context.Background(), meta, strings.NewReader("a,b\n1,2\n")))

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "a,b\n1,2\n", string(b))

	// 覆盖写。
	require.NoError(t, fs.Write(context.Background(), meta, strings.NewReader("a,b\n3,4\n")))
	b, err = os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "a,b\n3,4\n", string(b))

	// 临时文件不残留。
	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFS_WriteCanceledCtxLeavesNoTarget(t *testing.T) {
	root := t.TempDir()
	dst := filepath.Join(root, "out", "x.converted")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fs := NewFS(0)
	err := fs.Write(ctx, domain.FileMeta{AbsPath: dst}, strings.NewReader("data\n"))
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(dst)
	require.True(t, os.IsNotExist(statErr), "取消后不得留下可见的半成品")
}
