package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"glacium/internal/domain"
)

func TestClassify_ShotAndType(t *testing.T) {
	ft, shot := Classify("converg.drop.000123")
	require.Equal(t, domain.FileType{"converg", "drop"}, ft)
	require.True(t, shot.OK)
	require.Equal(t, 123, shot.N)
}

func TestClassify_NoShot(t *testing.T) {
	ft, shot := Classify("config.drop")
	require.Equal(t, domain.FileType{"config", "drop"}, ft)
	require.False(t, shot.OK)
}

func TestClassify_FirstSixDigitTokenWins(t *testing.T) {
	// 只消费第一个六位数字 token；后续的保留进类型。
	ft, shot := Classify("soln.000123.converg.000456")
	require.True(t, shot.OK)
	require.Equal(t, 123, shot.N)
	require.Equal(t, domain.FileType{"soln", "converg", "000456"}, ft)
}

func TestClassify_NotExactlySixDigits(t *testing.T) {
	// 五位/七位数字不是 shot。
	ft, shot := Classify("run.00012.0001234")
	require.False(t, shot.OK)
	require.Equal(t, domain.FileType{"run", "00012", "0001234"}, ft)
}

func TestClassify_NoNormalization(t *testing.T) {
	ft, _ := Classify("Config.DROP")
	require.Equal(t, domain.FileType{"Config", "DROP"}, ft, "token 不做大小写归一化")
}

func TestScan_EveryRegularFileYieldsOneMeta(t *testing.T) {
	root := t.TempDir()

	touch(t, filepath.Join(root, "import", "converg.drop.000001"))
	touch(t, filepath.Join(root, "import", "config.drop.000002"))
	touch(t, filepath.Join(root, "notes.txt"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "import", "empty.dir"), 0o755))

	got, err := Scan(root, nil)
	require.NoError(t, err)
	require.Len(t, got, 3, "常规文件每个恰好一条 FileMeta；目录不产出")

	// 输出按 RelPath 稳定排序。
	require.Equal(t, filepath.Join("import", "config.drop.000002"), got[0].RelPath)
	require.Equal(t, filepath.Join("import", "converg.drop.000001"), got[1].RelPath)
	require.Equal(t, "notes.txt", got[2].RelPath)

	require.Equal(t, domain.FileType{"config", "drop"}, got[0].Type)
	require.True(t, got[0].Shot.OK)
	require.Equal(t, 2, got[0].Shot.N)
}

func TestScan_ExcludesOutAndCache(t *testing.T) {
	root := t.TempDir()

	touch(t, filepath.Join(root, "out", "converg.drop.converted.000001"))
	touch(t, filepath.Join(root, "cache", "report.json"))
	touch(t, filepath.Join(root, "import", "converg.drop.000001"))

	got, err := Scan(root, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, filepath.Join("import", "converg.drop.000001"), got[0].RelPath)
}

func TestScan_ExcludeDirsFromConfig(t *testing.T) {
	root := t.TempDir()

	touch(t, filepath.Join(root, "temp", "converg.drop.000001"))
	touch(t, filepath.Join(root, "ok", "converg.drop.000002"))

	got, err := Scan(root, []string{"temp"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, filepath.Join("ok", "converg.drop.000002"), got[0].RelPath)
}

func TestAcquire_RegularFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "import", "converg.drop.000007")
	touch(t, path)

	meta, ok, err := Acquire(root, path)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.FileType{"converg", "drop"}, meta.Type)
	require.Equal(t, 7, meta.Shot.N)
	require.Equal(t, filepath.Join("import", "converg.drop.000007"), meta.RelPath)
}

func TestScanAndAcquire_RelativeRootYieldsAbsolutePaths(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "import", "config.drop"))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	got, err := Scan(".", nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, filepath.IsAbs(got[0].AbsPath), "AbsPath 必须是绝对路径")
	require.Equal(t, filepath.Join("import", "config.drop"), got[0].RelPath)

	meta, ok, err := Acquire(".", filepath.Join("import", "config.drop"))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, filepath.IsAbs(meta.AbsPath), "AbsPath 必须是绝对路径")
	require.Equal(t, filepath.Join("import", "config.drop"), meta.RelPath)
}

func TestAcquire_NonRegular(t *testing.T) {
	root := t.TempDir()

	// 目录：ok=false，不报错。
	_, ok, err := Acquire(root, root)
	require.NoError(t, err)
	require.False(t, ok)

	// 不存在：stat 错误原样上抛。
	_, _, err = Acquire(root, filepath.Join(root, "missing"))
	require.Error(t, err)
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755), "创建目录失败")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644), "写入文件失败")
}
