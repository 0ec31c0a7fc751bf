package planner

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"glacium/internal/domain"
	"glacium/internal/infra/cache"
)

func meta(rel string, mod, size int64) domain.FileMeta {
	ft := domain.FileType{"converg", "drop"}
	return domain.FileMeta{
		AbsPath: filepath.Join("/root", rel),
		RelPath: rel,
		Type:    ft,
		Shot:    domain.Shot{N: 1, OK: true},
		ModUnix: mod,
		Size:    size,
	}
}

func TestOutName(t *testing.T) {
	require.Equal(t, "converg.drop.converted.000001", OutName(meta("import/converg.drop.000001", 1, 1)))

	noShot := domain.FileMeta{Type: domain.FileType{"config", "drop"}}
	require.Equal(t, "config.drop.converted", OutName(noShot))
}

func TestPlan_FreshStateSkips(t *testing.T) {
	root := t.TempDir()
	store := cache.New(root, false)

	m := meta("import/converg.drop.000001", 1700000000, 42)
	require.NoError(t, store.Write(cache.Entry{
		Src: m.RelPath, ModUnix: m.ModUnix, Size: m.Size,
	}))

	p, err := Plan(root, m, store)
	require.NoError(t, err)
	require.True(t, p.Skip, "mtime+size 未变必须跳过")
	require.Equal(t, filepath.Join("out", "converg.drop.converted.000001"), p.Out.RelPath)
	require.Equal(t, domain.FileType{"converg", "drop", "converted"}, p.Out.Type)
}

func TestPlan_StaleOrMissingStateConverts(t *testing.T) {
	root := t.TempDir()
	store := cache.New(root, false)

	m := meta("import/converg.drop.000001", 1700000000, 42)

	// 无缓存：转换。
	p, err := Plan(root, m, store)
	require.NoError(t, err)
	require.False(t, p.Skip)

	// mtime 变化：转换。
	require.NoError(t, store.Write(cache.Entry{Src: m.RelPath, ModUnix: 1, Size: m.Size}))
	p, err = Plan(root, m, store)
	require.NoError(t, err)
	require.False(t, p.Skip)
}

func TestSortPlans_Stable(t *testing.T) {
	plans := []domain.FilePlan{
		{Meta: meta("import/b", 0, 0)},
		{Meta: meta("import/a", 0, 0)},
	}
	SortPlans(plans)
	require.Equal(t, "import/a", plans[0].Meta.RelPath)
}
