package lineparser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_Blank(t *testing.T) {
	for _, line := range []string{"", "   ", "\t", " \t "} {
		rec, err := Parse(line)
		require.NoError(t, err, "空白行不应报错：%q", line)
		require.Equal(t, KindBlank, rec.Kind, "期望 blank：%q", line)
	}
}

func TestParse_Category(t *testing.T) {
	rec, err := Parse("# Category: Solver Settings")
	require.NoError(t, err)
	require.Equal(t, KindCategory, rec.Kind)
	require.Equal(t, "Solver Settings", rec.Category)

	// 行首空白允许（左修剪后再匹配前缀）。
	rec, err = Parse("  # Category: Icing")
	require.NoError(t, err)
	require.Equal(t, KindCategory, rec.Kind)
	require.Equal(t, "Icing", rec.Category)
}

func TestParse_Category_MissingName(t *testing.T) {
	_, err := Parse("# Category:   ")
	require.Error(t, err, "缺少名称的 Category 标记必须 fail-fast")

	var pe *ParseError
	require.True(t, errors.As(err, &pe), "期望 *ParseError，实际 %T", err)
}

func TestParse_Comment(t *testing.T) {
	rec, err := Parse("# just a comment")
	require.NoError(t, err)
	require.Equal(t, KindComment, rec.Kind)
	require.Equal(t, " just a comment", rec.Text)

	// "# Category"（无冒号）不是合法标记，按普通注释处理。
	rec, err = Parse("# Category without colon")
	require.NoError(t, err)
	require.Equal(t, KindComment, rec.Kind)
}

func TestParse_KeyValue(t *testing.T) {
	rec, err := Parse("TOLERANCE 1e-6 1e-8")
	require.NoError(t, err)
	require.Equal(t, KindKeyValue, rec.Kind)
	require.Equal(t, "TOLERANCE", rec.Key)
	require.Equal(t, []string{"1e-6", "1e-8"}, rec.Values)

	// 只有 key 没有值也是合法的 KeyValue。
	rec, err = Parse("RESTART")
	require.NoError(t, err)
	require.Equal(t, KindKeyValue, rec.Kind)
	require.Equal(t, "RESTART", rec.Key)
	require.Empty(t, rec.Values)
}
