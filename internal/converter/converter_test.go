package converter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"glacium/internal/domain"
	"glacium/internal/lineparser"
)

func runAll(t *testing.T, c Converter, input string) ([]string, error) {
	t.Helper()
	var out []string
	err := Run(context.Background(), c, strings.NewReader(input), func(line string) error {
		out = append(out, line)
		return nil
	})
	return out, err
}

func TestStructural_PassthroughDropsBlank(t *testing.T) {
	in := "# Category: Foo\n# just a comment\nKEY value1 value2\n\n"
	out, err := runAll(t, NewStructural(), in)
	require.NoError(t, err)
	// 空行丢弃，其余三行按原文透传。
	require.Equal(t, []string{"# Category: Foo", "# just a comment", "KEY value1 value2"}, out)
}

func TestStructural_Idempotent(t *testing.T) {
	in := "# Category: Solver\nTOLERANCE 1e-6\n"
	out1, err := runAll(t, NewStructural(), in)
	require.NoError(t, err)

	out2, err := runAll(t, NewStructural(), strings.Join(out1, "\n")+"\n")
	require.NoError(t, err)
	require.Equal(t, out1, out2, "良构输入上结构转换应当幂等")
}

func TestStructural_MalformedCategoryFailsFast(t *testing.T) {
	_, err := runAll(t, NewStructural(), "# Category:\nKEY v\n")
	require.Error(t, err)

	var pe *lineparser.ParseError
	require.True(t, errors.As(err, &pe), "期望 *lineparser.ParseError，实际 %T", err)
}

func TestConverg_HeaderFirstAndFirstRowConsumed(t *testing.T) {
	in := strings.Join([]string{
		"# convergence history",
		"1 1 0.5 1e-1 2e-1 3e-1 4e-1 5e-1 6e-1 0.01",
		"2 1 0.9 1e-2 2e-2 3e-2 4e-2 5e-2 6e-2 0.02",
		"3 2 1.4 1e-3 2e-3 3e-3 4e-3 5e-3 6e-3 0.03",
		"",
	}, "\n")

	out, err := runAll(t, NewConverg(), in)
	require.NoError(t, err)
	require.Len(t, out, 3, "表头 + 第二、三个数据行（首个数据行只触发表头）")
	require.Equal(t, strings.Join(convergHeader[:], ","), out[0])
	require.Equal(t, "2,1,0.9,1e-2,2e-2,3e-2,4e-2,5e-2,6e-2,0.02", out[1])
	require.Equal(t, "3,2,1.4,1e-3,2e-3,3e-3,4e-3,5e-3,6e-3,0.03", out[2])
}

func TestConverg_ColumnMismatchIsFatal(t *testing.T) {
	c := NewConverg()

	// 首个数据行：仅表头。
	out, ok, err := c.FeedLine("1 1 0.5 1e-1 2e-1 3e-1 4e-1 5e-1 6e-1 0.01")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, strings.Join(convergHeader[:], ","), out)

	// 第二行列数不同：致命错误，错误里带期望/实际列数与原始行。
	bad := "2 1 0.9"
	_, _, err = c.FeedLine(bad)
	require.Error(t, err)

	var cm *ColumnMismatchError
	require.True(t, errors.As(err, &cm), "期望 *ColumnMismatchError，实际 %T", err)
	require.Equal(t, 10, cm.Expected)
	require.Equal(t, 3, cm.Actual)
	require.Equal(t, bad, cm.Line)
}

func TestConverg_SkipsBlankAndComment(t *testing.T) {
	c := NewConverg()
	for _, line := range []string{"", "   ", "# comment", "  # indented comment"} {
		_, ok, err := c.FeedLine(line)
		require.NoError(t, err, "行 %q", line)
		require.False(t, ok, "行 %q 不应有输出", line)
	}
}

func TestRun_TrimsCRAndPropagatesEmitError(t *testing.T) {
	out, err := runAll(t, NewStructural(), "KEY v\r\n# c\r\n")
	require.NoError(t, err)
	require.Equal(t, []string{"KEY v", "# c"}, out, "CRLF 的 \\r 必须在喂入前去掉")

	sentinel := errors.New("sink closed")
	err = Run(context.Background(), NewStructural(), strings.NewReader("KEY v\n"), func(string) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
}

func TestTypeIndex_BuiltinsAndOverride(t *testing.T) {
	x := NewTypeIndex()

	f1, ok := x.Get(domain.FileType{"config", "drop"})
	require.True(t, ok)
	require.NotNil(t, f1)

	f2, ok := x.Get(domain.FileType{"converg", "drop"})
	require.True(t, ok)
	require.NotNil(t, f2)

	// 查找是纯函数：两次等值查找返回同一注册项。
	g1, _ := x.Get(domain.FileType{"converg", "drop"})
	g2, _ := x.Get(domain.FileType{"converg", "drop"})
	require.Equal(t, asKey(g1), asKey(g2))

	// 未注册类型：不是错误，只是"不处理"。
	_, ok = x.Get(domain.FileType{"mesh", "stl"})
	require.False(t, ok)

	// 覆盖注册：后写覆盖先写。
	x.Register(domain.FileType{"converg", "drop"}, NewStructural)
	g, ok := x.Get(domain.FileType{"converg", "drop"})
	require.True(t, ok)
	_, isStructural := g().(Structural)
	require.True(t, isStructural, "覆盖注册后应返回新工厂")
}

// asKey 比较两个工厂是否为同一注册值（函数值不可直接 ==，借实例类型判定）。
func asKey(f Factory) string {
	if f == nil {
		return "<nil>"
	}
	switch f().(type) {
	case Structural:
		return "structural"
	case *Converg:
		return "converg"
	default:
		return "other"
	}
}
