package converter

import (
	"fmt"
	"strings"
)

// convergHeader 是 convergence 日志的固定 10 列表头（逗号连接后作为首行输出）。
var convergHeader = [10]string{
	"time_step",
	"newton_iteration",
	"cpu_time",
	"overall_residual_drop",
	"total_beta_drop",
	"change_in_total_beta_drop",
	"alpha_residual_drop",
	"momentum_residual_drop",
	"drop_diameter_residual",
	"droplet_mass_deficit_pct",
}

// ColumnMismatchError 表示数据行列数与锁定值不一致。
// 对当前转换是致命错误：输入被视为损坏，不重试、不恢复。
type ColumnMismatchError struct {
	Expected int
	Actual   int
	Line     string
}

func (e *ColumnMismatchError) Error() string {
	return fmt.Sprintf("列数不匹配：期望 %d，实际 %d：%q", e.Expected, e.Actual, e.Line)
}

// Converg 把 converg.drop 形态的空白分隔数值日志转成 CSV。
//
// 状态机（两个字段就是全部状态）：
// - ready=false：尚未输出表头
// - ncols：首个数据行出现时锁定为表头长度（10），此后每个数据行都必须恰好这么多列
//
// 首个数据行只触发表头输出，其本身的数值不进入输出（保持 legacy 管线的可观察行为，
// 下游消费方已按此对齐；见 DESIGN.md）。
type Converg struct {
	ready bool
	ncols int
}

// NewConverg 是 ("converg","drop") 的内置工厂。
func NewConverg() Converter { return &Converg{} }

func (c *Converg) FeedLine(line string) (string, bool, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", false, nil
	}
	if strings.HasPrefix(trimmed, "#") {
		return "", false, nil
	}

	fields := strings.Fields(trimmed)
	if !c.ready {
		c.ready = true
		c.ncols = len(convergHeader)
		return strings.Join(convergHeader[:], ","), true, nil
	}

	if len(fields) != c.ncols {
		return "", false, &ColumnMismatchError{
			Expected: c.ncols,
			Actual:   len(fields),
			Line:     line,
		}
	}
	return strings.Join(fields, ","), true, nil
}

func (c *Converg) Finalize() []string { return nil }
