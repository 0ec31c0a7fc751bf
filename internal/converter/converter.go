package converter

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// Converter 把一条行流转换为另一条行流：每喂入一行，产出零或一行；
// 输入耗尽后 Finalize 可补出尾部行（默认没有）。
//
// 约束：
// - 实现可以带状态（例如 convergence 变体的列数锁定），因此实例不可跨文件复用
// - 单趟消费：同一实例的 FeedLine 序列对应一个输入流，从头到尾只走一遍
type Converter interface {
	// FeedLine 接收一行（已去掉行终止符）。ok=false 表示该行没有输出。
	FeedLine(line string) (out string, ok bool, err error)
	// Finalize 在输入耗尽后调用一次，返回尾部输出行。
	Finalize() []string
}

// Factory 为一次转换构造全新的 Converter 实例。
type Factory func() Converter

// Run 驱动一次完整转换：逐行读 in，喂给 c，产出行交给 emit。
//
// - 行终止符（\n 与可能的 \r）在喂入前去掉
// - 输入 N 行做 O(N) 工作；除 Converter 自身状态外只占 O(1) 额外内存
// - c 的错误与 emit 的错误都立即终止转换并原样返回
func Run(ctx context.Context, c Converter, in io.Reader, emit func(line string) error) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimRight(sc.Text(), "\r")
		out, ok, err := c.FeedLine(line)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := emit(out); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	for _, out := range c.Finalize() {
		if err := emit(out); err != nil {
			return err
		}
	}
	return nil
}
