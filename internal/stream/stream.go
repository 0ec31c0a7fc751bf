// Package stream 把"行流从哪来、到哪去"与转换逻辑解耦。
//
// Converter 与编排代码只依赖这两个接口；把本地文件系统换成对象存储
// （或其他介质）不需要改动任何转换代码——这是拆出该层的明确设计理由。
package stream

import (
	"context"
	"io"

	"glacium/internal/domain"
)

// Reader 按 FileMeta 打开底层字节流。
//
// 约束：
// - 返回的 ReadCloser 由调用方负责在所有退出路径上 Close（包括转换中途失败）
// - 一次 Open 至多持有一个底层资源句柄
type Reader interface {
	Open(ctx context.Context, meta domain.FileMeta) (io.ReadCloser, error)
}

// Writer 把 r 的全部内容持久化为 meta 描述的目标。
//
// 约束：
// - 按需创建父级（目录/前缀）
// - 任何失败路径都必须释放底层资源，且不得留下可见的半成品
type Writer interface {
	Write(ctx context.Context, meta domain.FileMeta, r io.Reader) error
}
