package main

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"glacium/internal/config"
	"glacium/internal/domain"
)

// progressPrinter 把 run.Observer 事件渲染为逐行进度输出（仅交互终端启用）。
// 必须并发安全：OnItemDone 来自 worker goroutine。
type progressPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (p *progressPrinter) OnStart(eff config.EffectiveConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mode := "dry-run"
	if eff.Apply {
		mode = "apply"
	}
	fmt.Fprintf(p.w, "glacium convert (%s, storage=%s, workers=%d)\n", mode, eff.Storage, eff.Concurrency)
	fmt.Fprintf(p.w, "path: %s\n", eff.Path)
}

func (p *progressPrinter) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// map 遍历顺序不确定：key 排序后输出，保证逐次运行输出稳定。
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(p.w, "%-5s", name)
	for _, k := range keys {
		fmt.Fprintf(p.w, " %s=%v", k, fields[k])
	}
	if dur > 0 {
		fmt.Fprintf(p.w, " (%s)", dur.Round(time.Millisecond))
	}
	fmt.Fprintln(p.w)
}

func (p *progressPrinter) OnItemDone(idx, total int, src string, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch res.Status {
	case domain.StatusFailed:
		fmt.Fprintf(p.w, "[%d/%d] %s  %s (%s: %s)\n", idx, total, res.Status, src, res.ErrorCode, res.ErrorMsg)
	default:
		fmt.Fprintf(p.w, "[%d/%d] %s  %s (%s)\n", idx, total, res.Status, src, dur.Round(time.Millisecond))
	}
}
