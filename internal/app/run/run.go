package run

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"glacium/internal/app/planner"
	"glacium/internal/config"
	"glacium/internal/converter"
	"glacium/internal/domain"
	"glacium/internal/index"
	"glacium/internal/infra/cache"
	"glacium/internal/lineparser"
	"glacium/internal/stream"
	"glacium/internal/stream/s3"
)

// Execute 执行一次 run（dry-run/apply），并返回对外稳定的 RunReport。
// 该函数尽量把错误"降级"为 item 级失败（单个文件失败不影响其他文件）。
func Execute(ctx context.Context, eff config.EffectiveConfig, idx *converter.TypeIndex) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, idx, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, idx *converter.TypeIndex, obs Observer) domain.RunReport {
	started := time.Now().UTC()

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		Path:      eff.Path,
		DryRun:    !eff.Apply,
		StartedAt: started,
		Items:     make([]domain.ItemResult, 0, 128),
	}

	rdr, wtr, err := buildStorage(eff)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeConfigInvalid, err.Error()))
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}

	store := cache.New(eff.Path, !eff.Apply)

	scanStarted := time.Now()
	metas, err := index.Scan(eff.Path, eff.ExcludeDirs)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("扫描失败：%v", err)))
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}
	scanDur := time.Since(scanStarted)

	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{"files": len(metas)}, scanDur)
	}

	// 分类 + 规划。未注册类型不是错误：记为 unhandled，管线对它保持静默。
	type job struct {
		plan    domain.FilePlan
		factory converter.Factory
	}

	planStarted := time.Now()
	jobsList := make([]job, 0, len(metas))
	for _, m := range metas {
		factory, ok := idx.Get(m.Type)
		if !ok {
			rr.Items = append(rr.Items, domain.ItemResult{
				Src:    m.RelPath,
				Type:   m.Type.Key(),
				Shot:   shotString(m.Shot),
				Status: domain.StatusUnhandled,
			})
			continue
		}

		p, e := planner.Plan(eff.Path, m, store)
		if e != nil {
			rr.Items = append(rr.Items, domain.ItemResult{
				Src:       m.RelPath,
				Type:      m.Type.Key(),
				Shot:      shotString(m.Shot),
				Status:    domain.StatusFailed,
				ErrorCode: domain.ErrCodeIOFailed,
				ErrorMsg:  fmt.Sprintf("规划失败：%v", e),
			})
			continue
		}
		jobsList = append(jobsList, job{plan: p, factory: factory})
	}
	planDur := time.Since(planStarted)

	if obs != nil {
		var skips int
		for i := range jobsList {
			if jobsList[i].plan.Skip {
				skips++
			}
		}
		obs.OnPhaseDone("plan", map[string]any{
			"convert": len(jobsList) - skips,
			"skip":    skips,
		}, planDur)
	}

	// 执行阶段：按文件并发（worker pool），单文件内串行。
	workers := eff.Concurrency
	if workers < 1 {
		workers = 1
	}

	type execResult struct {
		src string
		res domain.ItemResult
		dur time.Duration
	}

	jobs := make(chan job)
	results := make(chan execResult, len(jobsList))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				oneStarted := time.Now()
				r := execOne(ctx, eff, j.plan, j.factory, rdr, wtr, store)
				results <- execResult{
					src: j.plan.Meta.RelPath,
					res: r,
					dur: time.Since(oneStarted),
				}
			}
		}()
	}

	go func() {
		for _, j := range jobsList {
			jobs <- j
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	done := 0
	for it := range results {
		done++
		rr.Items = append(rr.Items, it.res)
		if obs != nil {
			obs.OnItemDone(done, len(jobsList), it.src, it.res, it.dur)
		}
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

func buildStorage(eff config.EffectiveConfig) (stream.Reader, stream.Writer, error) {
	switch eff.Storage {
	case "s3":
		st, err := s3.New(s3.Config{
			Endpoint:  eff.S3.Endpoint,
			Region:    eff.S3.Region,
			AccessKey: eff.S3.AccessKey,
			SecretKey: eff.S3.SecretKey,
			Bucket:    eff.S3.Bucket,
			UseSSL:    eff.S3.UseSSL,
			Prefix:    eff.S3.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		// 输入仍从本地文件系统读（扫描/分类只针对本地树）；s3 只替换输出端。
		return stream.NewFS(0), st, nil
	default:
		fs := stream.NewFS(0)
		return fs, fs, nil
	}
}

func execOne(ctx context.Context, eff config.EffectiveConfig, p domain.FilePlan, factory converter.Factory, rdr stream.Reader, wtr stream.Writer, store cache.Store) domain.ItemResult {
	item := domain.ItemResult{
		Src:    p.Meta.RelPath,
		Dst:    p.Out.RelPath,
		Type:   p.Meta.Type.Key(),
		Shot:   shotString(p.Meta.Shot),
		Status: domain.StatusConverted, // 失败时覆盖
	}

	if p.Skip {
		item.Status = domain.StatusSkipped
		return item
	}

	rc, err := rdr.Open(ctx, p.Meta)
	if err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeIOFailed
		item.ErrorMsg = err.Error()
		return item
	}
	defer rc.Close()

	conv := factory()

	// dry-run：完整跑一遍转换以验证输入（schema 错误要在 dry-run 暴露），但丢弃输出、不写状态。
	if !eff.Apply {
		err := converter.Run(ctx, conv, rc, func(string) error { return nil })
		if err != nil {
			fillConvertError(&item, err)
		}
		return item
	}

	// apply：转换输出经管道流向 Writer；任一侧失败都终止本文件。
	pr, pw := io.Pipe()
	convErr := make(chan error, 1)
	go func() {
		bw := bufio.NewWriter(pw)
		err := converter.Run(ctx, conv, rc, func(line string) error {
			if _, e := bw.WriteString(line); e != nil {
				return e
			}
			return bw.WriteByte('\n')
		})
		if err == nil {
			err = bw.Flush()
		}
		if err != nil {
			_ = pw.CloseWithError(err)
			convErr <- err
			return
		}
		_ = pw.Close()
		convErr <- nil
	}()

	werr := wtr.Write(ctx, p.Out, pr)
	// Writer 可能没读完（甚至一字未读）就失败：必须先关读端，让 convert goroutine
	// 挂在管道上的写立刻失败返回，否则 <-convErr 永远等不到，整批 run 被拖死。
	_ = pr.CloseWithError(werr)
	cerr := <-convErr

	// schema 错误优先；否则 Writer 的失败才是根因（convert 侧看到的只是管道回声）。
	if cerr != nil && isSchemaError(cerr) {
		fillConvertError(&item, cerr)
		return item
	}
	if werr != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeIOFailed
		item.ErrorMsg = fmt.Sprintf("写入失败：%v", werr)
		return item
	}
	if cerr != nil {
		fillConvertError(&item, cerr)
		return item
	}

	if err := store.Write(cache.Entry{
		Src:         p.Meta.RelPath,
		ModUnix:     p.Meta.ModUnix,
		Size:        p.Meta.Size,
		Output:      p.Out.RelPath,
		ConvertedAt: time.Now().UTC(),
	}); err != nil {
		// 状态写失败不推翻已成功的转换：下次最多重转一遍。
		item.ErrorMsg = fmt.Sprintf("状态写入失败（输出已生成）：%v", err)
	}

	return item
}

func isSchemaError(err error) bool {
	var cm *converter.ColumnMismatchError
	var pe *lineparser.ParseError
	return errors.As(err, &cm) || errors.As(err, &pe)
}

func fillConvertError(item *domain.ItemResult, err error) {
	item.Status = domain.StatusFailed

	var cm *converter.ColumnMismatchError
	if errors.As(err, &cm) {
		item.ErrorCode = domain.ErrCodeColumnMismatch
		item.ErrorMsg = cm.Error()
		return
	}
	var pe *lineparser.ParseError
	if errors.As(err, &pe) {
		item.ErrorCode = domain.ErrCodeParseFailed
		item.ErrorMsg = pe.Error()
		return
	}

	item.ErrorCode = domain.ErrCodeIOFailed
	item.ErrorMsg = err.Error()
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
	}
}

func shotString(s domain.Shot) string {
	if !s.OK {
		return ""
	}
	return fmt.Sprintf("%06d", s.N)
}
