package planner

import (
	"fmt"
	"path/filepath"
	"sort"

	"glacium/internal/domain"
	"glacium/internal/infra/cache"
)

// OutName 是派生输出的文件名：类型 token + "converted" 以 '.' 连接，
// shot 以六位数字追加在最后（不同 shot 的产物绝不同名）。
func OutName(meta domain.FileMeta) string {
	name := meta.Type.Converted().Key()
	if meta.Shot.OK {
		name = fmt.Sprintf("%s.%06d", name, meta.Shot.N)
	}
	return name
}

// Plan 基于状态缓存为一个已分类文件生成确定性计划（只读，不做任何写入）。
//
// Skip 判定：缓存条目存在且 mtime+size 与本次 stat 一致。
// 输入重写后 mtime/size 变化，条目失配，文件重新进入转换。
func Plan(root string, meta domain.FileMeta, store cache.Store) (domain.FilePlan, error) {
	outRel := filepath.Join("out", OutName(meta))
	out := domain.FileMeta{
		AbsPath: filepath.Join(root, outRel),
		RelPath: outRel,
		Type:    meta.Type.Converted(),
		Shot:    meta.Shot,
	}

	e, ok, err := store.Read(meta.RelPath)
	if err != nil {
		return domain.FilePlan{}, err
	}
	skip := ok && e.ModUnix == meta.ModUnix && e.Size == meta.Size

	return domain.FilePlan{Meta: meta, Out: out, Skip: skip}, nil
}

// SortPlans 让上层在需要时可显式保证稳定顺序（而不是依赖调用方的遍历顺序）。
func SortPlans(plans []domain.FilePlan) {
	sort.Slice(plans, func(i, j int) bool { return plans[i].Meta.RelPath < plans[j].Meta.RelPath })
}
