package domain

// FilePlan 是对某个已分类文件的最小执行计划（只描述输入/输出；不做任何写入）。
type FilePlan struct {
	Meta FileMeta

	// Out 是派生的输出描述：Type 追加了 "converted"，RelPath 指向 out/ 下的目标。
	Out FileMeta

	// Skip=true 表示状态缓存记录的 mtime/size 未变化，无需重转。
	Skip bool
}
