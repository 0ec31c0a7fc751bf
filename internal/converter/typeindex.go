package converter

import "glacium/internal/domain"

// TypeIndex 把 FileType 映射到 Converter 工厂（按 FileType.Key 索引）。
//
// 约束：
// - 查找是 FileType 的纯函数：未注册的类型返回 (nil, false)，表示"不处理"，不是错误
// - 注册阶段不校验工厂实现（错误在转换阶段才暴露）；同 key 重复注册后写覆盖先写
// - 注册只允许在编排开始前的单线程装配阶段进行；运行期 Get 并发只读是安全的，
//   并发变更需要调用方自己加锁（显式扩展点）
type TypeIndex struct {
	byKey map[string]Factory
}

// NewTypeIndex 构造带内置注册项的索引：
// - ("config","drop")  → 结构透传转换
// - ("converg","drop") → convergence 日志 CSV 转换
func NewTypeIndex() *TypeIndex {
	x := &TypeIndex{byKey: make(map[string]Factory, 4)}
	x.Register(domain.FileType{"config", "drop"}, NewStructural)
	x.Register(domain.FileType{"converg", "drop"}, NewConverg)
	return x
}

// Register 注册或覆盖某个类型的转换工厂。
func (x *TypeIndex) Register(t domain.FileType, f Factory) {
	x.byKey[t.Key()] = f
}

// Get 返回类型对应的工厂；未注册时 ok=false。
func (x *TypeIndex) Get(t domain.FileType) (Factory, bool) {
	f, ok := x.byKey[t.Key()]
	return f, ok
}
