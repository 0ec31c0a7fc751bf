package domain

import "strings"

// FileType 是文件分类的派发键：去掉 shot 段后按原顺序保留的文件名 token 序列。
//
// 约束：
// - 不做任何大小写/空白归一化（legacy 命名在实践中是大小写稳定的，由调用方自行归一化）
// - token 顺序就是文件名中的出现顺序，不排序
type FileType []string

// Key 返回用于 map 索引的稳定字符串形式（token 以 '.' 连接）。
// token 本身来自以 '.' 切分的文件名，因此 Key 与 token 序列一一对应。
func (t FileType) Key() string {
	return strings.Join(t, ".")
}

// Converted 返回追加 "converted" 标记后的派生类型（不修改原值）。
func (t FileType) Converted() FileType {
	out := make(FileType, 0, len(t)+1)
	out = append(out, t...)
	return append(out, "converted")
}

// Shot 是文件名中六位十进制的 multishot 编号。
// OK=false 表示文件名不含 shot 段。
type Shot struct {
	N  int
	OK bool
}

// FileMeta 描述一次索引得到的结果文件（只做 stat，不读内容）。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute
// - 创建后不可变；转换输出用新构造的派生 FileMeta 表达，绝不原地修改
// - 文件名中最多消费一个 shot 段：第一个恰为六位数字的 token 胜出，
//   其余 token（包括后续六位数字形态的 token）全部保留进 Type
type FileMeta struct {
	AbsPath string
	RelPath string
	Type    FileType
	Shot    Shot

	Size    int64
	ModUnix int64
}
