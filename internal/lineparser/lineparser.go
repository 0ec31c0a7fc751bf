package lineparser

import (
	"fmt"
	"strings"
)

// Kind 是单行分类的结果（legacy `.drop`/`.par` 文本只有四种行形态）。
type Kind int

const (
	KindBlank Kind = iota
	KindCategory
	KindComment
	KindKeyValue
)

func (k Kind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindCategory:
		return "category"
	case KindComment:
		return "comment"
	case KindKeyValue:
		return "keyvalue"
	default:
		return "unknown"
	}
}

// CategoryMarker 是分组行的字面前缀（legacy 格式固定写法）。
const CategoryMarker = "# Category:"

// Record 是一行的结构化内容。只有与 Kind 对应的字段有意义：
// - KindCategory：Category
// - KindComment：Text（已去掉行首 '#'）
// - KindKeyValue：Key + Values
type Record struct {
	Kind Kind

	Category string
	Text     string
	Key      string
	Values   []string
}

// ParseError 表示格式假设被违反（例如 Category 标记后没有名字）。
//
// legacy 格式按约定是 well-formed 的；宁可 fail-fast，也不做 best-effort 修复。
type ParseError struct {
	Line string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("行解析失败：%s：%q", e.Msg, e.Line)
}

// Parse 把一行（不含行终止符）分类为 Blank/Category/Comment/KeyValue。
//
// 判定顺序（固定）：
// 1) 空行或全空白 => Blank（短路，不再做前缀判断）
// 2) 左修剪后以 CategoryMarker 开头 => Category
// 3) 左修剪后以 '#' 开头 => Comment
// 4) 其余 => KeyValue
func Parse(line string) (Record, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Record{Kind: KindBlank}, nil
	}

	left := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(left, CategoryMarker) {
		name := strings.TrimSpace(left[len(CategoryMarker):])
		if name == "" {
			return Record{}, &ParseError{Line: line, Msg: "Category 标记后缺少名称"}
		}
		return Record{Kind: KindCategory, Category: name}, nil
	}

	if strings.HasPrefix(left, "#") {
		return Record{Kind: KindComment, Text: strings.TrimPrefix(left, "#")}, nil
	}

	fields := strings.Fields(trimmed)
	return Record{Kind: KindKeyValue, Key: fields[0], Values: fields[1:]}, nil
}
