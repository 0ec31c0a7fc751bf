package converter

import "glacium/internal/lineparser"

// Structural 处理 config.drop 形态的结构化文本：逐行分类后原样透传。
//
// 输出策略（与分类本身分开的决定）：
// - Blank 行丢弃（不保留）
// - Category / Comment / KeyValue 行按原文输出（当前不做重排版）
//
// 分类失败（例如 Category 标记缺名称）直接终止转换。
type Structural struct{}

// NewStructural 是 ("config","drop") 的内置工厂。
func NewStructural() Converter { return Structural{} }

func (Structural) FeedLine(line string) (string, bool, error) {
	rec, err := lineparser.Parse(line)
	if err != nil {
		return "", false, err
	}
	if rec.Kind == lineparser.KindBlank {
		return "", false, nil
	}
	return line, true, nil
}

func (Structural) Finalize() []string { return nil }
