package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusConverted = "converted"
	StatusSkipped   = "skipped"
	StatusUnhandled = "unhandled"
	StatusFailed    = "failed"
)

const (
	ErrCodeColumnMismatch    = "column_mismatch"
	ErrCodeParseFailed       = "parse_failed"
	ErrCodeIOFailed          = "io_failed"
	ErrCodeConfigNotFound    = "config_not_found"
	ErrCodeConfigInvalid     = "config_invalid"
	ErrCodeConfigMissingPath = "config_missing_path"
)

// RunReport 是对外稳定输出（report.json / stdout JSON）的结构。
type RunReport struct {
	Path   string `json:"path"`
	DryRun bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Converted int `json:"converted"`
	Skipped   int `json:"skipped"`
	Unhandled int `json:"unhandled"`
	Failed    int `json:"failed"`
}

// ItemResult 对应一个输入文件的处理结果。
//
// Src/Dst 均为相对扫描根目录的路径；unhandled 时 Dst 为空。
type ItemResult struct {
	Src  string `json:"src"`
	Dst  string `json:"dst"`
	Type string `json:"type"` // FileType.Key()
	Shot string `json:"shot"` // "000123"；无 shot 时为空串

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 src 字典序；src=="" 的合成条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].Src
		b := r.Items[j].Src
		if a == "" && b == "" {
			return false
		}
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a < b
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusConverted:
			s.Converted++
		case StatusSkipped:
			s.Skipped++
		case StatusUnhandled:
			s.Unhandled++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
