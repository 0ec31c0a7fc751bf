//go:build !unix

package fsx

// 非 unix 平台没有稳定的 EXDEV 判定；原子写的临时文件与目标同目录，按不触发处理。
func isEXDEV(error) bool { return false }
