//go:build unix

package fsx

import (
	"errors"
	"os"
	"syscall"
)

// os.Rename 的 EXDEV 可能裸露，也可能包在 *os.LinkError 里；两种都要认。
func isEXDEV(err error) bool {
	if errors.Is(err, syscall.EXDEV) {
		return true
	}
	var le *os.LinkError
	if errors.As(err, &le) && errors.Is(le.Err, syscall.EXDEV) {
		return true
	}
	return false
}
