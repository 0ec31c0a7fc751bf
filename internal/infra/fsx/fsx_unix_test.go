//go:build unix

package fsx

import (
	"errors"
	"os"
	"syscall"
	"testing"
)

func TestRename_WrapsEXDEV(t *testing.T) {
	orig := renameFunc
	defer func() { renameFunc = orig }()

	renameFunc = func(string, string) error {
		return &os.LinkError{Op: "rename", Old: "a", New: "b", Err: syscall.EXDEV}
	}

	err := Rename("a", "b")
	var cd *CrossDeviceError
	if !errors.As(err, &cd) {
		t.Fatalf("期望 *CrossDeviceError，实际 %T：%v", err, err)
	}
}
