//go:build unix

package permission

import "golang.org/x/sys/unix"

const (
	modeReadWrite = unix.R_OK | unix.W_OK
	modeList      = unix.R_OK | unix.X_OK
)

var access = unix.Access
