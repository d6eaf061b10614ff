//go:build unix

package cli

import "syscall"

// detachedAttr starts the child in a new session so it survives the terminal.
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
