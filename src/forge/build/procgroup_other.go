//go:build !unix

package build

import "os/exec"

// killProcessGroup is a no-op where process groups are unavailable; the
// context still kills the direct child
func killProcessGroup(cmd *exec.Cmd) {}
