//go:build !unix

package encoder

import "os/exec"

func configureProcess(cmd *exec.Cmd) {}
