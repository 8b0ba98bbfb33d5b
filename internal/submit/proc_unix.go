//go:build unix

package submit

import (
	"os"
	"os/exec"
	"syscall"
)

// detach puts the child in its own process group so it survives request
// cancellation and can be signalled as a whole.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminate signals the whole process group of p.
func terminate(p *os.Process) error {
	if err := syscall.Kill(-p.Pid, syscall.SIGTERM); err != nil {
		return p.Kill()
	}
	return nil
}
