package shell

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"queuectl/internal/domain"
)

// Executor runs a job's command in a shell subprocess. Execution is
// synchronous and unbounded: a command that never exits blocks the calling
// worker until it does.
type Executor struct{}

// New creates a shell executor.
func New() *Executor {
	return &Executor{}
}

// Execute runs the job's command and classifies the result. Exit code 0 is
// success; anything else, including a failure to spawn, is a failure whose
// reason carries the command output or exit status.
func (e *Executor) Execute(job *domain.Job) domain.Outcome {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/C", job.Command)
	} else {
		cmd = exec.Command("/bin/sh", "-c", job.Command)
	}

	output, err := cmd.CombinedOutput()
	if err == nil {
		return domain.Succeeded()
	}

	reason := strings.TrimSpace(string(output))
	if exitErr, ok := err.(*exec.ExitError); ok {
		if reason == "" {
			reason = fmt.Sprintf("command failed with exit code %d", exitErr.ExitCode())
		} else {
			reason = fmt.Sprintf("exit code %d: %s", exitErr.ExitCode(), reason)
		}
	} else {
		reason = err.Error()
	}
	return domain.Failed(reason)
}
