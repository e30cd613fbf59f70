package shell

import (
	"runtime"
	"strings"
	"testing"

	"queuectl/internal/domain"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests use sh commands")
	}
}

func TestExecutor_Success(t *testing.T) {
	skipOnWindows(t)
	e := New()

	out := e.Execute(&domain.Job{ID: "j1", Command: "exit 0"})
	if !out.Success {
		t.Errorf("Execute() = %+v, want success", out)
	}
	if out.Reason != "" {
		t.Errorf("Reason = %q, want empty", out.Reason)
	}
}

func TestExecutor_NonZeroExit(t *testing.T) {
	skipOnWindows(t)
	e := New()

	out := e.Execute(&domain.Job{ID: "j1", Command: "exit 3"})
	if out.Success {
		t.Fatal("Execute() succeeded, want failure")
	}
	if !strings.Contains(out.Reason, "exit code 3") {
		t.Errorf("Reason = %q, want exit code 3 mentioned", out.Reason)
	}
}

func TestExecutor_CapturesOutput(t *testing.T) {
	skipOnWindows(t)
	e := New()

	out := e.Execute(&domain.Job{ID: "j1", Command: "echo boom >&2; exit 1"})
	if out.Success {
		t.Fatal("Execute() succeeded, want failure")
	}
	if !strings.Contains(out.Reason, "boom") {
		t.Errorf("Reason = %q, want command output included", out.Reason)
	}
}

func TestExecutor_CommandNotFound(t *testing.T) {
	skipOnWindows(t)
	e := New()

	out := e.Execute(&domain.Job{ID: "j1", Command: "definitely-not-a-real-command-xyz"})
	if out.Success {
		t.Fatal("Execute() succeeded, want failure")
	}
	if out.Reason == "" {
		t.Error("Reason empty, want spawn failure text")
	}
}

func TestExecutor_SuccessIgnoresOutput(t *testing.T) {
	skipOnWindows(t)
	e := New()

	// Output on a successful run is not an error.
	out := e.Execute(&domain.Job{ID: "j1", Command: "echo noisy; exit 0"})
	if !out.Success {
		t.Errorf("Execute() = %+v, want success", out)
	}
}
