package worker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// PIDFile records which process is running the worker pool so that
// `worker stop` and `worker status` can find it from another process.
// It is advisory only: after a crash it may name a process that no longer
// exists, which liveness checks must tolerate.
type PIDFile struct {
	path string
}

// PIDInfo is the persisted pid-file payload.
type PIDInfo struct {
	PID       int       `json:"pid"`
	Count     int       `json:"count"`
	StartedAt time.Time `json:"started_at"`
}

// NewPIDFile creates a PIDFile at path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Write records the current process as the pool owner running count workers.
func (f *PIDFile) Write(count int) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return err
	}
	info := PIDInfo{PID: os.Getpid(), Count: count, StartedAt: time.Now()}
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0644)
}

// Read returns the recorded pool info, or os.ErrNotExist if no pool has
// been recorded.
func (f *PIDFile) Read() (*PIDInfo, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	var info PIDInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Remove deletes the pid file. Missing files are not an error.
func (f *PIDFile) Remove() error {
	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Alive reports whether the recorded process still exists, using signal 0.
func (f *PIDFile) Alive() bool {
	info, err := f.Read()
	if err != nil {
		return false
	}
	return processAlive(info.PID)
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Signal sends sig to the recorded process.
func (f *PIDFile) Signal(sig os.Signal) error {
	info, err := f.Read()
	if err != nil {
		return err
	}
	proc, err := os.FindProcess(info.PID)
	if err != nil {
		return err
	}
	return proc.Signal(sig)
}
