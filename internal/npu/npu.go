// Package npu acquires raw `npu-smi info` report text. Parsing lives in
// internal/report; this package only decides where and how the tool runs.
package npu

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// RunCmdFunc executes a shell command somewhere (this machine or an SSH
// session) and returns its combined output. It is the single seam between
// acquisition and transport.
type RunCmdFunc func(string) (string, error)

const (
	infoCommand   = "npu-smi info"
	detectCommand = "which npu-smi"
)

// Detect returns true if the npu-smi tooling exists wherever runCmd executes.
func Detect(runCmd RunCmdFunc) bool {
	_, err := runCmd(detectCommand)
	return err == nil
}

// Collect fetches one raw status report.
func Collect(runCmd RunCmdFunc) (string, error) {
	out, err := runCmd(infoCommand)
	if err != nil {
		return "", fmt.Errorf("npu-smi info failed: %w", err)
	}
	return out, nil
}

// LocalRunner executes commands on this machine through the shell.
func LocalRunner() RunCmdFunc {
	return func(cmd string) (string, error) {
		out, err := exec.Command("sh", "-c", cmd).CombinedOutput()
		return string(out), err
	}
}

// FileRunner replays a report captured to a file instead of running the
// tool. The file is re-read on every call so a capture can be swapped out
// under a running dashboard.
func FileRunner(path string) RunCmdFunc {
	return func(string) (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

// ToolVersion pulls the "npu-smi <version>" banner out of a report, or ""
// when no banner is present. Only a version token that starts with a digit
// counts, so stray mentions of the tool name are not mistaken for one.
func ToolVersion(report string) string {
	for _, line := range strings.Split(report, "\n") {
		idx := strings.Index(line, "npu-smi")
		if idx < 0 {
			continue
		}
		fields := strings.Fields(line[idx:])
		if len(fields) >= 2 && fields[1][0] >= '0' && fields[1][0] <= '9' {
			return fields[0] + " " + fields[1]
		}
	}
	return ""
}
