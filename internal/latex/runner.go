package latex

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
)

// Result captures one compiler pass: exit code plus captured output streams.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner invokes the typesetting engine as a child process.
type Runner struct {
	// Binary is the engine executable; pdflatex when empty.
	Binary string
	// OutputDir receives all compiler artifacts (-output-directory).
	OutputDir string
}

// Run executes one compiler pass on texPath. A nonzero exit is not an error:
// it is reported through Result.ExitCode. An error return means the process
// could not be started at all (missing binary, permissions).
func (r Runner) Run(ctx context.Context, texPath string) (*Result, error) {
	bin := r.Binary
	if bin == "" {
		bin = "pdflatex"
	}

	cmd := exec.CommandContext(ctx, bin,
		"-interaction=nonstopmode",
		"-halt-on-error",
		"-file-line-error",
		"-output-directory="+r.OutputDir,
		texPath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// LogTail returns up to n trailing bytes of the compiler log file. A missing
// or unreadable log is not an error; ok is false and the caller moves on.
func LogTail(path string, n int) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	if len(data) > n {
		data = data[len(data)-n:]
	}
	return string(data), true
}
