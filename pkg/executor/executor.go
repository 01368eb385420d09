package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

type implExecutor struct{}

// New creates a new Executor instance
func New() Executor {
	return &implExecutor{}
}

// Execute runs an external command with the given arguments
func (e *implExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", commandError(name, err, stderr.String())
	}

	return stdout.String(), nil
}

// Start launches a command without waiting for it. Stderr is captured and
// attached to the error returned by Wait.
func (e *implExecutor) Start(name string, args ...string) (Process, error) {
	cmd := exec.Command(name, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("command '%s' stdin: %w", name, err)
	}
	proc := &process{name: name, cmd: cmd, stdin: stdin}
	cmd.Stderr = &proc.stderr
	if err := cmd.Start(); err != nil {
		return nil, commandError(name, err, "")
	}
	return proc, nil
}

type process struct {
	name   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer

	once    sync.Once
	waitErr error
}

func (p *process) Stdin() io.Writer {
	return p.stdin
}

func (p *process) Wait() error {
	p.once.Do(func() {
		_ = p.stdin.Close()
		if err := p.cmd.Wait(); err != nil {
			p.waitErr = commandError(p.name, err, p.stderr.String())
		}
	})
	return p.waitErr
}

func (p *process) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

func commandError(name string, err error, stderr string) error {
	// Include stderr in error message for debugging
	stderr = strings.TrimSpace(stderr)
	if stderr != "" {
		return fmt.Errorf("command '%s' failed: %w\nstderr: %s", name, err, stderr)
	}
	return fmt.Errorf("command '%s' failed: %w", name, err)
}
