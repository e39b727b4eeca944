package executor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"stem-service/ddd/domain/port"
	"stem-service/pkg/logger"
	"stem-service/pkg/metrics"
)

const defaultTailLines = 20

// toolRunner runs external binaries, keeps the tail of stderr and kills the
// process when ctx ends.
type toolRunner struct {
	tailLines int
}

func newToolRunner(tailLines int) toolRunner {
	if tailLines <= 0 {
		tailLines = defaultTailLines
	}
	return toolRunner{tailLines: tailLines}
}

// run executes binary with args and returns stdout. A non-zero exit becomes a *port.ToolError.
func (r toolRunner) run(ctx context.Context, tool string, timeout time.Duration, binary string, args ...string) ([]byte, error) {
	start := time.Now()
	out, err := r.invoke(ctx, tool, timeout, binary, args...)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ToolInvocationsTotal.WithLabelValues(tool, result).Inc()
	metrics.ToolDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())
	return out, err
}

func (r toolRunner) invoke(ctx context.Context, tool string, timeout time.Duration, binary string, args ...string) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("create %s stderr pipe: %w", tool, err)
	}

	logger.Debug("running external tool", logger.Fields{"tool": tool, "binary": binary, "args": args})
	if err := cmd.Start(); err != nil {
		return nil, &port.ToolError{Tool: tool, ExitCode: -1, Err: err}
	}

	tail := make([]string, 0, r.tailLines)
	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		tail = r.scanTail(stderr, tail)
	}()

	done := make(chan error, 1)
	go func() {
		<-scanDone
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-done
		return nil, &port.ToolError{Tool: tool, ExitCode: -1, Stderr: tail, Err: ctx.Err()}
	case err := <-done:
		if err != nil && ctx.Err() != nil {
			return nil, &port.ToolError{Tool: tool, ExitCode: -1, Stderr: tail, Err: ctx.Err()}
		}
		if err != nil {
			exitCode := -1
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				exitCode = exitErr.ExitCode()
			}
			logger.Warnf("%s failed exit=%d tail_stderr=%v", tool, exitCode, tail)
			return nil, &port.ToolError{Tool: tool, ExitCode: exitCode, Stderr: tail, Err: err}
		}
		return stdout.Bytes(), nil
	}
}

func (r toolRunner) scanTail(stderr io.Reader, tail []string) []string {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if len(tail) >= r.tailLines {
			tail = tail[1:]
		}
		tail = append(tail, line)
	}
	return tail
}
