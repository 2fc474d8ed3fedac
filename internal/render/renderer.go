// Package render talks to the hardware rendering collaborator. The core
// hands it a path to a ready-to-render file and waits, bounded, for a
// success or failure signal; everything behind that boundary (panel driver,
// color conversion) is the external program's business.
package render

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"
)

// Renderer pushes an image file to the physical display.
type Renderer interface {
	Render(ctx context.Context, path string) error
}

// ExecRenderer runs a configured command with the image path appended as
// the final argument, e.g. "python3 display_image.py".
type ExecRenderer struct {
	command string
	timeout time.Duration
}

func NewExecRenderer(command string, timeout time.Duration) *ExecRenderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ExecRenderer{command: command, timeout: timeout}
}

// Render invokes the display command and waits up to the configured
// timeout. A non-zero exit and a timeout are reported the same way; the
// caller maps both to a single display failure.
func (r *ExecRenderer) Render(ctx context.Context, path string) error {
	if r.command == "" {
		return fmt.Errorf("no display command configured")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	parts := strings.Fields(r.command)
	args := append(parts[1:], path)

	cmd := exec.CommandContext(ctx, parts[0], args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("renderer timed out after %s", r.timeout)
		}
		log.Printf("[Render] command failed: %v output=%q", err, strings.TrimSpace(string(output)))
		return fmt.Errorf("renderer exited with error: %w", err)
	}

	return nil
}
