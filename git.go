package civers

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// ExecGit runs the git binary found on PATH.
type ExecGit struct {
	// Dir is the working directory for every command. Empty means the
	// current directory.
	Dir string

	// Binary overrides the executable name (default: "git").
	Binary string
}

// IsShallow runs `git rev-parse --is-shallow-repository`. Anything other than
// "false" is treated as shallow.
func (g *ExecGit) IsShallow(ctx context.Context) (bool, error) {
	out, err := g.run(ctx, "rev-parse", "--is-shallow-repository")
	if err != nil {
		return false, err
	}
	return strings.ToLower(strings.TrimSpace(out)) != "false", nil
}

// FetchHistory prunes and fetches from the default remote, deepening the
// clone when unshallow is set, then force-fetches all tags from all remotes.
func (g *ExecGit) FetchHistory(ctx context.Context, unshallow bool) error {
	args := []string{"fetch", "--prune"}
	if unshallow {
		args = append(args, "--unshallow")
	}
	if _, err := g.run(ctx, args...); err != nil {
		return err
	}

	_, err := g.run(ctx, "fetch", "-q", "--all", "--tags", "-f")
	return err
}

// Describe runs `git describe --tags --abbrev=1 --long`.
func (g *ExecGit) Describe(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "describe", "--tags", "--abbrev=1", "--long")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (g *ExecGit) run(ctx context.Context, args ...string) (string, error) {
	binary := g.Binary
	if binary == "" {
		binary = "git"
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = g.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return "", &CommandError{
			Args:     args,
			Stderr:   stderr.String(),
			ExitCode: exitCode,
			Err:      err,
		}
	}

	return stdout.String(), nil
}
