package civers

import (
	"errors"
	"fmt"
	"strings"
)

// Step identifies a stage of tag discovery.
type Step int

const (
	// StepShallowCheck asks git whether the clone is shallow.
	StepShallowCheck Step = iota + 1

	// StepDescribe fetches history and tags and describes HEAD.
	StepDescribe
)

func (s Step) String() string {
	switch s {
	case StepShallowCheck:
		return "shallow check"
	case StepDescribe:
		return "describe"
	default:
		return "unknown"
	}
}

// ExitCode is the process exit status used when the step fails.
func (s Step) ExitCode() int {
	if s == StepShallowCheck {
		return 2
	}
	return 1
}

// StepError records which step of the pipeline failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// CommandError is returned when git exits non-zero or cannot be started.
type CommandError struct {
	Args     []string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by Resolve to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step.ExitCode()
	}
	return 1
}

// errorDetail prefers git's stderr over the wrapped error text.
func errorDetail(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && strings.TrimSpace(cmdErr.Stderr) != "" {
		return strings.TrimSpace(cmdErr.Stderr)
	}
	return err.Error()
}
