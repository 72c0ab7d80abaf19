package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jaxxstorm/civers"
	"github.com/stretchr/testify/require"
)

type stubGit struct {
	shallowErr error
	fetchErr   error
	describe   string
	panicMsg   string
}

func (s *stubGit) IsShallow(context.Context) (bool, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return false, s.shallowErr
}

func (s *stubGit) FetchHistory(context.Context, bool) error { return s.fetchErr }

func (s *stubGit) Describe(context.Context) (string, error) { return s.describe, nil }

// useGit swaps the backend factory for the duration of the test
func useGit(t *testing.T, g civers.Git) {
	t.Helper()
	original := newGit
	newGit = func(*CLI) (civers.Git, error) { return g, nil }
	t.Cleanup(func() { newGit = original })
}

// captureStdout runs fn with os.Stdout redirected and returns what it wrote
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	runErr := fn()

	w.Close()
	os.Stdout = oldStdout

	output, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(output), runErr
}

func TestCLIShowVersion(t *testing.T) {
	cli := &CLI{ShowVersion: true}

	output, err := captureStdout(t, cli.Run)
	require.NoError(t, err)
	require.Contains(t, output, "civers version")
	require.Contains(t, output, "dev")
}

func TestCLIShowVersionJSON(t *testing.T) {
	cli := &CLI{ShowVersion: true, JSON: true}

	output, err := captureStdout(t, cli.Run)
	require.NoError(t, err)

	var versionInfo map[string]string
	require.NoError(t, json.Unmarshal([]byte(output), &versionInfo))
	require.Equal(t, "dev", versionInfo["version"])
	require.Equal(t, "civers", versionInfo["name"])
}

func TestCLIRun(t *testing.T) {
	t.Run("Development branch", func(t *testing.T) {
		useGit(t, &stubGit{describe: "v1.4.0-5-gabc123"})
		cli := &CLI{Ref: "refs/heads/develop", Sha: "0123abc"}

		output, err := captureStdout(t, cli.Run)
		require.NoError(t, err)

		require.Contains(t, output, "Calculating version for refs/heads/develop (0123abc)\n")
		require.Contains(t, output, "::debug::git commit 0123abc\n")
		require.Contains(t, output, "Set is_development_branch=true\n")
		require.Contains(t, output, "::set-output name=long_version::1.4.0-5-develop\n")
		require.Contains(t, output, "Set git_commit=0123abc\n")
		require.True(t, strings.HasSuffix(output, "Version is \"1.4.0-5-develop\"\n"), output)

		// classification outputs come before any git diagnostics
		require.Less(t,
			strings.Index(output, "Set git_branch_safe=develop"),
			strings.Index(output, "::debug::Executing: 'git rev-parse --is-shallow-repository'"))
	})

	t.Run("Output file", func(t *testing.T) {
		useGit(t, &stubGit{describe: "v2.0.0-0-gbeef"})
		path := filepath.Join(t.TempDir(), "github_output")
		cli := &CLI{Ref: "refs/tags/v2.0.0", Sha: "beef", OutputFile: path}

		output, err := captureStdout(t, cli.Run)
		require.NoError(t, err)
		require.NotContains(t, output, "::set-output")

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Contains(t, string(content), "release_label=release\n")
		require.Contains(t, string(content), "long_version=2.0.0\n")
		require.Len(t, strings.Split(strings.TrimSpace(string(content)), "\n"), 13)
	})

	t.Run("JSON result", func(t *testing.T) {
		useGit(t, &stubGit{describe: "v1.4.0-5-gabc123"})
		cli := &CLI{Ref: "refs/pull/9/merge", Sha: "cafe", JSON: true}

		output, err := captureStdout(t, cli.Run)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(output), "\n")
		var result map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &result))
		require.Equal(t, "1.4.0-5-abc123", result["long_version"])
		require.Equal(t, true, result["is_feature_branch_or_pr"])
		require.Equal(t, "cafe", result["git_commit"])
		require.Equal(t, "abc123", result["git_describe_object_id"])
	})

	t.Run("Shallow check failure", func(t *testing.T) {
		useGit(t, &stubGit{shallowErr: &civers.CommandError{
			Args:   []string{"rev-parse", "--is-shallow-repository"},
			Stderr: "fatal: not a git repository",
			Err:    errors.New("exit status 128"),
		}})
		cli := &CLI{Ref: "refs/heads/main"}

		output, err := captureStdout(t, cli.Run)
		require.Error(t, err)
		require.Equal(t, 2, civers.ExitCode(err))
		require.Contains(t, output,
			"::error::Failed to execute 'git rev-parse --is-shallow-repository'.%0Afatal: not a git repository\n")
		require.Equal(t, 1, strings.Count(output, "::error::"))
	})

	t.Run("Fetch failure", func(t *testing.T) {
		useGit(t, &stubGit{fetchErr: errors.New("network unreachable")})
		cli := &CLI{Ref: "refs/heads/main"}

		output, err := captureStdout(t, cli.Run)
		require.Error(t, err)
		require.Equal(t, 1, civers.ExitCode(err))
		require.Contains(t, output, "::error::Unable to find an earlier tag.%0Anetwork unreachable\n")
	})

	t.Run("Empty reference", func(t *testing.T) {
		useGit(t, &stubGit{describe: "v1.0.0-2-gabcd"})
		cli := &CLI{Sha: "abc"}

		output, err := captureStdout(t, cli.Run)
		require.NoError(t, err)
		require.NotContains(t, output, "::error::")
		require.Contains(t, output, "Set is_feature_branch_or_pr=true\n")
		require.Contains(t, output, "Set git_branch=\n")
		require.Contains(t, output, "::set-output name=long_version::1.0.0-2-abcd\n")
	})

	t.Run("Unexpected panic", func(t *testing.T) {
		useGit(t, &stubGit{panicMsg: "boom"})
		cli := &CLI{Ref: "refs/heads/main"}

		output, err := captureStdout(t, cli.Run)
		require.Error(t, err)
		require.Equal(t, 1, civers.ExitCode(err))
		require.Contains(t, output, "::error::unexpected failure: boom\n")
	})
}

func TestNewGit(t *testing.T) {
	t.Run("Exec backend", func(t *testing.T) {
		g, err := newGit(&CLI{Backend: "exec", Repo: "/tmp/repo"})
		require.NoError(t, err)
		require.Equal(t, &civers.ExecGit{Dir: "/tmp/repo"}, g)
	})

	t.Run("go-git backend outside a repository", func(t *testing.T) {
		_, err := newGit(&CLI{Backend: "go-git", Repo: t.TempDir()})
		require.Error(t, err)
	})

	t.Run("Backend error is reported", func(t *testing.T) {
		cli := &CLI{Ref: "refs/heads/main", Backend: "go-git", Repo: t.TempDir()}

		output, err := captureStdout(t, cli.Run)
		require.Error(t, err)
		require.Equal(t, 1, civers.ExitCode(err))
		require.Contains(t, output, "::error::creating git backend")
	})
}
