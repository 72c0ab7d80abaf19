package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/jaxxstorm/civers"
	"github.com/jaxxstorm/civers/internal/actions"
)

// Version will be set by build process
var Version = "dev"

type CLI struct {
	Ref           string `env:"GITHUB_REF" help:"Triggering git reference (e.g. refs/heads/main)"`
	Sha           string `env:"GITHUB_SHA" help:"Triggering commit id"`
	OutputFile    string `env:"GITHUB_OUTPUT" help:"File step outputs are appended to (default: ::set-output commands)"`
	Repo          string `short:"r" help:"Repository path (default: current directory)"`
	Backend       string `default:"exec" enum:"exec,go-git" help:"Git implementation used for tag discovery"`
	RequireSemver bool   `help:"Fail when the nearest tag is not a semantic version"`
	JSON          bool   `short:"j" help:"Also print the result as JSON"`
	ShowVersion   bool   `help:"Show version information" name:"version"`
}

// newGit builds the tag discovery backend. Tests replace it.
var newGit = func(c *CLI) (civers.Git, error) {
	switch c.Backend {
	case "go-git":
		path := c.Repo
		if path == "" {
			path = "."
		}
		return civers.NewGoGit(path)
	default:
		return &civers.ExecGit{Dir: c.Repo}, nil
	}
}

func main() {
	var cli CLI

	kong.Parse(&cli,
		kong.Name("civers"),
		kong.Description("Calculate a CI build version from the triggering ref and the nearest git tag"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	os.Exit(civers.ExitCode(cli.Run()))
}

func (c *CLI) Run() (err error) {
	if c.ShowVersion {
		return c.showVersion()
	}

	log := actions.NewLogger(os.Stdout)
	defer func() {
		_ = log.Sync()
	}()

	// Step errors have already been reported by the resolver.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure: %v", r)
		}
		var stepErr *civers.StepError
		if err != nil && !errors.As(err, &stepErr) {
			log.Errorf("%v", err)
		}
	}()

	return c.calculateVersion(log)
}

func (c *CLI) showVersion() error {
	versionInfo := map[string]string{
		"version": Version,
		"name":    "civers",
	}

	if c.JSON {
		return json.NewEncoder(os.Stdout).Encode(versionInfo)
	}

	fmt.Printf("civers version %s\n", Version)
	return nil
}

func (c *CLI) calculateVersion(log *actions.Logger) error {
	backend, err := newGit(c)
	if err != nil {
		return fmt.Errorf("creating git backend: %w", err)
	}

	resolver, err := civers.NewResolver(civers.Options{
		Git:           backend,
		Sink:          actions.NewOutputs(os.Stdout, c.OutputFile),
		Logger:        log,
		RequireSemver: c.RequireSemver,
	})
	if err != nil {
		return err
	}

	result, err := resolver.Resolve(context.Background(), civers.Config{
		Reference: c.Ref,
		Commit:    c.Sha,
	})
	if err != nil {
		return err
	}

	if c.JSON {
		return json.NewEncoder(os.Stdout).Encode(result)
	}
	return nil
}
