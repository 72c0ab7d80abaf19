package civers

import (
	"context"
	"errors"
	"fmt"
)

// Options configures a Resolver.
type Options struct {
	// Git performs tag discovery. Required.
	Git Git

	// Sink receives every reported key. Optional.
	Sink OutputSink

	// Logger receives diagnostics. Optional.
	Logger Logger

	// RequireSemver fails tag discovery when the tag is not a semantic version
	RequireSemver bool
}

// Resolver runs classification, tag discovery and composition in order.
type Resolver struct {
	git           Git
	sink          OutputSink
	log           Logger
	requireSemver bool
}

// NewResolver creates a Resolver from opts.
func NewResolver(opts Options) (*Resolver, error) {
	if opts.Git == nil {
		return nil, fmt.Errorf("git backend is required")
	}

	r := &Resolver{
		git:           opts.Git,
		sink:          opts.Sink,
		log:           opts.Logger,
		requireSemver: opts.RequireSemver,
	}
	if r.sink == nil {
		r.sink = discardSink{}
	}
	if r.log == nil {
		r.log = nopLogger{}
	}
	return r, nil
}

// Resolve computes the version for cfg. Classification outputs are reported
// before git is consulted; a failing step stops the pipeline and is returned
// as a *StepError. An empty reference names no branch and resolves as a
// feature ref.
func (r *Resolver) Resolve(ctx context.Context, cfg Config) (*Result, error) {
	r.log.Infof("Calculating version for %s (%s)", cfg.Reference, cfg.Commit)
	r.log.Debugf("git commit %s", cfg.Commit)
	r.log.Debugf("git ref %s", cfg.Reference)

	classification := Classify(cfg.Reference, cfg.Commit)
	if err := r.report(classification.Outputs()); err != nil {
		return nil, err
	}

	shallow, err := r.checkShallow(ctx)
	if err != nil {
		return nil, &StepError{Step: StepShallowCheck, Err: err}
	}

	describe, err := r.discoverTag(ctx, shallow)
	if err != nil {
		return nil, &StepError{Step: StepDescribe, Err: err}
	}

	result := &Result{
		Classification:      classification,
		Describe:            describe,
		IsReleaseBranch:     classification.IsRelease(),
		IsDevelopmentBranch: classification.IsDevelopment(),
		IsFeatureBranchOrPR: classification.IsFeatureOrPR(),
		Version:             describe.Tag,
		LongVersion:         ComposeLongVersion(describe, classification),
	}

	if err := r.report(result.TagOutputs()); err != nil {
		return nil, err
	}

	r.log.Infof("Version is %q", result.LongVersion)
	return result, nil
}

func (r *Resolver) checkShallow(ctx context.Context) (bool, error) {
	r.log.Debugf("Executing: 'git rev-parse --is-shallow-repository'")
	shallow, err := r.git.IsShallow(ctx)
	if err != nil {
		r.log.Errorf("Failed to execute 'git rev-parse --is-shallow-repository'.\n%s", errorDetail(err))
		return false, err
	}
	r.log.Debugf("shallow = %t", shallow)
	return shallow, nil
}

func (r *Resolver) discoverTag(ctx context.Context, shallow bool) (Describe, error) {
	r.log.Debugf("Fetching history and tags (unshallow = %t)", shallow)
	if err := r.git.FetchHistory(ctx, shallow); err != nil {
		r.log.Errorf("Unable to find an earlier tag.\n%s", errorDetail(err))
		return Describe{}, err
	}

	raw, err := r.git.Describe(ctx)
	if err != nil {
		r.log.Errorf("Unable to find an earlier tag.\n%s", errorDetail(err))
		return Describe{}, err
	}
	r.log.Debugf("git describe output: %s", raw)

	describe, err := ParseDescribe(raw)
	if err != nil {
		r.log.Errorf("Unable to parse git describe output %q", raw)
		return Describe{}, err
	}

	if _, err := describe.SemVer(); err != nil {
		if r.requireSemver {
			r.log.Errorf("Tag %q is not a semantic version", describe.Tag)
			return Describe{}, err
		}
		r.log.Warnf("Tag %q is not a semantic version", describe.Tag)
	}

	return describe, nil
}

func (r *Resolver) report(outputs []Output) error {
	var errs []error
	for _, o := range outputs {
		if err := r.sink.SetOutput(o.Key, o.Value); err != nil {
			errs = append(errs, fmt.Errorf("setting output %s: %w", o.Key, err))
		}
	}
	return errors.Join(errs...)
}

type discardSink struct{}

func (discardSink) SetOutput(string, string) error { return nil }

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
