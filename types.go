// Package civers computes CI build versions from the triggering git reference
// and the repository's tag history.
package civers

import (
	"context"
	"strconv"
)

// BranchClass is the category a reference falls into. Exactly one applies.
type BranchClass int

const (
	// ClassFeature covers feature branches, pull requests and any other ref.
	ClassFeature BranchClass = iota

	// ClassRelease covers master, main, release and every tag ref.
	ClassRelease

	// ClassDevelopment covers develop and development.
	ClassDevelopment
)

// String returns a human-readable name for the class.
func (c BranchClass) String() string {
	switch c {
	case ClassRelease:
		return "release"
	case ClassDevelopment:
		return "development"
	case ClassFeature:
		return "feature"
	default:
		return "unknown"
	}
}

// Config is the input for a single resolution, normally populated from
// GITHUB_REF and GITHUB_SHA.
type Config struct {
	// Reference is the fully qualified triggering ref, e.g. refs/heads/main
	Reference string

	// Commit is the triggering commit id. It is passed through untouched.
	Commit string
}

// Classification is the result of classifying a reference.
type Classification struct {
	Reference    string      `json:"-"`
	Commit       string      `json:"git_commit"`
	Branch       string      `json:"git_branch"`
	SafeBranch   string      `json:"git_branch_safe"`
	Class        BranchClass `json:"-"`
	ReleaseLabel string      `json:"release_label"`
}

// IsRelease reports whether the ref is a release branch or a tag.
func (c Classification) IsRelease() bool { return c.Class == ClassRelease }

// IsDevelopment reports whether the ref is a development branch.
func (c Classification) IsDevelopment() bool { return c.Class == ClassDevelopment }

// IsFeatureOrPR reports whether the ref is neither release nor development.
func (c Classification) IsFeatureOrPR() bool { return c.Class == ClassFeature }

// Describe holds the fields extracted from `git describe --long` output.
type Describe struct {
	Raw             string `json:"git_describe"`
	Tag             string `json:"git_tag"`
	CommitsSinceTag string `json:"git_commits_since_tag"`
	ObjectID        string `json:"git_describe_object_id"`
}

// Result is everything a resolution reports.
type Result struct {
	Classification
	Describe
	IsReleaseBranch     bool   `json:"is_release_branch"`
	IsDevelopmentBranch bool   `json:"is_development_branch"`
	IsFeatureBranchOrPR bool   `json:"is_feature_branch_or_pr"`
	Version             string `json:"version"`
	LongVersion         string `json:"long_version"`
}

// Output is a single key/value pair written to the CI output channel.
type Output struct {
	Key   string
	Value string
}

// Outputs returns the classification keys in the order they are reported.
func (c Classification) Outputs() []Output {
	return []Output{
		{"release_label", c.ReleaseLabel},
		{"is_release_branch", strconv.FormatBool(c.IsRelease())},
		{"is_development_branch", strconv.FormatBool(c.IsDevelopment())},
		{"is_feature_branch_or_pr", strconv.FormatBool(c.IsFeatureOrPR())},
		{"git_branch", c.Branch},
		{"git_branch_safe", c.SafeBranch},
	}
}

// TagOutputs returns the keys that depend on tag discovery, in reporting order.
func (r *Result) TagOutputs() []Output {
	return []Output{
		{"git_tag", r.Tag},
		{"version", r.Version},
		{"git_commit", r.Commit},
		{"git_describe_object_id", r.ObjectID},
		{"git_commits_since_tag", r.CommitsSinceTag},
		{"git_describe", r.Raw},
		{"long_version", r.LongVersion},
	}
}

// Outputs returns every key in reporting order.
func (r *Result) Outputs() []Output {
	return append(r.Classification.Outputs(), r.TagOutputs()...)
}

// Git is the version-control collaborator used for tag discovery.
type Git interface {
	// IsShallow reports whether the repository is a shallow clone.
	IsShallow(ctx context.Context) (bool, error)

	// FetchHistory fetches history and all tags, deepening a shallow clone
	// when unshallow is set.
	FetchHistory(ctx context.Context, unshallow bool) error

	// Describe returns the long-form describe text for HEAD.
	Describe(ctx context.Context) (string, error)
}

// OutputSink receives reported key/value pairs.
type OutputSink interface {
	SetOutput(key, value string) error
}

// Logger receives diagnostic lines.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}
