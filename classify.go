package civers

import (
	"regexp"
	"strings"
)

const (
	tagsRefPrefix       = "refs/tags/"
	branchRefPrefix     = "refs/heads/"
	releaseBranchPrefix = "release/"
)

var (
	releaseBranches     = map[string]bool{"master": true, "main": true, "release": true}
	developmentBranches = map[string]bool{"develop": true, "development": true}

	unsafeRuns = regexp.MustCompile(`[^a-zA-Z0-9.-]+`)
	dashRuns   = regexp.MustCompile(`-+`)
)

// MakeSafe reduces value to letters, digits, '.' and '-', collapsing runs of
// anything else into a single dash and trimming dashes from both ends.
func MakeSafe(value string) string {
	safe := unsafeRuns.ReplaceAllString(value, "-")
	safe = dashRuns.ReplaceAllString(safe, "-")
	safe = strings.TrimPrefix(safe, "-")
	return strings.TrimSuffix(safe, "-")
}

// Classify derives the branch name, its safe form, the branch class and the
// release label from a reference. Branches named release/<label> count as
// release branches alongside master, main, release and tag refs, so they
// report is_release_branch=true and release_label=<label> where matching
// the branch list alone would report a feature branch with an empty label.
func Classify(reference, commit string) Classification {
	branch := ""
	if strings.HasPrefix(reference, branchRefPrefix) {
		branch = strings.TrimPrefix(reference, branchRefPrefix)
	}

	class := ClassFeature
	switch {
	case releaseBranches[branch],
		strings.HasPrefix(branch, releaseBranchPrefix),
		strings.HasPrefix(reference, tagsRefPrefix):
		class = ClassRelease
	case developmentBranches[branch]:
		class = ClassDevelopment
	}

	return Classification{
		Reference:    reference,
		Commit:       commit,
		Branch:       branch,
		SafeBranch:   MakeSafe(branch),
		Class:        class,
		ReleaseLabel: releaseLabel(class, branch),
	}
}

// releaseLabel names a release: the safe suffix of a release/ branch, or
// "release" for every other release ref.
func releaseLabel(class BranchClass, branch string) string {
	if class != ClassRelease {
		return ""
	}
	if strings.HasPrefix(branch, releaseBranchPrefix) {
		return MakeSafe(strings.TrimPrefix(branch, releaseBranchPrefix))
	}
	return "release"
}
