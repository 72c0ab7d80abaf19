// OpenRepository is adapted from pulumictl (https://github.com/pulumi/pulumictl),
// licensed under the Apache License 2.0. See NOTICE for attribution.

package civers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// minAbbrev matches git's lower bound for --abbrev.
const minAbbrev = 4

// OpenRepository opens a Git repository at the specified path
func OpenRepository(path string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
}

// GoGit implements Git in-process on top of go-git, without a git binary.
type GoGit struct {
	Repository *git.Repository

	// RemoteName is the remote tags are fetched from (default: "origin").
	RemoteName string
}

// NewGoGit opens the repository containing path.
func NewGoGit(path string) (*GoGit, error) {
	repo, err := OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("opening repository %q: %w", path, err)
	}
	return &GoGit{Repository: repo}, nil
}

// IsShallow reports whether the storer records any shallow commits.
func (g *GoGit) IsShallow(_ context.Context) (bool, error) {
	shallows, err := g.Repository.Storer.Shallow()
	if err != nil {
		return false, fmt.Errorf("reading shallow commits: %w", err)
	}
	return len(shallows) > 0, nil
}

// FetchHistory force-fetches all tags from the remote. go-git cannot deepen an
// existing shallow clone, so unshallow is ignored and distances are counted
// over the history that is present. A repository without the remote has
// nothing to fetch.
func (g *GoGit) FetchHistory(ctx context.Context, _ bool) error {
	remote := g.RemoteName
	if remote == "" {
		remote = git.DefaultRemoteName
	}

	err := g.Repository.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remote,
		Tags:       git.AllTags,
		Force:      true,
	})
	switch {
	case err == nil,
		errors.Is(err, git.NoErrAlreadyUpToDate),
		errors.Is(err, git.ErrRemoteNotFound):
		return nil
	default:
		return fmt.Errorf("fetching tags from %s: %w", remote, err)
	}
}

// Describe produces `git describe --tags --abbrev=1 --long` style output for
// HEAD: the nearest tagged ancestor, the number of commits reachable from
// HEAD but not from that tag, and the shortest unique abbreviation of HEAD.
func (g *GoGit) Describe(ctx context.Context) (string, error) {
	repo := g.Repository

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}

	headCommit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return "", fmt.Errorf("getting commit object: %w", err)
	}

	tags, err := tagsByCommit(repo)
	if err != nil {
		return "", fmt.Errorf("listing tags: %w", err)
	}

	tag, distance, err := nearestTag(ctx, headCommit, tags)
	if err != nil {
		return "", err
	}
	if tag == nil {
		return "", fmt.Errorf("no names found, cannot describe anything")
	}

	abbrev, err := abbreviate(repo, headCommit.Hash)
	if err != nil {
		return "", fmt.Errorf("abbreviating %s: %w", headCommit.Hash, err)
	}

	return fmt.Sprintf("%s-%d-g%s", tag.name, distance, abbrev), nil
}

type describeTag struct {
	name      string
	annotated bool
	tagged    time.Time
}

// tagsByCommit maps each commit to the tags that point at it, peeling
// annotated tags to their target commit.
func tagsByCommit(repo *git.Repository) (map[plumbing.Hash][]describeTag, error) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, err
	}

	tags := make(map[plumbing.Hash][]describeTag)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}

		name := ref.Name().Short()
		obj, err := repo.TagObject(ref.Hash())
		switch err {
		case nil:
			// Annotated tag
			commit, err := obj.Commit()
			if err != nil {
				// Tags of trees and blobs cannot describe a commit
				return nil
			}
			tags[commit.Hash] = append(tags[commit.Hash], describeTag{
				name:      name,
				annotated: true,
				tagged:    obj.Tagger.When,
			})
		case plumbing.ErrObjectNotFound:
			// Lightweight tag
			tags[ref.Hash()] = append(tags[ref.Hash()], describeTag{name: name})
		default:
			return err
		}

		return nil
	})

	return tags, err
}

// nearestTag walks every commit reachable from head and returns the tag with
// the fewest commits between it and head, together with that distance. Equal
// distances are settled by preferTag.
func nearestTag(ctx context.Context, head *object.Commit,
	tags map[plumbing.Hash][]describeTag) (*describeTag, int, error) {

	var (
		best         *describeTag
		bestDistance int
	)

	err := object.NewCommitPreorderIter(head, nil, nil).ForEach(func(commit *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		candidates, ok := tags[commit.Hash]
		if !ok {
			return nil
		}

		distance, err := commitsSince(head, commit)
		if err != nil {
			return fmt.Errorf("counting commits since %s: %w", commit.Hash, err)
		}

		for i := range candidates {
			tag := &candidates[i]
			if best == nil || distance < bestDistance ||
				(distance == bestDistance && preferTag(*tag, *best)) {
				best, bestDistance = tag, distance
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return best, bestDistance, nil
}

// commitsSince counts commits reachable from head that are not reachable
// from base.
func commitsSince(head, base *object.Commit) (int, error) {
	seen := make(map[plumbing.Hash]bool)
	err := object.NewCommitPreorderIter(base, nil, nil).ForEach(func(c *object.Commit) error {
		seen[c.Hash] = true
		return nil
	})
	if err != nil {
		return 0, err
	}

	count := 0
	err = object.NewCommitPreorderIter(head, seen, nil).ForEach(func(*object.Commit) error {
		count++
		return nil
	})
	return count, err
}

// preferTag reports whether a should describe a commit instead of b, using
// git's order: annotated tags beat lightweight ones, the newer tagger date
// wins between annotated tags, and otherwise the lower name wins.
func preferTag(a, b describeTag) bool {
	if a.annotated != b.annotated {
		return a.annotated
	}
	if a.annotated && !a.tagged.Equal(b.tagged) {
		return a.tagged.After(b.tagged)
	}
	return a.name < b.name
}

// abbreviate returns the shortest prefix of hash, at least minAbbrev long,
// that no other object in the repository shares.
func abbreviate(repo *git.Repository, hash plumbing.Hash) (string, error) {
	full := hash.String()

	iter, err := repo.Storer.IterEncodedObjects(plumbing.AnyObject)
	if err != nil {
		return "", err
	}

	longest := 0
	err = iter.ForEach(func(obj plumbing.EncodedObject) error {
		other := obj.Hash()
		if other == hash {
			return nil
		}
		if n := commonPrefixLen(full, other.String()); n > longest {
			longest = n
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	length := longest + 1
	if length < minAbbrev {
		length = minAbbrev
	}
	if length > len(full) {
		length = len(full)
	}
	return full[:length], nil
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
